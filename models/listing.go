package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Category is the closed set of animal categories a listing can belong to.
type Category string

const (
	Dogs                  Category = "Dogs"
	Sheep                 Category = "Sheep"
	PoultryRabbitsPigeons Category = "PoultryRabbitsPigeons"
	OtherAnimals          Category = "OtherAnimals"
)

// ErrUnknownCategory is returned when a label cannot be mapped to a Category.
var ErrUnknownCategory = errors.New("unknown category")

// Categories lists every label in classification priority order.
var Categories = []Category{Dogs, Sheep, PoultryRabbitsPigeons, OtherAnimals}

var displayNames = map[Category]string{
	Dogs:                  "Chiens",
	Sheep:                 "Moutons",
	PoultryRabbitsPigeons: "Poules, Lapins, Pigeons",
	OtherAnimals:          "Autres Animaux",
}

var slugs = map[Category]string{
	Dogs:                  "chiens",
	Sheep:                 "moutons",
	PoultryRabbitsPigeons: "poules-lapins-et-pigeons",
	OtherAnimals:          "autres-animaux",
}

// DisplayName returns the label shown on the source site.
func (c Category) DisplayName() string { return displayNames[c] }

// Slug returns the path segment the source site uses for the category.
func (c Category) Slug() string { return slugs[c] }

// Valid reports whether c belongs to the closed label set.
func (c Category) Valid() bool {
	_, ok := displayNames[c]
	return ok
}

// ParseCategory accepts a label, a display name or a site slug, case-insensitively.
func ParseCategory(s string) (Category, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if needle == strings.ToLower(string(c)) ||
			needle == strings.ToLower(c.DisplayName()) ||
			needle == c.Slug() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// Price is a numeric price that may be missing. Missing is distinct from zero.
type Price struct {
	Value float64
	Valid bool
}

// Missing is the explicit "no valid number" price.
var Missing = Price{}

// PriceOf wraps a known value.
func PriceOf(v float64) Price { return Price{Value: v, Valid: true} }

// String renders the price as text, empty when missing.
func (p Price) String() string {
	if !p.Valid {
		return ""
	}
	return strconv.FormatFloat(p.Value, 'f', -1, 64)
}

func (p Price) MarshalJSON() ([]byte, error) {
	if !p.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(p.Value)
}

func (p *Price) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = Missing
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = PriceOf(v)
	return nil
}

// Fields holds the four raw strings read from one listing card.
// A nil field means the node or attribute was absent.
type Fields struct {
	Details  *string
	RawPrice *string
	Location *string
	ImageURL *string
}

// Listing is one classified ad. It is built once and never mutated; the
// cleaner produces new values instead of editing scraped ones.
type Listing struct {
	Details   *string  `json:"details"`
	RawPrice  *string  `json:"price_raw"`
	Location  *string  `json:"location"`
	ImageURL  *string  `json:"image_ref"`
	SourceURL *string  `json:"source_url,omitempty"`
	Category  Category `json:"category"`
	Price     Price    `json:"price"`
}

// RawTable is bulk tabular input whose column names are not yet negotiated.
type RawTable struct {
	Header []string
	Rows   [][]string
}

// RunMetrics describes one orchestration run.
type RunMetrics struct {
	Category         Category      `json:"category"`
	PagesRequested   int           `json:"pages_requested"`
	PagesFetched     int           `json:"pages_fetched"`
	PagesFailed      int           `json:"pages_failed"`
	FragmentsDropped int           `json:"fragments_dropped"`
	RecordCount      int           `json:"record_count"`
	Elapsed          time.Duration `json:"-"`
	ElapsedSeconds   float64       `json:"elapsed_seconds"`
}

// NoData reports the "nothing extracted" condition.
func (m RunMetrics) NoData() bool { return m.RecordCount == 0 }

// Summary holds the aggregates computed over a dataset. It is derived on
// demand and never stored on its own.
type Summary struct {
	TotalCount          int                `json:"total_count"`
	PricedCount         int                `json:"priced_count"`
	CategoryCounts      map[Category]int   `json:"category_counts"`
	MeanPrice           Price              `json:"mean_price_overall"`
	MeanPriceByCategory map[Category]Price `json:"mean_price_by_category"`
	MinPrice            Price              `json:"min_price"`
	MaxPrice            Price              `json:"max_price"`
	MostExpensive       *Listing           `json:"most_expensive,omitempty"`
}

// ActiveCategories is the number of distinct labels observed.
func (s *Summary) ActiveCategories() int { return len(s.CategoryCounts) }

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Deref returns the string or "" when nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
