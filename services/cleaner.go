package services

import (
	"errors"
	"strings"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// ErrUnknownSchema is returned when a table has neither a title nor a price column.
var ErrUnknownSchema = errors.New("cleaner: no known title or price column")

// Column candidates per field, in lookup priority order. Two exports are
// known: the browser extension one (V1, V2, ...) and the named one
// (V1_Nom_ou_details, V2_prix, ...).
var (
	titleColumns    = []string{"V1", "V1_Nom_ou_details"}
	priceColumns    = []string{"V2", "V2_prix"}
	locationColumns = []string{"V3", "V3_adresse"}
	imageColumns    = []string{"V4", "V4_image_lien"}
	sourceColumns   = []string{"web_scraper_start_url", "web-scraper-start-url"}
)

// Schema holds the column index of each field in a negotiated table, -1
// when the table does not carry that field.
type Schema struct {
	Title     int
	Price     int
	Location  int
	Image     int
	SourceURL int
}

// NegotiateSchema detects the column layout of a header once.
func NegotiateSchema(header []string) (Schema, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	pick := func(candidates []string) int {
		for _, c := range candidates {
			if i, ok := index[c]; ok {
				return i
			}
		}
		return -1
	}

	s := Schema{
		Title:     pick(titleColumns),
		Price:     pick(priceColumns),
		Location:  pick(locationColumns),
		Image:     pick(imageColumns),
		SourceURL: pick(sourceColumns),
	}
	if s.Title < 0 && s.Price < 0 {
		return s, ErrUnknownSchema
	}
	return s, nil
}

// Cleaner re-derives category and numeric price for externally supplied rows.
type Cleaner struct {
	logger     *utils.Logger
	classifier *Classifier
}

// NewCleaner creates a Cleaner with the given logger and classifier.
func NewCleaner(logger *utils.Logger, classifier *Classifier) *Cleaner {
	return &Cleaner{logger: logger, classifier: classifier}
}

// Clean produces exactly one listing per input row, in input order. No row
// is filtered or deduplicated.
func (c *Cleaner) Clean(table *models.RawTable) ([]*models.Listing, error) {
	schema, err := NegotiateSchema(table.Header)
	if err != nil {
		return nil, err
	}

	result := make([]*models.Listing, 0, len(table.Rows))
	for _, row := range table.Rows {
		result = append(result, c.cleanRow(schema, row))
	}

	c.logger.Info("[cleaner] Cleaned %d rows", len(result))
	return result, nil
}

func (c *Cleaner) cleanRow(s Schema, row []string) *models.Listing {
	l := &models.Listing{
		Details:   cell(row, s.Title),
		RawPrice:  cell(row, s.Price),
		Location:  cell(row, s.Location),
		ImageURL:  cell(row, s.Image),
		SourceURL: cell(row, s.SourceURL),
	}
	l.Category = c.classifier.ClassifyRow(l.Details, l.SourceURL)
	l.Price = NormalizePrice(l.RawPrice)
	return l
}

// cell returns nil for absent columns, short rows and blank cells. Any
// other value is passed through as read.
func cell(row []string, idx int) *string {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	if strings.TrimSpace(row[idx]) == "" {
		return nil
	}
	v := row[idx]
	return &v
}
