package coinafrique

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

// ExtractionError reports a card whose structure could not be read. The
// card is dropped; the rest of the page is unaffected.
type ExtractionError struct {
	Index int
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract card %d: %v", e.Index, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor reads the raw fields of listing cards.
type Extractor struct {
	logger *utils.Logger
}

// NewExtractor creates an Extractor with the given logger.
func NewExtractor(logger *utils.Logger) *Extractor {
	return &Extractor{logger: logger}
}

// ExtractPage returns the fields of every readable card in document order
// and the number of cards that had to be dropped.
func (e *Extractor) ExtractPage(doc *goquery.Document) ([]models.Fields, int) {
	cards := doc.Find(CardSelector)
	out := make([]models.Fields, 0, cards.Length())
	dropped := 0

	cards.Each(func(i int, card *goquery.Selection) {
		f, err := e.Extract(i, card)
		if err != nil {
			dropped++
			e.logger.Warn("[extractor] dropping card: %v", err)
			return
		}
		out = append(out, f)
	})
	return out, dropped
}

// Extract reads the four fields of one card. An absent node or attribute
// leaves that field nil; any panic while reading is returned as an
// *ExtractionError.
func (e *Extractor) Extract(index int, card *goquery.Selection) (f models.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			f = models.Fields{}
			err = &ExtractionError{Index: index, Err: fmt.Errorf("%v", r)}
		}
	}()

	f.Details = text(card, DetailsSelector)
	f.RawPrice = text(card, PriceSelector)
	f.Location = text(card, LocationSelector)
	f.ImageURL = attr(card, ImageSelector, ImageAttribute)
	return f, nil
}

func text(card *goquery.Selection, selector string) *string {
	node := card.Find(selector).First()
	if node.Length() == 0 {
		return nil
	}
	v := strings.TrimSpace(node.Text())
	return &v
}

func attr(card *goquery.Selection, selector, name string) *string {
	node := card.Find(selector).First()
	if node.Length() == 0 {
		return nil
	}
	v, ok := node.Attr(name)
	if !ok {
		return nil
	}
	v = strings.TrimSpace(v)
	return &v
}
