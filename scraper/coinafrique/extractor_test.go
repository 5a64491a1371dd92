package coinafrique

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestExtractFullCard(t *testing.T) {
	e := NewExtractor(utils.NewDiscardLogger())
	fields, dropped := e.ExtractPage(parse(t, page(fullCard)))
	if dropped != 0 || len(fields) != 1 {
		t.Fatalf("got %d fields, %d dropped", len(fields), dropped)
	}

	f := fields[0]
	if models.Deref(f.Details) != "Chiot berger allemand" {
		t.Errorf("Details: got %q", models.Deref(f.Details))
	}
	if models.Deref(f.RawPrice) != "5 000 CFA" {
		t.Errorf("RawPrice: got %q", models.Deref(f.RawPrice))
	}
	if models.Deref(f.Location) != "location_on" {
		t.Errorf("Location: got %q", models.Deref(f.Location))
	}
	if models.Deref(f.ImageURL) != "https://images.coinafrique.com/1.jpg" {
		t.Errorf("ImageURL: got %q", models.Deref(f.ImageURL))
	}
}

func TestExtractMissingFieldsAreNil(t *testing.T) {
	e := NewExtractor(utils.NewDiscardLogger())

	tests := []struct {
		name                            string
		card                            string
		details, price, location, image bool
	}{
		{"image without src, no location", noDigitsCard, true, true, false, false},
		{"no price, no image", noPriceCard, true, false, true, false},
		{"empty card", `<div class="col s6 m4 l3"></div>`, false, false, false, false},
		{"image only", `<div class="col s6 m4 l3"><div class="card-image"><img src="x.png"></div></div>`, false, false, false, true},
	}

	for _, tt := range tests {
		fields, dropped := e.ExtractPage(parse(t, page(tt.card)))
		if dropped != 0 || len(fields) != 1 {
			t.Fatalf("%s: got %d fields, %d dropped", tt.name, len(fields), dropped)
		}
		f := fields[0]
		if (f.Details != nil) != tt.details ||
			(f.RawPrice != nil) != tt.price ||
			(f.Location != nil) != tt.location ||
			(f.ImageURL != nil) != tt.image {
			t.Errorf("%s: presence details=%v price=%v location=%v image=%v",
				tt.name, f.Details != nil, f.RawPrice != nil, f.Location != nil, f.ImageURL != nil)
		}
	}
}

func TestExtractPageKeepsOrderAndIgnoresOtherBlocks(t *testing.T) {
	e := NewExtractor(utils.NewDiscardLogger())
	html := page(fullCard, `<div class="col s12">banner</div>`, noDigitsCard, noPriceCard)

	fields, _ := e.ExtractPage(parse(t, html))
	if len(fields) != 3 {
		t.Fatalf("got %d cards, want 3", len(fields))
	}
	want := []string{"Chiot berger allemand", "Rottweiler", "Caniche nain"}
	for i, w := range want {
		if models.Deref(fields[i].Details) != w {
			t.Errorf("card %d: got %q, want %q", i, models.Deref(fields[i].Details), w)
		}
	}
}

func TestExtractRecoversFromBrokenCard(t *testing.T) {
	e := NewExtractor(utils.NewDiscardLogger())

	f, err := e.Extract(7, nil)
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("got %v, want *ExtractionError", err)
	}
	if ee.Index != 7 {
		t.Errorf("Index: got %d, want 7", ee.Index)
	}
	if f.Details != nil || f.RawPrice != nil {
		t.Errorf("fields of a failed card should be empty, got %+v", f)
	}
}

func TestExtractPageNoCards(t *testing.T) {
	e := NewExtractor(utils.NewDiscardLogger())
	fields, dropped := e.ExtractPage(parse(t, "<html><body><p>maintenance</p></body></html>"))
	if len(fields) != 0 || dropped != 0 {
		t.Errorf("got %d fields, %d dropped; want none", len(fields), dropped)
	}
}
