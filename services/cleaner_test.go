package services

import (
	"errors"
	"testing"

	"coinafrique-scraper/models"
	"coinafrique-scraper/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func newTestCleaner() *Cleaner {
	return NewCleaner(newTestLogger(), NewClassifier(SignalCombined))
}

func TestNegotiateSchemaExtension(t *testing.T) {
	s, err := NegotiateSchema([]string{"web-scraper-order", "web_scraper_start_url", "V1", "V2", "V3", "V4"})
	if err != nil {
		t.Fatalf("NegotiateSchema: %v", err)
	}
	want := Schema{Title: 2, Price: 3, Location: 4, Image: 5, SourceURL: 1}
	if s != want {
		t.Errorf("schema: got %+v, want %+v", s, want)
	}
}

func TestNegotiateSchemaNamed(t *testing.T) {
	s, err := NegotiateSchema([]string{"V1_Nom_ou_details", "V2_prix", "V3_adresse", "V4_image_lien"})
	if err != nil {
		t.Fatalf("NegotiateSchema: %v", err)
	}
	want := Schema{Title: 0, Price: 1, Location: 2, Image: 3, SourceURL: -1}
	if s != want {
		t.Errorf("schema: got %+v, want %+v", s, want)
	}
}

func TestNegotiateSchemaPrefersShortNames(t *testing.T) {
	s, err := NegotiateSchema([]string{"V1_Nom_ou_details", "V1", "V2_prix", "V2"})
	if err != nil {
		t.Fatalf("NegotiateSchema: %v", err)
	}
	if s.Title != 1 || s.Price != 3 {
		t.Errorf("expected V1/V2 to win, got %+v", s)
	}
}

func TestNegotiateSchemaUnknown(t *testing.T) {
	_, err := NegotiateSchema([]string{"name", "cost"})
	if !errors.Is(err, ErrUnknownSchema) {
		t.Errorf("got %v, want ErrUnknownSchema", err)
	}
}

func TestCleanerClassifiesFromTitleAndURL(t *testing.T) {
	c := newTestCleaner()
	table := &models.RawTable{
		Header: []string{"V1", "V2", "web_scraper_start_url"},
		Rows: [][]string{
			{"Mouton à vendre", "150 000 CFA", ""},
			{"", "CFA", "https://sn.coinafrique.com/categorie/poules-lapins-et-pigeons"},
		},
	}

	cleaned, err := c.Clean(table)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(cleaned))
	}
	if cleaned[0].Category != models.Sheep {
		t.Errorf("row 0 category: got %s, want Sheep", cleaned[0].Category)
	}
	if cleaned[0].Price != models.PriceOf(150000) {
		t.Errorf("row 0 price: got %+v", cleaned[0].Price)
	}
	if cleaned[1].Category != models.PoultryRabbitsPigeons {
		t.Errorf("row 1 category: got %s, want PoultryRabbitsPigeons", cleaned[1].Category)
	}
	if cleaned[1].Details != nil {
		t.Errorf("row 1 details should be nil, got %q", *cleaned[1].Details)
	}
	if cleaned[1].Price.Valid {
		t.Errorf("row 1 price should be missing, got %+v", cleaned[1].Price)
	}
}

func TestCleanerPreservesRowCount(t *testing.T) {
	c := newTestCleaner()
	table := &models.RawTable{
		Header: []string{"V1_Nom_ou_details", "V2_prix", "V3_adresse", "V4_image_lien"},
		Rows: [][]string{
			{"Chiot", "50 000 CFA", "Dakar", "https://img/1.jpg"},
			{"Chiot", "50 000 CFA", "Dakar", "https://img/1.jpg"},
			{"short row"},
			{},
		},
	}

	cleaned, err := c.Clean(table)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(cleaned) != len(table.Rows) {
		t.Fatalf("row count: got %d, want %d", len(cleaned), len(table.Rows))
	}
	if models.Deref(cleaned[0].Location) != "Dakar" || models.Deref(cleaned[0].ImageURL) != "https://img/1.jpg" {
		t.Errorf("pass-through fields lost: %+v", cleaned[0])
	}
	if cleaned[2].RawPrice != nil || cleaned[3].Details != nil {
		t.Error("short rows should yield nil fields")
	}
	if cleaned[3].Category != models.OtherAnimals {
		t.Errorf("empty row category: got %s, want OtherAnimals", cleaned[3].Category)
	}
}

func TestCleanerUnknownSchema(t *testing.T) {
	c := newTestCleaner()
	_, err := c.Clean(&models.RawTable{Header: []string{"a", "b"}})
	if !errors.Is(err, ErrUnknownSchema) {
		t.Errorf("got %v, want ErrUnknownSchema", err)
	}
}

func TestCleanerPassesFieldsThroughUnchanged(t *testing.T) {
	c := newTestCleaner()
	table := &models.RawTable{
		Header: []string{"V1", "V2", "V3", "V4"},
		Rows: [][]string{
			{"  Bélier ladoum ", " 1 200 000 CFA", " Thiès ", "https://img/2.jpg "},
			{"Lapin", "   ", "\t", ""},
		},
	}

	cleaned, err := c.Clean(table)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}

	first := cleaned[0]
	if models.Deref(first.Details) != "  Bélier ladoum " ||
		models.Deref(first.RawPrice) != " 1 200 000 CFA" ||
		models.Deref(first.Location) != " Thiès " ||
		models.Deref(first.ImageURL) != "https://img/2.jpg " {
		t.Errorf("fields should be passed through as read, got %+v", first)
	}
	if !first.Price.Valid || first.Price.Value != 1200000 {
		t.Errorf("price: got %+v, want 1200000", first.Price)
	}

	second := cleaned[1]
	if second.RawPrice != nil || second.Location != nil || second.ImageURL != nil {
		t.Errorf("blank cells should be nil, got %+v", second)
	}
}
