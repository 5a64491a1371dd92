package services

import (
	"testing"

	"coinafrique-scraper/models"
)

func TestClassify(t *testing.T) {
	c := NewClassifier(SignalCombined)

	tests := []struct {
		signal string
		want   models.Category
	}{
		{"Chiot berger allemand CHIEN de race", models.Dogs},
		{"chien et mouton à vendre", models.Dogs},
		{"Mouton à vendre", models.Sheep},
		{"Moutons ladoum", models.Sheep},
		{"mouton et poules", models.Sheep},
		{"Poules pondeuses", models.PoultryRabbitsPigeons},
		{"Lapins nains", models.PoultryRabbitsPigeons},
		{"Pigeons voyageurs", models.PoultryRabbitsPigeons},
		{"Perroquet gris du Gabon", models.OtherAnimals},
		{"", models.OtherAnimals},
	}

	for _, tt := range tests {
		if got := c.Classify(tt.signal); got != tt.want {
			t.Errorf("Classify(%q) = %s; want %s", tt.signal, got, tt.want)
		}
	}
}

func TestClassifyDogsWinsRegardlessOfOtherKeywords(t *testing.T) {
	c := NewClassifier(SignalCombined)
	for _, s := range []string{
		"lapin pigeon poule mouton CHIEN",
		"https://sn.coinafrique.com/categorie/moutons chiens",
		"ChIeN",
	} {
		if got := c.Classify(s); got != models.Dogs {
			t.Errorf("Classify(%q) = %s; want Dogs", s, got)
		}
	}
}

func TestClassifyRowModes(t *testing.T) {
	url := models.StringPtr("https://sn.coinafrique.com/categorie/poules-lapins-et-pigeons")
	empty := models.StringPtr("")

	combined := NewClassifier(SignalCombined)
	if got := combined.ClassifyRow(empty, url); got != models.PoultryRabbitsPigeons {
		t.Errorf("combined: got %s, want PoultryRabbitsPigeons", got)
	}
	if got := combined.ClassifyRow(nil, nil); got != models.OtherAnimals {
		t.Errorf("combined with no signal: got %s, want OtherAnimals", got)
	}

	legacy := NewClassifier(SignalTitleOnly)
	if got := legacy.ClassifyRow(empty, url); got != models.OtherAnimals {
		t.Errorf("title-only should ignore the URL, got %s", got)
	}
	if got := legacy.ClassifyRow(models.StringPtr("Mouton à vendre"), url); got != models.Sheep {
		t.Errorf("title-only: got %s, want Sheep", got)
	}
}

func TestParseSignalMode(t *testing.T) {
	if m, err := ParseSignalMode("title"); err != nil || m != SignalTitleOnly {
		t.Errorf("ParseSignalMode(title) = %v, %v", m, err)
	}
	if m, err := ParseSignalMode(""); err != nil || m != SignalCombined {
		t.Errorf("ParseSignalMode(\"\") = %v, %v", m, err)
	}
	if _, err := ParseSignalMode("fuzzy"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
