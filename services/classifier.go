package services

import (
	"fmt"
	"strings"

	"coinafrique-scraper/models"
)

// SignalMode selects which fields feed the category heuristic.
type SignalMode int

const (
	// SignalCombined uses the title joined with the source URL.
	SignalCombined SignalMode = iota
	// SignalTitleOnly uses the title alone. Legacy behaviour.
	SignalTitleOnly
)

// ParseSignalMode maps a CLASSIFIER_MODE value to a SignalMode.
func ParseSignalMode(s string) (SignalMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "combined":
		return SignalCombined, nil
	case "title", "title-only", "legacy":
		return SignalTitleOnly, nil
	}
	return SignalCombined, fmt.Errorf("unknown classifier mode %q", s)
}

type keywordRule struct {
	category models.Category
	keywords []string
}

// Evaluated in order; first match wins.
var keywordRules = []keywordRule{
	{models.Dogs, []string{"chien"}},
	{models.Sheep, []string{"mouton"}},
	{models.PoultryRabbitsPigeons, []string{"poule", "lapin", "pigeon"}},
}

// Classifier derives a category label from free text.
type Classifier struct {
	mode SignalMode
}

// NewClassifier creates a Classifier using the given signal mode.
func NewClassifier(mode SignalMode) *Classifier {
	return &Classifier{mode: mode}
}

// Mode returns the configured signal mode.
func (c *Classifier) Mode() SignalMode { return c.mode }

// Classify lower-cases the signal and returns the first matching label,
// OtherAnimals when nothing matches.
func (c *Classifier) Classify(signal string) models.Category {
	text := strings.ToLower(signal)
	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return models.OtherAnimals
}

// ClassifyRow builds the signal from a row's title and optional source URL
// according to the mode, then classifies it.
func (c *Classifier) ClassifyRow(title, sourceURL *string) models.Category {
	signal := models.Deref(title)
	if c.mode == SignalCombined {
		signal += " " + models.Deref(sourceURL)
	}
	return c.Classify(signal)
}
