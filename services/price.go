package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"coinafrique-scraper/models"
)

const currencyMarker = "CFA"

var plainNumber = regexp.MustCompile(`^\d+(?:\.\d+)?$`)

// NormalizePrice converts a raw price to a number. Nil input or any
// non-numeric residue yields models.Missing, never zero.
func NormalizePrice(raw *string) models.Price {
	if raw == nil {
		return models.Missing
	}
	return ParsePriceText(*raw)
}

// ParsePriceText strips the currency marker and all whitespace, then parses
// what is left. Thousands and decimal separators other than '.' are not
// interpreted, so "5,000" is missing.
func ParsePriceText(raw string) models.Price {
	s := strings.ReplaceAll(raw, currencyMarker, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	if !plainNumber.MatchString(s) {
		return models.Missing
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return models.Missing
	}
	return models.PriceOf(v)
}
