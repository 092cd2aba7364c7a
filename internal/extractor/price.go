package extractor

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/zarawatch/catalog-scraper/internal/models"
)

var amountPattern = regexp.MustCompile(`\d[\d.,]*`)

// ParsePrice normalizes a price fragment like "29,99 TND", "€ 1,299.00" or
// "35.99" into a numeric amount while keeping the original display text.
// Unparseable text yields amount 0 with the text preserved.
func ParsePrice(text string) models.Price {
	display := strings.TrimSpace(text)
	return models.Price{
		Amount:  parseAmount(display),
		Display: display,
	}
}

func parseAmount(s string) float64 {
	match := amountPattern.FindString(s)
	if match == "" {
		return 0
	}
	match = strings.Trim(match, ".,")

	// When both separators appear the rightmost one is the decimal mark
	// ("1,299.00" vs "1.299,00"); a lone comma is a decimal mark.
	ci, di := strings.LastIndex(match, ","), strings.LastIndex(match, ".")
	switch {
	case ci >= 0 && di >= 0 && ci > di:
		match = strings.ReplaceAll(match, ".", "")
		match = strings.Replace(match, ",", ".", 1)
	case ci >= 0 && di >= 0:
		match = strings.ReplaceAll(match, ",", "")
	default:
		match = strings.ReplaceAll(match, ",", ".")
	}

	if strings.Count(match, ".") > 1 {
		// "1.299.00" style: everything but the last dot is grouping.
		last := strings.LastIndex(match, ".")
		match = strings.ReplaceAll(match[:last], ".", "") + match[last:]
	}

	amount, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return amount
}
