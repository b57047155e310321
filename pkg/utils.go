package pkg

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var countPrinter = message.NewPrinter(language.BritishEnglish)

// Percentage renders part/whole as a CSS width. Results that are not finite
// (a zero or missing denominator) render as "0%".
func Percentage(part, whole float64) string {
	result := part / whole * 100
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return "0%"
	}
	return strconv.FormatFloat(result, 'f', -1, 64) + "%"
}

// InkPercentage is the share of the global total held by selected for one
// category. A nil selection means the global view.
func InkPercentage(category Category, selected, total Datum) string {
	if selected == nil {
		selected = total
	}
	return Percentage(selected.Count(category), total.Count(category))
}

// FormatCount renders n with British English digit grouping and at most
// three fraction digits.
func FormatCount(n float64) string {
	return countPrinter.Sprintf("%v", number.Decimal(n, number.MaxFractionDigits(3)))
}

// GroupByKey indexes entities by the lower-cased string found under key.
func GroupByKey(entities []Datum, key string) (map[string]Datum, error) {
	result := make(map[string]Datum, len(entities))
	for _, entity := range entities {
		keyVal, ok := entity[key].(string)
		if !ok {
			return nil, fmt.Errorf("failed to find %s key", key)
		}
		result[normalizeID(keyVal)] = entity
	}
	return result, nil
}

// FindCountry looks up a country by id, ignoring case.
func FindCountry(data []Datum, id string) (Datum, bool) {
	id = normalizeID(id)
	if id == "" {
		return nil, false
	}
	for _, datum := range data {
		if normalizeID(datum.ID()) == id {
			return datum, true
		}
	}
	return nil, false
}
