package pkg

import (
	"errors"
	"fmt"
)

const listField = "list"

// MissingFieldError marks a record that lacks a field the dashboard needs.
type MissingFieldError struct {
	Field string
	Err   error
}

func (e *MissingFieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("record field %q missing or invalid: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("record field %q missing", e.Field)
}

func (e *MissingFieldError) Unwrap() error {
	return e.Err
}

// NormalizeCountries turns the country list of a timeline record into map
// layer input. Each entry is copied and given a "value" equal to its
// confirmed count; order and length are preserved.
func NormalizeCountries(record Datum) ([]Datum, error) {
	raw, ok := record[listField]
	if !ok || raw == nil {
		return nil, &MissingFieldError{Field: listField}
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &MissingFieldError{
			Field: listField,
			Err:   fmt.Errorf("expected array, got %T", raw),
		}
	}

	countries := make([]Datum, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			return nil, &MissingFieldError{
				Field: fmt.Sprintf("%s[%d]", listField, i),
				Err:   errors.New("expected object"),
			}
		}
		datum := Datum(entry).Copy()
		datum["value"] = Datum(entry).Confirmed()
		countries = append(countries, datum)
	}
	return countries, nil
}
