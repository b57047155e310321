package pkg

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyFeed = errors.New("feed array is empty")
	ErrNotArray  = errors.New("feed payload is not an array of objects")
)

// MalformedFeedError is returned when the extracted payload does not parse
// into a non-empty array of records.
type MalformedFeedError struct {
	Err error
}

func (e *MalformedFeedError) Error() string {
	return fmt.Sprintf("malformed feed: %v", e.Err)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}

// Extractor recovers the JSON array embedded in a feed response.
type Extractor interface {
	Extract(raw string) string
}

// SnippetExtractor handles feeds shaped like `var name = [...];`. Everything
// from the first '[' onward is taken as the payload, so the assignment
// prefix must not itself contain a '['. This is a textual heuristic and not
// a JavaScript parser.
type SnippetExtractor struct{}

var snippetPayload = regexp.MustCompile(`(?s)^[^\[]*(\[.*)$`)

func (SnippetExtractor) Extract(raw string) string {
	match := snippetPayload.FindStringSubmatch(raw)
	if match == nil {
		return "[]"
	}
	return match[1]
}

// SelectLatest parses payload as a chronologically ordered array and returns
// its last element. Only the first JSON value is read, so a trailing `;` or
// newline after the array is ignored.
func SelectLatest(payload string) (Datum, error) {
	var records []Datum
	decoder := json.NewDecoder(strings.NewReader(payload))
	if err := decoder.Decode(&records); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &MalformedFeedError{Err: fmt.Errorf("%w: %v", ErrNotArray, err)}
		}
		return nil, &MalformedFeedError{Err: err}
	}
	if records == nil {
		return nil, &MalformedFeedError{Err: ErrNotArray}
	}
	if len(records) == 0 {
		return nil, &MalformedFeedError{Err: ErrEmptyFeed}
	}
	latest := records[len(records)-1]
	if latest == nil {
		return nil, &MalformedFeedError{Err: ErrNotArray}
	}
	return latest, nil
}
