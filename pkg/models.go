package pkg

import "strings"

const (
	CasesTimelineURL = "https://covid.amcharts.com/data/js/world_timeline.js"
	TotalTimelineURL = "https://covid.amcharts.com/data/js/total_timeline.js"
)

// Category is one of the case counters carried by every record.
type Category string

const (
	Confirmed Category = "confirmed"
	Recovered Category = "recovered"
	Deaths    Category = "deaths"
)

var Categories = []Category{Confirmed, Recovered, Deaths}

// Datum is a single JSON object taken from a feed: a per-country entry, a
// global total, or a timeline record holding a "list" of country entries.
// Fields are read through the accessors below, which never fail.
type Datum map[string]interface{}

func (d Datum) Count(category Category) float64 {
	return d.number(string(category))
}

func (d Datum) Confirmed() float64 { return d.number(string(Confirmed)) }
func (d Datum) Recovered() float64 { return d.number(string(Recovered)) }
func (d Datum) Deaths() float64    { return d.number(string(Deaths)) }

func (d Datum) ID() string   { return d.text("id") }
func (d Datum) Name() string { return d.text("name") }

func (d Datum) number(key string) float64 {
	switch v := d[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func (d Datum) text(key string) string {
	if s, ok := d[key].(string); ok {
		return s
	}
	return ""
}

// Copy returns a shallow copy of d.
func (d Datum) Copy() Datum {
	out := make(Datum, len(d)+1)
	for k, v := range d {
		out[k] = v
	}
	return out
}

// PageProps is the input handed to the page renderer.
type PageProps struct {
	Data      []Datum `json:"data"`
	TotalData Datum   `json:"totalData"`
}

// FeedMetadata holds the endpoints of the cases and totals feeds.
type FeedMetadata struct {
	CasesURL string
	TotalURL string
}

func DefaultFeedMetadata() FeedMetadata {
	return FeedMetadata{CasesURL: CasesTimelineURL, TotalURL: TotalTimelineURL}
}

// Meter is one counter row of the info panel.
type Meter struct {
	Count      float64 `json:"count"`
	Formatted  string  `json:"formatted"`
	Percentage string  `json:"percentage"`
}

// Panel is the content of the bottom info sheet.
type Panel struct {
	Name   string             `json:"name"`
	Flag   string             `json:"flag"`
	Meters map[Category]Meter `json:"meters"`
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
