package pkg

import "strings"

const (
	globalName = "Global Status"
	globalFlag = "GLOBE"
)

// BuildPanel fills the bottom info sheet. With no selection the panel shows
// the global totals against themselves.
func BuildPanel(selected, total Datum) Panel {
	view := selected
	if view == nil {
		view = total
	}

	name := view.Name()
	if name == "" || selected == nil {
		name = globalName
	}
	flag := view.ID()
	if flag == "" || selected == nil {
		flag = globalFlag
	}

	panel := Panel{
		Name:   name,
		Flag:   strings.ToLower(flag),
		Meters: make(map[Category]Meter, len(Categories)),
	}
	for _, category := range Categories {
		count := view.Count(category)
		panel.Meters[category] = Meter{
			Count:      count,
			Formatted:  FormatCount(count),
			Percentage: InkPercentage(category, view, total),
		}
	}
	return panel
}
