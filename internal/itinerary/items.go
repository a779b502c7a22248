package itinerary

import "strings"

// FlexibleETA is the only ETA the splitter assigns.
const FlexibleETA = "Flexible"

// SplitItems turns generator output into one Item per non-blank line.
// Bullet markers are stripped first, then the line is split on its first
// hyphen into title and detail.
func SplitItems(text string) []Item {
	items := []Item{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimLeft(line, "-*• \t")
		title, detail, _ := strings.Cut(line, "-")

		items = append(items, Item{
			Title:  strings.Trim(title, " -*\t"),
			Detail: strings.TrimSpace(detail),
			ETA:    FlexibleETA,
		})
	}
	return items
}
