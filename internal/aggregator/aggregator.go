// Package aggregator derives dashboard statistics from an event snapshot.
// Every function here is pure and leaves its input untouched.
package aggregator

import "github.com/chrisdamba/urbanwatch/internal/models"

type CategoryStat struct {
	Category      models.Category `json:"category"`
	Count         int             `json:"count"`
	AvgConfidence float64         `json:"avgConfidence"`
}

type Summary struct {
	Total      int            `json:"total"`
	Categories []CategoryStat `json:"categories"`
	MostRecent *models.Event  `json:"mostRecent,omitempty"`
}

// CountByType returns one zero-initialised counter per category. Events whose
// type is not in the table are skipped.
func CountByType(events []models.Event, categories models.CategoryTable) map[string]int {
	counts := make(map[string]int, len(categories))
	for _, c := range categories {
		counts[c.Name] = 0
	}
	for _, e := range events {
		if _, ok := counts[e.EventType]; ok {
			counts[e.EventType]++
		}
	}
	return counts
}

// MostRecent returns the event with the latest DetectedAt. On ties the
// earliest one in the slice wins.
func MostRecent(events []models.Event) (models.Event, bool) {
	if len(events) == 0 {
		return models.Event{}, false
	}
	latest := events[0]
	for _, e := range events[1:] {
		if e.DetectedAt.After(latest.DetectedAt) {
			latest = e
		}
	}
	return latest, true
}

// AverageConfidence is the mean confidence per category, 0 for categories
// with no events.
func AverageConfidence(events []models.Event, categories models.CategoryTable) map[string]float64 {
	sums := make(map[string]float64, len(categories))
	counts := CountByType(events, categories)
	for _, e := range events {
		if _, ok := counts[e.EventType]; ok {
			sums[e.EventType] += e.Confidence
		}
	}

	avg := make(map[string]float64, len(categories))
	for name, n := range counts {
		if n > 0 {
			avg[name] = sums[name] / float64(n)
		} else {
			avg[name] = 0
		}
	}
	return avg
}

// FilterByType keeps the events whose type is in enabled, in their original
// order. The result never aliases the input.
func FilterByType(events []models.Event, enabled []string) []models.Event {
	allowed := make(map[string]struct{}, len(enabled))
	for _, name := range enabled {
		allowed[name] = struct{}{}
	}

	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if _, ok := allowed[e.EventType]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Bounds is the bounding box of event positions; false when there are none.
func Bounds(events []models.Event) (models.Bounds, bool) {
	if len(events) == 0 {
		return models.Bounds{}, false
	}
	b := models.BoundsOf(events[0].Location)
	for _, e := range events[1:] {
		b = b.Extend(e.Location)
	}
	return b, true
}

func Summarize(events []models.Event, categories models.CategoryTable) Summary {
	counts := CountByType(events, categories)
	avg := AverageConfidence(events, categories)

	summary := Summary{
		Total:      len(events),
		Categories: make([]CategoryStat, 0, len(categories)),
	}
	for _, c := range categories {
		summary.Categories = append(summary.Categories, CategoryStat{
			Category:      c,
			Count:         counts[c.Name],
			AvgConfidence: avg[c.Name],
		})
	}
	if latest, ok := MostRecent(events); ok {
		summary.MostRecent = &latest
	}
	return summary
}
