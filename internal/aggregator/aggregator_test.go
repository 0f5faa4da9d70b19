package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func event(key, eventType string, confidence float64, at time.Time) models.Event {
	return models.Event{
		Camera:     models.Camera{Key: key, Name: key, Location: models.Location{Lat: -41, Lon: 174}},
		EventType:  eventType,
		Confidence: confidence,
		DetectedAt: at,
	}
}

func TestCountByType(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.Event
		expected map[string]int
	}{
		{
			name:   "empty",
			events: nil,
			expected: map[string]int{
				"fire": 0, "dense_traffic": 0, "sparse_traffic": 0, "accident": 0,
			},
		},
		{
			name: "mixed",
			events: []models.Event{
				event("a", "fire", 0.8, base),
				event("b", "fire", 0.9, base),
				event("c", "accident", 0.75, base),
			},
			expected: map[string]int{
				"fire": 2, "dense_traffic": 0, "sparse_traffic": 0, "accident": 1,
			},
		},
		{
			name: "unknown_types_ignored",
			events: []models.Event{
				event("a", "flood", 0.8, base),
				event("b", "sparse_traffic", 0.9, base),
				event("c", "", 0.9, base),
			},
			expected: map[string]int{
				"fire": 0, "dense_traffic": 0, "sparse_traffic": 1, "accident": 0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CountByType(tt.events, models.NZCategories))
		})
	}
}

func TestCountByTypeSumsToLength(t *testing.T) {
	var events []models.Event
	for i, c := range []string{"traffic", "flood", "flood", "construction", "accident", "traffic"} {
		events = append(events, event(string(rune('a'+i)), c, 0.8, base))
	}

	counts := CountByType(events, models.UrbanCategories)
	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, len(events), total)
	assert.Len(t, counts, len(models.UrbanCategories))
}

func TestMostRecent(t *testing.T) {
	_, ok := MostRecent(nil)
	assert.False(t, ok)

	single := []models.Event{event("a", "fire", 0.8, base)}
	got, ok := MostRecent(single)
	require.True(t, ok)
	assert.Equal(t, single[0], got)

	events := []models.Event{
		event("a", "fire", 0.8, base),
		event("b", "fire", 0.8, base.Add(2*time.Second)),
		event("c", "fire", 0.8, base.Add(time.Second)),
	}
	got, ok = MostRecent(events)
	require.True(t, ok)
	assert.Equal(t, "b", got.Key)
}

func TestMostRecentTieKeepsFirst(t *testing.T) {
	events := []models.Event{
		event("early", "fire", 0.8, base),
		event("first", "fire", 0.8, base.Add(time.Second)),
		event("second", "accident", 0.9, base.Add(time.Second)),
	}

	got, ok := MostRecent(events)
	require.True(t, ok)
	assert.Equal(t, "first", got.Key)
}

func TestAggregationIsIdempotent(t *testing.T) {
	events := []models.Event{
		event("a", "fire", 0.8, base),
		event("b", "accident", 0.9, base.Add(time.Second)),
	}
	snapshot := make([]models.Event, len(events))
	copy(snapshot, events)

	assert.Equal(t, CountByType(events, models.NZCategories), CountByType(events, models.NZCategories))
	first, _ := MostRecent(events)
	second, _ := MostRecent(events)
	assert.Equal(t, first, second)
	assert.Equal(t, Summarize(events, models.NZCategories), Summarize(events, models.NZCategories))
	assert.Equal(t, snapshot, events)
}

func TestAverageConfidence(t *testing.T) {
	events := []models.Event{
		event("a", "fire", 0.8, base),
		event("b", "fire", 0.9, base),
		event("c", "accident", 0.75, base),
		event("d", "unknown", 0.99, base),
	}

	avg := AverageConfidence(events, models.NZCategories)
	assert.InDelta(t, 0.85, avg["fire"], 1e-9)
	assert.InDelta(t, 0.75, avg["accident"], 1e-9)
	assert.Equal(t, 0.0, avg["dense_traffic"])
	assert.NotContains(t, avg, "unknown")
}

func TestFilterByType(t *testing.T) {
	events := []models.Event{
		event("a", "fire", 0.8, base),
		event("b", "accident", 0.9, base),
		event("c", "fire", 0.7, base),
	}

	filtered := FilterByType(events, []string{"fire"})
	require.Len(t, filtered, 2)
	assert.Equal(t, "a", filtered[0].Key)
	assert.Equal(t, "c", filtered[1].Key)

	filtered[0].Key = "changed"
	assert.Equal(t, "a", events[0].Key)

	assert.Empty(t, FilterByType(events, nil))
}

func TestBounds(t *testing.T) {
	_, ok := Bounds(nil)
	assert.False(t, ok)

	events := []models.Event{
		{Camera: models.Camera{Key: "a", Location: models.Location{Lat: -41.3, Lon: 174.7}}},
		{Camera: models.Camera{Key: "b", Location: models.Location{Lat: -36.8, Lon: 174.9}}},
		{Camera: models.Camera{Key: "c", Location: models.Location{Lat: -43.5, Lon: 172.6}}},
	}
	b, ok := Bounds(events)
	require.True(t, ok)
	assert.Equal(t, models.Bounds{South: -43.5, West: 172.6, North: -36.8, East: 174.9}, b)
}

func TestSummarize(t *testing.T) {
	events := []models.Event{
		event("a", "traffic", 0.8, base),
		event("b", "flood", 0.9, base.Add(time.Minute)),
	}

	summary := Summarize(events, models.UrbanCategories)
	assert.Equal(t, 2, summary.Total)
	require.Len(t, summary.Categories, 4)
	assert.Equal(t, models.UrbanCategories.Names(), []string{
		summary.Categories[0].Category.Name,
		summary.Categories[1].Category.Name,
		summary.Categories[2].Category.Name,
		summary.Categories[3].Category.Name,
	})
	assert.Equal(t, 1, summary.Categories[0].Count)
	assert.Equal(t, 0, summary.Categories[1].Count)
	require.NotNil(t, summary.MostRecent)
	assert.Equal(t, "b", summary.MostRecent.Key)

	empty := Summarize(nil, models.UrbanCategories)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.MostRecent)
	assert.Len(t, empty.Categories, 4)
}
