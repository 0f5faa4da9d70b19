package simulator

import (
	"math"
	"math/rand"
	"time"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

const (
	MinSelectionFraction  = 0.20
	SelectionFractionSpan = 0.10
	MinConfidence         = 0.7
	ConfidenceSpan        = 0.3
)

// Rand is the random source the simulator draws from. *rand.Rand satisfies
// it; callers sharing one across goroutines must serialise access.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Simulate runs one detection sweep over cameras. Between 20% and 30% of the
// cameras (at least one) are sampled without replacement and each gets a
// random category and a confidence in [0.7, 1.0). Every event is stamped with
// now. Neither cameras nor categories are modified.
//
// Draw order is fixed: the fraction, then every selection pick, then type and
// confidence per selected camera. The same seed always yields the same events.
func Simulate(cameras []models.Camera, now time.Time, categories models.CategoryTable, rng Rand) []models.Event {
	if len(cameras) == 0 || len(categories) == 0 {
		return []models.Event{}
	}

	selected := sample(len(cameras), selectionCount(len(cameras), rng), rng)

	events := make([]models.Event, 0, len(selected))
	for _, idx := range selected {
		events = append(events, models.Event{
			Camera:     cameras[idx],
			EventType:  categories[rng.Intn(len(categories))].Name,
			Confidence: confidence(rng),
			DetectedAt: now,
		})
	}
	return events
}

func selectionCount(n int, rng Rand) int {
	fraction := MinSelectionFraction + rng.Float64()*SelectionFractionSpan
	count := int(math.Floor(fraction * float64(n)))
	if count == 0 {
		count = 1
	}
	if count > n {
		count = n
	}
	return count
}

// sample returns k distinct indices from [0, n) using a partial Fisher-Yates
// shuffle over a private index slice.
func sample(n, k int, rng Rand) []int {
	pool := make([]int, n)
	for i := range pool {
		pool[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.Intn(n-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

func confidence(rng Rand) float64 {
	c := MinConfidence + rng.Float64()*ConfidenceSpan
	if c >= 1 {
		c = math.Nextafter(1, 0)
	}
	return c
}
