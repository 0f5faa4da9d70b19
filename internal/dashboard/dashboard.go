// Package dashboard owns the live event snapshot. It runs refreshes, keeps
// the latest snapshot for readers and streams each new one to a destination.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/aggregator"
	"github.com/chrisdamba/urbanwatch/internal/metrics"
	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/output"
	"github.com/chrisdamba/urbanwatch/internal/simulator"
)

const (
	DefaultRefreshDelay = time.Second
	DefaultTopicEvents  = "camera_events"
	DefaultTopicStats   = "event_stats"
)

var ErrRefreshInProgress = errors.New("refresh already in progress")

type Snapshot struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generatedAt"`
	Events      []models.Event     `json:"events"`
	Summary     aggregator.Summary `json:"summary"`
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Events = make([]models.Event, len(s.Events))
	copy(c.Events, s.Events)
	c.Summary.Categories = make([]aggregator.CategoryStat, len(s.Summary.Categories))
	copy(c.Summary.Categories, s.Summary.Categories)
	if s.Summary.MostRecent != nil {
		latest := *s.Summary.MostRecent
		c.Summary.MostRecent = &latest
	}
	return &c
}

type Status struct {
	LastUpdate time.Time `json:"lastUpdate"`
	SnapshotID string    `json:"snapshotId"`
	Refreshing bool      `json:"refreshing"`
	Cameras    int       `json:"cameras"`
	Events     int       `json:"events"`
	Notice     string    `json:"notice,omitempty"`
}

type Dashboard struct {
	cameras    []models.Camera
	categories models.CategoryTable

	rngMu sync.Mutex
	rng   simulator.Rand

	clock       func() time.Time
	delay       time.Duration
	dest        output.Destination
	topicEvents string
	topicStats  string
	metrics     metrics.Recorder
	logger      *zap.Logger
	notice      string

	refreshing atomic.Bool

	mu       sync.RWMutex
	snapshot *Snapshot
}

type Option func(*Dashboard)

func WithCategories(categories models.CategoryTable) Option {
	return func(d *Dashboard) { d.categories = categories.Clone() }
}

func WithRand(rng simulator.Rand) Option {
	return func(d *Dashboard) { d.rng = rng }
}

func WithClock(clock func() time.Time) Option {
	return func(d *Dashboard) { d.clock = clock }
}

func WithRefreshDelay(delay time.Duration) Option {
	return func(d *Dashboard) { d.delay = delay }
}

// WithDestination streams every refreshed snapshot to dest under the given
// topics. Empty topics keep the defaults.
func WithDestination(dest output.Destination, topicEvents, topicStats string) Option {
	return func(d *Dashboard) {
		d.dest = dest
		if topicEvents != "" {
			d.topicEvents = topicEvents
		}
		if topicStats != "" {
			d.topicStats = topicStats
		}
	}
}

func WithMetrics(recorder metrics.Recorder) Option {
	return func(d *Dashboard) { d.metrics = recorder }
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dashboard) { d.logger = logger }
}

// WithNotice sets a message shown to users, such as a camera load failure.
func WithNotice(notice string) Option {
	return func(d *Dashboard) { d.notice = notice }
}

func New(cameras []models.Camera, opts ...Option) *Dashboard {
	d := &Dashboard{
		cameras:     append([]models.Camera(nil), cameras...),
		categories:  models.NZCategories.Clone(),
		clock:       time.Now,
		delay:       DefaultRefreshDelay,
		dest:        output.NopOutput{},
		topicEvents: DefaultTopicEvents,
		topicStats:  DefaultTopicStats,
		metrics:     metrics.Nop,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.rng == nil {
		d.rng = simulator.NewRand(0)
	}

	d.snapshot = d.simulate()
	d.metrics.SetCameras(len(d.cameras))
	d.metrics.SetActiveEvents(d.snapshot.Summary.Categories)
	return d
}

// Refresh replaces the current snapshot with a newly simulated one after the
// configured delay. Only one refresh may run at a time; others get
// ErrRefreshInProgress.
func (d *Dashboard) Refresh(ctx context.Context) (*Snapshot, error) {
	if !d.refreshing.CompareAndSwap(false, true) {
		d.metrics.ObserveRefresh(metrics.ResultRejected, 0)
		return nil, ErrRefreshInProgress
	}
	defer d.refreshing.Store(false)

	start := time.Now()
	if err := wait(ctx, d.delay); err != nil {
		d.metrics.ObserveRefresh(metrics.ResultCancelled, time.Since(start))
		return nil, err
	}

	snap := d.simulate()

	d.mu.Lock()
	d.snapshot = snap
	d.mu.Unlock()

	d.publish(snap)

	elapsed := time.Since(start)
	d.metrics.ObserveRefresh(metrics.ResultSuccess, elapsed)
	d.metrics.SetActiveEvents(snap.Summary.Categories)
	d.logger.Info("snapshot refreshed",
		zap.String("snapshot_id", snap.ID),
		zap.Int("events", len(snap.Events)),
		zap.Int("cameras", len(d.cameras)),
		zap.Duration("elapsed", elapsed))

	return snap.clone(), nil
}

func wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dashboard) simulate() *Snapshot {
	now := d.clock()

	d.rngMu.Lock()
	events := simulator.Simulate(d.cameras, now, d.categories, d.rng)
	d.rngMu.Unlock()

	return &Snapshot{
		ID:          uuid.NewString(),
		GeneratedAt: now,
		Events:      events,
		Summary:     aggregator.Summarize(events, d.categories),
	}
}

// publish writes one record per event and one per category. Failures are
// logged and counted but never fail the refresh.
func (d *Dashboard) publish(snap *Snapshot) {
	failed := 0
	for _, e := range snap.Events {
		if err := d.write(d.topicEvents, output.NewEventRecord(snap.ID, snap.GeneratedAt, e)); err != nil {
			failed++
			d.logger.Warn("failed to publish event",
				zap.String("topic", d.topicEvents),
				zap.String("camera", e.Key),
				zap.Error(err))
		}
	}
	for _, s := range snap.Summary.Categories {
		rec := output.StatsRecord{
			Timestamp:     snap.GeneratedAt.Unix(),
			SnapshotID:    snap.ID,
			Category:      s.Category.Name,
			Count:         int64(s.Count),
			AvgConfidence: s.AvgConfidence,
		}
		if err := d.write(d.topicStats, rec); err != nil {
			failed++
			d.logger.Warn("failed to publish stats",
				zap.String("topic", d.topicStats),
				zap.String("category", s.Category.Name),
				zap.Error(err))
		}
	}
	if failed > 0 {
		d.logger.Error("snapshot partially published",
			zap.String("snapshot_id", snap.ID),
			zap.Int("failed", failed))
	}
}

func (d *Dashboard) write(topic string, record interface{}) error {
	msg, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return d.dest.WriteMessage(topic, msg)
}

func (d *Dashboard) Snapshot() *Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snapshot.clone()
}

func (d *Dashboard) Cameras() []models.Camera {
	out := make([]models.Camera, len(d.cameras))
	copy(out, d.cameras)
	return out
}

func (d *Dashboard) Categories() models.CategoryTable {
	return d.categories.Clone()
}

func (d *Dashboard) Status() Status {
	d.mu.RLock()
	snap := d.snapshot
	d.mu.RUnlock()

	return Status{
		LastUpdate: snap.GeneratedAt,
		SnapshotID: snap.ID,
		Refreshing: d.refreshing.Load(),
		Cameras:    len(d.cameras),
		Events:     len(snap.Events),
		Notice:     d.notice,
	}
}
