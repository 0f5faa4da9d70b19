package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/output"
	"github.com/chrisdamba/urbanwatch/internal/simulator"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testCameras(n int) []models.Camera {
	cameras := make([]models.Camera, n)
	for i := range cameras {
		cameras[i] = models.Camera{
			Key:      fmt.Sprintf("C%d", i),
			Name:     fmt.Sprintf("Camera %d", i),
			Location: models.Location{Lat: -41.2 - float64(i)*0.001, Lon: 174.7},
		}
	}
	return cameras
}

type message struct {
	topic string
	body  []byte
}

type recordingDestination struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (r *recordingDestination) WriteMessage(topic string, msg []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages = append(r.messages, message{topic: topic, body: msg})
	return nil
}

func (r *recordingDestination) Close() error { return nil }

func (r *recordingDestination) byTopic(topic string) []message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message
	for _, m := range r.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func newTestDashboard(dest output.Destination, opts ...Option) *Dashboard {
	base := []Option{
		WithRand(simulator.NewRand(7)),
		WithClock(fixedClock),
		WithRefreshDelay(0),
		WithDestination(dest, "", ""),
	}
	return New(testCameras(20), append(base, opts...)...)
}

func TestNewBuildsInitialSnapshot(t *testing.T) {
	dest := &recordingDestination{}
	d := newTestDashboard(dest)

	snap := d.Snapshot()
	require.NotNil(t, snap)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, fixedNow, snap.GeneratedAt)
	assert.GreaterOrEqual(t, len(snap.Events), 4)
	assert.LessOrEqual(t, len(snap.Events), 6)
	assert.Equal(t, len(snap.Events), snap.Summary.Total)
	assert.Empty(t, dest.messages, "the initial snapshot is not published")
}

func TestRefreshReplacesAndPublishes(t *testing.T) {
	dest := &recordingDestination{}
	d := newTestDashboard(dest)
	before := d.Snapshot()

	snap, err := d.Refresh(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, before.ID, snap.ID)
	assert.Equal(t, snap.ID, d.Snapshot().ID)

	events := dest.byTopic(DefaultTopicEvents)
	require.Len(t, events, len(snap.Events))
	var rec output.EventRecord
	require.NoError(t, json.Unmarshal(events[0].body, &rec))
	assert.Equal(t, snap.ID, rec.SnapshotID)
	assert.Equal(t, snap.Events[0].Key, rec.Key)
	assert.Equal(t, fixedNow.Unix(), rec.Timestamp)

	stats := dest.byTopic(DefaultTopicStats)
	require.Len(t, stats, len(models.NZCategories))
	total := 0
	for _, m := range stats {
		var s output.StatsRecord
		require.NoError(t, json.Unmarshal(m.body, &s))
		total += int(s.Count)
	}
	assert.Equal(t, len(snap.Events), total)
}

func TestRefreshCustomTopics(t *testing.T) {
	dest := &recordingDestination{}
	d := New(testCameras(5), WithRefreshDelay(0), WithDestination(dest, "ev", "st"))

	_, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, dest.byTopic("ev"))
	assert.NotEmpty(t, dest.byTopic("st"))
}

func TestRefreshSurvivesPublishErrors(t *testing.T) {
	d := newTestDashboard(&recordingDestination{err: errors.New("broker down")})

	snap, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.ID, d.Snapshot().ID)
}

func TestRefreshCancelledDuringDelay(t *testing.T) {
	d := newTestDashboard(&recordingDestination{}, WithRefreshDelay(time.Hour))
	before := d.Snapshot().ID

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := d.Refresh(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, before, d.Snapshot().ID)
	assert.False(t, d.Status().Refreshing)
}

func TestRefreshRejectsConcurrentCalls(t *testing.T) {
	d := newTestDashboard(&recordingDestination{}, WithRefreshDelay(200*time.Millisecond))

	errc := make(chan error, 1)
	go func() {
		_, err := d.Refresh(context.Background())
		errc <- err
	}()

	require.Eventually(t, func() bool { return d.Status().Refreshing }, time.Second, time.Millisecond)

	_, err := d.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	require.NoError(t, <-errc)
	assert.False(t, d.Status().Refreshing)
}

func TestSeededDashboardsAgree(t *testing.T) {
	a := newTestDashboard(&recordingDestination{})
	b := newTestDashboard(&recordingDestination{})

	assert.Equal(t, a.Snapshot().Events, b.Snapshot().Events)

	sa, err := a.Refresh(context.Background())
	require.NoError(t, err)
	sb, err := b.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sa.Events, sb.Events)
}

func TestAccessorsReturnCopies(t *testing.T) {
	d := newTestDashboard(&recordingDestination{})

	snap := d.Snapshot()
	snap.Events[0].Key = "mutated"
	assert.NotEqual(t, "mutated", d.Snapshot().Events[0].Key)

	cameras := d.Cameras()
	cameras[0].Key = "mutated"
	assert.Equal(t, "C0", d.Cameras()[0].Key)

	categories := d.Categories()
	categories[0].Name = "mutated"
	assert.Equal(t, models.CategoryFire, d.Categories()[0].Name)
}

func TestEmptyDashboard(t *testing.T) {
	d := New(nil, WithRefreshDelay(0), WithNotice("Camera data is unavailable"))

	snap, err := d.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Events)
	assert.Empty(t, snap.Events)
	assert.Nil(t, snap.Summary.MostRecent)

	status := d.Status()
	assert.Equal(t, 0, status.Cameras)
	assert.Equal(t, "Camera data is unavailable", status.Notice)
}

func TestStatus(t *testing.T) {
	d := newTestDashboard(&recordingDestination{}, WithCategories(models.UrbanCategories))

	status := d.Status()
	snap := d.Snapshot()
	assert.Equal(t, fixedNow, status.LastUpdate)
	assert.Equal(t, snap.ID, status.SnapshotID)
	assert.Equal(t, 20, status.Cameras)
	assert.Equal(t, len(snap.Events), status.Events)
	assert.False(t, status.Refreshing)
	assert.Equal(t, models.UrbanCategories, d.Categories())
}
