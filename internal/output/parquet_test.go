package output

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/chrisdamba/urbanwatch/internal/cloudwriter"
	"github.com/chrisdamba/urbanwatch/internal/models"
)

func parquetConfig(dir string) *models.Config {
	return &models.Config{
		OutputPath:   dir,
		OutputFolder: "events",
		TopicEvents:  "camera_events",
		TopicStats:   "event_stats",
	}
}

func TestParquetOutputLocal(t *testing.T) {
	dir := t.TempDir()
	out := newParquetOutput(parquetConfig(dir), nil, nil)

	require.NoError(t, out.WriteMessage("camera_events", eventMessage(t)))
	require.NoError(t, out.WriteMessage("camera_events", eventMessage(t)))

	stats, err := json.Marshal(StatsRecord{
		Timestamp: generatedAt.Unix(), SnapshotID: "snap-1",
		Category: "fire", Count: 2, AvgConfidence: 0.85,
	})
	require.NoError(t, err)
	require.NoError(t, out.WriteMessage("event_stats", stats))
	require.NoError(t, out.Close())

	path := filepath.Join(dir, "events", "camera_events", "year=2024/month=03/day=01/hour=14", parquetFileName)
	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(EventRecord), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	require.EqualValues(t, 2, pr.GetNumRows())
	rows := make([]EventRecord, 2)
	require.NoError(t, pr.Read(&rows))
	assert.Equal(t, NewEventRecord("snap-1", generatedAt, sampleEvent()), rows[0])
}

func TestParquetOutputUnknownTopic(t *testing.T) {
	out := newParquetOutput(parquetConfig(t.TempDir()), nil, nil)
	defer out.Close()

	assert.Error(t, out.WriteMessage("other", eventMessage(t)))
}

type memoryWriter struct {
	data   []byte
	closed bool
}

func (m *memoryWriter) Write(b []byte) (int, error) {
	m.data = append(m.data, b...)
	return len(b), nil
}

func (m *memoryWriter) Close() error {
	m.closed = true
	return nil
}

type memoryFactory struct {
	objects map[string]*memoryWriter
}

func (f *memoryFactory) NewWriter(bucket, objectPath string) (cloudwriter.CloudWriter, error) {
	w := &memoryWriter{}
	f.objects[bucket+"/"+objectPath] = w
	return w, nil
}

func TestParquetOutputCloud(t *testing.T) {
	cfg := parquetConfig("")
	cfg.CloudStorage.BucketName = "exports"
	factory := &memoryFactory{objects: map[string]*memoryWriter{}}
	out := newParquetOutput(cfg, factory, nil)

	require.NoError(t, out.WriteMessage("camera_events", eventMessage(t)))
	require.NoError(t, out.Close())

	obj, ok := factory.objects["exports/events/camera_events/year=2024/month=03/day=01/hour=14/data.parquet"]
	require.True(t, ok)
	assert.True(t, obj.closed)
	require.Greater(t, len(obj.data), 8)
	assert.Equal(t, "PAR1", string(obj.data[:4]))
	assert.Equal(t, "PAR1", string(obj.data[len(obj.data)-4:]))
}
