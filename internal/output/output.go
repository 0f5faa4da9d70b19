package output

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/models"
	"github.com/chrisdamba/urbanwatch/internal/output/producers"
	"github.com/chrisdamba/urbanwatch/internal/repositories/postgres"
)

const (
	DestinationNone     = "none"
	DestinationConsole  = "console"
	DestinationJSON     = "json"
	DestinationCSV      = "csv"
	DestinationParquet  = "parquet"
	DestinationKafka    = "kafka"
	DestinationPostgres = "postgres"
)

// Destination receives serialized snapshot records, one message per record.
type Destination interface {
	WriteMessage(topic string, msg []byte) error
	Close() error
}

// EventRecord is the export shape of a single event.
type EventRecord struct {
	Timestamp  int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	SnapshotID string  `json:"snapshotId" parquet:"name=snapshotId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Key        string  `json:"key" parquet:"name=key, type=BYTE_ARRAY, convertedtype=UTF8"`
	Name       string  `json:"name" parquet:"name=name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Lat        float64 `json:"lat" parquet:"name=lat, type=DOUBLE"`
	Lon        float64 `json:"lon" parquet:"name=lon, type=DOUBLE"`
	Region     string  `json:"region" parquet:"name=region, type=BYTE_ARRAY, convertedtype=UTF8"`
	Direction  string  `json:"direction" parquet:"name=direction, type=BYTE_ARRAY, convertedtype=UTF8"`
	EventType  string  `json:"eventType" parquet:"name=eventType, type=BYTE_ARRAY, convertedtype=UTF8"`
	Confidence float64 `json:"confidence" parquet:"name=confidence, type=DOUBLE"`
	DetectedAt int64   `json:"detectedAt" parquet:"name=detectedAt, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// StatsRecord is the export shape of one category row of a snapshot summary.
type StatsRecord struct {
	Timestamp     int64   `json:"timestamp" parquet:"name=timestamp, type=INT64"`
	SnapshotID    string  `json:"snapshotId" parquet:"name=snapshotId, type=BYTE_ARRAY, convertedtype=UTF8"`
	Category      string  `json:"category" parquet:"name=category, type=BYTE_ARRAY, convertedtype=UTF8"`
	Count         int64   `json:"count" parquet:"name=count, type=INT64"`
	AvgConfidence float64 `json:"avgConfidence" parquet:"name=avgConfidence, type=DOUBLE"`
}

func NewEventRecord(snapshotID string, generatedAt time.Time, e models.Event) EventRecord {
	return EventRecord{
		Timestamp:  generatedAt.Unix(),
		SnapshotID: snapshotID,
		Key:        e.Key,
		Name:       e.Name,
		Lat:        e.Lat,
		Lon:        e.Lon,
		Region:     e.Region,
		Direction:  e.Direction,
		EventType:  e.EventType,
		Confidence: e.Confidence,
		DetectedAt: e.DetectedAt.UnixMilli(),
	}
}

// NewDestination picks the sink named by cfg.OutputDestination. The console
// sink writes to stdout.
func NewDestination(ctx context.Context, cfg *models.Config, logger *zap.Logger) (Destination, error) {
	return NewDestinationWith(ctx, cfg, logger, os.Stdout)
}

// NewDestinationWith is NewDestination with the console sink writing to
// console.
func NewDestinationWith(ctx context.Context, cfg *models.Config, logger *zap.Logger, console io.Writer) (Destination, error) {
	switch cfg.OutputDestination {
	case "", DestinationNone:
		return NopOutput{}, nil
	case DestinationConsole:
		return NewConsoleOutput(console), nil
	case DestinationJSON:
		return NewJSONOutput(cfg.OutputPath, cfg.OutputFolder), nil
	case DestinationCSV:
		return NewCSVOutput(cfg.OutputPath, cfg.OutputFolder), nil
	case DestinationParquet:
		return NewParquetOutput(ctx, cfg, logger)
	case DestinationKafka:
		return producers.NewSaramaProducer(strings.Split(cfg.KafkaBrokerList, ","), logger)
	case DestinationPostgres:
		pool, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return NewPostgresOutput(pool), nil
	default:
		return nil, fmt.Errorf("unsupported output destination: %s", cfg.OutputDestination)
	}
}

type NopOutput struct{}

func (NopOutput) WriteMessage(string, []byte) error { return nil }
func (NopOutput) Close() error                      { return nil }

type ConsoleOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleOutput(w io.Writer) *ConsoleOutput {
	return &ConsoleOutput{w: w}
}

func (c *ConsoleOutput) WriteMessage(topic string, msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "[%s] %s\n", topic, msg); err != nil {
		return fmt.Errorf("failed to write to console: %w", err)
	}
	return nil
}

func (c *ConsoleOutput) Close() error {
	return nil
}

// decodeMessage unmarshals a record keeping numbers exact and returns the
// time its "timestamp" field (unix seconds) points at.
func decodeMessage(msg []byte) (map[string]interface{}, time.Time, error) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()

	var event map[string]interface{}
	if err := dec.Decode(&event); err != nil {
		return nil, time.Time{}, err
	}

	ts, ok := event["timestamp"].(json.Number)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("invalid timestamp")
	}
	seconds, err := ts.Int64()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	return event, time.Unix(seconds, 0).UTC(), nil
}

func partitionPath(t time.Time) string {
	year, month, day := t.Date()
	return fmt.Sprintf("year=%d/month=%02d/day=%02d/hour=%02d", year, month, day, t.Hour())
}
