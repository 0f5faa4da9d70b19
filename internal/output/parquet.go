package output

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"
	"go.uber.org/zap"

	"github.com/chrisdamba/urbanwatch/internal/cloudwriter"
	"github.com/chrisdamba/urbanwatch/internal/models"
)

const (
	parquetFileName    = "data.parquet"
	parquetParallelism = 4
)

type ParquetOutput struct {
	basePath           string
	folder             string
	topicEvents        string
	topicStats         string
	mu                 sync.Mutex
	writers            map[string]*writer.ParquetWriter
	files              map[string]source.ParquetFile
	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
	logger             *zap.Logger
}

// CloudParquetFile adapts a write-only cloud object to the file interface
// the parquet writer expects.
type CloudParquetFile struct {
	cloudWriter cloudwriter.CloudWriter
	offset      int64
}

func NewParquetOutput(ctx context.Context, cfg *models.Config, logger *zap.Logger) (*ParquetOutput, error) {
	var factory cloudwriter.CloudWriterFactory
	switch cfg.CloudStorage.Provider {
	case "":
	case "s3":
		s3Factory, err := cloudwriter.NewS3WriterFactory(ctx, cfg.CloudStorage.Region)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 writer factory: %w", err)
		}
		factory = s3Factory
	default:
		return nil, fmt.Errorf("unsupported cloud storage provider: %s", cfg.CloudStorage.Provider)
	}
	return newParquetOutput(cfg, factory, logger), nil
}

func newParquetOutput(cfg *models.Config, factory cloudwriter.CloudWriterFactory, logger *zap.Logger) *ParquetOutput {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ParquetOutput{
		basePath:           cfg.OutputPath,
		folder:             cfg.OutputFolder,
		topicEvents:        cfg.TopicEvents,
		topicStats:         cfg.TopicStats,
		writers:            make(map[string]*writer.ParquetWriter),
		files:              make(map[string]source.ParquetFile),
		cloudWriterFactory: factory,
		cloudBucketName:    cfg.CloudStorage.BucketName,
		logger:             logger,
	}
}

// RowForTopic decodes msg into the typed row stored for topic and returns it
// with the unix timestamp used for partitioning.
func (p *ParquetOutput) RowForTopic(topic string, msg []byte) (interface{}, int64, error) {
	switch topic {
	case p.topicEvents:
		var rec EventRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, 0, err
		}
		return rec, rec.Timestamp, nil
	case p.topicStats:
		var rec StatsRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, 0, err
		}
		return rec, rec.Timestamp, nil
	default:
		return nil, 0, fmt.Errorf("no parquet schema for topic %q", topic)
	}
}

func (p *ParquetOutput) schemaForTopic(topic string) interface{} {
	if topic == p.topicStats {
		return new(StatsRecord)
	}
	return new(EventRecord)
}

func (p *ParquetOutput) WriteMessage(topic string, msg []byte) error {
	row, timestamp, err := p.RowForTopic(topic, msg)
	if err != nil {
		return err
	}

	partition := partitionPath(time.Unix(timestamp, 0).UTC())
	writerKey := fmt.Sprintf("%s_%s", topic, partition)

	p.mu.Lock()
	defer p.mu.Unlock()

	pw, ok := p.writers[writerKey]
	if !ok {
		pw, err = p.createNewWriter(writerKey, topic, partition)
		if err != nil {
			return fmt.Errorf("failed to create new writer: %w", err)
		}
	}

	if err := pw.Write(row); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (p *ParquetOutput) createNewWriter(writerKey, topic, partition string) (*writer.ParquetWriter, error) {
	var fw source.ParquetFile
	if p.cloudWriterFactory != nil {
		objectPath := path.Join(p.folder, topic, partition, parquetFileName)
		cloudWriter, err := p.cloudWriterFactory.NewWriter(p.cloudBucketName, objectPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud file writer: %w", err)
		}
		fw = NewCloudParquetFile(cloudWriter)
	} else {
		fullPath := filepath.Join(p.basePath, p.folder, topic, partition)
		if err := os.MkdirAll(fullPath, os.ModePerm); err != nil {
			return nil, err
		}
		localWriter, err := local.NewLocalFileWriter(filepath.Join(fullPath, parquetFileName))
		if err != nil {
			return nil, fmt.Errorf("failed to create local file writer: %w", err)
		}
		fw = localWriter
	}

	pw, err := writer.NewParquetWriter(fw, p.schemaForTopic(topic), parquetParallelism)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to create ParquetWriter: %w", err)
	}

	p.writers[writerKey] = pw
	p.files[writerKey] = fw
	p.logger.Debug("opened parquet writer",
		zap.String("topic", topic),
		zap.String("partition", partition))
	return pw, nil
}

// Close finalises every open file. Cloud files are uploaded here.
func (p *ParquetOutput) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for key, pw := range p.writers {
		if err := pw.WriteStop(); err != nil {
			p.logger.Error("failed to finalise parquet file", zap.String("file", key), zap.Error(err))
			lastErr = err
		}
		if err := p.files[key].Close(); err != nil {
			p.logger.Error("failed to close parquet file", zap.String("file", key), zap.Error(err))
			lastErr = err
		}
		delete(p.writers, key)
		delete(p.files, key)
	}
	return lastErr
}

func NewCloudParquetFile(cloudWriter cloudwriter.CloudWriter) *CloudParquetFile {
	return &CloudParquetFile{cloudWriter: cloudWriter}
}

func (c *CloudParquetFile) Open(string) (source.ParquetFile, error) {
	return nil, fmt.Errorf("open not supported for cloud storage")
}

func (c *CloudParquetFile) Create(string) (source.ParquetFile, error) {
	return c, nil
}

func (c *CloudParquetFile) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		c.offset = offset
	case io.SeekCurrent:
		c.offset += offset
	case io.SeekEnd:
		return 0, fmt.Errorf("seek from end not supported for cloud storage")
	}
	return c.offset, nil
}

func (c *CloudParquetFile) Read([]byte) (int, error) {
	return 0, fmt.Errorf("read not supported for cloud storage")
}

func (c *CloudParquetFile) Write(b []byte) (int, error) {
	n, err := c.cloudWriter.Write(b)
	c.offset += int64(n)
	return n, err
}

func (c *CloudParquetFile) Close() error {
	return c.cloudWriter.Close()
}
