package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source hands out the raw bytes of a camera document.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, Format, error)
	String() string
}

func formatFromName(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

type FileSource struct {
	Path string
}

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, Format, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, "", fmt.Errorf("open camera file: %w", err)
	}
	return file, formatFromName(f.Path), nil
}

func (f FileSource) String() string { return "file:" + f.Path }

type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h HTTPSource) Open(ctx context.Context) (io.ReadCloser, Format, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build camera request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch cameras: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch cameras: unexpected status %s", resp.Status)
	}

	format := formatFromName(req.URL.Path)
	if ct := resp.Header.Get("Content-Type"); strings.Contains(ct, "yaml") {
		format = FormatYAML
	}
	return resp.Body, format, nil
}

func (h HTTPSource) String() string { return "http:" + h.URL }

// ObjectGetter is the slice of the S3 client the loader needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Source struct {
	Bucket string
	Key    string
	Client ObjectGetter
}

func (s S3Source) Open(ctx context.Context) (io.ReadCloser, Format, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get s3://%s/%s: %w", s.Bucket, s.Key, err)
	}
	return out.Body, formatFromName(s.Key), nil
}

func (s S3Source) String() string { return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key) }
