package loader

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/chrisdamba/urbanwatch/internal/models"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// rawCamera is the union of field names seen across camera feeds.
type rawCamera struct {
	ID        string   `mapstructure:"id"`
	Key       string   `mapstructure:"key"`
	Name      string   `mapstructure:"name"`
	Title     string   `mapstructure:"title"`
	Lat       *float64 `mapstructure:"lat"`
	Lon       *float64 `mapstructure:"lon"`
	Latitude  *float64 `mapstructure:"latitude"`
	Longitude *float64 `mapstructure:"longitude"`
	Region    string   `mapstructure:"region"`
	Direction string   `mapstructure:"direction"`
}

// Decode parses a camera document. Two shapes are accepted: a flat list of
// records, or a list whose first element wraps the records in a "cameras"
// field. Anything else yields no cameras.
func Decode(r io.Reader, format Format) ([]Record, error) {
	doc, err := parse(r, format)
	if err != nil {
		return nil, err
	}

	items, ok := doc.([]interface{})
	if !ok || len(items) == 0 {
		return nil, nil
	}

	nested := false
	if first, ok := items[0].(map[string]interface{}); ok {
		if inner, ok := first["cameras"].([]interface{}); ok {
			items = inner
			nested = true
		}
	}

	records := make([]Record, 0, len(items))
	for i, item := range items {
		var raw rawCamera
		if err := decodeRecord(item, &raw); err != nil {
			records = append(records, Record{Index: i, Err: err})
			continue
		}
		records = append(records, raw.normalize(i, nested))
	}
	return records, nil
}

func parse(r io.Reader, format Format) (interface{}, error) {
	var doc interface{}
	switch format {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	default:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	}
	return doc, nil
}

func decodeRecord(item interface{}, raw *rawCamera) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           raw,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(item)
}

// Record is one normalised entry of a camera document.
type Record struct {
	Index  int
	Camera models.Camera
	Err    error
}

func (raw rawCamera) normalize(index int, nested bool) Record {
	// nested feeds carry their own key; flat feeds are keyed by id
	key := firstNonEmpty(raw.ID, raw.Key)
	if nested {
		key = firstNonEmpty(raw.Key, raw.ID)
	}

	lat, lon := raw.Lat, raw.Lon
	if lat == nil {
		lat = raw.Latitude
	}
	if lon == nil {
		lon = raw.Longitude
	}

	rec := Record{Index: index}
	if lat == nil || lon == nil {
		rec.Err = fmt.Errorf("record %d (%q): missing coordinates", index, key)
		return rec
	}

	rec.Camera = models.Camera{
		Key:       key,
		Name:      firstNonEmpty(raw.Name, raw.Title, key),
		Location:  models.Location{Lat: *lat, Lon: *lon},
		Region:    raw.Region,
		Direction: raw.Direction,
	}
	if err := rec.Camera.Validate(); err != nil {
		rec.Err = fmt.Errorf("record %d: %w", index, err)
	}
	return rec
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
