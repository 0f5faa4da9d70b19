package models

import (
	"errors"
	"fmt"
	"time"
)

var ErrMissingCameraKey = errors.New("camera has no key")

// Camera is a fixed monitoring point. The camera set is loaded once and is
// read-only afterwards.
type Camera struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Location
	Region    string `json:"region,omitempty"`
	Direction string `json:"direction,omitempty"`
}

func (c Camera) Validate() error {
	if c.Key == "" {
		return ErrMissingCameraKey
	}
	if !c.Location.Valid() {
		return fmt.Errorf("camera %s: coordinates out of range (%.4f, %.4f)", c.Key, c.Lat, c.Lon)
	}
	return nil
}

// Event is a synthetic detection on a camera. It carries a copy of the
// camera's fields and has no identity beyond Key plus DetectedAt.
type Event struct {
	Camera
	EventType  string    `json:"eventType"`
	Confidence float64   `json:"confidence"`
	DetectedAt time.Time `json:"detectedAt"`
}
