// Package model defines the camera database wire and domain types.
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CameraType is the closed enumeration of enforcement point kinds.
type CameraType string

const (
	TypeSpeed    CameraType = "SPEED"
	TypeRedLight CameraType = "RED_LIGHT"
	TypeUnknown  CameraType = "UNKNOWN"
)

// Known reports whether t is one of the recognized camera types.
func (t CameraType) Known() bool {
	return t == TypeSpeed || t == TypeRedLight
}

// Entry is one located enforcement point as delivered in a feed's
// staticAlerts list.
type Entry struct {
	ID          string     `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Type        CameraType `json:"type"`
	Description string     `json:"description,omitempty"`
	// Direction is a numeric compass heading rendered as a string;
	// empty means the camera monitors all directions.
	Direction string    `json:"direction,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	speedLimitPattern = regexp.MustCompile(`Limit:\s*(\d+)`)
	monitorsPattern   = regexp.MustCompile(`Monitors:\s*([A-Z]+(?:\s*,\s*[A-Z]+)*)`)
)

// SpeedLimit extracts the posted limit encoded in the description
// ("Limit: 50"). The value is derived on demand, never stored.
func (e Entry) SpeedLimit() (int, bool) {
	m := speedLimitPattern.FindStringSubmatch(e.Description)
	if m == nil {
		return 0, false
	}
	limit, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return limit, true
}

// MonitoredDirections extracts the monitored approach list encoded in
// the description ("Monitors: NB, SB"). Returns nil when absent.
func (e Entry) MonitoredDirections() []string {
	m := monitorsPattern.FindStringSubmatch(e.Description)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[1], ",")
	dirs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			dirs = append(dirs, p)
		}
	}
	return dirs
}

// DirectionLabel renders the direction field for display, substituting
// "All Directions" for an unset heading.
func (e Entry) DirectionLabel() string {
	if e.Direction == "" {
		return "All Directions"
	}
	return e.Direction
}

// Validate checks the entry's coordinate and identifier invariants.
func (e Entry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("entry missing id")
	}
	if e.Latitude < -90 || e.Latitude > 90 {
		return fmt.Errorf("entry %s: latitude %f out of range", e.ID, e.Latitude)
	}
	if e.Longitude < -180 || e.Longitude > 180 {
		return fmt.Errorf("entry %s: longitude %f out of range", e.ID, e.Longitude)
	}
	return nil
}

// DisplayItem is the display-ready projection of an Entry produced by
// the query layer.
type DisplayItem struct {
	ID          string     `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Type        CameraType `json:"type"`
	Direction   string     `json:"direction"`
	Description string     `json:"description,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
	Source      string     `json:"source"`
}

// DisplaySource tags every display item with its originating dataset.
const DisplaySource = "Camera Database"
