package domain

import (
	"fmt"
	"math"
	"time"
)

// TimestampLayout is the ISO-8601 form used for persisted records.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Status string

const (
	StatusInactive Status = "INACTIVE"
	StatusArming   Status = "ARMING"
	StatusActive   Status = "ACTIVE"
)

type AlertKind string

const (
	AlertActivated   AlertKind = "SOS_ACTIVATED"
	AlertDeactivated AlertKind = "SOS_DEACTIVATED"
)

func (k AlertKind) Validate() error {
	switch k {
	case AlertActivated, AlertDeactivated:
		return nil
	default:
		return fmt.Errorf("unknown alert kind: %s", k)
	}
}

// Coordinate is a single resolved fix. AcquiredAt orders fixes; it is not
// part of the persisted coordinate pair.
type Coordinate struct {
	Latitude   float64
	Longitude  float64
	AcquiredAt time.Time
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return fmt.Errorf("coordinate is not a number")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}

// Supersedes reports whether c may replace current as the latest fix.
func (c Coordinate) Supersedes(current *Coordinate) bool {
	if current == nil {
		return true
	}
	return !c.AcquiredAt.Before(current.AcquiredAt)
}

// Session is the controller's in-memory view of one activation lifecycle.
type Session struct {
	ID            string
	Status        Status
	ArmedAt       time.Time
	ActivatedAt   time.Time
	LastLocation  *Coordinate
	CaptureActive bool
}

type EvidenceRecord struct {
	ID        string
	SessionID string
	Timestamp time.Time
	ImageData string
	Location  *Coordinate
}

type AlertRecord struct {
	ID        string
	SessionID string
	UserID    string
	Timestamp time.Time
	Location  *Coordinate
	Kind      AlertKind
}

type NotificationKind string

const (
	NotifySOSActivated    NotificationKind = "SOS_ACTIVATED"
	NotifySOSDeactivated  NotificationKind = "SOS_DEACTIVATED"
	NotifyLocationUpdated NotificationKind = "LOCATION_UPDATED"
)

// Notification is a discrete transition published to the application state.
type Notification struct {
	Kind     NotificationKind
	Location *Coordinate
}

// Capability names used in logs and metrics.
const (
	CapabilityLocation = "location"
	CapabilityCamera   = "camera"
	CapabilityStorage  = "storage"
)

// DeviceHandle identifies an opened capture device.
type DeviceHandle string

// Report is an incident summary assembled from stored records.
type Report struct {
	GeneratedAt time.Time
	UserID      string
	Alerts      []AlertRecord
	Evidence    []EvidenceRecord
}

func CopyCoordinate(c *Coordinate) *Coordinate {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}
