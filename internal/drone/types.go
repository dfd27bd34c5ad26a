package drone

import (
	"strings"
	"time"
)

const apiTimestampLayout = "2006-01-02 15:04:05"

// Entity is any decoded record with a stable integer identifier.
type Entity interface {
	EntityID() int64
}

// Drone is the static record served by the drones endpoint.
type Drone struct {
	ID             int64
	SerialNumber   string
	CarriageType   string
	CarriageWeight int
	DroneTypeURL   string
	DroneTypeID    int64
	Created        string
}

// EntityID implements Entity.
func (d Drone) EntityID() int64 { return d.ID }

// ParsedCreated returns the creation timestamp as time.Time when possible.
func (d Drone) ParsedCreated() time.Time {
	return ParseTime(d.Created)
}

// CarriageLabel expands the carriage type code for display.
func (d Drone) CarriageLabel() string {
	switch strings.ToUpper(strings.TrimSpace(d.CarriageType)) {
	case CarriageNone:
		return "None"
	case CarriageActuator:
		return "Actuator"
	case CarriageSensor:
		return "Sensor"
	case "":
		return "-"
	default:
		return d.CarriageType
	}
}

// Carriage type codes used by the API.
const (
	CarriageNone     = "NOT"
	CarriageActuator = "ACT"
	CarriageSensor   = "SEN"
)

// DroneType is the type specification shared by many drones.
type DroneType struct {
	ID              int64
	Manufacturer    string
	TypeName        string
	Weight          int
	MaxSpeed        int
	BatteryCapacity int
	ControlRange    int
	MaxCarriage     int
}

// EntityID implements Entity.
func (t DroneType) EntityID() int64 { return t.ID }

// Label joins manufacturer and type name.
func (t DroneType) Label() string {
	return strings.TrimSpace(t.Manufacturer + " " + t.TypeName)
}

// Dynamics is one telemetry sample. The API does not carry a sample id, so the
// sample is keyed by the drone it belongs to.
type Dynamics struct {
	DroneURL      string
	DroneID       int64
	Timestamp     string
	Speed         int
	AlignRoll     float64
	AlignPitch    float64
	AlignYaw      float64
	Longitude     float64
	Latitude      float64
	BatteryStatus int
	LastSeen      string
	Status        string
}

// EntityID implements Entity and returns the owning drone's id.
func (d Dynamics) EntityID() int64 { return d.DroneID }

// ParsedTimestamp returns the sample timestamp as time.Time when possible.
func (d Dynamics) ParsedTimestamp() time.Time {
	return ParseTime(d.Timestamp)
}

// ParsedLastSeen returns the last-seen timestamp as time.Time when possible.
func (d Dynamics) ParsedLastSeen() time.Time {
	return ParseTime(d.LastSeen)
}

// Status codes reported in dynamics samples.
const (
	StatusOn    = "ON"
	StatusOff   = "OF"
	StatusIssue = "IS"
)

// StatusLabel expands the status code for display.
func (d Dynamics) StatusLabel() string {
	switch strings.ToUpper(strings.TrimSpace(d.Status)) {
	case StatusOn:
		return "Online"
	case StatusOff:
		return "Offline"
	case StatusIssue:
		return "Issue"
	case "":
		return "-"
	default:
		return d.Status
	}
}

// LatestByDrone keys samples by drone id, keeping the newest sample per drone.
// Samples with equal or unparseable timestamps fall back to response order.
func LatestByDrone(samples []Dynamics) map[int64]Dynamics {
	out := make(map[int64]Dynamics, len(samples))
	for _, s := range samples {
		prev, ok := out[s.DroneID]
		if !ok || !s.ParsedTimestamp().Before(prev.ParsedTimestamp()) {
			out[s.DroneID] = s
		}
	}
	return out
}

// ParseTime accepts RFC3339 variants and the API's space-separated layout.
// Invalid or empty values return the zero time.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if t, err := time.ParseInLocation(apiTimestampLayout, value, time.Local); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.DateOnly, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
