package filter

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/five82/dronewatch/internal/drone"
)

// compileGlob compiles a case-insensitive glob. '*' matches across any
// character, including '/'.
func compileGlob(pattern string) (glob.Glob, error) {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if _, err := filepath.Match(pattern, "probe"); err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return g, nil
}

// SerialMatches matches the drone serial number against a glob pattern.
func SerialMatches(pattern string) (Condition[drone.Drone], error) {
	g, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}
	return func(d drone.Drone) bool {
		return g.Match(strings.ToLower(d.SerialNumber))
	}, nil
}

// CarriageTypeIs matches the carriage type code, ignoring case.
func CarriageTypeIs(code string) Condition[drone.Drone] {
	code = strings.TrimSpace(code)
	return func(d drone.Drone) bool {
		return strings.EqualFold(strings.TrimSpace(d.CarriageType), code)
	}
}

// CarriageWeightBetween matches min <= weight <= max. A negative max leaves
// the range open at the top.
func CarriageWeightBetween(minWeight, maxWeight int) Condition[drone.Drone] {
	return func(d drone.Drone) bool {
		return inRange(d.CarriageWeight, minWeight, maxWeight)
	}
}

// DroneTypeIs matches drones of the given type id.
func DroneTypeIs(typeID int64) Condition[drone.Drone] {
	return func(d drone.Drone) bool { return d.DroneTypeID == typeID }
}

// CreatedAfter matches drones created strictly after t. Unparseable creation
// dates never match.
func CreatedAfter(t time.Time) Condition[drone.Drone] {
	return func(d drone.Drone) bool {
		created := d.ParsedCreated()
		return !created.IsZero() && created.After(t)
	}
}

// ManufacturerMatches matches the drone type manufacturer against a glob.
func ManufacturerMatches(pattern string) (Condition[drone.DroneType], error) {
	g, err := compileGlob(pattern)
	if err != nil {
		return nil, err
	}
	return func(t drone.DroneType) bool {
		return g.Match(strings.ToLower(t.Manufacturer))
	}, nil
}

// MaxSpeedAtLeast matches types whose top speed is at least v.
func MaxSpeedAtLeast(v int) Condition[drone.DroneType] {
	return func(t drone.DroneType) bool { return t.MaxSpeed >= v }
}

// MaxCarriageAtLeast matches types able to carry at least v.
func MaxCarriageAtLeast(v int) Condition[drone.DroneType] {
	return func(t drone.DroneType) bool { return t.MaxCarriage >= v }
}

// StatusIs matches the status code of a sample, ignoring case.
func StatusIs(code string) Condition[drone.Dynamics] {
	code = strings.TrimSpace(code)
	return func(d drone.Dynamics) bool {
		return strings.EqualFold(strings.TrimSpace(d.Status), code)
	}
}

// BatteryAtLeast matches samples with battery_status >= pct.
func BatteryAtLeast(pct int) Condition[drone.Dynamics] {
	return func(d drone.Dynamics) bool { return d.BatteryStatus >= pct }
}

// SpeedBetween matches min <= speed <= max. A negative max leaves the range
// open at the top.
func SpeedBetween(minSpeed, maxSpeed int) Condition[drone.Dynamics] {
	return func(d drone.Dynamics) bool {
		return inRange(d.Speed, minSpeed, maxSpeed)
	}
}

// SeenSince matches samples whose last_seen is at or after t.
func SeenSince(t time.Time) Condition[drone.Dynamics] {
	return func(d drone.Dynamics) bool {
		seen := d.ParsedLastSeen()
		return !seen.IsZero() && !seen.Before(t)
	}
}

func inRange(v, lo, hi int) bool {
	if v < lo {
		return false
	}
	return hi < 0 || v <= hi
}
