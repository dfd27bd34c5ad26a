package filter

import (
	"time"

	"github.com/five82/dronewatch/internal/drone"
)

// DroneCriteria collects optional drone filter parameters. Zero values add no
// condition.
type DroneCriteria struct {
	SerialGlob   string
	CarriageType string
	// MinCarriageWeight and MaxCarriageWeight bound the carriage weight. A
	// zero MaxCarriageWeight leaves the range open at the top.
	MinCarriageWeight int
	MaxCarriageWeight int
	DroneTypeID       int64
	CreatedAfter      time.Time
}

// Build turns the criteria into a filter. It fails only on an invalid glob.
func (c DroneCriteria) Build() (Filter[drone.Drone], error) {
	var f Filter[drone.Drone]
	if c.SerialGlob != "" {
		cond, err := SerialMatches(c.SerialGlob)
		if err != nil {
			return f, err
		}
		f = f.And(cond)
	}
	if c.CarriageType != "" {
		f = f.And(CarriageTypeIs(c.CarriageType))
	}
	if c.MinCarriageWeight > 0 || c.MaxCarriageWeight > 0 {
		hi := c.MaxCarriageWeight
		if hi == 0 {
			hi = -1
		}
		f = f.And(CarriageWeightBetween(c.MinCarriageWeight, hi))
	}
	if c.DroneTypeID > 0 {
		f = f.And(DroneTypeIs(c.DroneTypeID))
	}
	if !c.CreatedAfter.IsZero() {
		f = f.And(CreatedAfter(c.CreatedAfter))
	}
	return f, nil
}

// TypeCriteria collects optional drone type filter parameters.
type TypeCriteria struct {
	ManufacturerGlob string
	MinMaxSpeed      int
	MinMaxCarriage   int
}

// Build turns the criteria into a filter.
func (c TypeCriteria) Build() (Filter[drone.DroneType], error) {
	var f Filter[drone.DroneType]
	if c.ManufacturerGlob != "" {
		cond, err := ManufacturerMatches(c.ManufacturerGlob)
		if err != nil {
			return f, err
		}
		f = f.And(cond)
	}
	if c.MinMaxSpeed > 0 {
		f = f.And(MaxSpeedAtLeast(c.MinMaxSpeed))
	}
	if c.MinMaxCarriage > 0 {
		f = f.And(MaxCarriageAtLeast(c.MinMaxCarriage))
	}
	return f, nil
}

// DynamicsCriteria collects optional telemetry filter parameters.
type DynamicsCriteria struct {
	Status     string
	MinBattery int
	MinSpeed   int
	// MaxSpeed of zero leaves the speed range open at the top.
	MaxSpeed  int
	SeenSince time.Time
}

// Build turns the criteria into a filter.
func (c DynamicsCriteria) Build() Filter[drone.Dynamics] {
	var f Filter[drone.Dynamics]
	if c.Status != "" {
		f = f.And(StatusIs(c.Status))
	}
	if c.MinBattery > 0 {
		f = f.And(BatteryAtLeast(c.MinBattery))
	}
	if c.MinSpeed > 0 || c.MaxSpeed > 0 {
		hi := c.MaxSpeed
		if hi == 0 {
			hi = -1
		}
		f = f.And(SpeedBetween(c.MinSpeed, hi))
	}
	if !c.SeenSince.IsZero() {
		f = f.And(SeenSince(c.SeenSince))
	}
	return f
}
