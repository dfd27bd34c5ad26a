package ui

import (
	"github.com/five82/dronewatch/internal/drone"
	"github.com/five82/dronewatch/internal/filter"
	"github.com/five82/dronewatch/internal/state"
)

// Cycles for the c and s keys. The empty value means no filter.
var (
	carriageCycle = []string{"", drone.CarriageNone, drone.CarriageActuator, drone.CarriageSensor}
	statusCycle   = []string{"", drone.StatusOn, drone.StatusOff, drone.StatusIssue}
)

// filterState holds the view's filter parameters.
type filterState struct {
	serialGlob string
	carriage   string
	status     string
}

func (f filterState) active() bool {
	return f.serialGlob != "" || f.carriage != "" || f.status != ""
}

func rowDrone(r state.Row) drone.Drone       { return r.Drone }
func rowDynamics(r state.Row) drone.Dynamics { return r.Dynamics }

// build turns the parameters into a row filter. Status filtering drops
// drones without telemetry.
func (f filterState) build() (filter.Filter[state.Row], error) {
	droneFilter, err := filter.DroneCriteria{
		SerialGlob:   f.serialGlob,
		CarriageType: f.carriage,
	}.Build()
	if err != nil {
		return filter.Filter[state.Row]{}, err
	}

	rows := filter.New[state.Row]()
	if droneFilter.Len() > 0 {
		rows = rows.And(filter.On[state.Row, drone.Drone](rowDrone, droneFilter.Match))
	}
	if f.status != "" {
		dyn := filter.DynamicsCriteria{Status: f.status}.Build()
		rows = rows.And(
			func(r state.Row) bool { return r.HasDynamics },
			filter.On[state.Row, drone.Dynamics](rowDynamics, dyn.Match),
		)
	}
	return rows, nil
}

func nextInCycle(cycle []string, current string) string {
	for i, v := range cycle {
		if v == current {
			return cycle[(i+1)%len(cycle)]
		}
	}
	return cycle[0]
}
