package state

import (
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/five82/dronewatch/internal/drone"
)

// Fleet is one successful refresh: every known drone, every known type and
// the newest telemetry sample per drone.
type Fleet struct {
	Drones map[int64]drone.Drone
	Types  map[int64]drone.DroneType
	Latest map[int64]drone.Dynamics
}

// Row joins a drone with its type and latest sample for display.
type Row struct {
	Drone       drone.Drone
	Type        drone.DroneType
	HasType     bool
	Dynamics    drone.Dynamics
	HasDynamics bool
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Fleet               Fleet
	HasData             bool
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the API has been unreachable for multiple refreshes.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Rows returns the joined fleet ordered by drone id.
func (s Snapshot) Rows() []Row {
	ids := slices.Sorted(maps.Keys(s.Fleet.Drones))
	rows := make([]Row, 0, len(ids))
	for _, id := range ids {
		d := s.Fleet.Drones[id]
		row := Row{Drone: d}
		row.Type, row.HasType = s.Fleet.Types[d.DroneTypeID]
		row.Dynamics, row.HasDynamics = s.Fleet.Latest[id]
		rows = append(rows, row)
	}
	return rows
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(fleet *Fleet, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if fleet != nil {
		s.snapshot.Fleet = cloneFleet(*fleet)
		s.snapshot.HasData = true
	} else {
		s.snapshot.Fleet = Fleet{}
		s.snapshot.HasData = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Fleet = cloneFleet(s.snapshot.Fleet)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneFleet(f Fleet) Fleet {
	return Fleet{
		Drones: maps.Clone(f.Drones),
		Types:  maps.Clone(f.Types),
		Latest: maps.Clone(f.Latest),
	}
}
