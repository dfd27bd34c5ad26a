// Package state shares the latest fleet between the background refresh and
// the terminal view.
//
// # Overview
//
// The refresh task is the single writer; the view reads on its own schedule:
//
//	Producer (refresh task):       Consumer (UI):
//	┌────────────────┐            ┌─────────────────┐
//	│ CollectMap()   │            │                 │
//	│ Dynamics()     │            │                 │
//	│      ↓         │            │                 │
//	│ store.Update() │───────────→│ store.Snapshot()│
//	│      ↓         │  (mutex)   │      ↓          │
//	│  next period   │            │  render rows    │
//	└────────────────┘            └─────────────────┘
//
// # Update Semantics
//
//	// Success: replace the fleet
//	store.Update(&fleet, nil)
//
//	// Failure: keep the old fleet, record the error
//	store.Update(nil, err)
//
// Both Update and Snapshot clone the fleet maps, so neither side can observe
// the other's mutations. The zero Store is ready to use.
//
// Snapshot.Rows joins drones with their type and latest sample, ordered by
// drone id, which is the shape the list view renders.
package state
