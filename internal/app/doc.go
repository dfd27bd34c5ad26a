// Package app is the composition root for dronewatch.
//
// # Overview
//
// Setup loads the configuration and wires the logger, metrics collector, API
// client and repository. Every CLI command starts there. Run additionally
// builds the shared state.Store, registers the fleet refresh on a
// scheduler.Scheduler and hands control to the terminal view:
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()           Read TOML, .env, DRONEWATCH_TOKEN
//	       ├─────> logging.New()           zap JSON lines to log_file
//	       ├─────> droneapi.NewClient()    HTTP client with retry
//	       ├─────> serveStatus()           /metrics, /health, /readiness
//	       ├─────> scheduler.Start()       Refresher.Refresh every interval
//	       └─────> ui.Run()                Terminal view (blocks)
//
// # Refresh
//
// Refresher.Refresh runs three collections concurrently with errgroup: all
// drones and all drone types (page walks) plus the newest page of telemetry,
// reduced to the latest sample per drone. The first failure cancels the
// others and is recorded in the store, which keeps the previous fleet.
//
// The view can pause and resume the schedule. Pausing cancels an in-flight
// refresh; resuming fires immediately.
package app
