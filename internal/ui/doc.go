// Package ui implements the dronewatch terminal view with Bubble Tea.
//
// The view lists the fleet from a state.Store snapshot, one row per drone
// joined with its type and latest telemetry, and shows details for the
// selected drone below the table. The snapshot is re-read every PollTick; the
// view never talks to the API itself.
//
// Filters are built with the filter package from three parameters: a serial
// number glob (/), a carriage type (c) and a telemetry status (s). All of
// them must pass. r pauses and resumes the background refresh through
// RefreshControl, and the header shows whether it is running.
package ui
