// Package drone defines the entities served by the drone API and the parsers
// that decode them from JSON records.
//
// # Entities
//
// Three record kinds share only the Entity identity contract:
//
//   - Drone: static record from /drones, with its type id taken from the
//     embedded dronetype link
//   - DroneType: specification from /dronetypes
//   - Dynamics: telemetry sample from /dronedynamics, keyed by the drone id
//     taken from the embedded drone link
//
// Entities are plain values. They are built once by a parser and never
// mutated afterwards, so they may be shared freely between the UI and filters.
//
// # Parsers
//
// A Parser declares its endpoint, checks field presence with Valid, and
// decodes with Parse. Records are handed over as gjson.Result values so that
// presence checks do not require a full unmarshal. A record that fails Valid,
// or whose embedded link has no trailing numeric id, is never partially
// constructed: Parse returns ErrMissingField or ErrMalformedURL and the
// repository skips it.
package drone
