// Package config loads dronewatch settings from a TOML file and the
// environment.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/dronewatch/config.toml
//  3. If the file does not exist, fall back to defaults
//  4. Fields missing or empty in the file keep their defaults
//
// The API token is special: DRONEWATCH_TOKEN in the environment wins over
// the file. A .env file beside the config file, or in the working directory,
// is loaded first so the token can live outside the config.
//
// # TOML Format
//
//	base_url = "http://dronesim.facets-labs.com/api/"
//	token = "..."
//	timeout = "10s"
//	max_retries = 3        # total attempts per request
//	retry_delay = "2s"     # constant pause between attempts
//	page_limit = 50
//	refresh_interval = "10s"
//	log_file = "~/.local/state/dronewatch/dronewatch.log"
//	metrics_addr = "127.0.0.1:9464"   # empty disables the endpoint
//
// Durations use time.ParseDuration syntax. Paths get tilde expansion.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files and TOML
// or duration parse errors. A missing file is NOT an error. Validate checks
// value ranges separately so commands that never reach the network (logs,
// version) still run with a half-configured file. RequireToken reports
// ErrMissingToken.
package config
