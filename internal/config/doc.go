// Package config defines the settings used by the smart-dial binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Durations are stored as integer milliseconds in YAML and exposed as
// time.Duration through accessor methods. Validate fills in defaults for
// every unset field, so a missing section never fails a start.
package config
