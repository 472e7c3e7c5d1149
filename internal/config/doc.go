// Package config loads, normalizes, and validates specimatch configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob the
// CLI and library need: the data directory holding the specimen database, log
// output settings, and reconciliation tuning such as the apply batch size.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
