// Package config loads, normalizes, and validates plexhush configuration
// from a TOML file, with env var fallbacks for credentials.
package config
