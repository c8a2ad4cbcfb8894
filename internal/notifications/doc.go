// Package notifications delivers run outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when no topic is set, so
// callers never branch on whether notifications are enabled.
package notifications
