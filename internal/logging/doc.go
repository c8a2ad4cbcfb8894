// Package logging builds the slog logger used across plexhush: a pretty
// console handler for interactive use and a JSON handler for cron and
// collectors.
package logging
