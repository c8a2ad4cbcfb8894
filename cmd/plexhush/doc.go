// Command plexhush hides spoilers on unwatched Plex items and restores them
// once watched. It is designed to run periodically from cron or a systemd
// timer; each invocation plans the needed edits, applies them, and verifies
// the server accepted them before exiting.
package main
