// Package plex is the library-access collaborator: an HTTP client for the
// Plex Media Server endpoints plexhush needs, plus a websocket listener for
// the server's notification stream.
//
// The Client enumerates movie and show sections, flattens their contents
// into library.Item snapshots, edits fields with optional locks, triggers
// metadata refreshes, and manages posters and labels for thumbnail hiding.
// The Listener records the timestamp of the last relevant server event; the
// executor polls that single value to decide when an asynchronous refresh
// has settled.
package plex
