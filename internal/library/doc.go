// Package library defines the normalized view of Plex items that the rest of
// plexhush operates on.
//
// An Item is a TV episode or a movie flattened into the handful of attributes
// the tool cares about: identity, watched state, and the three spoiler-bearing
// fields (summary, title, thumbnail). Whether a field currently reads as
// hidden is derived by comparing its value against the configured marker
// strings; an empty field is never considered hidden.
//
// Snapshots are fetched fresh from the server on every run and are not
// persisted here.
package library
