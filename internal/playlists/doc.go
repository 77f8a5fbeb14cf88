// Package playlists runs the playlist visibility state machine and the operations that change a
// playlist's songs and collaborators.
//
// Every change is a single-record update: the playlist is re-read, the actor's role and the change are
// checked against the fresh copy, and the result is written back with a version check. A lost race
// replays from the read, which is safe because each change is a pure function of the stored record.
package playlists
