// Package models defines domain entities and persistence interfaces for the dtunes service.
//
// Entities:
//   - [User] : account identity plus the three relationship edge sets (friends, incoming and outgoing requests)
//   - [Playlist] : songs with graded [Visibility], collaborators and an optional share link
//   - [IDSet] : unordered set of ids backing every edge and membership list
//
// Entities keep their fields unexported. Relationship edges are only changed by the social package and
// playlist visibility only by the playlists package, so the setters here perform no transition checks.
// Validate enforces the single-record invariants that storage must never hold a violation of.
//
// The [Repository] interface defines the optimistic-concurrency contract (Get, ConditionalPut) that both
// services build their read-validate-write loops on.
package models
