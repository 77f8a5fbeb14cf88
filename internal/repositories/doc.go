// Package repositories implements persistence for users and playlists.
//
// Every repository satisfies the optimistic-concurrency contract in [models.Repository]: records carry a
// version, and ConditionalPut only writes when the stored version matches the caller's expectation.
// A stale caller receives [shared.ErrVersionConflict] and must re-read.
//
// Key Implementations:
//   - [UserRepository] : SQLite user persistence with edge sets stored as JSON arrays
//   - [PlaylistRepository] : SQLite playlist persistence with share-link and membership lookups
//   - [MemoryUserRepository], [MemoryPlaylistRepository] : in-process stores with identical semantics
//
// The postgres subpackage provides the same stores on PostgreSQL.
//
// Sequence numbers provide stable, human-readable ordering (e.g., user #42, playlist #15) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
