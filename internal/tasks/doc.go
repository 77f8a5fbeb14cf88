// Package tasks runs long background jobs over the user and playlist stores with progress reporting.
//
// # Core Operations
//
//  1. [Sweeper.Run] : Reconciliation sweep
//     - Lists every user id
//     - Repairs each user's relationship pairs on a rate-limited worker pool
//     - Returns scanned, repaired and failed counts
//
//  2. [Sweeper.Start] : Periodic sweep
//     - Runs [Sweeper.Run] on a ticker until the context ends
//
//  3. [Exporter.Export] : Playlist export
//     - Writes every playlist a user can access to disk as JSON, CSV, Markdown or text
//     - Writes a manifest summarizing the export
//
// # Progress Reporting
//
// All operations accept an optional channel of [ProgressUpdate] values. Sends use select with default so a
// slow or absent reader never blocks the job.
package tasks
