// Package ui renders terminal output for the dtunes CLI with lipgloss.
//
// A [Palette] styles status lines (titles, successes, warnings, errors and hints) and [Table] lays out
// listings such as friends, requests and playlists. Styling is dropped automatically when the output is
// not a terminal, so piped output stays plain text.
package ui
