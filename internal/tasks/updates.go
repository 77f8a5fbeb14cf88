package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ListUsers Phase = iota
	SweepUsers
	ListPlaylists
	ExportPlaylists
)

func (p Phase) String() string {
	switch p {
	case ListUsers:
		return "list_users"
	case SweepUsers:
		return "sweep_users"
	case ListPlaylists:
		return "list_playlists"
	case ExportPlaylists:
		return "export_playlists"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func listUsersUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListUsers,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d users", total),
	}
}

func sweptUserUpdate(step, total int, res UserSweepResult) ProgressUpdate {
	msg := fmt.Sprintf("Swept %s", res.UserID)
	switch {
	case res.Err != nil:
		msg = fmt.Sprintf("Failed to sweep %s: %v", res.UserID, res.Err)
	case res.Repaired > 0:
		msg = fmt.Sprintf("Repaired %d pairs for %s", res.Repaired, res.UserID)
	}
	return ProgressUpdate{
		Phase:   SweepUsers,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}

func listPlaylistsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ListPlaylists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d playlists", total),
	}
}

func exportedPlaylistUpdate(step, total int, res PlaylistExportResult) ProgressUpdate {
	msg := fmt.Sprintf("Exported %s (%d files)", res.PlaylistName, len(res.Files))
	if res.Error != nil {
		msg = fmt.Sprintf("Failed to export %s: %v", res.PlaylistName, res.Error)
	}
	return ProgressUpdate{
		Phase:   ExportPlaylists,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    res,
	}
}
