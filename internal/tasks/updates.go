package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Job     Job    // Sync job the update belongs to, for sync phases
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	StartJob Phase = iota
	ScanAnchors
	FetchRemote
	LinkCounterparts
	ResolveDeferred
	FinishJob
	ScanAlbums
	DetectReleases
	ReadLibrary
)

func (p Phase) String() string {
	switch p {
	case StartJob:
		return "start_job"
	case ScanAnchors:
		return "scan_anchors"
	case FetchRemote:
		return "fetch_remote"
	case LinkCounterparts:
		return "link_counterparts"
	case ResolveDeferred:
		return "resolve_deferred"
	case FinishJob:
		return "finish_job"
	case ScanAlbums:
		return "scan_albums"
	case DetectReleases:
		return "detect_releases"
	case ReadLibrary:
		return "read_library"
	default:
		return ""
	}
}

func jobStartedUpdate(step, total int, job Job) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartJob,
		Job:     job,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Syncing %s...", step, total, job),
	}
}

func scanUpdate(job Job, anchors int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanAnchors,
		Job:     job,
		Step:    0,
		Total:   anchors,
		Message: fmt.Sprintf("Found %d %s anchors in the graph", anchors, job),
	}
}

func fetchUpdate(job Job, ids int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchRemote,
		Job:     job,
		Total:   ids,
		Message: fmt.Sprintf("Looking up %d entities...", ids),
	}
}

func linkUpdate(job Job, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LinkCounterparts,
		Job:     job,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Linking %s...", step, total, job),
	}
}

func resolveUpdate(job Job, deferred int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveDeferred,
		Job:     job,
		Total:   deferred,
		Message: fmt.Sprintf("Fetching %d missing counterparts...", deferred),
	}
}

func jobDoneUpdate(step, total int, res *MergeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase: FinishJob,
		Job:   res.Job,
		Step:  step,
		Total: total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s: %d relationships, %d created, %d unresolved",
			step, total, res.Job, res.Relationships, res.Created, res.Unresolved),
		Data: res,
	}
}

func albumScanUpdate(step, total int, artist string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanAlbums,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Scanning albums of %s...", step, total, artist),
	}
}

func releaseUpdate(step, total int, artist, album string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DetectReleases,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("New release: %s - %s", artist, album),
	}
}

func libraryUpdate(step, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadLibrary,
		Step:    step,
		Total:   total,
		Message: message,
	}
}
