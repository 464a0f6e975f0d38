package domain

// ActionType represents the type of sync action
type ActionType string

const (
	// ActionSkip means source and destination already agree at this path
	ActionSkip ActionType = "skip"

	// ActionCopy means stream source bytes to the destination path
	ActionCopy ActionType = "copy"

	// ActionRename means relocate an existing destination file without
	// re-transferring its content
	ActionRename ActionType = "rename"

	// ActionDelete means remove an extraneous destination file
	ActionDelete ActionType = "delete"
)

// SyncAction represents a single operation in a sync plan.
// Each action is produced once by the planner and consumed exactly once
// by the apply engine.
type SyncAction struct {
	// Type of action to perform
	Type ActionType

	// Path is the destination-relative path the action settles.
	// For renames this is the new path; OldPath holds the current one.
	Path string

	// OldPath is the current destination path for ActionRename
	OldPath string

	// Size in bytes of the content involved
	Size int64

	// Source file metadata (nil for delete)
	Source *FingerprintedFile

	// Dest file metadata (nil for copy of a new file)
	Dest *FingerprintedFile

	// Relocated marks a fuzzy-paired copy: content differs but the file
	// is attributed as moved-and-edited for statistics purposes
	Relocated bool

	// Reason explains why this action was chosen
	Reason string
}

// SyncPlan is the complete, deterministic set of per-file actions computed
// before any destination mutation.
//
// Invariants: actions are sorted lexicographically by destination path,
// each destination path appears in at most one action, and each source
// file resolves to exactly one terminal action.
type SyncPlan struct {
	// Actions in apply order
	Actions []SyncAction

	// Stats summary of the plan
	Stats PlanStats

	// FailedFingerprints lists files excluded from the plan because they
	// could not be read during fingerprinting
	FailedFingerprints []string
}

// PlanStats provides summary statistics for a sync plan
type PlanStats struct {
	TotalActions  int
	FilesToCopy   int
	FilesToRename int
	FilesToDelete int
	FilesToSkip   int
	BytesToCopy   int64
	BytesRenamed  int64
}

// InSync reports whether the plan requires no destination mutation
func (p *SyncPlan) InSync() bool {
	return p.Stats.FilesToCopy == 0 && p.Stats.FilesToRename == 0 && p.Stats.FilesToDelete == 0
}

// CalculateStats recomputes the plan's summary statistics
func (p *SyncPlan) CalculateStats() {
	p.Stats = PlanStats{}
	for _, action := range p.Actions {
		p.Stats.TotalActions++
		switch action.Type {
		case ActionCopy:
			p.Stats.FilesToCopy++
			p.Stats.BytesToCopy += action.Size
		case ActionRename:
			p.Stats.FilesToRename++
			p.Stats.BytesRenamed += action.Size
		case ActionDelete:
			p.Stats.FilesToDelete++
		case ActionSkip:
			p.Stats.FilesToSkip++
		}
	}
}
