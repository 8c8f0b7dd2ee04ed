package backup

import "time"

// ExportOptions configures an export.
type ExportOptions struct {
	UserID     string // Whose data to export
	OutputPath string // Where to write the archive; empty writes into the backup dir
}

// ImportOptions configures an import.
type ImportOptions struct {
	// UserID receives the imported data. Empty imports for the user the
	// archive was exported from.
	UserID        string
	Mode          RestoreMode
	MergeStrategy MergeStrategy
	DryRun        bool // Validate without writing
}

// RestoreMode determines how to handle existing data.
type RestoreMode string

const (
	// RestoreModeReplace deletes the user's bookcases and goals first.
	RestoreModeReplace RestoreMode = "replace"

	// RestoreModeMerge adds backup data to existing data.
	RestoreModeMerge RestoreMode = "merge"
)

// Valid returns true if the restore mode is recognized.
func (m RestoreMode) Valid() bool {
	switch m {
	case RestoreModeReplace, RestoreModeMerge:
		return true
	default:
		return false
	}
}

// MergeStrategy determines conflict resolution in merge mode.
// A bookcase conflicts when its id already exists; a goal day conflicts when
// the date already has goals.
type MergeStrategy string

const (
	// MergeKeepLocal keeps local version on conflict.
	MergeKeepLocal MergeStrategy = "keep_local"

	// MergeKeepBackup uses backup version on conflict.
	MergeKeepBackup MergeStrategy = "keep_backup"
)

// Valid returns true if the merge strategy is recognized.
func (s MergeStrategy) Valid() bool {
	switch s {
	case MergeKeepLocal, MergeKeepBackup:
		return true
	case "": // Empty is valid (defaults to keep_local)
		return true
	default:
		return false
	}
}

// ExportResult contains the outcome of an export.
type ExportResult struct {
	ID       string        `json:"id"`
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
	Checksum string        `json:"checksum"`
}

// BackupInfo describes an existing backup.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportResult contains the outcome of an import.
type ImportResult struct {
	Imported map[string]int `json:"imported"`
	Skipped  map[string]int `json:"skipped"`
	Errors   []ImportError  `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ImportError describes a non-fatal error during import.
type ImportError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult describes backup validity.
type ValidationResult struct {
	Valid          bool         `json:"valid"`
	Manifest       *Manifest    `json:"manifest,omitempty"`
	ExpectedCounts EntityCounts `json:"expected_counts"`
	Errors         []string     `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}
