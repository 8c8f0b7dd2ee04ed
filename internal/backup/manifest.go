package backup

import "time"

// FormatVersion is the backup format version. Increment major on breaking changes.
const FormatVersion = "1.0"

// Archive layout.
const (
	manifestFile  = "manifest.json"
	bookCasesFile = "entities/bookcases.jsonl"
	goalsFile     = "entities/goals.jsonl"
	archiveSuffix = ".bookcase.zip"
)

// Manifest describes backup contents and metadata.
type Manifest struct {
	ID        string    `json:"id"`
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`

	UserID        string `json:"user_id"`
	ServerVersion string `json:"server_version"`

	Counts EntityCounts `json:"counts"`
}

// EntityCounts tracks entity counts for validation and progress reporting.
type EntityCounts struct {
	BookCases       int `json:"bookcases"`
	Books           int `json:"books"`
	ReadingSessions int `json:"reading_sessions"`
	Notes           int `json:"notes"`
	GoalDays        int `json:"goal_days"`
	Goals           int `json:"goals"`
}
