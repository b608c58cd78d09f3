package backup

import (
	"slices"
	"time"
)

// BackupOptions configures Create.
type BackupOptions struct {
	OutputPath string // empty writes a timestamped file in the backup directory
}

// RestoreMode says what happens to data already in the store.
type RestoreMode string

// Restore modes.
const (
	RestoreModeFull  RestoreMode = "full"  // wipe the store first
	RestoreModeMerge RestoreMode = "merge" // combine with what is there
)

// MergeStrategy picks the survivor when a merged note or transaction exists
// on both sides.
type MergeStrategy string

// Merge strategies.
const (
	MergeKeepLocal  MergeStrategy = "keep_local"
	MergeKeepBackup MergeStrategy = "keep_backup"
	MergeNewest     MergeStrategy = "newest" // compares updated/created time
)

var (
	restoreModes    = []RestoreMode{RestoreModeFull, RestoreModeMerge}
	mergeStrategies = []MergeStrategy{MergeKeepLocal, MergeKeepBackup, MergeNewest}
)

// Valid reports whether m is a known mode.
func (m RestoreMode) Valid() bool { return slices.Contains(restoreModes, m) }

// Valid reports whether s is a known strategy. Empty means keep_local.
func (s MergeStrategy) Valid() bool { return s == "" || slices.Contains(mergeStrategies, s) }

// RestoreOptions configures Restore.
type RestoreOptions struct {
	Mode          RestoreMode
	MergeStrategy MergeStrategy
	DryRun        bool // read and check the archive without writing
	LedgerCap     int  // records kept per merged ledger; 0 means ledger.DefaultCap
}

// BackupResult describes a written archive.
type BackupResult struct {
	Path     string        `json:"path"`
	Size     int64         `json:"size"`
	Checksum string        `json:"checksum"` // sha256 of the file, hex
	Counts   EntityCounts  `json:"counts"`
	Duration time.Duration `json:"duration"`
}

// BackupInfo is one archive found in the backup directory.
type BackupInfo struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// Tally counts restored items by kind.
type Tally struct {
	Notes        int `json:"notes"`
	Transactions int `json:"transactions"`
	Purchases    int `json:"purchases"`
}

// RestoreResult describes a restore or a dry run.
type RestoreResult struct {
	Imported Tally          `json:"imported"`
	Skipped  Tally          `json:"skipped"`
	Errors   []RestoreError `json:"errors,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// RestoreError is an item that could not be restored. Restore carries on
// past it.
type RestoreError struct {
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id,omitempty"`
	Error      string `json:"error"`
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid          bool         `json:"valid"`
	Manifest       *Manifest    `json:"manifest,omitempty"`
	ExpectedCounts EntityCounts `json:"expected_counts"`
	Errors         []string     `json:"errors,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}
