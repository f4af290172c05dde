package takematch

import (
	"time"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

// FolderInfo summarizes one folder's fingerprint state for the UI.
type FolderInfo struct {
	Folder        string
	TotalFiles    int
	Coverage      map[fingerprint.Algorithm]int
	ExcludedCount int
	Reference     bool
	Ignore        bool
	// LastAnalyzed is zero when no batch has run for this folder (or the
	// run history is disabled).
	LastAnalyzed time.Time
}
