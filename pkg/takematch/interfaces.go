package takematch

import (
	"context"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
	"github.com/takematch/takematch/pkg/takematch/generate"
	"github.com/takematch/takematch/pkg/takematch/match"
)

// Service is the surface exposed to the UI layer. Batch generation is
// asynchronous (handle with progress/cancel); everything else is
// synchronous local computation.
type Service interface {
	// Generate starts fingerprint extraction over the folders (recursive
	// when asked) and returns the batch handle immediately.
	Generate(ctx context.Context, folders []string, algo fingerprint.Algorithm, recursive bool) (*generate.Batch, error)
	// FindMatches fingerprints the query file (or reuses its fresh cache
	// entry) and ranks matching files from the given folders.
	FindMatches(ctx context.Context, queryPath string, folders []string, algo fingerprint.Algorithm, threshold float64) ([]match.Result, error)
	// FindDuplicates clusters near-identical recordings across the folders
	// in a single batched pairwise pass.
	FindDuplicates(ctx context.Context, folders []string, algo fingerprint.Algorithm, threshold float64) ([]match.Cluster, error)
	FolderInfo(folder string) (*FolderInfo, error)
	SetReferenceFolder(folder string, reference bool) error
	SetIgnoreFolder(folder string, ignore bool) error
	ExcludeFile(folder, name string) error
	UnexcludeFile(folder, name string) error
	Close() error
}

// Decoder turns an audio file into mono PCM samples plus sample rate.
// Failures are typed decode errors that batches treat as per-file soft
// failures.
type Decoder interface {
	Decode(path string) ([]float64, int, error)
}

// FileLister supplies directory enumeration. Traversal policy (hidden-folder
// skipping, extension filtering) belongs to the lister, not this core.
type FileLister interface {
	// ListAudioFiles returns audio filenames (not paths) directly inside
	// the folder.
	ListAudioFiles(folder string) ([]string, error)
	// Subfolders returns all nested folder paths under root, root excluded.
	Subfolders(root string) ([]string, error)
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
