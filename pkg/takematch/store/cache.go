// Package store persists per-folder fingerprint caches. One FolderCache owns
// all fingerprint records for one folder; everything is in-memory until Save.
// The cache is exactly that: losing it only costs recomputation time.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/takematch/takematch/pkg/logger"
	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

const (
	// CacheFileName is the per-folder cache document.
	CacheFileName = ".takematch.json"
	// CacheVersion is bumped on incompatible schema changes; older or newer
	// versions are discarded on load and regenerated.
	CacheVersion = 1
)

// CacheReadError reports an unreadable-but-present cache file. Load degrades
// to an empty cache instead of returning it; it only surfaces in logs.
type CacheReadError struct {
	Path string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("read fingerprint cache %s: %v", e.Path, e.Err)
}

func (e *CacheReadError) Unwrap() error { return e.Err }

// CacheWriteError reports a failed Save. In-memory state is untouched, so a
// later Save can retry.
type CacheWriteError struct {
	Path string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("write fingerprint cache %s: %v", e.Path, e.Err)
}

func (e *CacheWriteError) Unwrap() error { return e.Err }

// FileRecord holds every signature computed for one file, keyed by algorithm.
type FileRecord struct {
	Signatures map[fingerprint.Algorithm]*fingerprint.Signature `json:"signatures"`
}

// cacheDocument is the on-disk JSON schema.
type cacheDocument struct {
	Version       int                    `json:"version"`
	Files         map[string]*FileRecord `json:"files"`
	ExcludedFiles []string               `json:"excluded_files,omitempty"`
	Reference     bool                   `json:"is_reference_folder"`
	Ignore        bool                   `json:"ignore_fingerprints"`
}

// FolderCache is the in-memory fingerprint cache for one folder. Safe for
// concurrent use: extraction workers call Put concurrently while the
// coordinator reads. Save must only run once extraction has drained, which
// the coordinator's state machine guarantees.
type FolderCache struct {
	mu        sync.RWMutex
	folder    string
	files     map[string]*FileRecord
	excluded  map[string]struct{}
	reference bool
	ignore    bool
}

// Load reads the folder's cache document. A missing file yields an empty
// cache; an unreadable or incompatible one is logged and also yields an
// empty cache. Load never fails hard.
func Load(folder string) *FolderCache {
	c := &FolderCache{
		folder:   folder,
		files:    make(map[string]*FileRecord),
		excluded: make(map[string]struct{}),
	}

	path := filepath.Join(folder, CacheFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("%v (starting with empty cache)", &CacheReadError{Path: path, Err: err})
		}
		return c
	}

	var doc cacheDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warnf("%v (starting with empty cache)", &CacheReadError{Path: path, Err: err})
		return c
	}
	if doc.Version != CacheVersion {
		logger.Warnf("fingerprint cache %s has version %d, want %d; discarding", path, doc.Version, CacheVersion)
		return c
	}

	if doc.Files != nil {
		c.files = doc.Files
	}
	for _, name := range doc.ExcludedFiles {
		c.excluded[name] = struct{}{}
	}
	c.reference = doc.Reference
	c.ignore = doc.Ignore
	return c
}

// Folder returns the folder this cache belongs to.
func (c *FolderCache) Folder() string { return c.folder }

// Get returns the stored signature for (filename, algorithm), if any.
func (c *FolderCache) Get(name string, algo fingerprint.Algorithm) (*fingerprint.Signature, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.files[name]
	if !ok {
		return nil, false
	}
	sig, ok := rec.Signatures[algo]
	return sig, ok
}

// Put upserts a signature for the file. The signature carries the source
// mtime/size it was generated from; an older signature for the same
// algorithm is superseded, not mutated.
func (c *FolderCache) Put(name string, sig *fingerprint.Signature) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.files[name]
	if !ok {
		rec = &FileRecord{Signatures: make(map[fingerprint.Algorithm]*fingerprint.Signature)}
		c.files[name] = rec
	}
	rec.Signatures[sig.Algorithm] = sig
}

// Remove drops every signature for a file, typically because the file
// disappeared from disk.
func (c *FolderCache) Remove(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, name)
}

// statFile resolves a cached filename against the folder.
func (c *FolderCache) statFile(name string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(c.folder, name))
}

// IsStale reports whether any recorded signature for the file disagrees with
// the live file's metadata. A missing live file or missing record counts as
// stale: nothing recorded can be trusted.
func (c *FolderCache) IsStale(name string) bool {
	info, err := c.statFile(name)
	if err != nil {
		return true
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.files[name]
	if !ok || len(rec.Signatures) == 0 {
		return true
	}
	for _, sig := range rec.Signatures {
		if !sigMatches(sig, info) {
			return true
		}
	}
	return false
}

// Fresh reports whether the file has a trusted signature for the algorithm:
// present, and recorded mtime/size agree with the live file.
func (c *FolderCache) Fresh(name string, algo fingerprint.Algorithm) bool {
	info, err := c.statFile(name)
	if err != nil {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	rec, ok := c.files[name]
	if !ok {
		return false
	}
	sig, ok := rec.Signatures[algo]
	return ok && sigMatches(sig, info)
}

func sigMatches(sig *fingerprint.Signature, info os.FileInfo) bool {
	return sig.SourceSize == info.Size() && sig.SourceMtime.Equal(info.ModTime().UTC().Truncate(time.Second))
}

// SourceStamp normalizes live file metadata into the form stored on
// signatures, so staleness comparison is exact across filesystems with
// differing mtime precision.
func SourceStamp(info os.FileInfo) (time.Time, int64) {
	return info.ModTime().UTC().Truncate(time.Second), info.Size()
}

// Exclude marks a file to be skipped during generation and matching, even if
// a stale signature still exists for it.
func (c *FolderCache) Exclude(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.excluded[name] = struct{}{}
}

func (c *FolderCache) Unexclude(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.excluded, name)
}

func (c *FolderCache) IsExcluded(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.excluded[name]
	return ok
}

func (c *FolderCache) SetReference(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reference = v
}

func (c *FolderCache) Reference() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reference
}

func (c *FolderCache) SetIgnore(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ignore = v
}

func (c *FolderCache) Ignore() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ignore
}

// Files returns the cached filenames, sorted.
func (c *FolderCache) Files() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExcludedCount returns the number of excluded files.
func (c *FolderCache) ExcludedCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.excluded)
}

// Coverage counts stored signatures per algorithm.
func (c *FolderCache) Coverage() map[fingerprint.Algorithm]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cov := make(map[fingerprint.Algorithm]int)
	for _, rec := range c.files {
		for algo := range rec.Signatures {
			cov[algo]++
		}
	}
	return cov
}

// Prune drops records for files that no longer exist on disk. Returns the
// number of records removed.
func (c *FolderCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for name := range c.files {
		if _, err := os.Stat(filepath.Join(c.folder, name)); os.IsNotExist(err) {
			delete(c.files, name)
			removed++
		}
	}
	return removed
}

// Save writes the cache document atomically: marshal, write to a temp file
// in the same folder, rename over the old document. A file lock keeps two
// app instances from racing on the same folder. In-memory state survives a
// failed save, so the next Save retries everything.
func (c *FolderCache) Save() error {
	c.mu.RLock()
	doc := cacheDocument{
		Version:   CacheVersion,
		Files:     c.files,
		Reference: c.reference,
		Ignore:    c.ignore,
	}
	for name := range c.excluded {
		doc.ExcludedFiles = append(doc.ExcludedFiles, name)
	}
	sort.Strings(doc.ExcludedFiles)
	data, err := json.MarshalIndent(&doc, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return &CacheWriteError{Path: c.folder, Err: err}
	}

	path := filepath.Join(c.folder, CacheFileName)

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return &CacheWriteError{Path: path, Err: err}
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(c.folder, CacheFileName+".tmp-*")
	if err != nil {
		return &CacheWriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &CacheWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &CacheWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &CacheWriteError{Path: path, Err: err}
	}
	return nil
}
