// Package takematch identifies identical and near-identical recordings
// (same song, different take or folder) across a tree of practice-session
// folders, via compact audio fingerprints cached per folder.
package takematch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/takematch/takematch/pkg/logger"
	"github.com/takematch/takematch/pkg/takematch/audio"
	"github.com/takematch/takematch/pkg/takematch/fingerprint"
	"github.com/takematch/takematch/pkg/takematch/generate"
	"github.com/takematch/takematch/pkg/takematch/history"
	"github.com/takematch/takematch/pkg/takematch/match"
	"github.com/takematch/takematch/pkg/takematch/store"
)

type service struct {
	cfg     *Config
	log     Logger
	decoder Decoder
	lister  FileLister
	coord   *generate.Coordinator
	engine  *match.Engine
	runs    *history.Store

	mu     sync.Mutex
	caches map[string]*store.FolderCache
}

// NewService assembles the fingerprinting core. Defaults: WAV decoding, WAV
// file listing, NumCPU-1 workers, run history in the default SQLite file.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = audio.NewWAVDecoder()
	}
	if cfg.Lister == nil {
		cfg.Lister = NewWAVLister()
	}

	coordOpts := []generate.Option{generate.WithLogger(cfg.Logger)}
	if cfg.Workers > 0 {
		coordOpts = append(coordOpts, generate.WithWorkers(cfg.Workers))
	}
	if cfg.Progress != nil {
		coordOpts = append(coordOpts, generate.WithProgress(cfg.Progress))
	}

	s := &service{
		cfg:     cfg,
		log:     cfg.Logger,
		decoder: cfg.Decoder,
		lister:  cfg.Lister,
		coord:   generate.NewCoordinator(cfg.Decoder, cfg.Logger, coordOpts...),
		engine:  match.NewEngine(cfg.Match),
		caches:  make(map[string]*store.FolderCache),
	}

	if !cfg.DisableHistory {
		runs, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		s.runs = runs
	}
	return s, nil
}

// cacheFor loads (once) and returns the fingerprint cache of a folder.
func (s *service) cacheFor(folder string) *store.FolderCache {
	abs, err := filepath.Abs(folder)
	if err == nil {
		folder = abs
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[folder]; ok {
		return c
	}
	c := store.Load(folder)
	s.caches[folder] = c
	return c
}

// expandFolders resolves the requested folders, descending into subfolders
// when recursive.
func (s *service) expandFolders(folders []string, recursive bool) ([]string, error) {
	out := make([]string, 0, len(folders))
	seen := make(map[string]struct{})
	add := func(f string) {
		if _, ok := seen[f]; !ok {
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	for _, folder := range folders {
		if _, err := os.Stat(folder); err != nil {
			return nil, fmt.Errorf("folder %s: %w", folder, err)
		}
		add(folder)
		if recursive {
			subs, err := s.lister.Subfolders(folder)
			if err != nil {
				return nil, fmt.Errorf("listing subfolders of %s: %w", folder, err)
			}
			for _, sub := range subs {
				add(sub)
			}
		}
	}
	return out, nil
}

func (s *service) Generate(ctx context.Context, folders []string, algo fingerprint.Algorithm, recursive bool) (*generate.Batch, error) {
	if !algo.Valid() {
		return nil, fmt.Errorf("%w: %q", fingerprint.ErrUnknownAlgorithm, algo)
	}

	expanded, err := s.expandFolders(folders, recursive)
	if err != nil {
		return nil, err
	}

	var items []generate.Item
	for _, folder := range expanded {
		cache := s.cacheFor(folder)
		// Records for files that vanished from disk are dropped here, so the
		// persisted cache tracks the folder's real contents.
		if removed := cache.Prune(); removed > 0 {
			s.log.Infof("pruned %d vanished file record(s) from %s", removed, folder)
			if err := cache.Save(); err != nil {
				s.log.Warnf("saving pruned cache for %s: %v", folder, err)
			}
		}
		names, err := s.lister.ListAudioFiles(folder)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", folder, err)
		}
		for _, name := range names {
			items = append(items, generate.Item{
				Path:  filepath.Join(folder, name),
				Name:  name,
				Cache: cache,
			})
		}
	}

	s.log.Infof("starting generation over %d folders, %d files (%s)", len(expanded), len(items), algo)
	batch := s.coord.Run(ctx, items, algo)

	if s.runs != nil {
		go func() {
			report, _ := batch.Wait()
			for _, folder := range expanded {
				if err := s.runs.Record(folder, report); err != nil {
					s.log.Warnf("recording batch history for %s: %v", folder, err)
				}
			}
		}()
	}
	return batch, nil
}

// querySignature returns the query file's signature, reusing its folder
// cache when the entry is fresh and extracting on the spot otherwise.
func (s *service) querySignature(queryPath string, algo fingerprint.Algorithm) (*fingerprint.Signature, error) {
	folder := filepath.Dir(queryPath)
	name := filepath.Base(queryPath)
	cache := s.cacheFor(folder)

	if cache.Fresh(name, algo) {
		if sig, ok := cache.Get(name, algo); ok {
			return sig, nil
		}
	}

	info, err := os.Stat(queryPath)
	if err != nil {
		return nil, fmt.Errorf("query file %s: %w", queryPath, err)
	}
	samples, sampleRate, err := s.decoder.Decode(queryPath)
	if err != nil {
		return nil, err
	}
	sig, err := fingerprint.Extract(samples, sampleRate, algo)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting %s: %w", queryPath, err)
	}
	sig.SourceMtime, sig.SourceSize = store.SourceStamp(info)
	cache.Put(name, sig)
	return sig, nil
}

// corpus collects every trusted signature from the folders: ignored folders
// contribute nothing, excluded and stale entries are dropped, reference
// folders carry the boosted weight.
func (s *service) corpus(folders []string, algo fingerprint.Algorithm) []match.Candidate {
	var out []match.Candidate
	for _, folder := range folders {
		cache := s.cacheFor(folder)
		if cache.Ignore() {
			continue
		}
		weight := 1.0
		if cache.Reference() {
			weight = s.engine.Config().ReferenceWeight
		}
		for _, name := range cache.Files() {
			if cache.IsExcluded(name) {
				continue
			}
			if !cache.Fresh(name, algo) {
				continue
			}
			sig, ok := cache.Get(name, algo)
			if !ok {
				continue
			}
			out = append(out, match.Candidate{
				File:         filepath.Join(cache.Folder(), name),
				Signature:    sig,
				FolderWeight: weight,
			})
		}
	}
	return out
}

func (s *service) FindMatches(ctx context.Context, queryPath string, folders []string, algo fingerprint.Algorithm, threshold float64) ([]match.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, err := s.querySignature(queryPath, algo)
	if err != nil {
		return nil, err
	}

	expanded, err := s.expandFolders(folders, true)
	if err != nil {
		return nil, err
	}
	corpus := s.corpus(expanded, algo)
	s.log.Debugf("matching %s against %d candidates", queryPath, len(corpus))
	return s.engine.FindMatches(queryPath, query, corpus, threshold)
}

func (s *service) FindDuplicates(ctx context.Context, folders []string, algo fingerprint.Algorithm, threshold float64) ([]match.Cluster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	expanded, err := s.expandFolders(folders, true)
	if err != nil {
		return nil, err
	}
	corpus := s.corpus(expanded, algo)
	s.log.Infof("duplicate scan over %d signatures", len(corpus))
	return s.engine.FindDuplicates(corpus, threshold)
}

func (s *service) FolderInfo(folder string) (*FolderInfo, error) {
	names, err := s.lister.ListAudioFiles(folder)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", folder, err)
	}
	cache := s.cacheFor(folder)
	info := &FolderInfo{
		Folder:        cache.Folder(),
		TotalFiles:    len(names),
		Coverage:      cache.Coverage(),
		ExcludedCount: cache.ExcludedCount(),
		Reference:     cache.Reference(),
		Ignore:        cache.Ignore(),
	}
	if s.runs != nil {
		if last, err := s.runs.LastRun(cache.Folder()); err == nil && last != nil {
			info.LastAnalyzed = last.CreatedAt
		}
	}
	return info, nil
}

func (s *service) SetReferenceFolder(folder string, reference bool) error {
	cache := s.cacheFor(folder)
	cache.SetReference(reference)
	return cache.Save()
}

func (s *service) SetIgnoreFolder(folder string, ignore bool) error {
	cache := s.cacheFor(folder)
	cache.SetIgnore(ignore)
	return cache.Save()
}

func (s *service) ExcludeFile(folder, name string) error {
	cache := s.cacheFor(folder)
	cache.Exclude(name)
	return cache.Save()
}

func (s *service) UnexcludeFile(folder, name string) error {
	cache := s.cacheFor(folder)
	cache.Unexclude(name)
	return cache.Save()
}

func (s *service) Close() error {
	if s.runs != nil {
		return s.runs.Close()
	}
	return nil
}
