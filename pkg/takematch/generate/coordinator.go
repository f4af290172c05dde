// Package generate orchestrates batch fingerprint extraction: scanning a
// file set, skipping cache hits, fanning the rest out to a worker pool, and
// writing results back to the per-folder caches.
package generate

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
	"github.com/takematch/takematch/pkg/takematch/store"
)

// State is the coordinator's batch lifecycle:
// Idle -> Scanning -> Extracting -> (Cancelling) -> Idle.
type State int32

const (
	Idle State = iota
	Scanning
	Extracting
	Cancelling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Extracting:
		return "extracting"
	case Cancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

// Decoder produces mono PCM from an audio file. Decode failures are per-file
// soft failures.
type Decoder interface {
	Decode(path string) ([]float64, int, error)
}

// Logger matches pkg/logger and the library facade's interface.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}

// Progress is reported after every processed file.
type Progress struct {
	Done  int
	Total int
	File  string
}

// Failure records one file that could not be fingerprinted.
type Failure struct {
	File   string
	Reason string
}

// Report is the terminal outcome of a batch. Cancelled is reported
// distinctly from failures: already-processed files keep their signatures.
type Report struct {
	BatchID   string
	Algorithm fingerprint.Algorithm
	Succeeded int
	Failed    int
	Skipped   int
	Cancelled bool
	Failures  []Failure
	Duration  time.Duration
}

// Item is one file offered to a batch, together with the cache of the folder
// it lives in.
type Item struct {
	// Path is the absolute path used for decoding.
	Path string
	// Name is the filename key inside the folder cache.
	Name string
	// Cache is the owning folder's fingerprint cache.
	Cache *store.FolderCache
}

// Batch is a handle on one running (or finished) generation pass.
type Batch struct {
	id        uuid.UUID
	state     atomic.Int32
	cancelled atomic.Bool
	done      chan struct{}
	report    Report
	saveErr   error
}

func (b *Batch) ID() string { return b.id.String() }

func (b *Batch) State() State { return State(b.state.Load()) }

// Cancel requests cooperative cancellation. In-flight single-file work
// completes; no new files are started. Never blocks.
func (b *Batch) Cancel() {
	b.cancelled.Store(true)
	if b.State() == Extracting || b.State() == Scanning {
		b.state.Store(int32(Cancelling))
	}
}

// Done is closed when the batch has reached Idle and its report is final.
func (b *Batch) Done() <-chan struct{} { return b.done }

// Wait blocks until the batch finishes and returns its report. The error is
// non-nil only for cache persistence failures; per-file problems live in
// Report.Failures and cancellation in Report.Cancelled.
func (b *Batch) Wait() (Report, error) {
	<-b.done
	return b.report, b.saveErr
}

// Coordinator runs generation batches. It is an instance, not a singleton:
// two coordinators (or two batches of one) never share state, so independent
// folder batches can run side by side.
type Coordinator struct {
	decoder    Decoder
	log        Logger
	workers    int
	onProgress func(Progress)
}

type Option func(*Coordinator)

// WithWorkers overrides the worker pool size (default: NumCPU-1, minimum 1).
func WithWorkers(n int) Option {
	return func(c *Coordinator) { c.workers = n }
}

// WithProgress installs a progress callback. It is invoked from a dedicated
// goroutine, one event per processed file, and never blocks the batch or the
// caller of Run.
func WithProgress(fn func(Progress)) Option {
	return func(c *Coordinator) { c.onProgress = fn }
}

func WithLogger(log Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

func NewCoordinator(decoder Decoder, log Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		decoder: decoder,
		log:     log,
		workers: runtime.NumCPU() - 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.workers < 1 {
		c.workers = 1
	}
	return c
}

// Run starts a batch over the given items and returns immediately with its
// handle. Folders flagged ignore, excluded files, and files whose cache
// entry is fresh for the algorithm are skipped during scanning.
func (c *Coordinator) Run(ctx context.Context, items []Item, algo fingerprint.Algorithm) *Batch {
	b := &Batch{
		id:   uuid.New(),
		done: make(chan struct{}),
	}
	b.report.BatchID = b.ID()
	b.report.Algorithm = algo
	go c.run(ctx, b, items, algo)
	return b
}

func (c *Coordinator) run(ctx context.Context, b *Batch, items []Item, algo fingerprint.Algorithm) {
	started := time.Now()
	defer func() {
		b.report.Duration = time.Since(started)
		b.report.Cancelled = b.cancelled.Load()
		b.state.Store(int32(Idle))
		close(b.done)
	}()

	if !algo.Valid() {
		b.saveErr = fingerprint.ErrUnknownAlgorithm
		return
	}

	b.state.Store(int32(Scanning))
	work := make([]Item, 0, len(items))
	caches := make(map[*store.FolderCache]struct{})
	for _, item := range items {
		if item.Cache != nil {
			if item.Cache.Ignore() {
				b.report.Skipped++
				continue
			}
			caches[item.Cache] = struct{}{}
			if item.Cache.IsExcluded(item.Name) {
				b.report.Skipped++
				continue
			}
			if item.Cache.Fresh(item.Name, algo) {
				b.report.Skipped++
				continue
			}
		}
		work = append(work, item)
	}
	c.log.Infof("batch %s: %d files to extract, %d skipped (%s)", b.ID(), len(work), b.report.Skipped, algo)

	if b.cancelled.Load() || ctx.Err() != nil {
		b.cancelled.Store(true)
		c.flush(b, caches)
		return
	}
	b.state.Store(int32(Extracting))

	total := len(work)

	// Progress events flow through a dedicated goroutine so a slow callback
	// can never stall a worker or the caller.
	var progressWG sync.WaitGroup
	progressCh := make(chan Progress, total)
	if c.onProgress != nil {
		progressWG.Add(1)
		go func() {
			defer progressWG.Done()
			for p := range progressCh {
				c.onProgress(p)
			}
		}()
	}

	type outcome struct {
		item Item
		err  error
	}

	jobs := make(chan Item, total)
	results := make(chan outcome, total)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				// Cooperative cancel: drain remaining jobs unprocessed.
				if b.cancelled.Load() || ctx.Err() != nil {
					continue
				}
				results <- outcome{item: item, err: c.extractOne(item, algo)}
			}
		}()
	}

	for _, item := range work {
		jobs <- item
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for r := range results {
		done++
		if r.err != nil {
			b.report.Failed++
			b.report.Failures = append(b.report.Failures, Failure{File: r.item.Path, Reason: r.err.Error()})
			c.log.Warnf("batch %s: %s failed: %v", b.ID(), r.item.Path, r.err)
		} else {
			b.report.Succeeded++
		}
		if c.onProgress != nil {
			progressCh <- Progress{Done: done, Total: total, File: r.item.Path}
		}
	}
	close(progressCh)
	progressWG.Wait()

	if ctx.Err() != nil {
		b.cancelled.Store(true)
	}
	if b.cancelled.Load() {
		b.state.Store(int32(Cancelling))
		c.log.Infof("batch %s: cancelled after %d of %d files", b.ID(), b.report.Succeeded, total)
	}

	// Flush runs after the pool has fully drained, so Save never races a Put.
	// It runs on cancellation too: partial progress is never discarded.
	c.flush(b, caches)
}

func (c *Coordinator) extractOne(item Item, algo fingerprint.Algorithm) error {
	info, err := os.Stat(item.Path)
	if err != nil {
		return err
	}

	samples, sampleRate, err := c.decoder.Decode(item.Path)
	if err != nil {
		return err
	}

	sig, err := fingerprint.Extract(samples, sampleRate, algo)
	if err != nil {
		return err
	}
	sig.SourceMtime, sig.SourceSize = store.SourceStamp(info)

	if item.Cache != nil {
		item.Cache.Put(item.Name, sig)
	}
	return nil
}

// flush saves every touched folder cache best-effort. The first error is
// kept for the batch outcome; in-memory signatures survive regardless, so a
// later save can retry.
func (c *Coordinator) flush(b *Batch, caches map[*store.FolderCache]struct{}) {
	for cache := range caches {
		if err := cache.Save(); err != nil {
			c.log.Errorf("batch %s: %v", b.ID(), err)
			if b.saveErr == nil {
				b.saveErr = err
			}
		}
	}
}
