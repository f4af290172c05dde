// Package match scores fingerprint signatures against each other and ranks
// candidates. It is read-only over already-extracted signatures; there is no
// write contention anywhere in here.
package match

import (
	"fmt"
	"math"
	"sort"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

// Threshold bounds. Scores themselves never depend on the threshold; it only
// gates which candidates are reported.
const (
	MinThreshold = 0.5
	MaxThreshold = 0.95
)

// Config carries the tunable scoring constants. Exact score values are
// tunable, not contractual; the defaults work well for practice recordings.
type Config struct {
	// ShiftWindowSec bounds the time-shift search for correlation scoring,
	// tolerating misaligned start points up to this many seconds either way.
	ShiftWindowSec float64 `yaml:"shift_window_sec"`
	// ReferenceWeight multiplies scores of candidates living in a folder
	// flagged as reference.
	ReferenceWeight float64 `yaml:"reference_weight"`
	// OffsetBucketMs is the vote-histogram bucket width for landmark scoring.
	OffsetBucketMs int `yaml:"offset_bucket_ms"`
}

func DefaultConfig() Config {
	return Config{
		ShiftWindowSec:  2.0,
		ReferenceWeight: 1.5,
		OffsetBucketMs:  50,
	}
}

// Candidate is one corpus entry offered to the engine. FolderWeight is 1.0
// normally and boosted for reference folders; ignored folders must be
// filtered out before the corpus is built.
type Candidate struct {
	File      string
	Signature *fingerprint.Signature
	// FolderWeight biases ranking only; the raw score is unweighted.
	FolderWeight float64
}

// Result is a transient match report, never persisted.
type Result struct {
	QueryFile     string
	CandidateFile string
	Algorithm     fingerprint.Algorithm
	Score         float64
	FolderWeight  float64
}

// Engine computes similarity scores. Safe for concurrent use.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	if cfg.ShiftWindowSec <= 0 {
		cfg.ShiftWindowSec = DefaultConfig().ShiftWindowSec
	}
	if cfg.ReferenceWeight <= 0 {
		cfg.ReferenceWeight = DefaultConfig().ReferenceWeight
	}
	if cfg.OffsetBucketMs <= 0 {
		cfg.OffsetBucketMs = DefaultConfig().OffsetBucketMs
	}
	return &Engine{cfg: cfg}
}

func (e *Engine) Config() Config { return e.cfg }

// FindMatches scores the query against every candidate of the same
// algorithm and returns those at or above threshold, ranked by
// score × folderWeight descending. Candidates under a different algorithm
// are skipped: their scores would not be comparable.
func (e *Engine) FindMatches(queryFile string, query *fingerprint.Signature, corpus []Candidate, threshold float64) ([]Result, error) {
	if query == nil {
		return nil, fmt.Errorf("nil query signature")
	}
	if threshold < MinThreshold || threshold > MaxThreshold {
		return nil, fmt.Errorf("threshold %.2f outside [%.2f, %.2f]", threshold, MinThreshold, MaxThreshold)
	}

	results := make([]Result, 0)
	for _, cand := range corpus {
		if cand.Signature == nil || cand.Signature.Algorithm != query.Algorithm {
			continue
		}
		score := e.Score(query, cand.Signature)
		if score < threshold {
			continue
		}
		weight := cand.FolderWeight
		if weight <= 0 {
			weight = 1.0
		}
		results = append(results, Result{
			QueryFile:     queryFile,
			CandidateFile: cand.File,
			Algorithm:     query.Algorithm,
			Score:         score,
			FolderWeight:  weight,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score*results[i].FolderWeight > results[j].Score*results[j].FolderWeight
	})
	return results, nil
}

// Score computes the normalized similarity of two signatures of the same
// algorithm, in [0, 1]. This is the engine's single algorithm dispatch point.
func (e *Engine) Score(a, b *fingerprint.Signature) float64 {
	if a.Algorithm != b.Algorithm {
		return 0
	}
	switch a.Algorithm {
	case fingerprint.Spectral, fingerprint.Lightweight:
		return e.correlationScore(a, b)
	case fingerprint.Chroma, fingerprint.Landmark:
		return e.landmarkScore(a, b)
	default:
		return 0
	}
}

// correlationScore is the best-shift normalized cross-correlation of two
// banded-energy frame sequences. Band energies are non-negative, so the
// cosine similarity lands in [0, 1] and an identical pair scores 1 at
// shift 0.
func (e *Engine) correlationScore(a, b *fingerprint.Signature) float64 {
	q, c := a.Frames, b.Frames
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	frameRate := a.FrameRate
	if frameRate <= 0 {
		frameRate = 1
	}
	maxShift := int(math.Round(e.cfg.ShiftWindowSec * frameRate))

	shorter := len(q)
	if len(c) < shorter {
		shorter = len(c)
	}
	minOverlap := shorter / 2
	if minOverlap < 1 {
		minOverlap = 1
	}

	best := 0.0
	for shift := -maxShift; shift <= maxShift; shift++ {
		start := 0
		if shift < 0 {
			start = -shift
		}
		end := len(q)
		if len(c)-shift < end {
			end = len(c) - shift
		}
		if end-start < minOverlap {
			continue
		}

		var dot, qq, cc float64
		for i := start; i < end; i++ {
			qa, cb := q[i], c[i+shift]
			n := len(qa)
			if len(cb) < n {
				n = len(cb)
			}
			for k := 0; k < n; k++ {
				dot += qa[k] * cb[k]
				qq += qa[k] * qa[k]
				cc += cb[k] * cb[k]
			}
		}
		if qq == 0 || cc == 0 {
			continue
		}
		if s := dot / (math.Sqrt(qq) * math.Sqrt(cc)); s > best {
			best = s
		}
	}

	if best > 1 {
		best = 1
	}
	return best
}

// landmarkScore votes matching hashes into a time-offset histogram and takes
// the dominant offset, then normalizes by the landmark count of the shorter
// signature. Tolerant of insertions/deletions and partial overlap, unlike
// direct correlation.
func (e *Engine) landmarkScore(a, b *fingerprint.Signature) float64 {
	q, c := a.Landmarks, b.Landmarks
	if len(q) == 0 || len(c) == 0 {
		return 0
	}

	index := make(map[uint32][]uint32, len(c))
	for _, h := range c {
		index[h.Value] = append(index[h.Value], h.TimeMs)
	}

	bucketMs := float64(e.cfg.OffsetBucketMs)
	votes := make(map[int64]int)
	for _, h := range q {
		for _, t := range index[h.Value] {
			offset := int64(t) - int64(h.TimeMs)
			bucket := int64(math.Round(float64(offset) / bucketMs))
			votes[bucket]++
		}
	}

	best := 0
	for _, n := range votes {
		if n > best {
			best = n
		}
	}

	shorter := len(q)
	if len(c) < shorter {
		shorter = len(c)
	}
	score := float64(best) / float64(shorter)
	if score > 1 {
		score = 1
	}
	return score
}
