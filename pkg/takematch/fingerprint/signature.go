package fingerprint

import (
	"errors"
	"fmt"
	"time"
)

// Algorithm selects one of the interchangeable fingerprinting strategies.
// Scores are only comparable between signatures of the same algorithm.
type Algorithm string

const (
	// Spectral is the default: banded log-energy spectrogram compared by
	// shifted cross-correlation downstream.
	Spectral Algorithm = "spectral"
	// Lightweight is the same transform with a coarser frame/hop and fewer
	// bands, for fast passes over large libraries.
	Lightweight Algorithm = "lightweight"
	// Chroma folds the spectrum into 12 pitch classes per frame and hashes
	// short overlapping pitch-class runs into landmarks.
	Chroma Algorithm = "chroma"
	// Landmark pairs spectrogram peaks into (freq, freq, delta-time) hashes.
	Landmark Algorithm = "landmark"
)

var ErrUnknownAlgorithm = errors.New("unknown fingerprint algorithm")

// ErrTooShort is returned when the input has fewer samples than one analysis
// frame of the chosen algorithm.
var ErrTooShort = errors.New("audio too short for analysis window")

func ParseAlgorithm(s string) (Algorithm, error) {
	switch Algorithm(s) {
	case Spectral, Lightweight, Chroma, Landmark:
		return Algorithm(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

func (a Algorithm) Valid() bool {
	_, err := ParseAlgorithm(string(a))
	return err == nil
}

// Algorithms lists every supported algorithm, default first.
func Algorithms() []Algorithm {
	return []Algorithm{Spectral, Lightweight, Chroma, Landmark}
}

// Hash is a single landmark: a packed feature hash and the time (ms from the
// start of the recording) of its anchor.
type Hash struct {
	Value  uint32 `json:"h"`
	TimeMs uint32 `json:"t"`
}

// Signature is the compact representation of one audio file under one
// algorithm. Exactly one of Frames or Landmarks is populated depending on the
// algorithm family. Signatures are immutable once created; a changed source
// file gets a new signature, never a patched one.
type Signature struct {
	Algorithm  Algorithm `json:"algorithm"`
	SampleRate int       `json:"sample_rate"`

	// Frames holds banded log-energies per STFT frame (Spectral, Lightweight).
	Frames [][]float64 `json:"frames,omitempty"`
	// FrameRate is frames per second, needed to convert the match engine's
	// shift window from seconds to frame offsets.
	FrameRate float64 `json:"frame_rate,omitempty"`

	// Landmarks holds hashed features (Chroma, Landmark).
	Landmarks []Hash `json:"landmarks,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
	SourceMtime time.Time `json:"source_mtime"`
	SourceSize  int64     `json:"source_size"`
}

// IsLandmark reports whether the signature carries landmark hashes rather
// than banded frames.
func (s *Signature) IsLandmark() bool {
	return s.Algorithm == Chroma || s.Algorithm == Landmark
}

// Len returns the number of comparable units in the signature (frames or
// landmarks).
func (s *Signature) Len() int {
	if s.IsLandmark() {
		return len(s.Landmarks)
	}
	return len(s.Frames)
}
