package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

func sine(freq float64, sampleRate int, seconds float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func extract(t *testing.T, samples []float64, algo fingerprint.Algorithm) *fingerprint.Signature {
	t.Helper()
	sig, err := fingerprint.Extract(samples, 11025, algo)
	require.NoError(t, err)
	return sig
}

func sweep(sampleRate int, seconds, fromHz, toHz float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f := fromHz + (toHz-fromHz)*float64(i)/float64(n)
		out[i] = 0.8 * math.Sin(2*math.Pi*f*float64(i)/float64(sampleRate))
	}
	return out
}

func TestSelfMatchScoresOne(t *testing.T) {
	samples := sweep(11025, 3.0, 200, 2000)

	for _, algo := range fingerprint.Algorithms() {
		sig := extract(t, samples, algo)
		score := NewEngine(DefaultConfig()).Score(sig, sig)
		require.GreaterOrEqual(t, score, 0.99, "self-match under %s", algo)
	}
}

func TestDifferentContentScoresLow(t *testing.T) {
	e := NewEngine(DefaultConfig())

	a := extract(t, sine(440, 11025, 2.0), fingerprint.Spectral)
	b := extract(t, sine(1760, 11025, 2.0), fingerprint.Spectral)
	require.Less(t, e.Score(a, b), 0.5, "two-octave-apart sines should not correlate")
}

func TestScoreAcrossAlgorithmsIsZero(t *testing.T) {
	e := NewEngine(DefaultConfig())
	a := extract(t, sine(440, 11025, 2.0), fingerprint.Spectral)
	b := extract(t, sine(440, 11025, 2.0), fingerprint.Lightweight)
	require.Zero(t, e.Score(a, b))
}

func TestCorrelationToleratesShiftedStart(t *testing.T) {
	e := NewEngine(DefaultConfig())
	full := sweep(11025, 4.0, 200, 2000)

	a := extract(t, full, fingerprint.Spectral)
	// Same recording starting about one second later, on a frame boundary.
	b := extract(t, full[22*fingerprint.SpectralHopSize:], fingerprint.Spectral)

	require.GreaterOrEqual(t, e.Score(a, b), 0.9, "1 s offset is inside the shift window")
}

func TestFindMatchesThresholdValidation(t *testing.T) {
	e := NewEngine(DefaultConfig())
	sig := extract(t, sine(440, 11025, 2.0), fingerprint.Spectral)

	_, err := e.FindMatches("q.wav", sig, nil, 0.3)
	require.Error(t, err)
	_, err = e.FindMatches("q.wav", sig, nil, 0.99)
	require.Error(t, err)
	_, err = e.FindMatches("q.wav", sig, nil, 0.7)
	require.NoError(t, err)
}

func TestThresholdMonotonicity(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := extract(t, sweep(11025, 3.0, 200, 2000), fingerprint.Spectral)
	corpus := []Candidate{
		{File: "same.wav", Signature: query, FolderWeight: 1.0},
		{File: "other.wav", Signature: extract(t, sine(440, 11025, 3.0), fingerprint.Spectral), FolderWeight: 1.0},
	}

	prev := len(corpus) + 1
	for _, threshold := range []float64{0.5, 0.7, 0.9, 0.95} {
		results, err := e.FindMatches("q.wav", query, corpus, threshold)
		require.NoError(t, err)
		require.LessOrEqual(t, len(results), prev, "raising the threshold must never add matches")
		prev = len(results)
	}
}

func TestFindMatchesIncludesSelf(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := extract(t, sweep(11025, 3.0, 200, 2000), fingerprint.Spectral)
	corpus := []Candidate{
		{File: "folder/a.wav", Signature: query, FolderWeight: 1.0},
	}

	results, err := e.FindMatches("folder/a.wav", query, corpus, 0.95)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "folder/a.wav", results[0].CandidateFile)
	require.GreaterOrEqual(t, results[0].Score, 0.99)
}

func TestReferenceFolderRanksFirstOnEqualScore(t *testing.T) {
	e := NewEngine(DefaultConfig())
	query := extract(t, sweep(11025, 3.0, 200, 2000), fingerprint.Spectral)

	// Identical signatures, so raw scores tie exactly; the reference copy
	// must rank strictly higher.
	corpus := []Candidate{
		{File: "scratch/take.wav", Signature: query, FolderWeight: 1.0},
		{File: "masters/take.wav", Signature: query, FolderWeight: e.Config().ReferenceWeight},
	}

	results, err := e.FindMatches("q.wav", query, corpus, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "masters/take.wav", results[0].CandidateFile)
	require.Equal(t, e.Config().ReferenceWeight, results[0].FolderWeight)
	require.Equal(t, results[0].Score, results[1].Score)
}

func TestLandmarkScorePartialOverlap(t *testing.T) {
	e := NewEngine(DefaultConfig())
	full := sweep(11025, 6.0, 200, 2000)

	whole := extract(t, full, fingerprint.Landmark)
	// A clip that is a subsection of the longer recording, cut on frame
	// boundaries so spectrogram frames line up exactly.
	hop := fingerprint.LandmarkHopSize
	clip := extract(t, full[20*hop:20*hop+3*11025], fingerprint.Landmark)

	score := e.Score(clip, whole)
	require.Greater(t, score, 0.5, "clip should strongly match its source recording")
}

func TestFindMatchesSkipsForeignAlgorithms(t *testing.T) {
	e := NewEngine(DefaultConfig())
	samples := sweep(11025, 3.0, 200, 2000)
	query := extract(t, samples, fingerprint.Spectral)
	corpus := []Candidate{
		{File: "light.wav", Signature: extract(t, samples, fingerprint.Lightweight), FolderWeight: 1.0},
	}

	results, err := e.FindMatches("q.wav", query, corpus, 0.5)
	require.NoError(t, err)
	require.Empty(t, results)
}
