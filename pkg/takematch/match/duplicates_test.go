package match

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/takematch/takematch/pkg/takematch/fingerprint"
)

func TestFindDuplicatesClustersIdenticalRecordings(t *testing.T) {
	e := NewEngine(DefaultConfig())

	song := extract(t, sweep(11025, 3.0, 200, 2000), fingerprint.Spectral)
	other := extract(t, sine(440, 11025, 3.0), fingerprint.Spectral)
	lonely := extract(t, sine(933, 11025, 3.0), fingerprint.Spectral)

	corpus := []Candidate{
		{File: "a/take1.wav", Signature: song, FolderWeight: 1.0},
		{File: "b/take2.wav", Signature: song, FolderWeight: 1.0},
		{File: "c/take3.wav", Signature: song, FolderWeight: 1.0},
		{File: "a/other.wav", Signature: other, FolderWeight: 1.0},
		{File: "a/other_copy.wav", Signature: other, FolderWeight: 1.0},
		{File: "b/lonely.wav", Signature: lonely, FolderWeight: 1.0},
	}

	clusters, err := e.FindDuplicates(corpus, 0.9)
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	require.Equal(t, []string{"a/other.wav", "a/other_copy.wav"}, clusters[0].Files)
	require.Equal(t, []string{"a/take1.wav", "b/take2.wav", "c/take3.wav"}, clusters[1].Files)
}

func TestFindDuplicatesEmptyAndSingleton(t *testing.T) {
	e := NewEngine(DefaultConfig())

	clusters, err := e.FindDuplicates(nil, 0.8)
	require.NoError(t, err)
	require.Empty(t, clusters)

	solo := extract(t, sine(440, 11025, 2.0), fingerprint.Spectral)
	clusters, err = e.FindDuplicates([]Candidate{{File: "x.wav", Signature: solo}}, 0.8)
	require.NoError(t, err)
	require.Empty(t, clusters, "a singleton never forms a cluster")
}

func TestFindDuplicatesThresholdValidation(t *testing.T) {
	e := NewEngine(DefaultConfig())
	_, err := e.FindDuplicates(nil, 0.2)
	require.Error(t, err)
}

func TestFindDuplicatesMixedAlgorithmsNeverLink(t *testing.T) {
	e := NewEngine(DefaultConfig())
	samples := sweep(11025, 3.0, 200, 2000)

	corpus := []Candidate{
		{File: "a.wav", Signature: extract(t, samples, fingerprint.Spectral)},
		{File: "b.wav", Signature: extract(t, samples, fingerprint.Lightweight)},
	}
	clusters, err := e.FindDuplicates(corpus, 0.8)
	require.NoError(t, err)
	require.Empty(t, clusters)
}
