package audio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// encodeWAV writes a PCM WAV file from interleaved int samples.
func encodeWAV(t *testing.T, path string, data []int, sampleRate, bitDepth, channels int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

func TestDecodeMono16Bit(t *testing.T) {
	const (
		sampleRate = 11025
		freq       = 440.0
		seconds    = 0.5
	)
	secs := float64(seconds)
	n := int(float64(sampleRate) * secs)
	data := make([]int, n)
	want := make([]float64, n)
	for i := 0; i < n; i++ {
		v := 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		data[i] = int(v * 32767)
		want[i] = float64(data[i]) / 32768
	}

	path := filepath.Join(t.TempDir(), "tone.wav")
	encodeWAV(t, path, data, sampleRate, 16, 1)

	samples, gotRate, err := NewWAVDecoder().Decode(path)
	require.NoError(t, err)
	require.Equal(t, sampleRate, gotRate)
	require.Len(t, samples, n)
	for i := 0; i < n; i += 100 {
		require.InDelta(t, want[i], samples[i], 1e-6)
	}
}

func TestDecodeStereoMixesDown(t *testing.T) {
	const sampleRate = 8000
	n := 800
	data := make([]int, 2*n)
	for i := 0; i < n; i++ {
		// Left and right exactly cancel, so the mono mix is silence.
		data[2*i] = 8000
		data[2*i+1] = -8000
	}

	path := filepath.Join(t.TempDir(), "stereo.wav")
	encodeWAV(t, path, data, sampleRate, 16, 2)

	samples, gotRate, err := NewWAVDecoder().Decode(path)
	require.NoError(t, err)
	require.Equal(t, sampleRate, gotRate)
	require.Len(t, samples, n)
	for _, s := range samples {
		require.InDelta(t, 0.0, s, 1e-6)
	}
}

func TestDecodeNormalizesToUnitRange(t *testing.T) {
	const sampleRate = 8000
	data := []int{32767, -32768, 0, 16384}
	for len(data) < 64 {
		data = append(data, 0)
	}

	path := filepath.Join(t.TempDir(), "range.wav")
	encodeWAV(t, path, data, sampleRate, 16, 1)

	samples, _, err := NewWAVDecoder().Decode(path)
	require.NoError(t, err)
	for _, s := range samples {
		require.LessOrEqual(t, s, 1.0)
		require.GreaterOrEqual(t, s, -1.0)
	}
	require.InDelta(t, 32767.0/32768, samples[0], 1e-6)
	require.InDelta(t, -1.0, samples[1], 1e-6)
	require.InDelta(t, 0.5, samples[3], 1e-6)
}

func TestDecodeMissingFile(t *testing.T) {
	_, _, err := NewWAVDecoder().Decode(filepath.Join(t.TempDir(), "nope.wav"))
	require.Error(t, err)

	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
	require.Contains(t, derr.Path, "nope.wav")
}

func TestDecodeRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.wav")
	require.NoError(t, os.WriteFile(path, []byte("this is not audio"), 0o644))

	_, _, err := NewWAVDecoder().Decode(path)
	var derr *DecodeError
	require.True(t, errors.As(err, &derr))
}
