// Package audio decodes recordings into mono float64 PCM for fingerprinting.
// Practice recordings are WAV in this suite; other formats arrive through
// the pluggable Decoder interface on the service.
package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/go-audio/wav"
)

// DecodeError wraps any failure to produce PCM from a file. The generation
// coordinator treats it as a per-file soft failure, never a batch abort.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WAVDecoder reads PCM WAV files via go-audio.
type WAVDecoder struct{}

func NewWAVDecoder() *WAVDecoder { return &WAVDecoder{} }

// Decode reads a WAV file and returns mono samples normalized to [-1, 1]
// plus the sample rate. Multi-channel input is mixed down by averaging.
func (d *WAVDecoder) Decode(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, &DecodeError{Path: path, Err: fmt.Errorf("not a valid WAV file")}
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, &DecodeError{Path: path, Err: err}
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, &DecodeError{Path: path, Err: fmt.Errorf("empty PCM data")}
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, 0, &DecodeError{Path: path, Err: fmt.Errorf("invalid channel count %d", channels)}
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := 1.0 / math.Pow(2, float64(bitDepth-1))

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(buf.Data[i*channels+c]) * scale
		}
		out[i] = sum / float64(channels)
	}

	return out, buf.Format.SampleRate, nil
}
