package fingerprint

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Hann returns an n-point Hann window.
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// MagnitudeSpectrum keeps the positive-frequency half of an FFT result.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT computes a magnitude spectrogram: one row of frameSize/2 magnitudes
// per hop. Returns ErrTooShort when the input cannot fill a single frame.
func STFT(samples []float64, frameSize, hopSize int, window []float64) ([][]float64, error) {
	if len(samples) < frameSize {
		return nil, ErrTooShort
	}

	nFrames := (len(samples)-frameSize)/hopSize + 1
	spectrogram := make([][]float64, 0, nFrames)
	frame := make([]float64, frameSize)
	for start := 0; start+frameSize <= len(samples); start += hopSize {
		copy(frame, samples[start:start+frameSize])
		for i := 0; i < frameSize; i++ {
			frame[i] *= window[i]
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(frame)))
	}
	return spectrogram, nil
}
