package fingerprint

import (
	"math"
	"testing"
)

func TestExtractPeaksFromSweep(t *testing.T) {
	sampleRate := 11025
	n := sampleRate * 2
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		f := 300.0 + 1200.0*float64(i)/float64(n)
		samples[i] = 0.8 * math.Sin(2*math.Pi*f*float64(i)/float64(sampleRate))
	}

	spec, err := STFT(samples, LandmarkFrameSize, LandmarkHopSize, Hann(LandmarkFrameSize))
	if err != nil {
		t.Fatalf("stft failed: %v", err)
	}

	peaks := ExtractPeaks(spec, sampleRate, LandmarkFrameSize, LandmarkHopSize)
	if len(peaks) == 0 {
		t.Fatal("no peaks extracted")
	}

	nFrames := len(spec)
	nBins := len(spec[0])
	for i, p := range peaks {
		if p.TimeIdx < 0 || p.TimeIdx >= nFrames {
			t.Errorf("peak %d has invalid time index %d", i, p.TimeIdx)
		}
		if p.FreqIdx < 0 || p.FreqIdx >= nBins {
			t.Errorf("peak %d has invalid freq index %d", i, p.FreqIdx)
		}
		if p.Freq < 0 {
			t.Errorf("peak %d has negative frequency %f", i, p.Freq)
		}
	}

	for i := 1; i < len(peaks); i++ {
		if peaks[i].TimeIdx < peaks[i-1].TimeIdx {
			t.Fatal("peaks not sorted by time index")
		}
		if peaks[i].TimeIdx == peaks[i-1].TimeIdx && peaks[i].FreqIdx < peaks[i-1].FreqIdx {
			t.Fatal("peaks not sorted by frequency within a frame")
		}
	}
}

func TestExtractPeaksEmptySpectrogram(t *testing.T) {
	if peaks := ExtractPeaks(nil, 11025, LandmarkFrameSize, LandmarkHopSize); len(peaks) != 0 {
		t.Errorf("expected no peaks from empty spectrogram, got %d", len(peaks))
	}
}
