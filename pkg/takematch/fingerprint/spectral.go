package fingerprint

import (
	"math"
)

// Spectral family parameters. Lightweight trades resolution for throughput
// on large batches; everything else is identical.
const (
	SpectralFrameSize = 2048
	SpectralHopSize   = 512
	SpectralBands     = 32

	LightweightFrameSize = 1024
	LightweightHopSize   = 1024
	LightweightBands     = 16

	// minBandBin skips the DC/lowest bins, which carry rumble rather than
	// musical content.
	minBandBin = 2
)

// bandEdges returns nBands+1 log-spaced bin boundaries over [minBandBin, nBins).
func bandEdges(nBins, nBands int) []int {
	edges := make([]int, nBands+1)
	ratio := float64(nBins) / float64(minBandBin)
	for i := 0; i <= nBands; i++ {
		e := int(math.Round(float64(minBandBin) * math.Pow(ratio, float64(i)/float64(nBands))))
		if e < minBandBin {
			e = minBandBin
		}
		if e > nBins {
			e = nBins
		}
		edges[i] = e
	}
	// Guarantee strictly increasing edges so every band covers at least one bin.
	for i := 1; i <= nBands; i++ {
		if edges[i] <= edges[i-1] {
			edges[i] = edges[i-1] + 1
			if edges[i] > nBins {
				edges[i] = nBins
			}
		}
	}
	return edges
}

// bandFrames folds each spectrogram row into nBands log-spaced energy bands
// and log-compresses them. Values are non-negative, which keeps downstream
// cosine correlation in [0, 1].
func bandFrames(spectrogram [][]float64, nBands int) [][]float64 {
	if len(spectrogram) == 0 {
		return nil
	}
	nBins := len(spectrogram[0])
	edges := bandEdges(nBins, nBands)

	out := make([][]float64, len(spectrogram))
	for t, row := range spectrogram {
		banded := make([]float64, nBands)
		for b := 0; b < nBands; b++ {
			var energy float64
			for i := edges[b]; i < edges[b+1]; i++ {
				energy += row[i] * row[i]
			}
			banded[b] = math.Log1p(energy)
		}
		out[t] = banded
	}
	return out
}

func extractSpectral(samples []float64, sampleRate int, frameSize, hopSize, nBands int, algo Algorithm) (*Signature, error) {
	spec, err := STFT(samples, frameSize, hopSize, Hann(frameSize))
	if err != nil {
		return nil, err
	}
	return &Signature{
		Algorithm:  algo,
		SampleRate: sampleRate,
		Frames:     bandFrames(spec, nBands),
		FrameRate:  float64(sampleRate) / float64(hopSize),
	}, nil
}
