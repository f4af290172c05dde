package fingerprint

import (
	"fmt"
	"time"
)

// Extract turns mono PCM samples into a signature under the given algorithm.
// Deterministic for identical input. Returns ErrTooShort when the input
// cannot fill one analysis frame, ErrUnknownAlgorithm for an unrecognized
// algorithm. This is the single algorithm dispatch point on the extraction
// side; the match engine holds the other.
func Extract(samples []float64, sampleRate int, algo Algorithm) (*Signature, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	var (
		sig *Signature
		err error
	)
	switch algo {
	case Spectral:
		sig, err = extractSpectral(samples, sampleRate, SpectralFrameSize, SpectralHopSize, SpectralBands, Spectral)
	case Lightweight:
		sig, err = extractSpectral(samples, sampleRate, LightweightFrameSize, LightweightHopSize, LightweightBands, Lightweight)
	case Chroma:
		sig, err = extractChroma(samples, sampleRate)
	case Landmark:
		sig, err = extractLandmark(samples, sampleRate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algo)
	}
	if err != nil {
		return nil, err
	}

	sig.GeneratedAt = time.Now().UTC()
	return sig, nil
}
