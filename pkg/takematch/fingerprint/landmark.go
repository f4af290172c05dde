package fingerprint

import (
	"math"
	"sort"
)

// Landmark algorithm parameters. Each anchor peak is paired with up to
// landmarkFanOut later peaks inside the delta window; the pair is packed into
// a 32-bit address: anchorFreq(10) | targetFreq(10) | deltaMs(12). Ten
// frequency bits cover all 1024 spectrum bins of a 2048-sample frame.
const (
	LandmarkFrameSize = 2048
	LandmarkHopSize   = 512

	landmarkMaxFreqBits  = 10
	landmarkMaxDeltaBits = 12
	landmarkFanOut       = 6
	landmarkMinDeltaMs   = 10
	landmarkMaxDeltaMs   = 4000
)

// pairAddress packs an anchor/target peak pair into a hash. Returns false
// when the pair is out of the delta window or does not fit the bit layout.
func pairAddress(anchor, target Peak) (uint32, bool) {
	anchorFreq := uint32(anchor.FreqIdx)
	targetFreq := uint32(target.FreqIdx)
	deltaMs := uint32(math.Round((target.Time - anchor.Time) * 1000.0))

	if deltaMs < landmarkMinDeltaMs || deltaMs > landmarkMaxDeltaMs {
		return 0, false
	}

	freqMask := uint32(1<<landmarkMaxFreqBits - 1)
	deltaMask := uint32(1<<landmarkMaxDeltaBits - 1)
	if anchorFreq > freqMask || targetFreq > freqMask || deltaMs > deltaMask {
		return 0, false
	}

	addr := anchorFreq<<(landmarkMaxDeltaBits+landmarkMaxFreqBits) |
		targetFreq<<landmarkMaxDeltaBits |
		deltaMs
	return addr, true
}

// hashPeaks pairs each anchor with up to landmarkFanOut subsequent peaks.
// The landmark time is the anchor time, so the match engine can vote on
// query-to-candidate offsets.
func hashPeaks(peaks []Peak) []Hash {
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].Time < peaks[j].Time })

	landmarks := make([]Hash, 0, len(peaks)*landmarkFanOut)
	for i := 0; i < len(peaks); i++ {
		anchor := peaks[i]
		paired := 0
		for j := i + 1; j < len(peaks) && paired < landmarkFanOut; j++ {
			addr, ok := pairAddress(anchor, peaks[j])
			if !ok {
				continue
			}
			landmarks = append(landmarks, Hash{
				Value:  addr,
				TimeMs: uint32(math.Round(anchor.Time * 1000.0)),
			})
			paired++
		}
	}
	return landmarks
}

func extractLandmark(samples []float64, sampleRate int) (*Signature, error) {
	spec, err := STFT(samples, LandmarkFrameSize, LandmarkHopSize, Hann(LandmarkFrameSize))
	if err != nil {
		return nil, err
	}
	peaks := ExtractPeaks(spec, sampleRate, LandmarkFrameSize, LandmarkHopSize)
	return &Signature{
		Algorithm:  Landmark,
		SampleRate: sampleRate,
		Landmarks:  hashPeaks(peaks),
	}, nil
}
