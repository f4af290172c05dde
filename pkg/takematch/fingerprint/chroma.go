package fingerprint

import (
	"math"
)

// Chroma parameters. The spectrum is folded into 12 pitch classes per frame;
// runs of chromaRunLength consecutive dominant pitch classes are packed into
// one landmark hash, sliding one frame at a time so runs overlap.
const (
	ChromaFrameSize = 4096
	ChromaHopSize   = 1024

	chromaRunLength = 4
	chromaMinFreq   = 55.0   // A1
	chromaMaxFreq   = 4186.0 // C8
)

// chromaVector folds one magnitude spectrum row into 12 pitch-class energies.
func chromaVector(row []float64, sampleRate, frameSize int) [12]float64 {
	var pc [12]float64
	freqPerBin := float64(sampleRate) / float64(frameSize)
	for i, mag := range row {
		freq := float64(i) * freqPerBin
		if freq < chromaMinFreq || freq > chromaMaxFreq {
			continue
		}
		// Class 0 = A, matching 440 Hz reference.
		class := int(math.Round(12.0*math.Log2(freq/440.0))) % 12
		if class < 0 {
			class += 12
		}
		pc[class] += mag * mag
	}
	return pc
}

func dominantClass(pc [12]float64) uint32 {
	best := 0
	for i := 1; i < 12; i++ {
		if pc[i] > pc[best] {
			best = i
		}
	}
	return uint32(best)
}

// extractChroma hashes overlapping dominant-pitch-class runs into landmarks.
// Recording level cancels out entirely: only the argmax class per frame
// survives into the hash.
func extractChroma(samples []float64, sampleRate int) (*Signature, error) {
	spec, err := STFT(samples, ChromaFrameSize, ChromaHopSize, Hann(ChromaFrameSize))
	if err != nil {
		return nil, err
	}

	classes := make([]uint32, len(spec))
	for t, row := range spec {
		classes[t] = dominantClass(chromaVector(row, sampleRate, ChromaFrameSize))
	}

	frameMs := 1000.0 * float64(ChromaHopSize) / float64(sampleRate)
	landmarks := make([]Hash, 0, len(classes))
	for t := 0; t+chromaRunLength <= len(classes); t++ {
		var h uint32
		for k := 0; k < chromaRunLength; k++ {
			h = h<<4 | classes[t+k]
		}
		landmarks = append(landmarks, Hash{
			Value:  h,
			TimeMs: uint32(math.Round(float64(t) * frameMs)),
		})
	}

	return &Signature{
		Algorithm:  Chroma,
		SampleRate: sampleRate,
		Landmarks:  landmarks,
	}, nil
}
