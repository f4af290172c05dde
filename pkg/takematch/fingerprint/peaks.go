package fingerprint

import (
	"math"
	"sort"
)

// Peak is a local maximum in the time-frequency plane.
type Peak struct {
	TimeIdx int
	FreqIdx int
	Time    float64
	Freq    float64
	MagDB   float64
}

const (
	peakFreqNeighbour = 3
	peakTimeNeighbour = 1
	peakMinDbAboveAvg = 3.0
	peakEps           = 1e-10
)

// peakBands splits the bin range into doubling-width bands starting at bin 10,
// so each octave-ish region contributes at most one candidate per frame.
func peakBands(nBins int) [][2]int {
	bands := [][2]int{{0, min(10, nBins)}}
	for start := 10; start < nBins; start *= 2 {
		end := min(start*2, nBins)
		bands = append(bands, [2]int{start, end})
		if end == nBins {
			break
		}
	}
	return bands
}

// ExtractPeaks picks salient spectrogram peaks: per frame the strongest bin
// of each band, kept only when it beats the frame's band average by a margin
// and is a local maximum in its time-frequency neighbourhood.
func ExtractPeaks(spectrogram [][]float64, sampleRate, frameSize, hopSize int) []Peak {
	if len(spectrogram) == 0 || len(spectrogram[0]) == 0 {
		return nil
	}

	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	freqRes := float64(sampleRate) / float64(frameSize)
	frameTime := float64(hopSize) / float64(sampleRate)
	bands := peakBands(nBins)

	peaks := make([]Peak, 0, nFrames*2)
	for t := 0; t < nFrames; t++ {
		frame := spectrogram[t]

		bandMaxMag := make([]float64, len(bands))
		bandMaxIdx := make([]int, len(bands))
		for bi, b := range bands {
			maxIdx := b[0]
			maxMag := 0.0
			for i := b[0]; i < b[1]; i++ {
				if frame[i] > maxMag {
					maxMag = frame[i]
					maxIdx = i
				}
			}
			bandMaxMag[bi] = maxMag
			bandMaxIdx[bi] = maxIdx
		}

		var sumDb float64
		for _, mag := range bandMaxMag {
			sumDb += 20.0 * math.Log10(mag+peakEps)
		}
		avgDb := sumDb / float64(len(bandMaxMag))

		for bi, mag := range bandMaxMag {
			if mag <= 0 {
				continue
			}
			bin := bandMaxIdx[bi]
			magDb := 20.0 * math.Log10(mag+peakEps)
			if magDb < avgDb+peakMinDbAboveAvg {
				continue
			}
			if !isLocalMax(spectrogram, t, bin, mag) {
				continue
			}
			peaks = append(peaks, Peak{
				TimeIdx: t,
				FreqIdx: bin,
				Time:    float64(t) * frameTime,
				Freq:    float64(bin) * freqRes,
				MagDB:   magDb,
			})
		}
	}

	sort.Slice(peaks, func(i, j int) bool {
		if peaks[i].TimeIdx == peaks[j].TimeIdx {
			return peaks[i].FreqIdx < peaks[j].FreqIdx
		}
		return peaks[i].TimeIdx < peaks[j].TimeIdx
	})
	return peaks
}

func isLocalMax(spectrogram [][]float64, t, bin int, mag float64) bool {
	nFrames := len(spectrogram)
	nBins := len(spectrogram[0])
	for dt := -peakTimeNeighbour; dt <= peakTimeNeighbour; dt++ {
		tIdx := t + dt
		if tIdx < 0 || tIdx >= nFrames {
			continue
		}
		for df := -peakFreqNeighbour; df <= peakFreqNeighbour; df++ {
			fIdx := bin + df
			if fIdx < 0 || fIdx >= nBins {
				continue
			}
			if dt == 0 && df == 0 {
				continue
			}
			if spectrogram[tIdx][fIdx] > mag {
				return false
			}
		}
	}
	return true
}
