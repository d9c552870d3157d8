package audio

import "math"

// SilenceThreshold is the RMS level under which a synthesized segment is
// considered silent
const SilenceThreshold = 1.0

// CalculateRMS calculates the root mean square (RMS) of audio samples
func CalculateRMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0.0
	}

	sum := 0.0
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}

	return math.Sqrt(sum / float64(len(samples)))
}

// DetectSilence detects if audio samples represent silence
func DetectSilence(samples []int16, threshold float64) bool {
	return CalculateRMS(samples) < threshold
}

// Duration returns the playing time of a sample sequence in seconds
func Duration(sampleCount, sampleRate, channels int) float64 {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	return float64(sampleCount) / float64(channels) / float64(sampleRate)
}
