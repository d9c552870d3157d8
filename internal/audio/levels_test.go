package audio

import (
	"math"
	"testing"
)

func TestCalculateRMS(t *testing.T) {
	if rms := CalculateRMS(nil); rms != 0 {
		t.Errorf("Expected RMS 0 for empty input, got %f", rms)
	}

	rms := CalculateRMS([]int16{3, -3, 3, -3})
	if math.Abs(rms-3) > 1e-9 {
		t.Errorf("Expected RMS 3, got %f", rms)
	}
}

func TestDetectSilence(t *testing.T) {
	if !DetectSilence(make([]int16, 100), SilenceThreshold) {
		t.Error("Expected zeroed samples to be silent")
	}
	if DetectSilence([]int16{1000, -1000}, SilenceThreshold) {
		t.Error("Expected loud samples not to be silent")
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(48000, ProviderSampleRate, ProviderChannels); d != 2 {
		t.Errorf("Expected 2 seconds, got %f", d)
	}
	if d := Duration(100, 0, 1); d != 0 {
		t.Errorf("Expected 0 for invalid rate, got %f", d)
	}
}
