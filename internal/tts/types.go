package tts

import (
	"context"
	"fmt"
)

// Synthesizer converts text into base64-encoded PCM audio
// (24 kHz, mono, signed 16-bit little-endian)
type Synthesizer interface {
	// Synthesize renders text with the named prebuilt voice
	Synthesize(ctx context.Context, text, voice string) (string, error)
}

// ProviderError reports a failed request to the speech provider
type ProviderError struct {
	StatusCode int    // HTTP status, 0 when the request never completed
	Message    string // Provider-supplied message, if any
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Message != "":
		return fmt.Sprintf("speech provider returned status %d: %s", e.StatusCode, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("speech provider returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("speech provider request failed: %v", e.Err)
	}
	return "speech provider request failed: " + e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
