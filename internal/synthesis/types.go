package synthesis

import (
	"context"
	"fmt"

	"github.com/drcorrector/answer-audio/internal/segment"
)

// Backend selects where speech is produced
type Backend string

const (
	BackendGemini  Backend = "gemini"  // Remote provider, playable containers
	BackendBrowser Backend = "browser" // Client-side speech, nothing playable locally
)

// ParseBackend validates a backend name
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendGemini, BackendBrowser:
		return b, nil
	}
	return "", fmt.Errorf("unknown speech backend %q", s)
}

// Options configures one generation run
type Options struct {
	Voice   string
	Backend Backend
}

// ProgressFunc receives the completed and total segment counts. Calls for a
// run never overlap.
type ProgressFunc func(done, total int)

// Utterer dispatches text to be spoken by the client immediately. Delivery
// is best effort.
type Utterer interface {
	Utter(ctx context.Context, segmentID, text string)
}

// Run is the ordered result of a successful generation
type Run struct {
	ID       string                 `json:"id"`
	Backend  Backend                `json:"backend"`
	Segments []segment.AudioSegment `json:"segments"`
}

// SynthesisError reports the first segment failure of a run
type SynthesisError struct {
	SegmentID string
	Err       error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis failed for %s: %v", e.SegmentID, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// HandleFor returns the play handle of a segment within a run
func HandleFor(runID, segmentID string) string {
	return fmt.Sprintf("/audio/%s/%s.wav", runID, segmentID)
}
