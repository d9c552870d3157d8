package library

import (
	"errors"
	"sync"

	"github.com/drcorrector/answer-audio/internal/segment"
)

var (
	// ErrNotFound is returned for unknown segment IDs and stale handles
	ErrNotFound = errors.New("segment not found")
	// ErrNotDownloadable is returned for segments without a local container
	ErrNotDownloadable = errors.New("segment has no downloadable audio")
)

// Library owns the audio segments of the most recent successful run. Every
// Replace or Clear invalidates all handles issued before it.
type Library struct {
	mu       sync.RWMutex
	runID    string
	segments []segment.AudioSegment
	byID     map[string]int
	byHandle map[string]int
}

// New creates an empty library
func New() *Library {
	return &Library{}
}

// Replace swaps in the segments of a run
func (l *Library) Replace(runID string, segments []segment.AudioSegment) {
	byID := make(map[string]int, len(segments))
	byHandle := make(map[string]int, len(segments))
	for i, s := range segments {
		byID[s.ID] = i
		if s.Playable() {
			byHandle[s.Handle] = i
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = runID
	l.segments = append([]segment.AudioSegment(nil), segments...)
	l.byID = byID
	l.byHandle = byHandle
}

// Clear drops every segment
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runID = ""
	l.segments = nil
	l.byID = nil
	l.byHandle = nil
}

// RunID returns the run that produced the current segments
func (l *Library) RunID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.runID
}

// List returns the segments in playback order
func (l *Library) List() []segment.AudioSegment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]segment.AudioSegment{}, l.segments...)
}

// Get looks a segment up by ID
func (l *Library) Get(id string) (segment.AudioSegment, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return segment.AudioSegment{}, ErrNotFound
	}
	return l.segments[i], nil
}

// Next returns the segment that follows id, if any
func (l *Library) Next(id string) (segment.AudioSegment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok || i+1 >= len(l.segments) {
		return segment.AudioSegment{}, false
	}
	return l.segments[i+1], true
}

// Open resolves a play handle to its container bytes
func (l *Library) Open(handle string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byHandle[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return l.segments[i].Container, nil
}

// DownloadName returns the file name offered when saving a segment
func DownloadName(seg segment.AudioSegment) (string, error) {
	if !seg.Playable() {
		return "", ErrNotDownloadable
	}
	return "DrCorrector_" + seg.Label + ".wav", nil
}
