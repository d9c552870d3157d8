package playback

import (
	"errors"

	"github.com/drcorrector/answer-audio/internal/segment"
)

var (
	// ErrUnplayableSegment is returned when a segment has no local audio
	ErrUnplayableSegment = errors.New("segment is not locally playable")
	// ErrInvalidRate is returned for a non-positive or non-finite playback rate
	ErrInvalidRate = errors.New("playback rate must be a positive finite number")
	// ErrInvalidValue is returned when a seek, skip or volume argument is NaN or infinite
	ErrInvalidValue = errors.New("playback value must be a finite number")
	// ErrResourceClosed is returned by a resource after Stop
	ErrResourceClosed = errors.New("playback resource is closed")
)

// EventKind names a change reported by a Resource
type EventKind string

const (
	EventPlay         EventKind = "play"
	EventPause        EventKind = "pause"
	EventTimeUpdate   EventKind = "timeupdate"
	EventVolumeChange EventKind = "volumechange"
	EventRateChange   EventKind = "ratechange"
	EventEnded        EventKind = "ended"
)

// Event is a notification that the resource's state changed. Receivers
// re-read State for the details.
type Event struct {
	Kind EventKind
}

// State is the ground truth of a resource at one instant
type State struct {
	Playing  bool
	Position float64 // seconds
	Duration float64 // seconds
	Volume   float64 // 0 to 1
	Rate     float64
}

// Resource is one opened, playable track
type Resource interface {
	Play() error
	Pause() error
	// Stop halts playback and releases the transport. The resource cannot
	// be reused afterwards.
	Stop() error
	Seek(seconds float64) error
	SetVolume(v float64) error
	SetRate(r float64) error
	State() State
	Events() <-chan Event
}

// ResourceFactory opens a resource for a segment
type ResourceFactory func(seg segment.AudioSegment) (Resource, error)

// Preferences exposes the persisted playback settings
type Preferences interface {
	Autoplay() bool
	PlaybackRate() float64
	SetPlaybackRate(rate float64) error
}

// Playlist resolves the segment that follows another in playback order
type Playlist interface {
	Next(id string) (segment.AudioSegment, bool)
}
