package playback

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"github.com/drcorrector/answer-audio/internal/audio"
	"github.com/drcorrector/answer-audio/internal/segment"
)

// ClockResource is a headless transport: it validates the container and
// advances a position clock at the playback rate without producing sound.
// Clients render the audio themselves from the segment handle and follow
// the published position.
type ClockResource struct {
	duration float64
	tick     time.Duration
	now      func() time.Time
	events   chan Event
	closedCh chan struct{}

	mu      sync.Mutex
	playing bool
	closed  bool
	base    float64   // position at anchor
	anchor  time.Time // when base was taken, valid while playing
	volume  float64
	rate    float64
	halt    chan struct{}
}

// NewClockResource validates a WAV container and opens a resource for it
func NewClockResource(container []byte, tick time.Duration) (*ClockResource, error) {
	dec := wav.NewDecoder(bytes.NewReader(container))
	if !dec.IsValidFile() {
		return nil, errors.New("empty or invalid WAV container")
	}

	data, err := audio.ExtractData(container)
	if err != nil {
		return nil, err
	}
	bytesPerSample := int(dec.BitDepth) / 8
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}

	return &ClockResource{
		duration: audio.Duration(len(data)/bytesPerSample, int(dec.SampleRate), int(dec.NumChans)),
		tick:     tick,
		now:      time.Now,
		events:   make(chan Event, 32),
		closedCh: make(chan struct{}),
		volume:   1,
		rate:     1,
	}, nil
}

// ClockFactory returns a ResourceFactory producing clock resources
func ClockFactory(tick time.Duration) ResourceFactory {
	return func(seg segment.AudioSegment) (Resource, error) {
		return NewClockResource(seg.Container, tick)
	}
}

// Play starts or resumes the clock. A finished track restarts from zero.
func (r *ClockResource) Play() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	if r.playing {
		return nil
	}
	if r.base >= r.duration {
		r.base = 0
	}

	r.playing = true
	r.anchor = r.now()
	r.halt = make(chan struct{})
	go r.run(r.halt)
	r.emit(EventPlay)
	return nil
}

// Pause freezes the clock at the current position
func (r *ClockResource) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	if r.playing {
		r.pauseLocked()
		r.emit(EventPause)
	}
	return nil
}

// Stop halts the clock for good
func (r *ClockResource) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if r.playing {
		r.pauseLocked()
	}
	r.closed = true
	close(r.closedCh)
	return nil
}

// Seek moves to seconds, clamped to the track
func (r *ClockResource) Seek(seconds float64) error {
	if !finite(seconds) {
		return ErrInvalidValue
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	r.base = clamp(seconds, 0, r.duration)
	r.anchor = r.now()
	r.emit(EventTimeUpdate)
	return nil
}

// SetVolume records the volume reported to clients
func (r *ClockResource) SetVolume(v float64) error {
	if !finite(v) {
		return ErrInvalidValue
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	r.volume = clamp(v, 0, 1)
	r.emit(EventVolumeChange)
	return nil
}

// SetRate changes how fast the clock advances
func (r *ClockResource) SetRate(rate float64) error {
	if !finite(rate) || rate <= 0 {
		return ErrInvalidRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrResourceClosed
	}
	r.base = r.positionLocked()
	r.anchor = r.now()
	r.rate = rate
	r.emit(EventRateChange)
	return nil
}

// State returns the clock's current state
func (r *ClockResource) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return State{
		Playing:  r.playing,
		Position: r.positionLocked(),
		Duration: r.duration,
		Volume:   r.volume,
		Rate:     r.rate,
	}
}

// Events returns the change notification channel
func (r *ClockResource) Events() <-chan Event {
	return r.events
}

func (r *ClockResource) run(halt chan struct{}) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-halt:
			return
		case <-ticker.C:
			if r.advance() {
				r.sendEnded()
				return
			}
		}
	}
}

// advance publishes the position and reports whether the track just ended
func (r *ClockResource) advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing {
		return false
	}
	if r.positionLocked() < r.duration {
		r.emit(EventTimeUpdate)
		return false
	}

	r.pauseLocked()
	r.base = r.duration
	r.emit(EventPause)
	return true
}

// sendEnded must not be dropped, so it blocks until received or closed
func (r *ClockResource) sendEnded() {
	select {
	case r.events <- Event{Kind: EventEnded}:
	case <-r.closedCh:
	}
}

func (r *ClockResource) pauseLocked() {
	r.base = r.positionLocked()
	r.playing = false
	close(r.halt)
	r.halt = nil
}

func (r *ClockResource) positionLocked() float64 {
	if !r.playing {
		return r.base
	}
	pos := r.base + r.now().Sub(r.anchor).Seconds()*r.rate
	if pos > r.duration {
		return r.duration
	}
	return pos
}

func (r *ClockResource) emit(kind EventKind) {
	if r.closed {
		return
	}
	select {
	case r.events <- Event{Kind: kind}:
	default:
	}
}
