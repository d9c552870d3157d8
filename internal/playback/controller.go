package playback

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/drcorrector/answer-audio/internal/observability"
	"github.com/drcorrector/answer-audio/internal/segment"
)

// Status of the live session
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
)

// Snapshot is the externally visible playback state
type Snapshot struct {
	Status    Status  `json:"status"`
	SegmentID string  `json:"segment_id,omitempty"`
	Label     string  `json:"label,omitempty"`
	Position  float64 `json:"position"`
	Duration  float64 `json:"duration"`
	Volume    float64 `json:"volume"`
	Rate      float64 `json:"rate"`
}

type session struct {
	seg  segment.AudioSegment
	res  Resource
	done chan struct{}
}

// Controller owns the single live playback session
type Controller struct {
	factory  ResourceFactory
	prefs    Preferences
	playlist Playlist
	logger   zerolog.Logger

	mu      sync.Mutex
	session *session
	volume  float64
	subs    map[int]chan Snapshot
	nextSub int
}

// NewController creates an idle controller
func NewController(factory ResourceFactory, prefs Preferences, playlist Playlist, logger zerolog.Logger) *Controller {
	return &Controller{
		factory:  factory,
		prefs:    prefs,
		playlist: playlist,
		logger:   logger,
		volume:   1,
		subs:     make(map[int]chan Snapshot),
	}
}

// PlaySegment replaces the live session with one bound to seg and starts it
func (c *Controller) PlaySegment(seg segment.AudioSegment) error {
	if !seg.Playable() {
		observability.RecordPlaybackTransition("rejected")
		return ErrUnplayableSegment
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playLocked(seg)
}

func (c *Controller) playLocked(seg segment.AudioSegment) error {
	res, err := c.factory(seg)
	if err != nil {
		return fmt.Errorf("open %s: %w", seg.ID, err)
	}

	c.endSessionLocked()

	sess := &session{seg: seg, res: res, done: make(chan struct{})}
	c.session = sess

	if err := res.SetVolume(c.volume); err != nil {
		c.logger.Warn().Err(err).Str("segment_id", seg.ID).Msg("Failed to apply volume")
	}
	if err := res.SetRate(c.prefs.PlaybackRate()); err != nil {
		c.logger.Warn().Err(err).Str("segment_id", seg.ID).Msg("Failed to apply playback rate")
	}
	go c.watch(sess)

	if err := res.Play(); err != nil {
		c.endSessionLocked()
		c.publishLocked()
		return fmt.Errorf("play %s: %w", seg.ID, err)
	}

	observability.RecordPlaybackSession()
	observability.RecordPlaybackTransition("play")
	c.logger.Debug().Str("segment_id", seg.ID).Msg("Playback started")
	c.publishLocked()
	return nil
}

// endSessionLocked stops the live transport and forgets the session
func (c *Controller) endSessionLocked() {
	sess := c.session
	if sess == nil {
		return
	}
	c.session = nil
	close(sess.done)
	if err := sess.res.Stop(); err != nil {
		c.logger.Warn().Err(err).Str("segment_id", sess.seg.ID).Msg("Failed to stop playback")
	}
}

// TogglePlayPause pauses a playing session or resumes a paused one
func (c *Controller) TogglePlayPause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}

	res := c.session.res
	var err error
	if res.State().Playing {
		err = res.Pause()
		observability.RecordPlaybackTransition("pause")
	} else {
		err = res.Play()
		observability.RecordPlaybackTransition("play")
	}
	c.publishLocked()
	return err
}

// Seek moves to a fraction of the track duration
func (c *Controller) Seek(fraction float64) error {
	if !finite(fraction) {
		return ErrInvalidValue
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}

	st := c.session.res.State()
	err := c.session.res.Seek(clamp(fraction, 0, 1) * st.Duration)
	c.publishLocked()
	return err
}

// Skip moves the position by delta seconds within the track
func (c *Controller) Skip(delta float64) error {
	if !finite(delta) {
		return ErrInvalidValue
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}

	st := c.session.res.State()
	err := c.session.res.Seek(clamp(st.Position+delta, 0, st.Duration))
	c.publishLocked()
	return err
}

// SetVolume sets the volume of the live session
func (c *Controller) SetVolume(v float64) error {
	if !finite(v) {
		return ErrInvalidValue
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.volume = clamp(v, 0, 1)
	if c.session == nil {
		return nil
	}
	err := c.session.res.SetVolume(c.volume)
	c.publishLocked()
	return err
}

// SetRate changes the playback rate and stores it as the global rate
func (c *Controller) SetRate(r float64) error {
	if !finite(r) || r <= 0 {
		return ErrInvalidRate
	}
	if err := c.prefs.SetPlaybackRate(r); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.res.SetRate(r)
	c.publishLocked()
	return err
}

// Close stops playback and destroys the session
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.endSessionLocked()
	observability.RecordPlaybackTransition("close")
	c.publishLocked()
}

// Snapshot returns the current playback state
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel of snapshots published after every change.
// Slow subscribers miss intermediate snapshots.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSub
	c.nextSub++
	ch := make(chan Snapshot, 16)
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) watch(sess *session) {
	for {
		select {
		case <-sess.done:
			return
		case ev := <-sess.res.Events():
			c.handleEvent(sess, ev)
		}
	}
}

func (c *Controller) handleEvent(sess *session, ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != sess {
		return
	}

	if ev.Kind == EventEnded {
		c.onEndedLocked(sess)
		return
	}
	c.publishLocked()
}

func (c *Controller) onEndedLocked(sess *session) {
	observability.RecordPlaybackTransition("end")

	if c.prefs.Autoplay() && c.playlist != nil {
		if next, ok := c.playlist.Next(sess.seg.ID); ok && next.Playable() {
			c.logger.Debug().Str("from", sess.seg.ID).Str("to", next.ID).Msg("Autoplay advancing")
			if err := c.playLocked(next); err != nil {
				c.logger.Error().Err(err).Str("segment_id", next.ID).Msg("Autoplay failed")
			} else {
				observability.RecordPlaybackTransition("autoplay")
				return
			}
		}
	}

	// No continuation: rewind and stay paused with the session open
	if c.session == sess {
		if sess.res.State().Playing {
			if err := sess.res.Pause(); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to pause finished track")
			}
		}
		if err := sess.res.Seek(0); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to rewind finished track")
		}
	}
	c.publishLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	if c.session == nil {
		return Snapshot{Status: StatusIdle, Volume: c.volume, Rate: c.prefs.PlaybackRate()}
	}

	st := c.session.res.State()
	status := StatusPaused
	if st.Playing {
		status = StatusPlaying
	}
	return Snapshot{
		Status:    status,
		SegmentID: c.session.seg.ID,
		Label:     c.session.seg.Label,
		Position:  st.Position,
		Duration:  st.Duration,
		Volume:    st.Volume,
		Rate:      st.Rate,
	}
}

func (c *Controller) publishLocked() {
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
