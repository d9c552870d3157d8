package settings

import (
	"fmt"
	"sync"

	"github.com/drcorrector/answer-audio/internal/config"
	"github.com/drcorrector/answer-audio/internal/segment"
	"github.com/drcorrector/answer-audio/internal/synthesis"
)

// Voices lists the prebuilt voices offered to the user
var Voices = []string{"Zephyr", "Kore", "Puck", "Charon", "Fenrir", "vindemiatrix", "orus", "autonoe"}

// Settings is the user's generation and playback preferences
type Settings struct {
	AnswerFormat        segment.Format    `json:"answer_format"`
	QuestionsPerSegment int               `json:"questions_per_segment"`
	Voice               string            `json:"voice"`
	PlaybackSpeed       float64           `json:"playback_speed"`
	Backend             synthesis.Backend `json:"tts_backend"`
	Autoplay            bool              `json:"autoplay"`
	Language            segment.Language  `json:"language"`
}

// Defaults builds the initial settings from configuration
func Defaults(cfg *config.Config) (Settings, error) {
	s := Settings{
		AnswerFormat:        segment.Format(cfg.DefaultAnswerFormat),
		QuestionsPerSegment: cfg.DefaultQuestionsPerSegment,
		Voice:               cfg.DefaultVoice,
		PlaybackSpeed:       cfg.DefaultPlaybackSpeed,
		Backend:             synthesis.Backend(cfg.DefaultTTSBackend),
		Autoplay:            cfg.DefaultAutoplay,
		Language:            segment.Language(cfg.DefaultLanguage),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid default settings: %w", err)
	}
	return s, nil
}

// Validate checks every field
func (s Settings) Validate() error {
	if _, err := segment.ParseFormat(string(s.AnswerFormat)); err != nil {
		return err
	}
	if s.QuestionsPerSegment < 1 {
		return fmt.Errorf("questions per segment must be at least 1, got %d", s.QuestionsPerSegment)
	}
	if !IsVoice(s.Voice) {
		return fmt.Errorf("unknown voice %q", s.Voice)
	}
	if s.PlaybackSpeed <= 0 {
		return fmt.Errorf("playback speed must be positive, got %v", s.PlaybackSpeed)
	}
	if _, err := synthesis.ParseBackend(string(s.Backend)); err != nil {
		return err
	}
	if _, err := segment.ParseLanguage(string(s.Language)); err != nil {
		return err
	}
	return nil
}

// IsVoice reports whether name is an offered voice
func IsVoice(name string) bool {
	for _, v := range Voices {
		if v == name {
			return true
		}
	}
	return false
}

// Store holds the current settings in memory
type Store struct {
	mu      sync.RWMutex
	current Settings
}

// NewStore creates a store seeded with initial settings
func NewStore(initial Settings) *Store {
	return &Store{current: initial}
}

// Get returns a copy of the current settings
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update replaces the settings after validating them
func (s *Store) Update(next Settings) error {
	if err := next.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = next
	return nil
}

// Autoplay reports whether playback advances to the next segment
func (s *Store) Autoplay() bool {
	return s.Get().Autoplay
}

// PlaybackRate returns the global playback rate
func (s *Store) PlaybackRate() float64 {
	return s.Get().PlaybackSpeed
}

// SetPlaybackRate persists a new global playback rate
func (s *Store) SetPlaybackRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("playback speed must be positive, got %v", rate)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current.PlaybackSpeed = rate
	return nil
}
