package segment

import "fmt"

// BrowserHandle marks an AudioSegment that has no local container and
// cannot be played through the playback controller.
const BrowserHandle = "#browser"

// AnswerEntry is one recognized (and possibly edited) answer
type AnswerEntry struct {
	Question   int     `json:"q"`
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0, display only
}

// Format controls how each answer is rendered into speakable text
type Format string

const (
	FormatFull       Format = "full"
	FormatCompact    Format = "compact"
	FormatAnswerOnly Format = "answer_only"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatFull, FormatCompact, FormatAnswerOnly:
		return f, nil
	}
	return "", fmt.Errorf("unknown answer format %q", s)
}

// Language selects the phrasing used for rendered text and labels
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// ParseLanguage validates a language code
func ParseLanguage(s string) (Language, error) {
	switch l := Language(s); l {
	case LanguageEnglish, LanguageArabic:
		return l, nil
	}
	return "", fmt.Errorf("unknown language %q", s)
}

// TextSegment is a contiguous run of answers rendered as one block of text
type TextSegment struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Text          string `json:"text"`
	FirstQuestion int    `json:"first_question"`
	LastQuestion  int    `json:"last_question"`
}

// AudioSegment is a TextSegment with its synthesized, playable container
type AudioSegment struct {
	TextSegment
	Container []byte `json:"-"`
	Handle    string `json:"handle"`
}

// Playable reports whether the segment carries a real audio container
func (s AudioSegment) Playable() bool {
	return s.Handle != BrowserHandle && len(s.Container) > 0
}
