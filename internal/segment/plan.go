package segment

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	longPause  = `. <break time="400ms"/> `
	shortPause = `. <break time="300ms"/> `
)

var pauseMarker = regexp.MustCompile(`<break.*?>`)

type phrasebook struct {
	entry func(q int, answer string) string
	label func(first, last int) string
}

var phrasebooks = map[Language]phrasebook{
	LanguageEnglish: {
		entry: func(q int, answer string) string {
			return fmt.Sprintf("Question %d, answer %s", q, answer)
		},
		label: func(first, last int) string {
			return fmt.Sprintf("Questions %d–%d", first, last)
		},
	},
	LanguageArabic: {
		entry: func(q int, answer string) string {
			return fmt.Sprintf("السؤال رقم %d، الإجابة %s", q, answer)
		},
		label: func(first, last int) string {
			return fmt.Sprintf("أسئلة %d–%d", first, last)
		},
	},
}

// Plan partitions answers into consecutive chunks of at most chunkSize
// entries and renders each chunk as one TextSegment.
//
// The answers must already be sorted by question number; Plan keeps their
// order. An empty input yields no segments.
func Plan(answers []AnswerEntry, chunkSize int, format Format, lang Language) []TextSegment {
	if chunkSize < 1 {
		chunkSize = 1
	}
	book, ok := phrasebooks[lang]
	if !ok {
		book = phrasebooks[LanguageEnglish]
	}

	segments := make([]TextSegment, 0, (len(answers)+chunkSize-1)/chunkSize)
	for start := 0; start < len(answers); start += chunkSize {
		end := min(start+chunkSize, len(answers))
		chunk := answers[start:end]
		if len(chunk) == 0 {
			continue
		}

		text := render(chunk, format, book)
		if strings.TrimSpace(text) == "" {
			continue
		}

		first, last := chunk[0].Question, chunk[len(chunk)-1].Question
		segments = append(segments, TextSegment{
			ID:            fmt.Sprintf("segment-%d", start),
			Label:         book.label(first, last),
			Text:          text,
			FirstQuestion: first,
			LastQuestion:  last,
		})
	}
	return segments
}

func render(chunk []AnswerEntry, format Format, book phrasebook) string {
	parts := make([]string, len(chunk))
	sep := shortPause
	for i, e := range chunk {
		switch format {
		case FormatCompact:
			parts[i] = fmt.Sprintf("%d%s", e.Question, e.Answer)
		case FormatAnswerOnly:
			parts[i] = e.Answer
		default:
			parts[i] = book.entry(e.Question, e.Answer)
			sep = longPause
		}
	}
	return strings.Join(parts, sep)
}

// StripPauseMarkers replaces pause markers with plain spaces, for speech
// engines that do not understand them.
func StripPauseMarkers(text string) string {
	return pauseMarker.ReplaceAllString(text, " ")
}
