package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/drcorrector/answer-audio/internal/segment"
)

// Recognizer extracts answers from a photographed answer sheet
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error)
}

// Result is the recognized answer list, sorted by question number
type Result struct {
	Questions []segment.AnswerEntry `json:"questions"`
	RawText   string                `json:"raw_text"`
}

// RecognitionError reports a failed recognition
type RecognitionError struct {
	Reason string
	Err    error
}

func (e *RecognitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recognition failed: %s: %v", e.Reason, e.Err)
	}
	return "recognition failed: " + e.Reason
}

func (e *RecognitionError) Unwrap() error {
	return e.Err
}

// "12-A", "12 A", "12) A" -> "A"
var questionPrefix = regexp.MustCompile(`^\d+\s*[-.:)]?\s*`)

// NormalizeAnswer trims, upper-cases and drops a leading question number
func NormalizeAnswer(answer string) string {
	answer = strings.ToUpper(strings.TrimSpace(answer))
	if stripped := questionPrefix.ReplaceAllString(answer, ""); stripped != "" {
		answer = stripped
	}
	return answer
}

// SortEntries orders entries by question number, keeping the relative order
// of duplicates
func SortEntries(entries []segment.AnswerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Question < entries[j].Question
	})
}

// parseResult decodes a model response body into a normalized Result
func parseResult(body string) (*Result, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")

	var res Result
	if err := json.Unmarshal([]byte(body), &res); err != nil {
		return nil, &RecognitionError{Reason: "malformed model response", Err: err}
	}

	entries := make([]segment.AnswerEntry, 0, len(res.Questions))
	for _, e := range res.Questions {
		e.Answer = NormalizeAnswer(e.Answer)
		if e.Answer == "" {
			continue
		}
		e.Confidence = min(max(e.Confidence, 0), 1)
		entries = append(entries, e)
	}
	SortEntries(entries)
	res.Questions = entries
	return &res, nil
}
