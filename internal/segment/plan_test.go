package segment

import (
	"strings"
	"testing"
)

func answers(n int) []AnswerEntry {
	out := make([]AnswerEntry, n)
	for i := range out {
		out[i] = AnswerEntry{Question: i + 1, Answer: string(rune('A' + i%4)), Confidence: 0.95}
	}
	return out
}

func TestPlan_Empty(t *testing.T) {
	segments := Plan(nil, 10, FormatFull, LanguageEnglish)
	if len(segments) != 0 {
		t.Errorf("Expected no segments, got %d", len(segments))
	}
}

func TestPlan_SegmentCount(t *testing.T) {
	for n := 1; n <= 25; n++ {
		for size := 1; size <= 12; size++ {
			segments := Plan(answers(n), size, FormatCompact, LanguageEnglish)
			expected := (n + size - 1) / size
			if len(segments) != expected {
				t.Fatalf("n=%d size=%d: Expected %d segments, got %d", n, size, expected, len(segments))
			}

			// Concatenated ranges reconstruct the input in order
			next := 1
			for _, s := range segments {
				if s.FirstQuestion != next {
					t.Fatalf("n=%d size=%d: Expected segment to start at %d, got %d", n, size, next, s.FirstQuestion)
				}
				if count := s.LastQuestion - s.FirstQuestion + 1; count > size {
					t.Fatalf("n=%d size=%d: segment holds %d entries", n, size, count)
				}
				if s.Text == "" {
					t.Fatalf("n=%d size=%d: empty segment text", n, size)
				}
				next = s.LastQuestion + 1
			}
			if next != n+1 {
				t.Fatalf("n=%d size=%d: Expected coverage up to %d, got %d", n, size, n, next-1)
			}
		}
	}
}

func TestPlan_ChunkLargerThanInput(t *testing.T) {
	segments := Plan(answers(3), 10, FormatFull, LanguageEnglish)
	if len(segments) != 1 {
		t.Fatalf("Expected 1 segment, got %d", len(segments))
	}
	if segments[0].Label != "Questions 1–3" {
		t.Errorf("Expected label 'Questions 1–3', got '%s'", segments[0].Label)
	}
	if segments[0].ID != "segment-0" {
		t.Errorf("Expected ID 'segment-0', got '%s'", segments[0].ID)
	}
}

func TestPlan_Formats(t *testing.T) {
	input := []AnswerEntry{{Question: 4, Answer: "B"}, {Question: 5, Answer: "D"}}

	full := Plan(input, 5, FormatFull, LanguageEnglish)[0].Text
	expectedFull := `Question 4, answer B. <break time="400ms"/> Question 5, answer D`
	if full != expectedFull {
		t.Errorf("Expected full text %q, got %q", expectedFull, full)
	}

	compact := Plan(input, 5, FormatCompact, LanguageEnglish)[0].Text
	expectedCompact := `4B. <break time="300ms"/> 5D`
	if compact != expectedCompact {
		t.Errorf("Expected compact text %q, got %q", expectedCompact, compact)
	}

	answerOnly := Plan(input, 5, FormatAnswerOnly, LanguageEnglish)[0].Text
	expectedAnswerOnly := `B. <break time="300ms"/> D`
	if answerOnly != expectedAnswerOnly {
		t.Errorf("Expected answer-only text %q, got %q", expectedAnswerOnly, answerOnly)
	}
}

func TestPlan_Arabic(t *testing.T) {
	segments := Plan([]AnswerEntry{{Question: 1, Answer: "A"}, {Question: 2, Answer: "C"}}, 10, FormatFull, LanguageArabic)
	if segments[0].Label != "أسئلة 1–2" {
		t.Errorf("Expected Arabic label, got '%s'", segments[0].Label)
	}
	if !strings.HasPrefix(segments[0].Text, "السؤال رقم 1، الإجابة A") {
		t.Errorf("Expected Arabic phrasing, got '%s'", segments[0].Text)
	}
}

func TestPlan_PreservesInputOrder(t *testing.T) {
	input := []AnswerEntry{{Question: 3, Answer: "A"}, {Question: 7, Answer: "B"}, {Question: 9, Answer: "C"}}
	segments := Plan(input, 2, FormatCompact, LanguageEnglish)
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}
	if segments[0].ID != "segment-0" || segments[1].ID != "segment-2" {
		t.Errorf("Expected IDs segment-0 and segment-2, got %s and %s", segments[0].ID, segments[1].ID)
	}
	if segments[1].Label != "Questions 9–9" {
		t.Errorf("Expected label 'Questions 9–9', got '%s'", segments[1].Label)
	}
}

func TestPlan_NonPositiveChunkSize(t *testing.T) {
	segments := Plan(answers(3), 0, FormatCompact, LanguageEnglish)
	if len(segments) != 3 {
		t.Errorf("Expected 3 segments, got %d", len(segments))
	}
}

func TestStripPauseMarkers(t *testing.T) {
	got := StripPauseMarkers(`1A. <break time="300ms"/> 2B`)
	if strings.Contains(got, "<break") {
		t.Errorf("Expected markers removed, got %q", got)
	}
	if got != "1A.   2B" {
		t.Errorf("Expected '1A.   2B', got %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	if _, err := ParseFormat("answer_only"); err != nil {
		t.Errorf("Expected answer_only to parse, got %v", err)
	}
	if _, err := ParseFormat("verbose"); err == nil {
		t.Error("Expected error for unknown format")
	}
}
