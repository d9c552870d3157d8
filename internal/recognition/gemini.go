package recognition

import (
	"context"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/drcorrector/answer-audio/internal/observability"
)

const sheetPrompt = `Analyze this image of a multiple-choice answer sheet. Extract the question number and the corresponding answer for each entry. ` +
	`Provide the output as a JSON object with this exact structure: {"questions": [{"q": number, "answer": "string", "confidence": number between 0 and 1}], "raw_text": "string"}. ` +
	`The 'answer' should be a single character (A, B, C, D) or a simple identifier. The 'confidence' should be your estimated accuracy for that specific entry. ` +
	`Normalize answers like '1-A' or '1 A' to just 'A'. If you cannot determine an answer, you can omit it. Sort the results by question number 'q'.`

var sheetSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"questions": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"q":          {Type: genai.TypeInteger, Description: "Question number"},
					"answer":     {Type: genai.TypeString, Description: "Selected answer (e.g., A, B, C, D)"},
					"confidence": {Type: genai.TypeNumber, Description: "Confidence score from 0.0 to 1.0"},
				},
				Required: []string{"q", "answer", "confidence"},
			},
		},
		"raw_text": {Type: genai.TypeString, Description: "The full raw text extracted from the image."},
	},
	Required: []string{"questions", "raw_text"},
}

// GeminiRecognizer recognizes answer sheets with a Gemini vision model
type GeminiRecognizer struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger zerolog.Logger
}

// NewGeminiRecognizer creates a recognizer for the named model
func NewGeminiRecognizer(ctx context.Context, apiKey, modelName string, logger zerolog.Logger) (*GeminiRecognizer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, &RecognitionError{Reason: "failed to create model client", Err: err}
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = sheetSchema

	return &GeminiRecognizer{client: client, model: model, logger: logger}, nil
}

// Recognize sends the image to the model and parses the answer list
func (g *GeminiRecognizer) Recognize(ctx context.Context, image []byte, mimeType string) (*Result, error) {
	if len(image) == 0 {
		return nil, &RecognitionError{Reason: "empty image"}
	}

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(sheetPrompt), genai.Blob{MIMEType: mimeType, Data: image})
	if err != nil {
		observability.RecordRecognition(false)
		return nil, &RecognitionError{Reason: "model request failed", Err: err}
	}

	res, err := parseResult(responseText(resp))
	observability.RecordRecognition(err == nil)
	if err != nil {
		return nil, err
	}

	g.logger.Info().
		Int("answers", len(res.Questions)).
		Dur("elapsed", time.Since(start)).
		Msg("Answer sheet recognized")
	return res, nil
}

// Close releases the underlying client
func (g *GeminiRecognizer) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
		if sb.Len() > 0 {
			break
		}
	}
	return sb.String()
}
