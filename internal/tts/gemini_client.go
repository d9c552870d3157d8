package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/drcorrector/answer-audio/internal/config"
	"github.com/drcorrector/answer-audio/internal/observability"
	"github.com/drcorrector/answer-audio/internal/resilience"
)

const breakerName = "gemini-tts"

// GeminiClient implements Synthesizer with Gemini's audio output modality
type GeminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryConfig
	logger  zerolog.Logger
}

// NewGeminiClient creates a speech client from configuration
func NewGeminiClient(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*GeminiClient, error) {
	var client *genai.Client
	if cfg.GeminiAPIKey != "" {
		var err error
		client, err = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    cfg.GeminiBaseURL,
				APIVersion: cfg.GeminiAPIVersion,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create speech client: %w", err)
		}
	}

	breaker := resilience.NewCircuitBreaker(
		breakerName,
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)
	breaker.OnStateChange(func(name string, state resilience.CircuitState) {
		observability.UpdateCircuitBreakerState(name, int(state))
		logger.Warn().Str("breaker", name).Str("state", state.String()).Msg("Circuit breaker state changed")
	})

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.RetryMaxAttempts
	retry.InitialBackoff = time.Duration(cfg.RetryInitialBackoff) * time.Millisecond

	return &GeminiClient{
		client:  client,
		model:   cfg.GeminiTTSModel,
		timeout: time.Duration(cfg.GeminiTTSTimeout) * time.Second,
		breaker: breaker,
		retry:   retry,
		logger:  logger,
	}, nil
}

// Synthesize renders text and returns the base64 PCM payload
func (c *GeminiClient) Synthesize(ctx context.Context, text, voice string) (string, error) {
	if c.client == nil {
		return "", &ProviderError{Message: "speech provider API key is not configured"}
	}

	genCfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voice},
			},
		},
	}

	var pcm []byte
	attempt := 0
	err := resilience.Retry(ctx, func(ctx context.Context) error {
		attempt++
		return c.breaker.Call(func() error {
			data, err := c.generate(ctx, text, genCfg)
			if err != nil {
				c.logger.Debug().Err(err).Int("attempt", attempt).Msg("Speech request failed")
				return err
			}
			pcm = data
			return nil
		})
	}, c.retry, resilience.IsRetryableNetworkError)
	if err == nil {
		return base64.StdEncoding.EncodeToString(pcm), nil
	}

	var perr *ProviderError
	if ctx.Err() == nil && errors.As(err, &perr) {
		return "", perr
	}
	return "", &ProviderError{Err: err}
}

// CheckReady reports whether the client is usable; it does not call the API
func (c *GeminiClient) CheckReady(ctx context.Context) (bool, error) {
	if c.client == nil {
		return false, errors.New("speech provider API key is not configured")
	}
	state, requests, failures, rate := c.breaker.Stats()
	if state == resilience.StateOpen {
		return false, fmt.Errorf("%w: %d of %d speech requests failed (%.0f%%)", resilience.ErrCircuitOpen, failures, requests, rate)
	}
	return true, nil
}

func (c *GeminiClient) generate(ctx context.Context, text string, genCfg *genai.GenerateContentConfig) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(text), genCfg)
	if err != nil {
		apiErr, ok := asAPIError(err)
		if !ok {
			return nil, &ProviderError{Err: err}
		}
		perr := &ProviderError{StatusCode: apiErr.Code, Message: apiErr.Message, Err: err}
		if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
			return nil, resilience.NewRetryableError(perr)
		}
		return nil, perr
	}

	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, p := range cand.Content.Parts {
			if p != nil && p.InlineData != nil && len(p.InlineData.Data) > 0 {
				return p.InlineData.Data, nil
			}
		}
	}
	return nil, &ProviderError{StatusCode: http.StatusOK, Message: "response contained no audio"}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}
