package synthesis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/drcorrector/answer-audio/internal/audio"
	"github.com/drcorrector/answer-audio/internal/observability"
	"github.com/drcorrector/answer-audio/internal/segment"
	"github.com/drcorrector/answer-audio/internal/tts"
)

// Orchestrator turns planned text segments into playable audio segments
type Orchestrator struct {
	synth   tts.Synthesizer
	utterer Utterer
	logger  zerolog.Logger
	tracer  trace.Tracer
	newID   func() string
}

// NewOrchestrator creates an orchestrator. utterer may be nil.
func NewOrchestrator(synth tts.Synthesizer, utterer Utterer, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		synth:   synth,
		utterer: utterer,
		logger:  logger,
		tracer:  otel.Tracer("answer-audio/synthesis"),
		newID:   func() string { return uuid.New().String() },
	}
}

// Generate synthesizes every segment and returns them in input order. With
// the gemini backend all requests run concurrently and the call returns only
// after each has settled; any failure fails the whole run.
func (o *Orchestrator) Generate(ctx context.Context, segments []segment.TextSegment, opts Options, onProgress ProgressFunc) (*Run, error) {
	if onProgress == nil {
		onProgress = func(int, int) {}
	}
	if opts.Backend == "" {
		opts.Backend = BackendGemini
	}

	run := &Run{ID: o.newID(), Backend: opts.Backend, Segments: []segment.AudioSegment{}}
	logger := observability.WithCorrelationID(o.logger, run.ID)

	ctx, span := o.tracer.Start(ctx, "synthesis.generate", trace.WithAttributes(
		attribute.String("run.id", run.ID),
		attribute.String("backend", string(opts.Backend)),
		attribute.String("voice", opts.Voice),
		attribute.Int("segments", len(segments)),
	))
	defer span.End()

	if len(segments) == 0 {
		return run, nil
	}

	start := time.Now()
	var err error
	switch opts.Backend {
	case BackendBrowser:
		run.Segments = o.browserSegments(ctx, segments, onProgress)
	case BackendGemini:
		run.Segments, err = o.fanOut(ctx, run.ID, segments, opts.Voice, onProgress, logger)
	default:
		_, err = ParseBackend(string(opts.Backend))
	}

	observability.RecordGeneration(string(opts.Backend), err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Int("segments", len(segments)).Msg("Generation run failed")
		return nil, err
	}

	logger.Info().
		Int("segments", len(run.Segments)).
		Dur("elapsed", time.Since(start)).
		Msg("Generation run completed")
	return run, nil
}

type result struct {
	seg segment.AudioSegment
	err error
}

func (o *Orchestrator) fanOut(ctx context.Context, runID string, segments []segment.TextSegment, voice string, onProgress ProgressFunc, logger zerolog.Logger) ([]segment.AudioSegment, error) {
	total := len(segments)
	results := make([]result, total)

	var (
		mu       sync.Mutex
		done     int
		firstErr error
		wg       sync.WaitGroup
	)

	for i, seg := range segments {
		wg.Add(1)
		go func(i int, seg segment.TextSegment) {
			defer wg.Done()

			audioSeg, err := o.synthesizeOne(ctx, runID, seg, voice, logger)
			results[i] = result{seg: audioSeg, err: err}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = &SynthesisError{SegmentID: seg.ID, Err: err}
				}
				return
			}
			done++
			observability.SetGenerationProgress(done, total)
			onProgress(done, total)
		}(i, seg)
	}
	wg.Wait()

	if firstErr != nil {
		observability.SetGenerationProgress(0, total)
		onProgress(0, total)
		return nil, firstErr
	}

	out := make([]segment.AudioSegment, total)
	for i, r := range results {
		out[i] = r.seg
	}
	return out, nil
}

func (o *Orchestrator) synthesizeOne(ctx context.Context, runID string, seg segment.TextSegment, voice string, logger zerolog.Logger) (segment.AudioSegment, error) {
	ctx, span := o.tracer.Start(ctx, "synthesis.segment", trace.WithAttributes(
		attribute.String("segment.id", seg.ID),
		attribute.Int("text.length", len(seg.Text)),
	))
	defer span.End()

	start := time.Now()
	payload, err := o.synth.Synthesize(ctx, seg.Text, voice)
	var samples []int16
	if err == nil {
		samples, err = audio.DecodeSamples(payload)
	}
	observability.RecordSynthesis(err == nil, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Warn().Err(err).Str("segment_id", seg.ID).Msg("Segment synthesis failed")
		return segment.AudioSegment{}, err
	}

	if audio.DetectSilence(samples, audio.SilenceThreshold) {
		logger.Warn().Str("segment_id", seg.ID).Int("samples", len(samples)).Msg("Synthesized segment is silent")
	}

	container := audio.EncodeWAV(samples, audio.ProviderSampleRate, audio.ProviderChannels)
	observability.RecordContainerBytes(len(container))
	span.SetAttributes(attribute.Int("container.bytes", len(container)))

	return segment.AudioSegment{
		TextSegment: seg,
		Container:   container,
		Handle:      HandleFor(runID, seg.ID),
	}, nil
}

func (o *Orchestrator) browserSegments(ctx context.Context, segments []segment.TextSegment, onProgress ProgressFunc) []segment.AudioSegment {
	out := make([]segment.AudioSegment, len(segments))
	for i, seg := range segments {
		out[i] = segment.AudioSegment{TextSegment: seg, Handle: segment.BrowserHandle}
		if o.utterer != nil {
			o.utterer.Utter(ctx, seg.ID, segment.StripPauseMarkers(seg.Text))
		}
		onProgress(i+1, len(segments))
	}
	return out
}
