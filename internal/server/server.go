package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/drcorrector/answer-audio/internal/library"
	"github.com/drcorrector/answer-audio/internal/playback"
	"github.com/drcorrector/answer-audio/internal/recognition"
	"github.com/drcorrector/answer-audio/internal/segment"
	"github.com/drcorrector/answer-audio/internal/settings"
	"github.com/drcorrector/answer-audio/internal/synthesis"
)

// Generator produces audio segments for planned text
type Generator interface {
	Generate(ctx context.Context, segments []segment.TextSegment, opts synthesis.Options, onProgress synthesis.ProgressFunc) (*synthesis.Run, error)
}

// Deps are the collaborators served over HTTP
type Deps struct {
	Recognizer    recognition.Recognizer
	Generator     Generator
	Library       *library.Library
	Settings      *settings.Store
	Player        *playback.Controller
	Hub           *Hub
	MaxUploadSize int64
	Logger        zerolog.Logger
}

// Server exposes the answer sheet workflow to a single user
type Server struct {
	Deps

	mu      sync.Mutex
	answers []segment.AnswerEntry

	generating atomic.Bool
}

// New creates a server
func New(deps Deps) *Server {
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = 10 << 20
	}
	return &Server{Deps: deps, answers: []segment.AnswerEntry{}}
}

// Register adds the API routes to mux
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /recognize", s.handleRecognize)
	mux.HandleFunc("GET /answers", s.handleGetAnswers)
	mux.HandleFunc("PUT /answers", s.handlePutAnswers)
	mux.HandleFunc("PATCH /answers/{question}", s.handlePatchAnswer)

	mux.HandleFunc("GET /settings", s.handleGetSettings)
	mux.HandleFunc("PUT /settings", s.handlePutSettings)

	mux.HandleFunc("POST /plan", s.handlePlan)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /segments", s.handleSegments)
	mux.HandleFunc("GET /segments/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /audio/{run}/{file}", s.handleAudio)

	mux.HandleFunc("GET /playback", s.handlePlayback)
	mux.HandleFunc("POST /playback/play", s.handlePlay)
	mux.HandleFunc("POST /playback/toggle", s.handleToggle)
	mux.HandleFunc("POST /playback/seek", s.handleSeek)
	mux.HandleFunc("POST /playback/skip", s.handleSkip)
	mux.HandleFunc("POST /playback/volume", s.handleVolume)
	mux.HandleFunc("POST /playback/rate", s.handleRate)
	mux.HandleFunc("POST /playback/close", s.handleClose)

	mux.HandleFunc("GET /events", s.handleEvents)
}

// Answers returns a copy of the current answer list
func (s *Server) Answers() []segment.AnswerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]segment.AnswerEntry{}, s.answers...)
}

func (s *Server) setAnswers(entries []segment.AnswerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append([]segment.AnswerEntry{}, entries...)
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadSize)
	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing image field")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}

	res, err := s.Recognizer.Recognize(r.Context(), image, mimeType)
	if err != nil {
		s.Logger.Error().Err(err).Msg("Answer sheet recognition failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	recognition.SortEntries(res.Questions)
	s.setAnswers(res.Questions)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetAnswers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Answers())
}

func (s *Server) handlePutAnswers(w http.ResponseWriter, r *http.Request) {
	var entries []segment.AnswerEntry
	if !decodeBody(w, r, &entries) {
		return
	}
	for _, e := range entries {
		if e.Question < 1 {
			writeError(w, http.StatusBadRequest, "question numbers must be positive")
			return
		}
	}
	s.setAnswers(entries)
	writeJSON(w, http.StatusOK, s.Answers())
}

func (s *Server) handlePatchAnswer(w http.ResponseWriter, r *http.Request) {
	q, err := strconv.Atoi(r.PathValue("question"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question number")
		return
	}
	var body struct {
		Answer string `json:"answer"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	s.mu.Lock()
	var updated *segment.AnswerEntry
	for i := range s.answers {
		if s.answers[i].Question == q {
			s.answers[i].Answer = strings.ToUpper(body.Answer)
			updated = &s.answers[i]
			break
		}
	}
	var entry segment.AnswerEntry
	if updated != nil {
		entry = *updated
	}
	s.mu.Unlock()

	if updated == nil {
		writeError(w, http.StatusNotFound, "no answer for question "+strconv.Itoa(q))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Settings.Get())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	// Fields missing from the body keep their current values
	next := s.Settings.Get()
	if !decodeBody(w, r, &next) {
		return
	}
	if err := s.Settings.Update(next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	current := s.Settings.Get()
	s.Hub.Broadcast(Message{Type: MsgSettings, Data: current})
	writeJSON(w, http.StatusOK, current)
}

func (s *Server) plan() []segment.TextSegment {
	st := s.Settings.Get()
	return segment.Plan(s.Answers(), st.QuestionsPerSegment, st.AnswerFormat, st.Language)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.plan())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if !s.generating.CompareAndSwap(false, true) {
		writeError(w, http.StatusConflict, "a generation run is already in progress")
		return
	}
	defer s.generating.Store(false)

	segs := s.plan()
	if len(segs) == 0 {
		writeError(w, http.StatusBadRequest, "no answers to generate")
		return
	}

	// Handles from the previous run die with the library contents
	s.Player.Close()
	s.Library.Clear()

	st := s.Settings.Get()
	opts := synthesis.Options{Voice: st.Voice, Backend: st.Backend}
	start := time.Now()
	run, err := s.Generator.Generate(r.Context(), segs, opts, func(done, total int) {
		s.Hub.Broadcast(Message{Type: MsgProgress, Data: progressData{Done: done, Total: total}})
	})
	if err != nil {
		data := errorData{Error: err.Error()}
		var serr *synthesis.SynthesisError
		if errors.As(err, &serr) {
			data.SegmentID = serr.SegmentID
		}
		s.Hub.Broadcast(Message{Type: MsgFailed, Data: data})
		writeJSON(w, http.StatusBadGateway, data)
		return
	}

	s.Library.Replace(run.ID, run.Segments)
	s.Hub.Broadcast(Message{Type: MsgGenerated, Data: run})
	s.Logger.Info().
		Str("run_id", run.ID).
		Int("segments", len(run.Segments)).
		Dur("elapsed", time.Since(start)).
		Msg("Segments ready")
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":   s.Library.RunID(),
		"segments": s.Library.List(),
	})
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	data, err := s.Library.Open(r.URL.Path)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	http.ServeContent(w, r, r.PathValue("file"), time.Time{}, bytes.NewReader(data))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	seg, err := s.Library.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	name, err := library.DownloadName(seg)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(seg.Container)))
	w.WriteHeader(http.StatusOK)
	w.Write(seg.Container)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Player.Snapshot())
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SegmentID string `json:"segment_id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	seg, err := s.Library.Get(body.SegmentID)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.playbackResult(w, s.Player.PlaySegment(seg))
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	s.playbackResult(w, s.Player.TogglePlayPause())
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Fraction float64 `json:"fraction"`
	}
	if decodeBody(w, r, &body) {
		s.playbackResult(w, s.Player.Seek(body.Fraction))
	}
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Seconds float64 `json:"seconds"`
	}
	if decodeBody(w, r, &body) {
		s.playbackResult(w, s.Player.Skip(body.Seconds))
	}
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume float64 `json:"volume"`
	}
	if decodeBody(w, r, &body) {
		s.playbackResult(w, s.Player.SetVolume(body.Volume))
	}
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rate float64 `json:"rate"`
	}
	if decodeBody(w, r, &body) {
		s.playbackResult(w, s.Player.SetRate(body.Rate))
	}
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	s.Player.Close()
	s.playbackResult(w, nil)
}

func (s *Server) playbackResult(w http.ResponseWriter, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.Player.Snapshot())
	case errors.Is(err, playback.ErrUnplayableSegment):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, playback.ErrInvalidRate), errors.Is(err, playback.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.Logger.Error().Err(err).Msg("Playback operation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	s.Hub.ServeWS(w, r,
		Message{Type: MsgSettings, Data: s.Settings.Get()},
		Message{Type: MsgPlayback, Data: s.Player.Snapshot()},
	)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorData{Error: msg})
}
