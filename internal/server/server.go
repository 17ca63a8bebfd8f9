package server

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/shobdo/internal/history"
	"github.com/dgnsrekt/shobdo/internal/tts"
	"github.com/dgnsrekt/shobdo/internal/ttypes"
	"github.com/dgnsrekt/shobdo/internal/voices"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRequestTimeout = 90 * time.Second
	bodyLimit             = 256 * 1024
)

// Config wires a Server to its collaborators.
type Config struct {
	// Synthesizer performs the speech round trip (required)
	Synthesizer *tts.Synthesizer

	// Voices resolves persona queries (defaults to voices.Default)
	Voices *voices.Catalog

	// History records generations; nil disables the history routes
	History *history.Store

	// Metrics are exported on /metrics (defaults to NewMetrics)
	Metrics *Metrics

	// Logger receives request outcomes; nil discards them
	Logger *log.Logger

	// RequestTimeout bounds one synthesis (defaults to 90s)
	RequestTimeout time.Duration
}

// Server is the HTTP surface of shobdo.
type Server struct {
	app     *fiber.App
	synth   *tts.Synthesizer
	voices  *voices.Catalog
	history *history.Store
	metrics *Metrics
	logger  *log.Logger
	timeout time.Duration
}

// speechRequest is the body of POST /api/v1/speech.
type speechRequest struct {
	Text     string           `json:"text"`
	Voice    string           `json:"voice"`
	Settings *ttypes.Settings `json:"settings,omitempty"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// New builds the server and registers its routes.
func New(config Config) (*Server, error) {
	if config.Synthesizer == nil {
		return nil, errors.New("server needs a synthesizer")
	}
	if config.Voices == nil {
		config.Voices = voices.Default()
	}
	if config.Metrics == nil {
		config.Metrics = NewMetrics()
	}
	if config.Logger == nil {
		config.Logger = log.New(io.Discard)
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = defaultRequestTimeout
	}

	s := &Server{
		synth:   config.Synthesizer,
		voices:  config.Voices,
		history: config.History,
		metrics: config.Metrics,
		logger:  config.Logger,
		timeout: config.RequestTimeout,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "shobdo",
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.app.Use(s.countRequests)

	s.app.Get("/healthz", s.health)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	api := s.app.Group("/api/v1")
	api.Post("/speech", s.speech)
	api.Get("/voices", s.listVoices)
	api.Get("/history", s.listHistory)
	api.Get("/history/:id/audio", s.historyAudio)
	api.Delete("/history/:id", s.deleteHistory)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) countRequests(c *fiber.Ctx) error {
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	} else if err != nil {
		status = fiber.StatusInternalServerError
	}

	s.metrics.HTTPRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

func (s *Server) health(c *fiber.Ctx) error {
	info := s.synth.Info()
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  info.Name,
		"model":   info.Model,
		"history": s.history != nil,
	})
}

func (s *Server) speech(c *fiber.Ctx) error {
	var req speechRequest
	if err := c.BodyParser(&req); err != nil {
		s.metrics.SynthesisRequests.WithLabelValues(outcomeClientError).Inc()
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid JSON body"})
	}

	voice := s.voices.First()
	if strings.TrimSpace(req.Voice) != "" {
		v, err := s.voices.Find(req.Voice)
		if err != nil {
			s.metrics.SynthesisRequests.WithLabelValues(outcomeClientError).Inc()
			return s.fail(c, err)
		}
		voice = v
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.timeout)
	defer cancel()

	start := time.Now()
	result, err := s.synth.Generate(ctx, ttypes.GenerationRequest{
		Text:     req.Text,
		Voice:    voice.PrebuiltName,
		Settings: req.Settings,
	})
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.SynthesisRequests.WithLabelValues(outcomeFor(err)).Inc()
		s.logger.Warn("Synthesis failed", "voice", voice.ID, "err", err)
		return s.fail(c, err)
	}

	s.metrics.SynthesisRequests.WithLabelValues(outcomeSuccess).Inc()
	s.metrics.SynthesisDuration.Observe(elapsed.Seconds())
	s.metrics.AudioSeconds.Add(result.Buffer.Duration().Seconds())

	gen := history.Generation{
		Text:     strings.TrimSpace(req.Text),
		VoiceID:  voice.ID,
		Voice:    voice.PrebuiltName,
		Duration: result.Buffer.Duration(),
	}
	if req.Settings != nil {
		gen.Settings = *req.Settings
	}
	gen = s.record(gen, result.WAV.Data)

	s.logger.Info("Synthesized speech", "id", gen.ID, "voice", voice.ID, "audio", gen.Duration, "took", elapsed)

	c.Set("X-Generation-Id", gen.ID)
	c.Attachment(history.FileName(gen))
	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(result.WAV.Data)
}

// record saves gen when history is on. A failed save is logged and the
// generation keeps a fresh ID so the caller still gets its audio.
func (s *Server) record(gen history.Generation, wav []byte) history.Generation {
	if s.history != nil {
		saved, err := s.history.Save(gen, wav)
		if err == nil {
			return saved
		}
		s.logger.Warn("Unable to save generation", "err", err)
	}
	gen.ID = uuid.NewString()
	return gen
}

func (s *Server) listVoices(c *fiber.Ctx) error {
	return c.JSON(s.voices.All())
}

func (s *Server) listHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return c.JSON([]history.Generation{})
	}
	return c.JSON(s.history.List())
}

func (s *Server) historyAudio(c *fiber.Ctx) error {
	if s.history == nil {
		return s.historyDisabled(c)
	}
	id := c.Params("id")

	gen, err := s.history.Get(id)
	if err != nil {
		return s.fail(c, err)
	}
	data, err := s.history.Audio(id)
	if err != nil {
		return s.fail(c, err)
	}

	c.Attachment(history.FileName(gen))
	c.Set(fiber.HeaderContentType, "audio/wav")
	return c.Send(data)
}

func (s *Server) deleteHistory(c *fiber.Ctx) error {
	if s.history == nil {
		return s.historyDisabled(c)
	}
	if err := s.history.Delete(c.Params("id")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) historyDisabled(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(errorResponse{Error: "history is disabled", Code: string(ttypes.ErrorCodeNotFound)})
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(errorResponse{
		Error: err.Error(),
		Code:  string(ttypes.CodeOf(err)),
	})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case ttypes.IsClientError(err):
		return fiber.StatusBadRequest
	case errors.Is(err, ttypes.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, ttypes.ErrEmptyResponse),
		errors.Is(err, ttypes.ErrSynthesisFailed),
		errors.Is(err, ttypes.ErrMalformedInput),
		errors.Is(err, ttypes.ErrInvalidPCMLength),
		errors.Is(err, ttypes.ErrInvalidAudioBuffer):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func outcomeFor(err error) string {
	switch {
	case ttypes.IsClientError(err):
		return outcomeClientError
	case errors.Is(err, ttypes.ErrEmptyResponse):
		return outcomeEmptyResponse
	default:
		return outcomeFailed
	}
}
