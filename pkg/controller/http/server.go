package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/usecase"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/errutil"
	"github.com/surana-mudit/whatsapp-memory-assistant/pkg/utils/logging"
)

type Server struct {
	router          *chi.Mux
	uc              *usecase.UseCases
	twilioAuthToken string
	now             func() time.Time
}

type Options func(*Server)

// WithTwilioAuthToken enables X-Twilio-Signature verification on the
// webhook route. Without a token the webhook accepts unsigned
// requests, which is only acceptable for local development.
func WithTwilioAuthToken(token string) Options {
	return func(s *Server) {
		s.twilioAuthToken = token
	}
}

func WithClock(now func() time.Time) Options {
	return func(s *Server) {
		s.now = now
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.rootHandler)
	r.Get("/health", s.healthHandler)

	r.Route("/hooks/twilio", func(r chi.Router) {
		if s.twilioAuthToken != "" {
			r.Use(TwilioSignatureMiddleware(s.twilioAuthToken))
		}
		r.Post("/", s.twilioWebhookHandler)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/memories", s.createMemoryHandler)
		r.Get("/memories", s.searchMemoriesHandler)
		r.Get("/memories/list", s.listMemoriesHandler)
		r.Delete("/memories/{memoryID}", s.deleteMemoryHandler)
		r.Get("/interactions/recent", s.recentInteractionsHandler)
		r.Get("/stats", s.statsHandler)
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) rootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "whatsapp-memory-assistant",
	})
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	database := "connected"
	if _, err := s.uc.Stats(r.Context()); err != nil {
		database = "error"
	}

	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"services": map[string]string{
			"database": database,
		},
	})
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data) //nolint:errcheck // header already committed
}
