package recognizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kozaktomas/facewatch/internal/constants"
	"github.com/kozaktomas/facewatch/internal/recognition/remote"
	"github.com/kozaktomas/facewatch/internal/web/middleware"
)

// Server exposes a Service over HTTP.
type Server struct {
	service    *Service
	router     *chi.Mux
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the HTTP server for svc.
func NewServer(svc *Service, host string, port int) *Server {
	r := chi.NewRouter()
	s := &Server{service: svc, router: r, logger: svc.logger}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.CORS(nil))

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Post("/recognize", s.handleRecognize)
	r.Post("/verify", s.handleVerify)
	r.Post("/reload", s.handleReload)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting recognition service", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down recognition service")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, remote.ErrorResponse{Success: false, Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxImageBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Health())
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Info())
}

func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	if !s.service.Health().EmbeddingsLoaded {
		respondJSON(w, http.StatusBadRequest, remote.ErrorResponse{
			Success: false,
			Error:   ErrNoEmbeddings.Error(),
			Message: "run `facewatch train` first",
		})
		return
	}

	var req remote.RecognizeRequest
	if err := decodeBody(w, r, &req); err != nil || req.Image == "" {
		respondError(w, http.StatusBadRequest, "no image provided")
		return
	}
	image, err := DecodeImage(req.Image)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.service.Recognize(r.Context(), image)
	switch {
	case errors.Is(err, ErrNoEmbeddings):
		respondError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.logger.Error("recognition failed", "error", err)
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req remote.VerifyRequest
	if err := decodeBody(w, r, &req); err != nil || req.Image1 == "" || req.Image2 == "" {
		respondError(w, http.StatusBadRequest, "two images are required")
		return
	}
	img1, err := DecodeImage(req.Image1)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	img2, err := DecodeImage(req.Image2)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := s.service.Verify(r.Context(), img1, img2)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	set, err := s.service.Reload(r.Context())
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		respondError(w, http.StatusInternalServerError, "could not load embeddings")
		return
	}
	respondJSON(w, http.StatusOK, remote.ReloadResponse{
		Success: true,
		Message: fmt.Sprintf("embeddings of %s reloaded", set.Name),
	})
}
