// Package server exposes the upload, trigger and download workflow over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"snapshotfetcher/internal/coordinator"
	"snapshotfetcher/internal/table"
)

const defaultMaxUploadBytes = 10 << 20

// Config holds server configuration
type Config struct {
	Port           int
	SheetName      string
	MaxUploadBytes int64
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	coord      *coordinator.Coordinator
	jobs       *jobStore
	sheetName  string
	maxUpload  int64
	logger     *slog.Logger

	// baseCtx scopes background batches; cancelled on shutdown.
	baseCtx context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
}

// New creates a new server instance
func New(cfg Config, coord *coordinator.Coordinator) *Server {
	if cfg.SheetName == "" {
		cfg.SheetName = table.DefaultSheetName
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		coord:     coord,
		jobs:      newJobStore(),
		sheetName: cfg.SheetName,
		maxUpload: cfg.MaxUploadBytes,
		logger:    slog.Default().With("component", "server"),
		baseCtx:   ctx,
		cancel:    cancel,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /uploads", s.handleUpload)
	mux.HandleFunc("POST /jobs/{id}/run", s.handleRun)
	mux.HandleFunc("GET /jobs/{id}", s.handleStatus)
	mux.HandleFunc("GET /jobs/{id}/download", s.handleDownload)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// cancels any batch still running.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	return s.Shutdown()
}

// Shutdown stops accepting requests and cancels running batches.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()
	s.running.Wait()

	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// runJob executes j on the server's background context.
func (s *Server) runJob(j *Job) {
	s.running.Add(1)
	go func() {
		defer s.running.Done()

		logger := s.logger.With("job", j.ID.String())
		logger.Info("batch started", "tickers", len(j.Tickers))

		result, err := s.coord.Run(s.baseCtx, j.Tickers, j.observe)
		j.finish(result, err)

		if err != nil {
			logger.Warn("batch interrupted", "error", err, "processed", result.Len())
			return
		}
		summary := result.Summarize()
		logger.Info("batch finished", "succeeded", summary.Succeeded, "failed", summary.Failed)
	}()
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
