package registryapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/bitfsorg/docnotary-go/digest"
	"github.com/bitfsorg/docnotary-go/logger"
	"github.com/bitfsorg/docnotary-go/registry"
)

// maxRequestBody bounds a store request body.
const maxRequestBody = 64 << 10

// Server serves a registry.Ledger over HTTP.
type Server struct {
	ledger registry.Ledger
	log    *logger.Logger
}

// NewServer creates a Server for ledger.
func NewServer(ledger registry.Ledger, log *logger.Logger) *Server {
	return &Server{ledger: ledger, log: logger.OrNop(log).Named("registryapi")}
}

// Routes builds the router.
func (s *Server) Routes() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(s.withLogging)

	router.Route("/v1", func(r chi.Router) {
		r.Post("/documents", s.store)
		r.Get("/documents/{digest}", s.get)
		r.Get("/documents/{digest}/exists", s.verify)
		r.Get("/owners/{owner}/documents", s.list)
	})
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("registry server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("registryapi: serve: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("registryapi: shutdown: %w", err)
		}
		s.log.Info().Msg("registry server stopped")
		return nil
	}
}

func (s *Server) store(w http.ResponseWriter, r *http.Request) {
	var body StoreRequestBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", registry.ErrInvalidRequest, err))
		return
	}

	sig, err := decodeSig(body.Signature)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", registry.ErrInvalidRequest, err))
		return
	}

	receipt, err := s.ledger.Store(r.Context(), registry.StoreRequest{
		Digest:    body.Digest,
		Locator:   body.Locator,
		Owner:     body.Owner,
		Signature: sig,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, receiptToBody(receipt))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	d, err := digest.Parse(chi.URLParam(r, "digest"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", registry.ErrInvalidRequest, err))
		return
	}

	rec, ok, err := s.ledger.Get(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		s.writeError(w, r, registry.ErrNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, recordToBody(rec))
}

func (s *Server) verify(w http.ResponseWriter, r *http.Request) {
	d, err := digest.Parse(chi.URLParam(r, "digest"))
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %w", registry.ErrInvalidRequest, err))
		return
	}

	ok, err := s.ledger.Verify(r.Context(), d)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ExistsBody{Digest: d, Registered: ok})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	recs, err := s.ledger.List(r.Context(), owner)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := ListBody{Owner: owner, Documents: make([]RecordBody, 0, len(recs))}
	for _, rec := range recs {
		out.Documents = append(out.Documents, recordToBody(rec))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("write response")
	}
}

// writeError logs server-side failures through the request logger, which
// carries the request id, and writes the error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFromError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Str("uri", r.RequestURI).Msg("request failed")
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	s.writeJSON(w, status, ErrorBody{Error: msg, Code: code})
}

var errorStatusMap = []struct {
	err    error
	status int
	code   string
}{
	{registry.ErrAlreadyRegistered, http.StatusConflict, CodeAlreadyRegistered},
	{registry.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{registry.ErrInvalidRequest, http.StatusBadRequest, CodeInvalidRequest},
	{registry.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable},
	{context.DeadlineExceeded, http.StatusServiceUnavailable, CodeUnavailable},
}

func statusFromError(err error) (int, string) {
	for _, m := range errorStatusMap {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// responseWriter records the status and size written by a handler.
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *responseWriter) WriteHeader(status int) {
	if rw.status == 0 {
		rw.status = status
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lw := &responseWriter{ResponseWriter: w}
		reqLog := &logger.Logger{Logger: s.log.With().Str("request_id", middleware.GetReqID(r.Context())).Logger()}

		next.ServeHTTP(lw, r.WithContext(reqLog.WithContext(r.Context())))

		reqLog.Info().
			Str("uri", r.RequestURI).
			Str("method", r.Method).
			Int("status", lw.status).
			Dur("duration", time.Since(start)).
			Int("size", lw.size).
			Send()
	})
}
