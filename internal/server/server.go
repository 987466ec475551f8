// Package server exposes the attribute lookup service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/meridian-hpc/jobmeta/internal/auth"
	"github.com/meridian-hpc/jobmeta/internal/lookup"
)

// UserHeader carries the authenticated requester's user id. The
// deployment fronts this service with an authenticating proxy that
// sets the header; a request without it is treated as anonymous.
const UserHeader = "X-Jobmeta-User"

// Pinger is implemented by store backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server handles HTTP requests for the lookup API.
type Server struct {
	svc    *lookup.Service
	pinger Pinger
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP server around svc. pinger may be nil when the
// backend has no liveness check (the health endpoint then reports
// only process liveness).
func New(svc *lookup.Service, pinger Pinger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:    svc,
		pinger: pinger,
		logger: logger,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/lookup", s.handleLookup)
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// credentials derives the requester identity from the user header.
func credentials(r *http.Request) (auth.Credentials, error) {
	v := r.Header.Get(UserHeader)
	if v == "" {
		return auth.Credentials{Anonymous: true}, nil
	}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return auth.Credentials{}, err
	}
	return auth.Credentials{UserID: id}, nil
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	creds, err := credentials(r)
	if err != nil {
		s.writeError(w, lookup.CodeProto, "malformed "+UserHeader+" header")
		return
	}

	var req lookup.Request
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, lookup.CodeProto, "malformed request body")
		return
	}

	payload, err := s.svc.Lookup(r.Context(), req, creds)
	if err != nil {
		code := lookup.CodeOf(err)
		s.logger.Info("lookup failed",
			"id", req.ID, "code", string(code), "error", err)
		s.writeError(w, code, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("store ping failed", "error", err)
			status = "store unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// httpStatus maps service error codes onto HTTP statuses.
func httpStatus(code lookup.Code) int {
	switch code {
	case lookup.CodeProto:
		return http.StatusBadRequest
	case lookup.CodeDenied:
		return http.StatusForbidden
	case lookup.CodeInvalid:
		return http.StatusUnprocessableEntity
	case lookup.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, code lookup.Code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(code))
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": message,
		},
	})
}
