package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BrandonDHaskell/rollcall/internal/attendance/types"
	"github.com/BrandonDHaskell/rollcall/internal/hardware"
	"github.com/BrandonDHaskell/rollcall/internal/hardware/netreader"
	"github.com/BrandonDHaskell/rollcall/internal/metrics"
)

// TapSink accepts taps from networked reader modules.
type TapSink interface {
	Submit(ctx context.Context, moduleID, token string) error
	Touch(moduleID string) bool
}

// StatusSource reports the intake loop state.
type StatusSource interface {
	Snapshot() types.RunSnapshot
}

type Dependencies struct {
	Logger *slog.Logger
	Addr   string
	Taps   TapSink // optional
	Status StatusSource
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	mux        *http.ServeMux
	taps       TapSink
	status     StatusSource
}

func NewServer(d Dependencies) *Server {
	mux := http.NewServeMux()
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	s := &Server{
		logger: d.Logger,
		mux:    mux,
		taps:   d.Taps,
		status: d.Status,
	}

	// Without a tap sink the taps come from local hardware.
	if d.Taps != nil {
		mux.HandleFunc("POST /v1/tap", s.handleTap)
		mux.HandleFunc("POST /v1/heartbeat", s.handleHeartbeat)
	}
	mux.HandleFunc("GET /v1/session", s.handleSession)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := loggingMiddleware(d.Logger, mux)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	pb := isProtobuf(r)

	var req TapRequest
	if pb {
		if err := readTapProto(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_proto", "invalid protobuf body")
			return
		}
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	reply := func(status int, resp TapResponse) {
		if pb {
			writeTapProto(w, status, resp)
			return
		}
		writeJSON(w, status, resp)
	}

	err := s.taps.Submit(r.Context(), req.ModuleID, req.Token)
	resp := TapResponse{ModuleID: strings.TrimSpace(req.ModuleID)}
	switch {
	case err == nil:
		resp.Accepted = true
		reply(http.StatusAccepted, resp)
	case errors.Is(err, netreader.ErrEmptyToken):
		metrics.TrackTapRejected("empty_token")
		resp.Error = "invalid_token"
		reply(http.StatusBadRequest, resp)
	case errors.Is(err, netreader.ErrUnknownModule):
		// Unknown modules are blocked from the intake flow
		metrics.TrackTapRejected("unknown_module")
		resp.Error = "unknown_module"
		reply(http.StatusForbidden, resp)
	case errors.Is(err, netreader.ErrReaderBusy), errors.Is(err, hardware.ErrReaderClosed):
		metrics.TrackTapRejected("busy")
		w.Header().Set("Retry-After", "1")
		resp.Error = "busy"
		reply(http.StatusServiceUnavailable, resp)
	default:
		s.logger.ErrorContext(r.Context(), "tap submit failed", "module_id", req.ModuleID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req HeartbeatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ModuleID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_module_id", "module_id is required")
		return
	}

	writeJSON(w, http.StatusOK, HeartbeatResponse{
		OK:         true,
		ModuleID:   req.ModuleID,
		Known:      s.taps.Touch(req.ModuleID),
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Snapshot())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	snap := s.status.Snapshot()
	status := "serving"
	if snap.Verifying {
		status = "verifying"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status, "run_id": snap.RunID})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
