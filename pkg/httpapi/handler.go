package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jdziat/simple-callback-bridge/pkg/core"
	"github.com/jdziat/simple-callback-bridge/pkg/host"
	"github.com/jdziat/simple-callback-bridge/pkg/metrics"
	"github.com/jdziat/simple-callback-bridge/pkg/security"
)

// maxBodySize bounds an invoke body: every argument at its limit plus framing.
const maxBodySize = security.MaxArity * (security.MaxArgumentSize + 64)

// Handler serves a host's handles over HTTP.
type Handler struct {
	host     *host.Host
	gatherer prometheus.Gatherer
}

// NewHandler creates a Handler for h.
func NewHandler(h *host.Host) *Handler {
	return &Handler{host: h}
}

// SetGatherer enables GET /metrics backed by g.
func (h *Handler) SetGatherer(g prometheus.Gatherer) {
	h.gatherer = g
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/handles", h.ListHandles).Methods(http.MethodGet)
	r.HandleFunc("/handles/{id}", h.GetHandle).Methods(http.MethodGet)
	r.HandleFunc("/handles/{id}", h.ReleaseHandle).Methods(http.MethodDelete)
	r.HandleFunc("/handles/{id}/{method}", h.Invoke).Methods(http.MethodPost)
	if h.gatherer != nil {
		r.Handle("/metrics", metrics.Handler(h.gatherer)).Methods(http.MethodGet)
	}
}

// Router returns a new router with all routes registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// ListHandles returns the metadata of every active handle.
func (h *Handler) ListHandles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"handles": h.host.Handles()})
}

// GetHandle returns a handle's metadata.
func (h *Handler) GetHandle(w http.ResponseWriter, r *http.Request) {
	meta, err := h.host.Metadata(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// ReleaseHandle releases a handle.
func (h *Handler) ReleaseHandle(w http.ResponseWriter, r *http.Request) {
	if err := h.host.Release(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Invoke calls a handle's method with the arguments in the request body.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var raw []*string
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: " + err.Error()})
		return
	}
	args := make([]string, len(raw))
	for i, a := range raw {
		if a != nil {
			args[i] = *a
		}
	}

	out, err := h.host.Call(r.Context(), vars["id"], vars["method"], args)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resultBody{Result: out})
}

type resultBody struct {
	Result json.RawMessage `json:"result"`
}

type errorBody struct {
	Error string `json:"error"`
}

// StatusFor maps a host error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidHandleID),
		errors.Is(err, core.ErrUnknownMethod),
		errors.Is(err, core.ErrArgumentCount),
		errors.Is(err, core.ErrDeserialize),
		errors.Is(err, core.ErrArgumentTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownHandle):
		return http.StatusNotFound
	case errors.Is(err, core.ErrHandleReleased):
		return http.StatusGone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, StatusFor(err), errorBody{Error: security.SanitizeErrorMessage(err.Error())})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
