package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rickgao/pricetables/internal/auth"
)

// Error kinds returned to clients.
const (
	KindUnauthenticated  = "unauthenticated"
	KindPermissionDenied = "permission-denied"
	KindInvalidArgument  = "invalid-argument"
	KindNotFound         = "not-found"
	KindInternal         = "internal"
	KindUnavailable      = "unavailable"
)

var kindStatus = map[string]int{
	KindUnauthenticated:  http.StatusUnauthorized,
	KindPermissionDenied: http.StatusForbidden,
	KindInvalidArgument:  http.StatusBadRequest,
	KindNotFound:         http.StatusNotFound,
	KindInternal:         http.StatusInternalServerError,
	KindUnavailable:      http.StatusServiceUnavailable,
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, kind, message string) {
	status, ok := kindStatus[kind]
	if !ok {
		kind, status = KindInternal, http.StatusInternalServerError
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Kind: kind, Message: message}})
}

// deny maps authentication failures to error responses.
func deny(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		writeError(w, KindUnauthenticated, err.Error())
	default:
		writeError(w, KindPermissionDenied, err.Error())
	}
}
