package api

import (
	"context"
	"encoding/json"
	"net/http"

	herrors "headsetctl/internal/errors"
)

// errorBody is the JSON shape of every error reply.
type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// badRequest marks a caller mistake (malformed IP, port, body).
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func invalid(msg string) error { return &badRequest{msg: msg} }

// classify maps an error to an HTTP status and a short type tag.
func classify(err error) (int, string) {
	var br *badRequest
	var pe *herrors.ParseError
	switch {
	case herrors.As(err, &br), herrors.Is(err, herrors.ErrUnknownPhase):
		return http.StatusBadRequest, "bad_request"
	case herrors.Is(err, herrors.ErrBusy):
		return http.StatusConflict, "busy"
	case herrors.Is(err, herrors.ErrNotInANetwork):
		return http.StatusUnprocessableEntity, "not_in_a_network"
	case herrors.Is(err, herrors.ErrNotInSameNetwork):
		return http.StatusUnprocessableEntity, "not_in_same_network"
	case herrors.Is(err, herrors.ErrNoADBBinary), herrors.IsBrokerUnavailable(err):
		return http.StatusServiceUnavailable, "broker_unavailable"
	case herrors.IsProtocol(err):
		return http.StatusBadGateway, "protocol"
	case herrors.As(err, &pe):
		return http.StatusBadGateway, "parse"
	case herrors.Is(err, context.DeadlineExceeded), herrors.Is(err, herrors.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, typ := classify(err)
	if status >= http.StatusInternalServerError {
		s.metrics.RecordError(err.Error())
		s.logger.Warn("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		s.logger.Verbose("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, errorBody{Type: typ, Message: err.Error()})
}
