// Package response writes the uniform {success, error, data} envelope.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/backtrack/internal/core"
)

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Total     *int64    `json:"total,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Offset    int       `json:"offset,omitempty"`
}

// Envelope is the result shape of every API operation.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
	Meta    Meta   `json:"meta"`
}

// JSON writes a success response with data.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, Envelope{
		Success: true,
		Data:    data,
		Meta:    Meta{Timestamp: time.Now().UTC()},
	})
}

// Page writes a success response for one page of a listing.
func Page(w http.ResponseWriter, data any, total int64, limit, offset int) {
	write(w, http.StatusOK, Envelope{
		Success: true,
		Data:    data,
		Meta: Meta{
			Timestamp: time.Now().UTC(),
			Total:     &total,
			Limit:     limit,
			Offset:    offset,
		},
	})
}

// Error writes a failure response with an explicit status.
func Error(w http.ResponseWriter, status int, err error) {
	env := Envelope{
		Success: false,
		Code:    "INTERNAL_ERROR",
		Error:   "an internal error occurred",
		Meta:    Meta{Timestamp: time.Now().UTC()},
	}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		env.Code = coreErr.Code
		env.Error = coreErr.Message
		if coreErr.Cause != nil {
			env.Error = coreErr.Message + ": " + coreErr.Cause.Error()
		}
	}
	write(w, status, env)
}

// Fail writes err with the status StatusFor picks.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUpstreamFailed), errors.Is(err, core.ErrLLMFailed):
		return http.StatusBadGateway
	case errors.Is(err, core.ErrLLMDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
