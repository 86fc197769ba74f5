package kai

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// APIError captures structured error metadata returned by the Kai backend.
type APIError struct {
	Status  int
	Code    string
	Message string
	Cause   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	code := e.Code
	if code == "" {
		code = "unknown"
	}
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("%s (%d)", code, e.Status)
	}
	return fmt.Sprintf("%s: %s", code, msg)
}

// IsAuthError reports whether err is an APIError with a 401 status.
func IsAuthError(err error) bool { return apiStatus(err) == http.StatusUnauthorized }

// IsForbidden reports whether err is an APIError with a 403 status.
func IsForbidden(err error) bool { return apiStatus(err) == http.StatusForbidden }

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool { return apiStatus(err) == http.StatusNotFound }

// IsRateLimited reports whether err is an APIError with a 429 status.
func IsRateLimited(err error) bool { return apiStatus(err) == http.StatusTooManyRequests }

func apiStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode}
	if len(data) == 0 {
		apiErr.Message = resp.Status
		return apiErr
	}
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Cause   string `json:"cause"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		apiErr.Message = string(data)
		return apiErr
	}
	apiErr.Code = payload.Code
	apiErr.Message = payload.Message
	apiErr.Cause = payload.Cause
	if apiErr.Message == "" {
		apiErr.Message = resp.Status
	}
	return apiErr
}

// FrameError reports a single SSE frame whose payload failed to decode.
// Frames that are not needed to detect stream termination are skipped and
// the FrameError is recorded on the accumulator; a FrameError on a finish
// or error frame is returned from MessageStream.Next and ends the stream.
type FrameError struct {
	Label string
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("kai: malformed %q frame: %v", e.Label, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// ProtocolViolation records backend behavior outside the documented event
// grammar. Violations accumulate and are never fatal: the backend's event
// grammar is expected to evolve, so forward progress wins over strict
// validation.
type ProtocolViolation struct {
	Reason string
}

func (e *ProtocolViolation) Error() string {
	return "kai: protocol violation: " + e.Reason
}

// ErrTruncatedStream is returned by MessageStream.Next when the connection
// closes before any finish or error event arrived. Callers that need to
// know whether the conversation actually completed must distinguish this
// from a normal FinishEvent.
var ErrTruncatedStream = errors.New("kai: stream ended without a finish or error event")
