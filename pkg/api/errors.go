package api

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/matzehuels/graphwriter/pkg/errors"
	"github.com/matzehuels/graphwriter/pkg/observability"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Retryable bool      `json:"retryable"`
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidType, errors.ErrCodeInvalidView,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidKey, errors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeUnsupported:
		return http.StatusNotAcceptable
	case errors.ErrCodeCanceled:
		// nginx's "client closed request"; the client is gone anyway.
		return 499
	}
	return http.StatusInternalServerError
}

// writeError writes err as an [ErrorResponse]. Errors without a code are
// reported as internal errors and their message is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	msg := errors.UserMessage(err)

	var rl *errors.RateLimitedError
	switch {
	case stderrors.As(err, &rl):
		code = rl.Code()
		msg = rl.Error()
		if rl.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter))
		}
	case code == "":
		code = errors.ErrCodeInternal
		msg = "internal server error"
	}
	status := statusFor(code)

	if status >= http.StatusInternalServerError {
		observability.HTTP().OnError(r.Context(), r.Method, routePattern(r), err)
	}

	resp := ErrorResponse{
		Code:      string(code),
		Message:   msg,
		RequestID: RequestID(r.Context()),
		Timestamp: time.Now().UTC(),
		Retryable: status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable,
	}
	data, _ := jsonAPI.Marshal(resp)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
