// Package httpx provides HTTP middleware and response helpers shared by
// service handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"time"

	apperrors "github.com/louisbranch/topicfeed/internal/platform/errors"
	"github.com/louisbranch/topicfeed/internal/platform/requestctx"
)

// RequestIDHeader carries the request correlation id.
const RequestIDHeader = "X-Request-ID"

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

var requestIDCounter atomic.Uint64

// Chain applies middleware in declaration order.
func Chain(handler http.Handler, middleware ...Middleware) http.Handler {
	if handler == nil {
		handler = http.NotFoundHandler()
	}
	wrapped := handler
	for idx := len(middleware) - 1; idx >= 0; idx-- {
		if middleware[idx] == nil {
			continue
		}
		wrapped = middleware[idx](wrapped)
	}
	return wrapped
}

// RequestID injects and echoes a request id for correlation.
func RequestID(prefix string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if requestID == "" {
				requestID = fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), requestIDCounter.Add(1))
				r.Header.Set(RequestIDHeader, requestID)
			}
			w.Header().Set(RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(requestctx.WithRequestID(r.Context(), requestID)))
		})
	}
}

// RecoverPanic converts panics into HTTP 500 responses.
func RecoverPanic() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					requestID := r.Header.Get(RequestIDHeader)
					if requestID == "" {
						requestID = "-"
					}
					log.Printf(
						"panic recovered method=%s path=%s request_id=%s panic=%v stack=%s",
						r.Method,
						r.URL.Path,
						requestID,
						recovered,
						strings.TrimSpace(string(debug.Stack())),
					)
					w.WriteHeader(http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteJSON writes a JSON response with the provided status code.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return fmt.Errorf("response writer is required")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}

// ErrorBody is the JSON shape of error responses.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failed request.
type ErrorDetail struct {
	Code             apperrors.Code    `json:"code"`
	Message          string            `json:"message"`
	LocalizedMessage string            `json:"localized_message,omitempty"`
	Retryable        bool              `json:"retryable"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// WriteError writes err as a JSON error, mapping its code to a status.
// Errors without a code are reported as internal and their text is logged
// rather than returned.
func WriteError(w http.ResponseWriter, err error) {
	WriteLocalizedError(w, err, "")
}

// WriteLocalizedError is WriteError with a user-facing message rendered for
// locale. An empty locale omits the localized message.
func WriteLocalizedError(w http.ResponseWriter, err error, locale string) {
	if w == nil || err == nil {
		return
	}
	var domainErr *apperrors.Error
	if !errors.As(err, &domainErr) {
		domainErr = apperrors.Wrap(apperrors.CodeUnknown, "", err)
	}
	code := domainErr.Code
	detail := ErrorDetail{
		Code:      code,
		Message:   err.Error(),
		Retryable: code.Retryable(),
		Metadata:  domainErr.Metadata,
	}
	if code == apperrors.CodeUnknown {
		log.Printf("internal error: %v", err)
		detail.Message = "internal error"
		detail.Metadata = nil
	}
	if locale != "" {
		detail.LocalizedMessage = domainErr.LocalizedMessage(locale)
	}
	_ = WriteJSON(w, code.HTTPStatus(), ErrorBody{Error: detail})
}
