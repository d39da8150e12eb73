// Package httpapi implements the inbound HTTP surface (C6, C7, C11) and the
// miniapp API: a chi router, the middleware chain of §4.12, the webhook
// receiver, the long-polling runner, and the admin surface.
package httpapi

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"sync"
	"time"

	"github.com/starvault/casebot/internal/app/core/clock"
	"github.com/starvault/casebot/pkg/apierr"
	"github.com/starvault/casebot/pkg/logger"
)

type ctxKey int

const requestIDCtxKey ctxKey = iota

// requestIDPattern is §6's contract for a caller-supplied X-Request-Id.
var requestIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{8,64}$`)

// requestID generates or propagates X-Request-Id into the request context,
// consumed by the error-taxonomy JSON renderer (§4.12, §6).
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if !requestIDPattern.MatchString(id) {
			id = clock.NewRequestID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDCtxKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return id
	}
	return ""
}

// recoverer converts a panic in a downstream handler into an Internal
// ServiceError instead of crashing the server goroutine (§4.12).
func recoverer(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if log != nil {
						log.WithField("panic", fmt.Sprintf("%v", rec)).
							WithField("stack", string(debug.Stack())).
							Error("panic recovered in http handler")
					}
					writeError(w, r, apierr.InternalError(fmt.Errorf("panic: %v", rec)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// bodyLimit caps request bodies via http.MaxBytesReader (§4.4 step 2,
// §4.12).
func bodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, r, apierr.PayloadTooLarge("payload too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// bodyLimitWithReason behaves like bodyLimit but reports the rejection to
// metrics before answering, used on the webhook route (§4.4 step 2).
func bodyLimitWithReason(maxBytes int64, metrics Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				metrics.IncWebhookBodyTooLarge()
				writeError(w, r, apierr.PayloadTooLarge("payload too large"))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// secretHeader gates a route behind a constant-time comparison of header
// against expected, reused in shape for both the webhook secret and the
// admin token (§4.12).
func secretHeader(header, expected string, onMismatch func(w http.ResponseWriter, r *http.Request)) func(http.Handler) http.Handler {
	expectedHash := sha256.Sum256([]byte(expected))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			gotHash := sha256.Sum256([]byte(got))
			if got == "" || subtle.ConstantTimeCompare(gotHash[:], expectedHash[:]) != 1 {
				onMismatch(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// deadline bounds a handler's execution via context.WithTimeout, racing the
// handler goroutine against the clock. No route mounts it; the pre-checkout
// answer path's hard 10s bound (§4.8, §5, §4.12) is applied in dispatch.go
// via precheckoutDeadline.
func deadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			done := make(chan struct{})
			dw := &deadlineWriter{ResponseWriter: w}
			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				dw.mu.Lock()
				wrote := dw.wrote
				dw.mu.Unlock()
				if !wrote {
					writeError(w, r, apierr.Wrap(apierr.Internal, "request deadline exceeded", http.StatusGatewayTimeout, ctx.Err()))
				}
			}
		})
	}
}

type deadlineWriter struct {
	http.ResponseWriter
	mu    sync.Mutex
	wrote bool
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.mu.Lock()
	defer dw.mu.Unlock()
	if !dw.wrote {
		dw.wrote = true
		dw.ResponseWriter.WriteHeader(code)
	}
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.mu.Lock()
	if !dw.wrote {
		dw.wrote = true
	}
	dw.mu.Unlock()
	return dw.ResponseWriter.Write(b)
}
