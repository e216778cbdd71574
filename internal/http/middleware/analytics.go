package middleware

import (
	"context"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/synura/agency-api/internal/analytics"
	"github.com/synura/agency-api/pkg/logging"
)

// RequestRecorder stores one analytics row per request.
type RequestRecorder interface {
	Record(ctx context.Context, r analytics.Request) error
}

const analyticsWriteTimeout = 2 * time.Second

// RequestAnalytics records every API request after it is served. Health
// checks, metrics scrapes and CORS preflights are skipped. Write failures are
// logged and never affect the response.
func RequestAnalytics(recorder RequestRecorder, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipAnalytics(r) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			var keyID string
			next.ServeHTTP(ww, r.WithContext(withKeyIDSlot(r.Context(), &keyID)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			reqSize := r.ContentLength
			if reqSize < 0 {
				reqSize = 0
			}
			entry := analytics.Request{
				Endpoint:       r.URL.Path,
				Method:         r.Method,
				StatusCode:     status,
				ResponseTimeMS: time.Since(start).Milliseconds(),
				APIKeyID:       keyID,
				IPAddress:      clientIP(r),
				UserAgent:      r.UserAgent(),
				Referer:        r.Referer(),
				RequestSize:    reqSize,
				ResponseSize:   int64(ww.BytesWritten()),
				CreatedAt:      start.UTC(),
			}

			ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), analyticsWriteTimeout)
			defer cancel()
			if err := recorder.Record(ctx, entry); err != nil {
				logger.Warn("api analytics write failed", "path", entry.Endpoint, "error", err)
			}
		})
	}
}

func skipAnalytics(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	switch r.URL.Path {
	case "/health", "/metrics":
		return true
	}
	return false
}

const keyIDSlotKey contextKey = "apiKeyIDSlot"

// withKeyIDSlot lets the API key middleware, which runs deeper in the chain,
// report the key id back to the analytics row.
func withKeyIDSlot(ctx context.Context, slot *string) context.Context {
	return context.WithValue(ctx, keyIDSlotKey, slot)
}

func reportKeyID(ctx context.Context, keyID string) {
	if slot, ok := ctx.Value(keyIDSlotKey).(*string); ok && slot != nil {
		*slot = keyID
	}
}
