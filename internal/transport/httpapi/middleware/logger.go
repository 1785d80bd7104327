package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kislikjeka/moneybuckets/pkg/logger"
)

// maxCapturedBody bounds how much of an error body is kept for the log line
const maxCapturedBody = 4 << 10

// bodyCapture keeps the start of 4xx/5xx bodies so the log line can carry the
// "error" field the handler sent.
type bodyCapture struct {
	chimiddleware.WrapResponseWriter
	buf bytes.Buffer
}

func (c *bodyCapture) Write(b []byte) (int, error) {
	if c.Status() >= http.StatusBadRequest && c.buf.Len() < maxCapturedBody {
		c.buf.Write(b[:min(len(b), maxCapturedBody-c.buf.Len())])
	}
	return c.WrapResponseWriter.Write(b)
}

func (c *bodyCapture) errorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(c.buf.Bytes(), &body) != nil {
		return ""
	}
	return body.Error
}

// Logger returns a request logging middleware. Success is logged at Info,
// client errors at Warn and server errors at Error.
func Logger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			bc := &bodyCapture{WrapResponseWriter: chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)}

			if reqID := chimiddleware.GetReqID(r.Context()); reqID != "" {
				w.Header().Set("X-Request-Id", reqID)
				r = r.WithContext(context.WithValue(r.Context(), logger.RequestIDKey, reqID))
			}

			defer func() {
				status := bc.Status()
				if status == 0 {
					status = http.StatusOK
				}
				attrs := []any{
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"status", status,
					"bytes", bc.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
				}
				if msg := bc.errorMessage(); msg != "" {
					attrs = append(attrs, "error", msg)
				}

				reqLog := log.WithContext(r.Context())
				switch {
				case status >= http.StatusInternalServerError:
					reqLog.Error("HTTP request", attrs...)
				case status >= http.StatusBadRequest:
					reqLog.Warn("HTTP request", attrs...)
				default:
					reqLog.Info("HTTP request", attrs...)
				}
			}()

			next.ServeHTTP(bc, r)
		}
		return http.HandlerFunc(fn)
	}
}
