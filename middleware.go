package kyugo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-kyugo/fedkyugo/config"
	"github.com/go-kyugo/fedkyugo/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

type requestIDKey struct{}

// RequestID propagates X-Request-Id, generating one when the client sent
// none. The id is echoed on the response and stored in the request
// context; a generated id is never added to the request headers.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
		})
	}
}

// RequestIDFrom returns the id stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// CORS returns a middleware that applies CORS headers based on config.
// An empty origin list, or one containing "*", allows every origin.
func CORS(c config.CorsConfig) Middleware {
	methods := "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	if len(c.AllowedMethods) > 0 {
		methods = strings.Join(c.AllowedMethods, ",")
	}
	headers := strings.Join(c.AllowedHeaders, ",")
	anyOrigin := len(c.AllowedOrigins) == 0 || slices.Contains(c.AllowedOrigins, "*")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			origin := r.Header.Get("Origin")
			switch {
			case anyOrigin:
				h.Set("Access-Control-Allow-Origin", "*")
			case origin != "" && slices.Contains(c.AllowedOrigins, origin):
				h.Set("Access-Control-Allow-Origin", origin)
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", methods)
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// responseRecorder captures status and size written by the handler. It
// exposes Flush and Unwrap so streaming handlers keep working through it.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	size        int
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (r *responseRecorder) FlushError() error {
	return http.NewResponseController(r.ResponseWriter).Flush()
}

func (r *responseRecorder) Flush() {
	_ = r.FlushError()
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LoggerMiddleware logs each HTTP request as one structured event on the
// package logger.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rr := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rr, r)

		logger.Info("HTTP.Request", logger.Fields{
			"duration_ms": time.Since(start).Milliseconds(),
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"request_id":  r.Header.Get(RequestIDHeader),
			"size":        rr.size,
			"status":      rr.status,
			"status_text": http.StatusText(rr.status),
		})
	})
}

// Recovery turns a panic in the handler chain into a 500 error envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}
				log.Error("Panic recovered", logger.Fields{
					"error":      fmt.Sprintf("%v", rec),
					"stack":      string(debug.Stack()),
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": r.Header.Get(RequestIDHeader),
				})
				ErrorResponse(w, http.StatusInternalServerError, "Internal server error", nil, ErrorExtras{
					Code: "INTERNAL_ERROR",
					Type: "SERVER_ERROR",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
