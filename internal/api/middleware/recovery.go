package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aliweather/aliweather/internal/api/models"
)

// Recovery returns a middleware that turns a handler panic into a 500 problem.
// The panic is logged with its stack and recorded on the request span. If the
// handler had already started the response nothing more is written.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler { //nolint:errorlint // sentinel compared by identity
					panic(v)
				}

				ctx := r.Context()
				requestID := GetRequestID(ctx)
				err, ok := v.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", v)
				}

				log.Error().
					Err(err).
					Str("request_id", requestID).
					Str("session_id", GetSessionID(ctx)).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				span := trace.SpanFromContext(ctx)
				span.RecordError(err, trace.WithStackTrace(true))
				span.SetStatus(codes.Error, "panic")

				if rec.wroteHeader {
					return
				}
				problem := models.NewInternalError(requestID, "an unexpected error occurred")
				problem.Instance = r.URL.Path
				problem.Write(rec)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
