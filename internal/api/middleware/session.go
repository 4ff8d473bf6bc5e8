package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aliweather/aliweather/internal/api/models"
	"github.com/aliweather/aliweather/internal/lifecycle"
	"github.com/aliweather/aliweather/internal/session"
)

// SessionIDAttribute is the span attribute carrying the authenticated session id.
const SessionIDAttribute = "aliweather.session.id"

// sessionIDKey is the context key for the authenticated session id.
type sessionIDKey struct{}

// sessionHolderKey is the context key for the logger's session holder.
type sessionHolderKey struct{}

type sessionHolder struct {
	id string
}

func withSessionHolder(ctx context.Context) (context.Context, *sessionHolder) {
	if h, ok := ctx.Value(sessionHolderKey{}).(*sessionHolder); ok {
		return ctx, h
	}
	h := &sessionHolder{}
	return context.WithValue(ctx, sessionHolderKey{}, h), h
}

// SessionAuth validates the bearer session token and checks that the session
// it names is still live. The session id is added to the request context.
func SessionAuth(tokens *session.TokenService, sessions *lifecycle.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, r, "missing or malformed bearer token")
				return
			}

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, session.ErrTokenExpired):
					writeUnauthorized(w, r, "session token has expired")
				default:
					writeUnauthorized(w, r, "invalid session token")
				}
				return
			}

			if _, err := sessions.Get(claims.SessionID); err != nil {
				writeUnauthorized(w, r, "session has ended, start a new one")
				return
			}

			if h, ok := r.Context().Value(sessionHolderKey{}).(*sessionHolder); ok {
				h.id = claims.SessionID
			}
			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String(SessionIDAttribute, claims.SessionID))
			ctx := context.WithValue(r.Context(), sessionIDKey{}, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// writeUnauthorized writes a 401 Unauthorized response.
// This is implemented directly here to avoid import cycle with response package.
func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	problem := models.NewUnauthorized(GetRequestID(r.Context()), detail)
	problem.Instance = r.URL.Path
	w.Header().Set("WWW-Authenticate", `Bearer realm="aliweather"`)
	problem.Write(w)
}

// GetSessionID retrieves the authenticated session id from the context.
// Returns an empty string if not authenticated.
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return id
	}
	return ""
}
