package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error body, served as application/problem+json.
// TraceID carries the request id so dashboard error toasts can be matched
// against server logs.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.aliweather.vn/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation        = problemBase + "validation-error"
	ProblemTypeUnauthorized      = problemBase + "unauthorized"
	ProblemTypeTLSRequired       = problemBase + "tls-required"
	ProblemTypeNotFound          = problemBase + "not-found"
	ProblemTypeConflict          = problemBase + "conflict"
	ProblemTypeRefreshInProgress = problemBase + "refresh-in-progress"
	ProblemTypeTooManyRequests   = problemBase + "too-many-requests"
	ProblemTypeInternal          = problemBase + "internal-error"
	ProblemTypeUnavailable       = problemBase + "service-unavailable"
)

// problemKind is the fixed part of a problem: its type, title and status.
type problemKind struct {
	typ    string
	title  string
	status int
}

var (
	kindBadRequest        = problemKind{ProblemTypeValidation, "Validation error", http.StatusBadRequest}
	kindUnauthorized      = problemKind{ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized}
	kindTLSRequired       = problemKind{ProblemTypeTLSRequired, "TLS required", http.StatusForbidden}
	kindNotFound          = problemKind{ProblemTypeNotFound, "Not found", http.StatusNotFound}
	kindConflict          = problemKind{ProblemTypeConflict, "Conflict", http.StatusConflict}
	kindRefreshInProgress = problemKind{ProblemTypeRefreshInProgress, "Refresh in progress", http.StatusConflict}
	kindTooManyRequests   = problemKind{ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests}
	kindInternal          = problemKind{ProblemTypeInternal, "Internal server error", http.StatusInternalServerError}
	kindUnavailable       = problemKind{ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable}
)

func (k problemKind) with(traceID, detail string) *Problem {
	return NewProblem(k.typ, k.title, k.status, traceID).WithDetail(detail)
}

// NewProblem creates a Problem without detail.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// WithDetail sets the occurrence-specific explanation.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the problem with its status and echoes the request id header.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest is a 400 with optional field errors.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return kindBadRequest.with(traceID, detail).WithErrors(errors)
}

// NewUnauthorized is a 401 for a missing, invalid or ended session.
func NewUnauthorized(traceID, detail string) *Problem {
	return kindUnauthorized.with(traceID, detail)
}

// NewTLSRequired is a 403 for plain-HTTP requests forwarded by a TLS proxy.
func NewTLSRequired(traceID string) *Problem {
	return kindTLSRequired.with(traceID, "this endpoint requires HTTPS")
}

// NewNotFound is a 404.
func NewNotFound(traceID, detail string) *Problem {
	return kindNotFound.with(traceID, detail)
}

// NewConflict is a 409, used for invalid alert lifecycle transitions.
func NewConflict(traceID, detail string) *Problem {
	return kindConflict.with(traceID, detail)
}

// NewRefreshInProgress is a 409 for an overlapping session refresh.
func NewRefreshInProgress(traceID string) *Problem {
	return kindRefreshInProgress.with(traceID, "a refresh for this session is already running")
}

// NewTooManyRequests is a 429.
func NewTooManyRequests(traceID, detail string) *Problem {
	return kindTooManyRequests.with(traceID, detail)
}

// NewInternalError is a 500. Detail must not carry internal error text.
func NewInternalError(traceID, detail string) *Problem {
	return kindInternal.with(traceID, detail)
}

// NewServiceUnavailable is a 503, used when the weather provider is down
// or its circuit is open.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return kindUnavailable.with(traceID, detail)
}
