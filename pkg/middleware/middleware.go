package middleware

import (
	"net/http"
)

type ctxKey string

const (
	ContextKeyUser  ctxKey = "user"
	ContextKeyQuery ctxKey = "query"
)

const (
	contentLengthHeader = "Content-Length"
	forwardedUserHeader = "X-Forwarded-User"
)

type Middleware func(http.Handler) http.Handler

// User returns the authorized user stored in the request context, falling
// back to the forwarded user header.
func User(r *http.Request) string {
	if s, ok := r.Context().Value(ContextKeyUser).(string); ok && s != "" {
		return s
	}
	return r.Header.Get(forwardedUserHeader)
}

// AuditedQuery returns the statement recorded by the Audit middleware, if
// the request went through it.
func AuditedQuery(r *http.Request) (string, bool) {
	s, ok := r.Context().Value(ContextKeyQuery).(string)
	return s, ok
}
