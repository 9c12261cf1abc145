package middleware

import (
	"fmt"
	"net/http"
	"time"
)

// Timeout bounds the time a handler may spend waiting on the gateway. A
// zero timeout leaves requests unbounded.
func Timeout(timeout time.Duration) Middleware {
	return func(h http.Handler) http.Handler {
		if timeout <= 0 {
			return h
		}
		return http.TimeoutHandler(h, timeout, fmt.Sprintf("Request timed out after %s", timeout))
	}
}
