package middleware

import (
	"errors"
	"net/http"

	connectai "github.com/app-sre/connect-ai/pkg"
)

// Recovery turns a panic in a gateway handler into a 500 reply. The panic
// is logged with the request it interrupted. http.ErrAbortHandler is
// re-raised so the server can abort the response.
func Recovery(cfg *connectai.Config) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err, ok := rec.(error)
					if ok && errors.Is(err, http.ErrAbortHandler) {
						panic(err)
					}

					cfg.Logger.Errorf("Recovered from an error while serving %s %s for user %q: %v", r.Method, r.URL.Path, User(r), rec)
					http.Error(w, connectai.InternalErrorMessage, http.StatusInternalServerError)
				}
			}()
			h.ServeHTTP(w, r)
		})
	}
}
