package middleware

import (
	"context"
	"fmt"
	"net/http"

	connectai "github.com/app-sre/connect-ai/pkg"
)

// Authorization admits requests whose forwarded user is on the allow-list.
// Without an allow-list every user is admitted, except in production.
func Authorization(cfg *connectai.Config) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user := r.Header.Get(forwardedUserHeader)
			if user == "" {
				l := fmt.Sprintf("Request without required header: %s", forwardedUserHeader)
				http.Error(w, l, http.StatusBadRequest)
				return
			}

			if cfg.UserEnv == nil || !cfg.UserEnv.IsRestricted() {
				if connectai.Production() {
					http.Error(w, "Request cannot be authorized", http.StatusUnauthorized)
					return
				}
				ctx = context.WithValue(ctx, ContextKeyUser, user)
				h.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if !cfg.UserEnv.IsAuthorized(user) {
				l := "User does not have required permissions"
				cfg.Logger.Errorf("%s: %s", l, user)
				http.Error(w, l, http.StatusForbidden)
				return
			}

			ctx = context.WithValue(ctx, ContextKeyUser, user)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
