package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/audit"
	"github.com/app-sre/connect-ai/pkg/models"
)

// Audit records the query carried in the request body before it is
// forwarded. A request that cannot be recorded is refused.
func Audit(cfg *connectai.Config) Middleware {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			now := time.Now()

			var (
				b       bytes.Buffer
				request models.QueryRequest
			)

			if s := r.Header.Get(contentLengthHeader); s == "" {
				l := fmt.Sprintf("Request without required header: %s", contentLengthHeader)
				http.Error(w, l, http.StatusBadRequest)
				return
			}

			user := User(r)
			if user == "" {
				l := fmt.Sprintf("Request without required header: %s", forwardedUserHeader)
				http.Error(w, l, http.StatusBadRequest)
				return
			}

			if _, err := io.Copy(&b, r.Body); err != nil {
				cfg.Logger.Errorf("Unable to copy request body: %s", err)
				http.Error(w, connectai.InternalErrorMessage, http.StatusInternalServerError)
				return
			}
			_ = r.Body.Close()

			r.Body = io.NopCloser(bytes.NewReader(b.Bytes()))

			if err := json.Unmarshal(b.Bytes(), &request); err != nil {
				cfg.Logger.Debugf("Unable to unmarshal request body: %s", err)
				h.ServeHTTP(w, r)
				return
			}

			query := &audit.QueryData{
				Query:      request.Query,
				User:       user,
				SchemaOnly: request.SchemaOnly,
				Timestamp:  now.Unix(),
			}
			if request.DefaultSchema != nil {
				query.DefaultSchema = *request.DefaultSchema
			}

			if cfg.LoggerAudit != nil {
				_ = cfg.LoggerAudit.Write(ctx, query)
			}

			if cfg.SplunkAudit != nil {
				if err := cfg.SplunkAudit.Write(ctx, query); err != nil {
					cfg.Logger.Errorf("Unable to send audit to Splunk: %s", err)
					http.Error(w, connectai.InternalErrorMessage, http.StatusInternalServerError)
					return
				}
			}

			ctx = context.WithValue(ctx, ContextKeyQuery, request.Query)
			h.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
