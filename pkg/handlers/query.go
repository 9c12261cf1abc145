package handlers

import (
	"encoding/json"
	"net/http"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/format"
	"github.com/app-sre/connect-ai/pkg/middleware"
	"github.com/app-sre/connect-ai/pkg/models"
)

const fullFormat = "full"

// Query forwards the statement to the gateway. The format query parameter
// selects the reply: the complete result set as JSON (the default),
// compact records, or a text table.
func Query(cfg *connectai.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			mode    format.Mode
			request models.QueryRequest
		)

		if s := r.URL.Query().Get("format"); s != "" && s != fullFormat {
			m, err := format.ParseMode(s)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mode = m
		}

		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if request.Query == "" {
			http.Error(w, "Request without required query", http.StatusBadRequest)
			return
		}
		if _, ok := middleware.AuditedQuery(r); ok {
			cfg.Logger.Debugf("Running audited query for user %s", middleware.User(r))
		} else {
			cfg.Logger.Warnf("Running query without audit for user %s", middleware.User(r))
		}

		if request.Parameters == nil {
			request.Parameters = map[string]models.QueryParameter{}
		}

		result, err := cfg.Gateway.Query(r.Context(), &request)
		if err != nil {
			writeError(cfg, w, err)
			return
		}

		switch mode {
		case format.ModeTable:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(format.ToTextTable(result)))
		case format.ModeCompact:
			content, err := format.CompactJSON(result)
			if err != nil {
				cfg.Logger.Errorf("Unable to encode records: %s", err)
				http.Error(w, connectai.InternalErrorMessage, http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(content)
		default:
			writeJSON(cfg, w, result)
		}
	}
}
