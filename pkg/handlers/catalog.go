package handlers

import (
	"encoding/json"
	"net/http"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/models"
)

func Catalogs(cfg *connectai.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catalogs, err := cfg.Gateway.ListCatalogs(r.Context())
		if err != nil {
			writeError(cfg, w, err)
			return
		}
		writeJSON(cfg, w, catalogs)
	}
}

func Schemas(cfg *connectai.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := models.SchemaFilter{
			Catalog: q.Get("catalogName"),
			Schema:  q.Get("schemaName"),
		}

		schemas, err := cfg.Gateway.ListSchemas(r.Context(), filter)
		if err != nil {
			writeError(cfg, w, err)
			return
		}
		writeJSON(cfg, w, schemas)
	}
}

func Tables(cfg *connectai.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := models.TableFilter{
			Catalog: q.Get("catalogName"),
			Schema:  q.Get("schemaName"),
			Table:   q.Get("tableName"),
			Type:    q.Get("tableType"),
		}

		tables, err := cfg.Gateway.ListTables(r.Context(), filter)
		if err != nil {
			writeError(cfg, w, err)
			return
		}
		writeJSON(cfg, w, tables)
	}
}

func writeJSON(cfg *connectai.Config, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cfg.Logger.Errorf("Unable to encode response: %s", err)
	}
}
