package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/app-sre/connect-ai/pkg/models"
)

// Fixture data served by the mock query service.
var (
	catalogs = [][]any{
		{"Salesforce_Integraite"},
		{"Zendesk_Integraite"},
	}
	schemas = [][]any{
		{"Salesforce_Integraite", "Salesforce"},
		{"Zendesk_Integraite", "Zendesk"},
	}
	tables = [][]any{
		{"Salesforce_Integraite", "Salesforce", "Account", "TABLE", "Customer accounts"},
		{"Zendesk_Integraite", "Zendesk", "Tickets", "TABLE", nil},
	}
	tickets = models.QueryResult{
		Schema: []models.ColumnSchema{
			{Name: "Status", DataType: "VARCHAR"},
			{Name: "Count", DataType: "INTEGER"},
		},
		Rows: [][]any{{"Open", 5}, {"Closed", 12}},
	}
)

type errorResponse struct {
	Error string `json:"error"`
}

func main() {
	identity := os.Getenv("CONNECT_AI_EMAIL")
	secret := os.Getenv("CONNECT_AI_TOKEN")

	r := mux.NewRouter()
	r.Use(requestID, basicAuth(identity, secret))

	r.HandleFunc("/catalogs", rows(catalogs, 0)).Methods(http.MethodGet)
	r.HandleFunc("/schemas", rows(schemas, 1)).Methods(http.MethodGet)
	r.HandleFunc("/tables", rows(tables, 3)).Methods(http.MethodGet)
	r.HandleFunc("/query", query).Methods(http.MethodPost)

	addr := ":8090"
	if s := os.Getenv("PORT"); s != "" {
		addr = ":" + s
	}

	log.Printf("Starting mock query service on %s", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("Mock query service failed: %v", err)
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		log.Printf("%s %s (request: %s)", r.Method, r.URL, id)
		next.ServeHTTP(w, r)
	})
}

// basicAuth accepts any credentials when no identity is configured.
func basicAuth(identity, secret string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || (identity != "" && (user != identity || pass != secret)) {
				reply(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// rows serves a metadata listing. The value at column is matched against
// the last query parameter given, which is all the filtering the mock does.
func rows(data [][]any, column int) http.HandlerFunc {
	params := []string{"catalogName", "schemaName", "tableName", "tableType"}

	return func(w http.ResponseWriter, r *http.Request) {
		filter, index := "", column
		for ; index >= 0 && filter == ""; index-- {
			filter = r.URL.Query().Get(params[index])
		}
		index++

		result := models.QueryResult{Rows: [][]any{}}
		for _, row := range data {
			if filter == "" || strings.EqualFold(row[index].(string), filter) {
				result.Rows = append(result.Rows, row)
			}
		}

		reply(w, http.StatusOK, models.Response{Results: []models.QueryResult{result}})
	}
}

func query(w http.ResponseWriter, r *http.Request) {
	var request models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		reply(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	switch {
	case request.Query == "":
		reply(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
	case strings.Contains(strings.ToLower(request.Query), "tickets"):
		result := tickets
		if request.SchemaOnly {
			result.Rows = [][]any{}
		}
		reply(w, http.StatusOK, models.Response{Results: []models.QueryResult{result}})
	default:
		reply(w, http.StatusOK, models.Response{Results: []models.QueryResult{}})
	}
}

func reply(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Unable to encode response: %v", err)
	}
}
