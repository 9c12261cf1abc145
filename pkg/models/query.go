package models

// QueryParameter is a named, typed value bound to a parameterised query.
type QueryParameter struct {
	DataType string `json:"dataType"`
	Value    any    `json:"value"`
}

type QueryRequest struct {
	Query         string                    `json:"query"`
	DefaultSchema *string                   `json:"defaultSchema"`
	SchemaOnly    bool                      `json:"schemaOnly"`
	Parameters    map[string]QueryParameter `json:"parameters"`
}

// NewQueryRequest returns a request for the given SQL with an empty
// parameter set, which the service expects to be an object and not null.
func NewQueryRequest(query string) *QueryRequest {
	return &QueryRequest{
		Query:      query,
		Parameters: map[string]QueryParameter{},
	}
}

type ColumnSchema struct {
	Name     string `json:"columnName"`
	DataType string `json:"dataTypeName"`
	Nullable *bool  `json:"nullable,omitempty"`
}

// QueryResult holds a single result set. Rows are positional and match the
// order of Schema, although a row may carry fewer values than there are
// columns.
type QueryResult struct {
	Schema       []ColumnSchema `json:"schema"`
	Rows         [][]any        `json:"rows"`
	AffectedRows *int64         `json:"affectedRows,omitempty"`
}

func (r *QueryResult) Columns() []string {
	columns := make([]string, 0, len(r.Schema))
	for _, c := range r.Schema {
		columns = append(columns, c.Name)
	}
	return columns
}

// Response is the envelope every endpoint of the query service replies with.
type Response struct {
	Results []QueryResult `json:"results"`
}
