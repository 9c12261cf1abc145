package audit

import "context"

// Audit records every query forwarded to the query service.
type Audit interface {
	Write(ctx context.Context, q *QueryData) error
}

type QueryData struct {
	Query         string
	User          string
	DefaultSchema string
	SchemaOnly    bool
	Timestamp     int64
}
