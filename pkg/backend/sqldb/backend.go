// Package sqldb serves catalog listings and queries straight from a
// PostgreSQL or MySQL database, for use where the remote query service is
// not reachable.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/env/db"
	"github.com/app-sre/connect-ai/pkg/models"
)

var (
	ErrParametersUnsupported    = errors.New("query parameters are not supported")
	ErrDefaultSchemaUnsupported = errors.New("default schema is not supported")
)

type Backend struct {
	DB    *sql.DB
	DBEnv *db.DBEnv

	logger *zap.SugaredLogger
}

var _ connectai.Gateway = (*Backend)(nil)

type Option func(*Backend)

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

func New(conn *sql.DB, env *db.DBEnv, options ...Option) *Backend {
	b := &Backend{
		DB:     conn,
		DBEnv:  env,
		logger: zap.NewNop().Sugar(),
	}

	for _, option := range options {
		option(b)
	}

	return b
}

// Open prepares a connection pool for the configured database. No
// connection is made until the pool is first used.
func Open(env *db.DBEnv) (*sql.DB, error) {
	conn, err := sql.Open(env.Driver.Name(), env.ConnectionDSN())
	if err != nil {
		return nil, fmt.Errorf("unable to open database connection: %w", err)
	}
	return conn, nil
}

func (b *Backend) ListCatalogs(ctx context.Context) ([]models.Catalog, error) {
	var name string
	if err := b.DB.QueryRowContext(ctx, b.DBEnv.Driver.CatalogQuery()).Scan(&name); err != nil {
		return nil, fmt.Errorf("unable to query catalog name: %w", err)
	}
	return []models.Catalog{{CatalogName: name}}, nil
}

func (b *Backend) ListSchemas(ctx context.Context, filter models.SchemaFilter) ([]models.Schema, error) {
	catalog := b.DBEnv.Driver.CatalogFunction()

	w := &where{driver: b.DBEnv.Driver}
	w.add(catalog, filter.Catalog)
	w.add("schema_name", filter.Schema)

	query := fmt.Sprintf("SELECT %s, schema_name FROM information_schema.schemata%s ORDER BY schema_name", catalog, w)

	rows, err := b.DB.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query schemas: %w", err)
	}
	defer func() { _ = rows.Close() }()

	schemas := []models.Schema{}
	for rows.Next() {
		var s models.Schema
		if err := rows.Scan(&s.Catalog, &s.SchemaName); err != nil {
			return nil, fmt.Errorf("unable to scan schema: %w", err)
		}
		schemas = append(schemas, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read schemas: %w", err)
	}

	return schemas, nil
}

func (b *Backend) ListTables(ctx context.Context, filter models.TableFilter) ([]models.Table, error) {
	catalog := b.DBEnv.Driver.CatalogFunction()

	w := &where{driver: b.DBEnv.Driver}
	w.add(catalog, filter.Catalog)
	w.add("table_schema", filter.Schema)
	w.add("table_name", filter.Table)
	w.add("table_type", filter.Type)

	query := fmt.Sprintf("SELECT %s, table_schema, table_name, table_type FROM information_schema.tables%s ORDER BY table_schema, table_name", catalog, w)

	rows, err := b.DB.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, fmt.Errorf("unable to query tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := []models.Table{}
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.Catalog, &t.SchemaName, &t.TableName, &t.TableType); err != nil {
			return nil, fmt.Errorf("unable to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read tables: %w", err)
	}

	return tables, nil
}

// Query runs the statement in a transaction, which is rolled back unless
// writes are allowed. Values are returned as text, and NULL as nil.
func (b *Backend) Query(ctx context.Context, request *models.QueryRequest) (*models.QueryResult, error) {
	if request == nil {
		return nil, fmt.Errorf("unable to run query: request is nil")
	}
	if len(request.Parameters) > 0 {
		return nil, fmt.Errorf("unable to run query: %w", ErrParametersUnsupported)
	}

	tx, err := b.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if request.DefaultSchema != nil && *request.DefaultSchema != "" {
		if err := b.setSearchPath(ctx, tx, *request.DefaultSchema); err != nil {
			return nil, err
		}
	}

	rows, err := tx.QueryContext(ctx, request.Query)
	if err != nil {
		return nil, fmt.Errorf("unable to run query: %w", err)
	}

	result, err := scan(rows, request.SchemaOnly)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	if b.DBEnv.AllowWrite {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("unable to commit transaction: %w", err)
		}
	}

	b.logger.Debugw("Query completed", "columns", len(result.Schema), "rows", len(result.Rows))

	return result, nil
}

func (b *Backend) Ping(ctx context.Context) error {
	if err := b.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}
	return nil
}

func (b *Backend) setSearchPath(ctx context.Context, tx *sql.Tx, schema string) error {
	query := b.DBEnv.Driver.SearchPathQuery()
	if query == "" {
		return fmt.Errorf("unable to use driver %s: %w", b.DBEnv.Driver, ErrDefaultSchemaUnsupported)
	}
	if _, err := tx.ExecContext(ctx, query, schema); err != nil {
		return fmt.Errorf("unable to set default schema: %w", err)
	}
	return nil
}

func scan(rows *sql.Rows, schemaOnly bool) (*models.QueryResult, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("unable to read columns: %w", err)
	}

	result := &models.QueryResult{
		Schema: make([]models.ColumnSchema, 0, len(types)),
		Rows:   [][]any{},
	}

	for _, t := range types {
		column := models.ColumnSchema{
			Name:     t.Name(),
			DataType: t.DatabaseTypeName(),
		}
		if nullable, ok := t.Nullable(); ok {
			column.Nullable = &nullable
		}
		result.Schema = append(result.Schema, column)
	}

	if schemaOnly {
		return result, nil
	}

	values := make([]sql.NullString, len(types))
	dest := make([]any, len(types))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("unable to scan row: %w", err)
		}

		row := make([]any, len(values))
		for i, v := range values {
			if v.Valid {
				row[i] = v.String
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("unable to read rows: %w", err)
	}

	return result, nil
}

// where collects the optional equality filters of a listing query.
type where struct {
	driver  db.DriverType
	clauses []string
	args    []any
}

func (w *where) add(column, value string) {
	if value == "" {
		return
	}
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = %s", column, w.driver.Placeholder(len(w.args))))
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
