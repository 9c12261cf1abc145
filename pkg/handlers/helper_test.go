package handlers

import (
	"context"
	"sync"

	"github.com/app-sre/connect-ai/pkg/models"
)

type fakeGateway struct {
	mu sync.Mutex

	catalogs []models.Catalog
	schemas  []models.Schema
	tables   []models.Table
	result   *models.QueryResult
	err      error

	schemaFilter models.SchemaFilter
	tableFilter  models.TableFilter
	request      *models.QueryRequest
}

func (f *fakeGateway) ListCatalogs(_ context.Context) ([]models.Catalog, error) {
	return f.catalogs, f.err
}

func (f *fakeGateway) ListSchemas(_ context.Context, filter models.SchemaFilter) ([]models.Schema, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.schemaFilter = filter
	return f.schemas, f.err
}

func (f *fakeGateway) ListTables(_ context.Context, filter models.TableFilter) ([]models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tableFilter = filter
	return f.tables, f.err
}

func (f *fakeGateway) Query(_ context.Context, request *models.QueryRequest) (*models.QueryResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.request = request
	return f.result, f.err
}

func (f *fakeGateway) Ping(_ context.Context) error {
	return f.err
}
