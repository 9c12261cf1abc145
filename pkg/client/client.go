// Package client talks to the query service REST API. Every call is a
// single authenticated round trip; nothing is cached or retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/env/credentials"
	"github.com/app-sre/connect-ai/pkg/format"
	"github.com/app-sre/connect-ai/pkg/models"
	"github.com/app-sre/connect-ai/pkg/version"
)

const connectTimeout = 5 * time.Second

const (
	catalogsEndpoint = "/catalogs"
	schemasEndpoint  = "/schemas"
	tablesEndpoint   = "/tables"
	queryEndpoint    = "/query"
)

// CredentialsFunc returns the credentials for the next request.
type CredentialsFunc func() (*credentials.Env, error)

type Client struct {
	baseURL     string
	credentials CredentialsFunc
	timeout     time.Duration

	client *http.Client
	logger *zap.SugaredLogger
}

var _ connectai.Gateway = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.client = client
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithCredentials(fn CredentialsFunc) Option {
	return func(c *Client) {
		c.credentials = fn
	}
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// New returns a client for the query service at CONNECT_AI_BASE_URL. Calls
// carry no deadline beyond the caller's context unless WithTimeout is given.
func New(options ...Option) *Client {
	c := &Client{
		baseURL:     connectai.BaseURL(),
		credentials: credentials.Load,
		logger:      zap.NewNop().Sugar(),
	}

	c.client = &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
		},
	}

	for _, option := range options {
		option(c)
	}

	return c
}

func (c *Client) ListCatalogs(ctx context.Context) ([]models.Catalog, error) {
	rows, err := c.rows(ctx, catalogsEndpoint, nil, 1)
	if err != nil {
		return nil, err
	}

	catalogs := make([]models.Catalog, 0, len(rows))
	for _, row := range rows {
		catalogs = append(catalogs, models.Catalog{
			CatalogName: format.Stringify(row[0]),
		})
	}

	return catalogs, nil
}

func (c *Client) ListSchemas(ctx context.Context, filter models.SchemaFilter) ([]models.Schema, error) {
	params := url.Values{}
	addParam(params, "catalogName", filter.Catalog)
	addParam(params, "schemaName", filter.Schema)

	rows, err := c.rows(ctx, schemasEndpoint, params, 2)
	if err != nil {
		return nil, err
	}

	schemas := make([]models.Schema, 0, len(rows))
	for _, row := range rows {
		schemas = append(schemas, models.Schema{
			Catalog:    format.Stringify(row[0]),
			SchemaName: format.Stringify(row[1]),
		})
	}

	return schemas, nil
}

func (c *Client) ListTables(ctx context.Context, filter models.TableFilter) ([]models.Table, error) {
	params := url.Values{}
	addParam(params, "catalogName", filter.Catalog)
	addParam(params, "schemaName", filter.Schema)
	addParam(params, "tableName", filter.Table)
	addParam(params, "tableType", filter.Type)

	rows, err := c.rows(ctx, tablesEndpoint, params, 4)
	if err != nil {
		return nil, err
	}

	tables := make([]models.Table, 0, len(rows))
	for _, row := range rows {
		table := models.Table{
			Catalog:    format.Stringify(row[0]),
			SchemaName: format.Stringify(row[1]),
			TableName:  format.Stringify(row[2]),
			TableType:  format.Stringify(row[3]),
		}
		if len(row) > 4 && row[4] != nil {
			remarks := format.Stringify(row[4])
			table.Remarks = &remarks
		}
		tables = append(tables, table)
	}

	return tables, nil
}

// Query runs the statement and returns its first result set.
func (c *Client) Query(ctx context.Context, request *models.QueryRequest) (*models.QueryResult, error) {
	if request == nil {
		return nil, fmt.Errorf("unable to run query: request is nil")
	}

	body := *request
	if body.Parameters == nil {
		body.Parameters = map[string]models.QueryParameter{}
	}

	r, err := c.do(ctx, http.MethodPost, queryEndpoint, nil, &body)
	if err != nil {
		return nil, err
	}

	if len(r.response.Results) == 0 {
		return nil, &EmptyResultError{Body: r.body}
	}

	result := r.response.Results[0]
	if result.Schema == nil {
		result.Schema = []models.ColumnSchema{}
	}
	if result.Rows == nil {
		result.Rows = [][]any{}
	}

	return &result, nil
}

// TableColumns describes the columns of a table without fetching any of
// its rows.
func (c *Client) TableColumns(ctx context.Context, catalog, schema, table string) (*models.QueryResult, error) {
	request := models.NewQueryRequest(fmt.Sprintf("SELECT * FROM %s.%s.%s", catalog, schema, table))
	request.SchemaOnly = true

	return c.Query(ctx, request)
}

// QueryCompact runs the statement and returns its rows as records keyed by
// column name.
func (c *Client) QueryCompact(ctx context.Context, query string) ([]format.Record, error) {
	result, err := c.Query(ctx, models.NewQueryRequest(query))
	if err != nil {
		return nil, err
	}
	return format.ToCompactRecords(result), nil
}

// Timeout returns the deadline applied to each request, zero when none is.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListCatalogs(ctx)
	return err
}

type reply struct {
	response  models.Response
	status    int
	body      string
	requestID string
}

// rows fetches a metadata listing and checks that every row carries at
// least the given number of values.
func (c *Client) rows(ctx context.Context, endpoint string, params url.Values, width int) ([][]any, error) {
	r, err := c.do(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}

	if len(r.response.Results) == 0 {
		return nil, r.failure("missing results")
	}

	rows := r.response.Results[0].Rows
	for _, row := range rows {
		if len(row) < width {
			return nil, r.failure("unexpected row shape")
		}
	}

	return rows, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, payload any) (*reply, error) {
	creds, err := c.credentials()
	if err != nil {
		return nil, &ConfigurationError{Cause: err}
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		content, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("unable to marshal request body: %w", err)
		}
		body = bytes.NewReader(content)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %w", err)
	}

	requestID := uuid.NewString()

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Basic %s", creds.BasicAuth()))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("connect-ai/%s", version.Version()))
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debugw("Sending request", "method", method, "url", u, "request_id", requestID)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to send request to %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	c.logger.Debugw("Received response", "status", resp.StatusCode, "request_id", requestID)

	r := &reply{
		status:    resp.StatusCode,
		body:      string(content),
		requestID: requestID,
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, r.failure("")
	}

	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	if err := decoder.Decode(&r.response); err != nil {
		return nil, r.failure(fmt.Sprintf("malformed response: %s", err))
	}

	return r, nil
}

func (r *reply) failure(reason string) *RequestError {
	return &RequestError{
		StatusCode: r.status,
		Body:       r.body,
		RequestID:  r.requestID,
		Reason:     reason,
	}
}

func addParam(params url.Values, key, value string) {
	if value != "" {
		params.Set(key, value)
	}
}
