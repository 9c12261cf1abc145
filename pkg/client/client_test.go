package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/app-sre/connect-ai/pkg/env"
	"github.com/app-sre/connect-ai/pkg/env/credentials"
	"github.com/app-sre/connect-ai/pkg/models"
	"github.com/app-sre/connect-ai/pkg/version"
)

const (
	testIdentity = "user@example.com"
	testSecret   = "secret"
	// base64("user@example.com:secret")
	testBasicAuth = "Basic dXNlckBleGFtcGxlLmNvbTpzZWNyZXQ="
)

type capture struct {
	method string
	path   string
	query  string
	header http.Header
	body   bytes.Buffer
	count  int
}

func staticCredentials() (*credentials.Env, error) {
	return &credentials.Env{Identity: testIdentity, Secret: testSecret}, nil
}

func missingCredentials() (*credentials.Env, error) {
	return nil, &env.Error{Name: "CONNECT_AI_EMAIL"}
}

func queryServer(t *testing.T, status int, reply string) (*httptest.Server, *capture) {
	t.Helper()

	c := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.count++
		c.method = r.Method
		c.path = r.URL.Path
		c.query = r.URL.RawQuery
		c.header = r.Header.Clone()
		_, _ = io.Copy(&c.body, r.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, reply)
	}))
	t.Cleanup(server.Close)

	return server, c
}

func testClient(server *httptest.Server, options ...Option) *Client {
	options = append([]Option{
		WithBaseURL(server.URL),
		WithHTTPClient(server.Client()),
		WithCredentials(staticCredentials),
	}, options...)

	return New(options...)
}

func TestNew(t *testing.T) {
	t.Setenv("CONNECT_AI_BASE_URL", "https://example.com/api/")
	t.Setenv("REQUEST_TIMEOUT", "30")

	actual := New()

	require.NotNil(t, actual)
	assert.Equal(t, "https://example.com/api", actual.baseURL)
	assert.Zero(t, actual.Timeout())
	assert.NotNil(t, actual.client)
	assert.NotNil(t, actual.credentials)
	assert.NotNil(t, actual.logger)
}

func TestNewWithOptions(t *testing.T) {
	t.Parallel()

	httpClient := &http.Client{}

	actual := New(
		WithBaseURL("http://localhost:8080"),
		WithHTTPClient(httpClient),
		WithTimeout(time.Second),
	)

	require.NotNil(t, actual)
	assert.Equal(t, "http://localhost:8080", actual.baseURL)
	assert.Equal(t, httpClient, actual.client)
	assert.Equal(t, time.Second, actual.Timeout())
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	server, c := queryServer(t, http.StatusOK, `{"results":[{"rows":[]}]}`)

	_, err := testClient(server).ListCatalogs(context.Background())

	require.NoError(t, err)
	assert.Equal(t, testBasicAuth, c.header.Get("Authorization"))
	assert.Equal(t, "application/json", c.header.Get("Content-Type"))
	assert.Equal(t, "application/json", c.header.Get("Accept"))
	assert.Equal(t, fmt.Sprintf("connect-ai/%s", version.Version()), c.header.Get("User-Agent"))

	_, err = uuid.Parse(c.header.Get("X-Request-ID"))
	assert.NoError(t, err)
}

func TestCredentialsReadPerCall(t *testing.T) {
	t.Setenv("CONNECT_AI_EMAIL", "first@example.com")
	t.Setenv("CONNECT_AI_TOKEN", "token")

	server, c := queryServer(t, http.StatusOK, `{"results":[{"rows":[]}]}`)
	client := New(WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	require.NoError(t, client.Ping(context.Background()))
	first := c.header.Get("Authorization")

	t.Setenv("CONNECT_AI_EMAIL", "second@example.com")

	require.NoError(t, client.Ping(context.Background()))
	second := c.header.Get("Authorization")

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, c.count)
}

func TestMissingCredentials(t *testing.T) {
	t.Parallel()

	server, c := queryServer(t, http.StatusOK, `{"results":[{"rows":[]}]}`)
	client := testClient(server, WithCredentials(missingCredentials))

	_, err := client.Query(context.Background(), models.NewQueryRequest("SELECT 1"))

	require.Error(t, err)

	var configErr *ConfigurationError
	require.ErrorAs(t, err, &configErr)

	var envErr *env.Error
	assert.ErrorAs(t, err, &envErr)
	assert.Equal(t, "CONNECT_AI_EMAIL", envErr.Name)
	assert.Equal(t, 0, c.count)
}

func TestListCatalogs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		description string
		status      int
		reply       string
		want        []models.Catalog
		error       bool
		reason      string
	}{
		{
			"catalogs returned",
			http.StatusOK,
			`{"results":[{"schema":[{"columnName":"CatalogName","dataTypeName":"VARCHAR"}],"rows":[["Salesforce"],["Zendesk"]]}]}`,
			[]models.Catalog{{CatalogName: "Salesforce"}, {CatalogName: "Zendesk"}},
			false,
			"",
		},
		{
			"no catalogs",
			http.StatusOK,
			`{"results":[{"rows":[]}]}`,
			[]models.Catalog{},
			false,
			"",
		},
		{
			"no result sets",
			http.StatusOK,
			`{"results":[]}`,
			nil,
			true,
			"missing results",
		},
		{
			"empty row",
			http.StatusOK,
			`{"results":[{"rows":[[]]}]}`,
			nil,
			true,
			"unexpected row shape",
		},
		{
			"body is not JSON",
			http.StatusOK,
			`<html></html>`,
			nil,
			true,
			"malformed response",
		},
		{
			"unauthorized",
			http.StatusUnauthorized,
			`{"error":"invalid credentials"}`,
			nil,
			true,
			"",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			server, c := queryServer(t, tc.status, tc.reply)

			actual, err := testClient(server).ListCatalogs(context.Background())

			assert.Equal(t, http.MethodGet, c.method)
			assert.Equal(t, "/catalogs", c.path)
			assert.Empty(t, c.query)

			if tc.error {
				var requestErr *RequestError
				require.ErrorAs(t, err, &requestErr)
				assert.Equal(t, tc.status, requestErr.StatusCode)
				assert.Equal(t, tc.reply, requestErr.Body)
				assert.Equal(t, c.header.Get("X-Request-ID"), requestErr.RequestID)
				assert.Contains(t, requestErr.Reason, tc.reason)
				assert.Nil(t, actual)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.want, actual)
			}
		})
	}
}

func TestListSchemas(t *testing.T) {
	t.Parallel()

	cases := []struct {
		description string
		given       models.SchemaFilter
		query       string
	}{
		{
			"without filters",
			models.SchemaFilter{},
			"",
		},
		{
			"filtered by catalog",
			models.SchemaFilter{Catalog: "Salesforce"},
			"catalogName=Salesforce",
		},
		{
			"filtered by catalog and schema",
			models.SchemaFilter{Catalog: "Sales force", Schema: "a&b"},
			"catalogName=Sales+force&schemaName=a%26b",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			server, c := queryServer(t, http.StatusOK, `{"results":[{"rows":[["Salesforce","dbo"],["Salesforce","sys",null]]}]}`)

			actual, err := testClient(server).ListSchemas(context.Background(), tc.given)

			require.NoError(t, err)
			assert.Equal(t, "/schemas", c.path)
			assert.Equal(t, tc.query, c.query)
			assert.Equal(t, []models.Schema{
				{Catalog: "Salesforce", SchemaName: "dbo"},
				{Catalog: "Salesforce", SchemaName: "sys"},
			}, actual)
		})
	}
}

func TestListSchemasShortRow(t *testing.T) {
	t.Parallel()

	server, _ := queryServer(t, http.StatusOK, `{"results":[{"rows":[["Salesforce"]]}]}`)

	actual, err := testClient(server).ListSchemas(context.Background(), models.SchemaFilter{})

	var requestErr *RequestError
	require.ErrorAs(t, err, &requestErr)
	assert.Equal(t, "unexpected row shape", requestErr.Reason)
	assert.Nil(t, actual)
}

func TestListTables(t *testing.T) {
	t.Parallel()

	remarks := "Customer accounts"

	cases := []struct {
		description string
		given       models.TableFilter
		reply       string
		query       string
		want        []models.Table
	}{
		{
			"without remarks column",
			models.TableFilter{},
			`{"results":[{"rows":[["Salesforce","Salesforce","Account","TABLE"]]}]}`,
			"",
			[]models.Table{{Catalog: "Salesforce", SchemaName: "Salesforce", TableName: "Account", TableType: "TABLE"}},
		},
		{
			"with null remarks",
			models.TableFilter{Type: "VIEW"},
			`{"results":[{"rows":[["Salesforce","Salesforce","Account","VIEW",null]]}]}`,
			"tableType=VIEW",
			[]models.Table{{Catalog: "Salesforce", SchemaName: "Salesforce", TableName: "Account", TableType: "VIEW"}},
		},
		{
			"with remarks and every filter",
			models.TableFilter{Catalog: "Salesforce", Schema: "Salesforce", Table: "Account", Type: "TABLE"},
			`{"results":[{"rows":[["Salesforce","Salesforce","Account","TABLE","Customer accounts"]]}]}`,
			"catalogName=Salesforce&schemaName=Salesforce&tableName=Account&tableType=TABLE",
			[]models.Table{{Catalog: "Salesforce", SchemaName: "Salesforce", TableName: "Account", TableType: "TABLE", Remarks: &remarks}},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			server, c := queryServer(t, http.StatusOK, tc.reply)

			actual, err := testClient(server).ListTables(context.Background(), tc.given)

			require.NoError(t, err)
			assert.Equal(t, "/tables", c.path)
			assert.Equal(t, tc.query, c.query)
			assert.Equal(t, tc.want, actual)
		})
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()

	reply := `{"results":[{"schema":[{"columnName":"Status","dataTypeName":"VARCHAR","nullable":true},{"columnName":"Count","dataTypeName":"INTEGER"}],"rows":[["Open",5],["Closed",12]],"affectedRows":-1}]}`
	server, c := queryServer(t, http.StatusOK, reply)

	schema := "Zendesk"
	request := models.NewQueryRequest("SELECT Status, COUNT(*) AS Count FROM Tickets GROUP BY Status")
	request.DefaultSchema = &schema

	actual, err := testClient(server).Query(context.Background(), request)

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, c.method)
	assert.Equal(t, "/query", c.path)
	assert.JSONEq(t, `{"query":"SELECT Status, COUNT(*) AS Count FROM Tickets GROUP BY Status","defaultSchema":"Zendesk","schemaOnly":false,"parameters":{}}`, c.body.String())

	nullable := true
	affected := int64(-1)
	assert.Equal(t, &models.QueryResult{
		Schema: []models.ColumnSchema{
			{Name: "Status", DataType: "VARCHAR", Nullable: &nullable},
			{Name: "Count", DataType: "INTEGER"},
		},
		Rows: [][]any{
			{"Open", json.Number("5")},
			{"Closed", json.Number("12")},
		},
		AffectedRows: &affected,
	}, actual)
}

func TestQueryNilParameters(t *testing.T) {
	t.Parallel()

	server, c := queryServer(t, http.StatusOK, `{"results":[{"affectedRows":3}]}`)
	request := &models.QueryRequest{Query: "UPDATE t SET a = 1"}

	actual, err := testClient(server).Query(context.Background(), request)

	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"UPDATE t SET a = 1","defaultSchema":null,"schemaOnly":false,"parameters":{}}`, c.body.String())
	assert.Nil(t, request.Parameters)
	assert.Empty(t, actual.Schema)
	assert.Empty(t, actual.Rows)
	require.NotNil(t, actual.AffectedRows)
	assert.Equal(t, int64(3), *actual.AffectedRows)
}

func TestQueryErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		description string
		status      int
		reply       string
		check       func(*testing.T, error)
	}{
		{
			"internal server error",
			http.StatusInternalServerError,
			`{"error":"boom"}`,
			func(t *testing.T, err error) {
				var requestErr *RequestError
				require.ErrorAs(t, err, &requestErr)
				assert.Equal(t, http.StatusInternalServerError, requestErr.StatusCode)
				assert.Equal(t, `{"error":"boom"}`, requestErr.Body)
				assert.Contains(t, err.Error(), "500")
			},
		},
		{
			"zero result sets",
			http.StatusOK,
			`{"results":[]}`,
			func(t *testing.T, err error) {
				var emptyErr *EmptyResultError
				require.ErrorAs(t, err, &emptyErr)
				assert.Equal(t, `{"results":[]}`, emptyErr.Body)
				assert.True(t, errors.Is(err, ErrEmptyResult))
			},
		},
		{
			"missing result sets",
			http.StatusOK,
			`{}`,
			func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyResult)
			},
		},
		{
			"truncated body",
			http.StatusOK,
			`{"results":[`,
			func(t *testing.T, err error) {
				var requestErr *RequestError
				require.ErrorAs(t, err, &requestErr)
				assert.Equal(t, http.StatusOK, requestErr.StatusCode)
				assert.NotErrorIs(t, err, ErrEmptyResult)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			server, _ := queryServer(t, tc.status, tc.reply)

			actual, err := testClient(server).Query(context.Background(), models.NewQueryRequest("SELECT 1"))

			require.Error(t, err)
			assert.Nil(t, actual)
			tc.check(t, err)
		})
	}
}

func TestQueryNilRequest(t *testing.T) {
	t.Parallel()

	server, c := queryServer(t, http.StatusOK, `{}`)

	_, err := testClient(server).Query(context.Background(), nil)

	require.Error(t, err)
	assert.Equal(t, 0, c.count)
}

func TestQueryTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)

		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	_, err := testClient(server, WithTimeout(50*time.Millisecond)).Query(context.Background(), models.NewQueryRequest("SELECT 1"))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var requestErr *RequestError
	assert.False(t, errors.As(err, &requestErr))
}

func TestTableColumns(t *testing.T) {
	t.Parallel()

	server, c := queryServer(t, http.StatusOK, `{"results":[{"schema":[{"columnName":"Id","dataTypeName":"VARCHAR"}],"rows":[]}]}`)

	actual, err := testClient(server).TableColumns(context.Background(), "Salesforce", "Salesforce", "Account")

	require.NoError(t, err)
	assert.JSONEq(t, `{"query":"SELECT * FROM Salesforce.Salesforce.Account","defaultSchema":null,"schemaOnly":true,"parameters":{}}`, c.body.String())
	assert.Equal(t, []string{"Id"}, actual.Columns())
	assert.Empty(t, actual.Rows)
}

func TestQueryCompact(t *testing.T) {
	t.Parallel()

	server, _ := queryServer(t, http.StatusOK, `{"results":[{"schema":[{"columnName":"Status"},{"columnName":"Count"}],"rows":[["Open","5"],["X"]]}]}`)

	actual, err := testClient(server).QueryCompact(context.Background(), "SELECT Status, Count FROM Tickets")

	require.NoError(t, err)

	content, err := json.Marshal(actual)
	require.NoError(t, err)
	assert.Equal(t, `[{"Status":"Open","Count":"5"},{"Status":"X"}]`, string(content))
}

func TestPing(t *testing.T) {
	t.Parallel()

	cases := []struct {
		description string
		status      int
		error       bool
	}{
		{"upstream available", http.StatusOK, false},
		{"upstream failing", http.StatusServiceUnavailable, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.description, func(t *testing.T) {
			t.Parallel()

			server, c := queryServer(t, tc.status, `{"results":[{"rows":[["Salesforce"]]}]}`)

			err := testClient(server).Ping(context.Background())

			assert.Equal(t, "/catalogs", c.path)
			if tc.error {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
