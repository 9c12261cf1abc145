package connectai

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/app-sre/connect-ai/pkg/audit"
	"github.com/app-sre/connect-ai/pkg/env/user"
	"github.com/app-sre/connect-ai/pkg/models"
)

// InternalErrorMessage is the reply for failures whose details stay in the
// gateway logs.
const InternalErrorMessage = "An internal error has occurred"

const (
	DefaultBaseURL        = "https://cloud.cdata.com/api"
	DefaultRequestTimeout = 2 * time.Minute
)

// Gateway is the set of operations the query service exposes. It is
// satisfied by the remote REST client and by the direct SQL backend.
type Gateway interface {
	ListCatalogs(ctx context.Context) ([]models.Catalog, error)
	ListSchemas(ctx context.Context, filter models.SchemaFilter) ([]models.Schema, error)
	ListTables(ctx context.Context, filter models.TableFilter) ([]models.Table, error)
	Query(ctx context.Context, request *models.QueryRequest) (*models.QueryResult, error)
	Ping(ctx context.Context) error
}

type Config struct {
	Gateway     Gateway
	UserEnv     *user.Env
	LoggerAudit *audit.LoggerAudit
	SplunkAudit *audit.SplunkAudit
	Logger      *zap.SugaredLogger
}

func Production() bool {
	return os.Getenv("ENVIRONMENT") == "production"
}

// BaseURL returns the address of the query service API, without a
// trailing slash.
func BaseURL() string {
	if s := os.Getenv("CONNECT_AI_BASE_URL"); s != "" {
		return strings.TrimRight(s, "/")
	}
	return DefaultBaseURL
}

func RequestTimeout() time.Duration {
	if s := os.Getenv("REQUEST_TIMEOUT"); s != "" {
		if d, err := parseDuration(s); err == nil {
			return d
		}
	}
	return DefaultRequestTimeout
}

func parseDuration(s string) (time.Duration, error) {
	if _, err := strconv.Atoi(s); err == nil {
		s += "s"
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("unable to parse duration: %w", err)
	}

	return d.Abs(), nil
}
