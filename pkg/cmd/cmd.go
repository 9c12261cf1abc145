package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	gorillaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
	"go.uber.org/zap"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/audit"
	"github.com/app-sre/connect-ai/pkg/backend/sqldb"
	"github.com/app-sre/connect-ai/pkg/client"
	"github.com/app-sre/connect-ai/pkg/env"
	"github.com/app-sre/connect-ai/pkg/env/db"
	"github.com/app-sre/connect-ai/pkg/env/splunk"
	"github.com/app-sre/connect-ai/pkg/env/user"
	"github.com/app-sre/connect-ai/pkg/handlers"
	"github.com/app-sre/connect-ai/pkg/middleware"
	"github.com/app-sre/connect-ai/pkg/version"
)

const (
	readTimeout       = 1 * time.Minute
	readHeaderTimeout = 20 * time.Second
	writeGracePeriod  = 10 * time.Second

	defaultPort = 8080
)

const (
	BackendRemote = "remote"
	BackendSQL    = "sql"
)

type BackendError struct {
	Backend string
}

func (e *BackendError) Error() string {
	return "unable to use backend: " + e.Backend
}

// NewGateway returns the gateway selected by the BACKEND environment
// variable. The returned database handle is nil unless the SQL backend is
// in use.
func NewGateway(logger *zap.SugaredLogger) (connectai.Gateway, *sql.DB, error) {
	backend := os.Getenv("BACKEND")
	if backend == "" {
		backend = BackendRemote
	}

	switch backend {
	case BackendRemote:
		logger.Infof("Using query service: %s", connectai.BaseURL())
		return client.New(
			client.WithLogger(logger),
			client.WithTimeout(connectai.RequestTimeout()),
		), nil, nil
	case BackendSQL:
		dbe := db.NewDBEnv()
		if err := dbe.Populate(); err != nil {
			return nil, nil, fmt.Errorf("unable to configure database: %w", err)
		}
		logger.Infof("Using database driver: %s (write access: %t)", dbe.Driver, dbe.AllowWrite)

		conn, err := sqldb.Open(dbe)
		if err != nil {
			return nil, nil, err
		}
		logger.Debugf("Using database host: %s (port: %d)", dbe.Host, dbe.Port)

		return sqldb.New(conn, dbe, sqldb.WithLogger(logger)), conn, nil
	default:
		return nil, nil, &BackendError{Backend: backend}
	}
}

// NewRouter wires the gateway routes. Health checks are logged to
// healthLog and everything else to accessLog.
func NewRouter(cfg *connectai.Config, accessLog, healthLog io.Writer) http.Handler {
	logHandler := gorillaHandlers.LoggingHandler

	base := alice.New(
		alice.Constructor(middleware.Recovery(cfg)),
		alice.Constructor(middleware.Timeout(connectai.RequestTimeout())),
		alice.Constructor(middleware.Authorization(cfg)),
	)
	queryChain := base.Append(
		alice.Constructor(middleware.Audit(cfg)),
	).Then(handlers.Query(cfg))

	r := mux.NewRouter()
	r.Handle("/healthcheck", logHandler(healthLog, handlers.Healthcheck(cfg))).Methods(http.MethodGet)
	r.Handle("/catalogs", logHandler(accessLog, base.Then(handlers.Catalogs(cfg)))).Methods(http.MethodGet)
	r.Handle("/schemas", logHandler(accessLog, base.Then(handlers.Schemas(cfg)))).Methods(http.MethodGet)
	r.Handle("/tables", logHandler(accessLog, base.Then(handlers.Tables(cfg)))).Methods(http.MethodGet)
	r.Handle("/query", logHandler(accessLog, queryChain)).Methods(http.MethodPost)

	return r
}

// writeTimeout leaves room past the request timeout for the timeout reply
// to be written. A zero request timeout disables both.
func writeTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return 0
	}
	return requestTimeout + writeGracePeriod
}

func Port() (int, error) {
	s := os.Getenv("PORT")
	if s == "" {
		return defaultPort, nil
	}

	port, err := strconv.Atoi(s)
	if err != nil || port < 1 || port > 65535 {
		return 0, &env.TypeError{Name: "PORT"}
	}
	return port, nil
}

func Run(logger *zap.SugaredLogger) error {
	production := connectai.Production()
	logger.Infof("Starting connect-ai version: %s", version.Version())

	usere := user.NewUserEnv()
	if err := usere.Populate(); err != nil {
		return fmt.Errorf("unable to configure users: %w", err)
	}

	logger.Infof("Production: %t, restricted: %t", production, usere.IsRestricted())
	logger.Debugf("Authorized users: %v", usere.Users)

	gateway, conn, err := NewGateway(logger)
	if err != nil {
		return err
	}
	if conn != nil {
		defer conn.Close()
	}

	se := splunk.NewSplunkEnv()
	if err := se.Populate(); err != nil {
		return fmt.Errorf("unable to configure Splunk: %w", err)
	}

	cfg := &connectai.Config{
		Gateway:     gateway,
		UserEnv:     usere,
		LoggerAudit: audit.NewLoggerAudit(logger),
		Logger:      logger,
	}
	if se.Enabled() {
		logger.Infof("Sending audit to Splunk endpoint: %s", se.Endpoint)
		cfg.SplunkAudit = audit.NewSplunkAudit(se)
	}

	// Temp workaround for easy to access io.Writer.
	defaultLogOutput := log.Default().Writer()

	healthLogOutput := io.Discard
	if !production {
		healthLogOutput = defaultLogOutput
	}

	port, err := Port()
	if err != nil {
		return fmt.Errorf("unable to configure HTTP server: %w", err)
	}
	logger.Infof("HTTP server starting on port: %d", port)

	server := &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           NewRouter(cfg, defaultLogOutput, healthLogOutput),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout(connectai.RequestTimeout()),
	}
	if err := server.ListenAndServe(); err != nil {
		return fmt.Errorf("unable to start HTTP server: %w", err)
	}

	return nil
}
