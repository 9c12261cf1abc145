package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/etherlabsio/healthcheck/v2"

	connectai "github.com/app-sre/connect-ai/pkg"
)

func Healthcheck(cfg *connectai.Config) http.Handler {
	return healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker(
			"upstream", healthcheck.CheckerFunc(
				func(ctx context.Context) error {
					if err := cfg.Gateway.Ping(ctx); err != nil {
						cfg.Logger.Errorf("Unable to connect to the upstream: %s", err)
						return errors.New("Unable to connect to the upstream")
					}
					return nil
				},
			),
		),
	)
}
