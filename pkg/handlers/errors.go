package handlers

import (
	"errors"
	"fmt"
	"net/http"

	connectai "github.com/app-sre/connect-ai/pkg"
	"github.com/app-sre/connect-ai/pkg/backend/sqldb"
	"github.com/app-sre/connect-ai/pkg/client"
)

// writeError translates an error returned by the gateway into an HTTP
// status code and message.
func writeError(cfg *connectai.Config, w http.ResponseWriter, err error) {
	var (
		configErr  *client.ConfigurationError
		requestErr *client.RequestError
	)

	switch {
	case errors.As(err, &configErr):
		cfg.Logger.Errorf("Unable to authenticate with the query service: %s", err)
		http.Error(w, connectai.InternalErrorMessage, http.StatusInternalServerError)
	case errors.As(err, &requestErr):
		cfg.Logger.Errorf("Query service request %s failed: %s", requestErr.RequestID, err)
		l := fmt.Sprintf("Query service returned an error (%d): %s", requestErr.StatusCode, requestErr.Body)
		http.Error(w, l, http.StatusBadGateway)
	case errors.Is(err, client.ErrEmptyResult):
		http.Error(w, "Query did not return any result sets", http.StatusNotFound)
	case errors.Is(err, sqldb.ErrParametersUnsupported), errors.Is(err, sqldb.ErrDefaultSchemaUnsupported):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		cfg.Logger.Errorf("Unable to complete request: %s", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
