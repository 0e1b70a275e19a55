package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sbilab/dataviz/internal/service"
	"github.com/sbilab/dataviz/pkg/httpx"
)

// writeServiceError maps service sentinels onto the HTTP error taxonomy.
// Anything unrecognised logs with detail and surfaces as an opaque 500.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrDuplicateUser):
		httpx.WriteError(w, http.StatusBadRequest, "duplicate_user", service.ErrDuplicateUser.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", service.ErrUnauthorized.Error())
	case errors.Is(err, service.ErrInactiveUser):
		httpx.WriteError(w, http.StatusBadRequest, "inactive_user", service.ErrInactiveUser.Error())
	case errors.Is(err, service.ErrExternalToken):
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_token", service.ErrExternalToken.Error())
	case errors.Is(err, service.ErrParse):
		httpx.WriteError(w, http.StatusBadRequest, "malformed_file", err.Error())
	case errors.Is(err, service.ErrUnsupportedPlotType):
		httpx.WriteError(w, http.StatusBadRequest, "unsupported_plot_type", err.Error())
	case errors.Is(err, service.ErrUnknownColumn):
		httpx.WriteError(w, http.StatusBadRequest, "unknown_column", err.Error())
	case errors.Is(err, service.ErrNoData):
		httpx.WriteError(w, http.StatusNotFound, "no_data", service.ErrNoData.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", service.ErrNotFound.Error())
	default:
		log.Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
