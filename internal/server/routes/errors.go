package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"
	"github.com/OFFIS-RIT/ownernet/pkg/query"

	"github.com/labstack/echo/v4"
)

func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, query.ErrFocalNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrNotReady), errors.Is(err, session.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, loader.ErrUnsupportedSource):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorJSON(c echo.Context, err error) error {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("[Server] Request failed", "path", c.Path(), "err", err)
		return c.JSON(status, map[string]string{"error": "Internal server error"})
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}
