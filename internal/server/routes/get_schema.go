package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ownernet/pkg/stream"

	"github.com/labstack/echo/v4"
)

// GetChunkSchemaHandler publishes the JSON Schema of one stream line.
func GetChunkSchemaHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, stream.Schema())
}
