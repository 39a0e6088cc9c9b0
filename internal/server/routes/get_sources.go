package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/internal/storage"

	"github.com/labstack/echo/v4"
)

// GetSourcesHandler lists the network dumps in object storage.
func GetSourcesHandler(c echo.Context) error {
	type sourcesResponse struct {
		Bucket string   `json:"bucket"`
		Keys   []string `json:"keys"`
	}

	client := c.(*middleware.AppContext).App.S3
	if client == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Object storage is not configured"})
	}

	keys, err := storage.ListNetworkFiles(c.Request().Context(), client, c.QueryParam("prefix"))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, sourcesResponse{Bucket: storage.Bucket(), Keys: keys})
}
