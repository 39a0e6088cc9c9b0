package server

import (
	"github.com/OFFIS-RIT/ownernet/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Network routes
	apiRoutes.GET("/networks", routes.GetNetworksHandler)
	apiRoutes.POST("/networks", routes.CreateNetworkHandler)
	apiRoutes.GET("/networks/:id", routes.GetNetworkHandler)
	apiRoutes.DELETE("/networks/:id", routes.DeleteNetworkHandler)
	apiRoutes.POST("/networks/:id/reload", routes.ReloadNetworkHandler)

	// Graph views
	apiRoutes.GET("/networks/:id/graph", routes.GetNetworkGraphHandler)
	apiRoutes.GET("/networks/:id/buildings", routes.GetBuildingsHandler)
	apiRoutes.GET("/networks/:id/focus/:entity_id", routes.GetFocusHandler)
	apiRoutes.POST("/networks/:id/focus", routes.FocusNetworkBatchHandler)

	// Worker jobs and sources
	apiRoutes.POST("/jobs/load", routes.CreateLoadJobHandler)
	apiRoutes.GET("/sources", routes.GetSourcesHandler)
	apiRoutes.GET("/schema/chunks", routes.GetChunkSchemaHandler)
}
