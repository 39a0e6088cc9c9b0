package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/server/middleware"

	"github.com/labstack/echo/v4"
)

// DeleteNetworkHandler cancels any running load and drops the network.
func DeleteNetworkHandler(c echo.Context) error {
	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}

	if err := c.(*middleware.AppContext).App.Sessions.Delete(id); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, networkResponse{
		Message: "Network deleted",
	})
}
