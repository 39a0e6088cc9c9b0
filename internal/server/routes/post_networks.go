package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/query"

	"github.com/labstack/echo/v4"
)

type networkResponse struct {
	Message string           `json:"message"`
	Network *session.Network `json:"network,omitempty"`
}

// CreateNetworkHandler registers a network source and starts loading it.
// With wait set the response is sent once the load has finished.
func CreateNetworkHandler(c echo.Context) error {
	type createNetworkBody struct {
		Source   string `json:"source" validate:"required,oneof=web file s3"`
		Location string `json:"location" validate:"required"`
		Wait     bool   `json:"wait"`
	}

	data := new(createNetworkBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request body",
		})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	n, err := sessions.Create(loader.NetworkFileType(data.Source), data.Location)
	if err != nil {
		return errorJSON(c, err)
	}

	if !data.Wait {
		return c.JSON(http.StatusAccepted, networkResponse{
			Message: "Network load started",
			Network: &n,
		})
	}

	n, err = sessions.Wait(c.Request().Context(), n.ID, n.Generation)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, networkResponse{
		Message: "Network loaded",
		Network: &n,
	})
}

// ReloadNetworkHandler restarts the load of a network. A load that is still
// running is superseded.
func ReloadNetworkHandler(c echo.Context) error {
	type reloadNetworkParams struct {
		NetworkID string `param:"id" validate:"required"`
	}

	params := new(reloadNetworkParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, networkResponse{
			Message: "Invalid request params",
		})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	n, err := sessions.Reload(params.NetworkID)
	if err != nil {
		return errorJSON(c, err)
	}

	if c.QueryParam("wait") != "true" {
		return c.JSON(http.StatusAccepted, networkResponse{
			Message: "Network reload started",
			Network: &n,
		})
	}

	n, err = sessions.Wait(c.Request().Context(), n.ID, n.Generation)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, networkResponse{
		Message: "Network reloaded",
		Network: &n,
	})
}

// FocusNetworkBatchHandler answers several focus requests against one
// committed graph. Failures are reported per request.
func FocusNetworkBatchHandler(c echo.Context) error {
	type focusBatchBody struct {
		NetworkID string               `param:"id" validate:"required"`
		Requests  []query.FocusRequest `json:"requests" validate:"required,min=1,dive"`
	}

	type focusBatchResponse struct {
		Message string              `json:"message"`
		Results []query.FocusResult `json:"results,omitempty"`
	}

	data := new(focusBatchBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, focusBatchResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, focusBatchResponse{
			Message: "Invalid request body",
		})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	results, err := sessions.FocusMany(c.Request().Context(), data.NetworkID, data.Requests)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, focusBatchResponse{
		Message: "OK",
		Results: results,
	})
}
