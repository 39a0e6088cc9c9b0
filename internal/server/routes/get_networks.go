package routes

import (
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/grouping"
	"github.com/OFFIS-RIT/ownernet/pkg/query"

	"github.com/labstack/echo/v4"
)

type networkIDParams struct {
	NetworkID string `param:"id" validate:"required"`
}

func bindNetworkID(c echo.Context) (string, bool) {
	params := new(networkIDParams)
	if err := c.Bind(params); err != nil {
		return "", false
	}
	if err := c.Validate(params); err != nil {
		return "", false
	}
	return params.NetworkID, true
}

func GetNetworksHandler(c echo.Context) error {
	sessions := c.(*middleware.AppContext).App.Sessions
	return c.JSON(http.StatusOK, sessions.List())
}

func GetNetworkHandler(c echo.Context) error {
	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	n, err := c.(*middleware.AppContext).App.Sessions.Get(id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

// GetNetworkGraphHandler returns the whole committed graph.
func GetNetworkGraphHandler(c echo.Context) error {
	type graphResponse struct {
		Generation int `json:"generation"`
		*common.Graph
	}

	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	g, gen, err := c.(*middleware.AppContext).App.Sessions.Graph(id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, graphResponse{Generation: gen, Graph: g})
}

// GetBuildingsHandler returns the properties of a network grouped into
// composite buildings and single parcels.
func GetBuildingsHandler(c echo.Context) error {
	type buildingsResponse struct {
		Summary grouping.Summary `json:"summary"`
		Items   []grouping.Item  `json:"items"`
	}

	id, ok := bindNetworkID(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	items, err := c.(*middleware.AppContext).App.Sessions.Buildings(id)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, buildingsResponse{
		Summary: grouping.Summarize(items),
		Items:   items,
	})
}

// GetFocusHandler returns the view around one entity. With trace=true the
// response also lists which links and properties matched.
func GetFocusHandler(c echo.Context) error {
	type focusParams struct {
		NetworkID string `param:"id" validate:"required"`
		EntityID  string `param:"entity_id" validate:"required"`
		Type      string `query:"type" validate:"omitempty,oneof=principal business"`
		Trace     bool   `query:"trace"`
	}

	type focusResponse struct {
		*query.NetworkView
		Trace *query.QueryTraceSnapshot `json:"trace,omitempty"`
	}

	params := new(focusParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	req := query.FocusRequest{
		ID:   common.ID(params.EntityID),
		Type: common.EntityType(params.Type),
	}

	if !params.Trace {
		view, err := sessions.Focus(params.NetworkID, req)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(http.StatusOK, focusResponse{NetworkView: view})
	}

	trace := query.NewQueryTrace()
	view, err := sessions.Focus(params.NetworkID, req, query.WithTracer(trace))
	if err != nil {
		return errorJSON(c, err)
	}
	snapshot := trace.Snapshot()
	return c.JSON(http.StatusOK, focusResponse{NetworkView: view, Trace: &snapshot})
}
