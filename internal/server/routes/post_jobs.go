package routes

import (
	"encoding/json"
	"net/http"

	"github.com/OFFIS-RIT/ownernet/internal/queue"
	"github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateLoadJobHandler hands a network load to the worker. The result is
// announced on the topic exchange.
func CreateLoadJobHandler(c echo.Context) error {
	type createLoadJobBody struct {
		NetworkID string `json:"network_id"`
		Source    string `json:"source" validate:"required,oneof=web file s3"`
		Location  string `json:"location" validate:"required"`
	}

	type createLoadJobResponse struct {
		Message       string `json:"message"`
		NetworkID     string `json:"network_id,omitempty"`
		CorrelationID string `json:"correlation_id,omitempty"`
	}

	data := new(createLoadJobBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createLoadJobResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createLoadJobResponse{
			Message: "Invalid request body",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if ch == nil {
		return c.JSON(http.StatusServiceUnavailable, createLoadJobResponse{
			Message: "Queue is not configured",
		})
	}

	networkID := data.NetworkID
	if networkID == "" {
		networkID = gonanoid.Must()
	}
	correlationID := gonanoid.Must()

	msg := queue.QueueLoadMsg{
		Message:       "Load network",
		NetworkID:     networkID,
		Source:        loader.NetworkFileType(data.Source),
		Location:      data.Location,
		CorrelationID: correlationID,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createLoadJobResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(ch, queue.LoadQueue, body); err != nil {
		logger.Error("[Server] Failed to enqueue load", "network_id", networkID, "err", err)
		return c.JSON(http.StatusInternalServerError, createLoadJobResponse{
			Message: "Failed to enqueue load",
		})
	}

	return c.JSON(http.StatusAccepted, createLoadJobResponse{
		Message:       "Load queued",
		NetworkID:     networkID,
		CorrelationID: correlationID,
	})
}
