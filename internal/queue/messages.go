package queue

import (
	"time"

	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/pkg/graph"
	"github.com/OFFIS-RIT/ownernet/pkg/grouping"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

// QueueLoadMsg asks a worker to load a network file.
type QueueLoadMsg struct {
	Message       string                 `json:"message,omitempty"`
	NetworkID     string                 `json:"network_id" validate:"required"`
	Source        loader.NetworkFileType `json:"source" validate:"required,oneof=web file s3"`
	Location      string                 `json:"location" validate:"required"`
	CorrelationID string                 `json:"correlation_id"`
}

// NetworkEventMsg is published on the topic exchange when a load finishes.
type NetworkEventMsg struct {
	NetworkID     string                 `json:"network_id"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Source        loader.NetworkFileType `json:"source"`
	Location      string                 `json:"location"`
	Generation    int                    `json:"generation,omitempty"`
	Status        session.Status         `json:"status"`
	Error         string                 `json:"error,omitempty"`
	Attempts      int                    `json:"attempts,omitempty"`
	Stats         *graph.LoadStats       `json:"stats,omitempty"`
	Buildings     *grouping.Summary      `json:"buildings,omitempty"`
	FinishedAt    time.Time              `json:"finished_at"`
}

// Topic returns the routing key of the event.
func (m NetworkEventMsg) Topic() string {
	if m.Status == session.StatusReady {
		return TopicNetworkLoaded
	}
	return TopicNetworkFailed
}

// EventFromNetwork builds the event for a finished session load.
func EventFromNetwork(n session.Network) NetworkEventMsg {
	ev := NetworkEventMsg{
		NetworkID:  n.ID,
		Source:     n.Source,
		Location:   n.Location,
		Generation: n.Generation,
		Status:     n.Status,
		Error:      n.Error,
		Stats:      n.Stats,
		FinishedAt: time.Now().UTC(),
	}
	if n.FinishedAt != nil {
		ev.FinishedAt = n.FinishedAt.UTC()
	}
	return ev
}
