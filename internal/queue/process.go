package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/internal/timing"
	"github.com/OFFIS-RIT/ownernet/internal/util"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/graph"
	"github.com/OFFIS-RIT/ownernet/pkg/grouping"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"

	"github.com/go-playground/validator"
)

// ErrInvalidMessage marks messages that will never succeed and should not be
// retried.
var ErrInvalidMessage = errors.New("invalid queue message")

var validate = validator.New()

// ProcessLoadParams holds what ProcessLoadMessage needs.
type ProcessLoadParams struct {
	Client  session.NetworkLoader
	Loaders loader.Loaders
	Channel Channel
	Retry   util.RetryPolicy
}

type loadResult struct {
	graph *common.Graph
	stats graph.LoadStats
}

// ProcessLoadMessage loads the network named in msg and publishes a summary
// event. The load is retried according to params.Retry; a failed load is
// still announced before the error is returned.
func ProcessLoadMessage(ctx context.Context, params ProcessLoadParams, msg string) error {
	data := new(QueueLoadMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	if err := validate.Struct(data); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	file, err := params.Loaders.NewFile(data.Source, data.NetworkID, data.Location)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	policy := params.Retry
	if policy.Retryable == nil {
		policy.Retryable = func(err error) bool {
			return !errors.Is(err, loader.ErrUnsupportedSource)
		}
	}

	start := time.Now()
	attempts := 0
	res, err := util.RetryWithContext(ctx, policy, func(ctx context.Context) (loadResult, error) {
		attempts++
		if attempts > 1 {
			logger.Warn("[Queue] Retrying network load", "network_id", data.NetworkID, "attempt", attempts)
		}
		g, stats, err := params.Client.LoadNetwork(ctx, file)
		return loadResult{graph: g, stats: stats}, err
	})

	ev := NetworkEventMsg{
		NetworkID:     data.NetworkID,
		CorrelationID: data.CorrelationID,
		Source:        file.FileType,
		Location:      file.Location,
		Attempts:      attempts,
		FinishedAt:    time.Now().UTC(),
	}
	if err != nil {
		ev.Status = session.StatusFailed
		ev.Error = err.Error()
		if pubErr := publishEvent(params.Channel, ev); pubErr != nil {
			logger.Error("[Queue] Failed to publish failure event", "network_id", data.NetworkID, "err", pubErr)
		}
		return fmt.Errorf("failed to load network %s: %w", data.NetworkID, err)
	}

	summary := grouping.Summarize(grouping.Group(res.graph.Properties))
	ev.Status = session.StatusReady
	ev.Stats = &res.stats
	ev.Buildings = &summary

	logger.Info(
		"[Queue] Network loaded",
		"network_id", data.NetworkID,
		"properties", res.stats.Graph.Properties,
		"buildings", summary.Buildings,
		"attempts", attempts,
		"duration", timing.FormatDuration(time.Since(start)),
	)

	if err := publishEvent(params.Channel, ev); err != nil {
		return fmt.Errorf("failed to publish load event: %w", err)
	}
	return nil
}

// PublishNetworkEvent announces a finished load on the topic exchange.
func PublishNetworkEvent(ch Channel, ev NetworkEventMsg) error {
	return publishEvent(ch, ev)
}

func publishEvent(ch Channel, ev NetworkEventMsg) error {
	if ch == nil {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return PublishTopic(ch, ev.Topic(), body)
}
