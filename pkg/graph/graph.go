package graph

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/OFFIS-RIT/ownernet/internal/timing"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"
	"github.com/OFFIS-RIT/ownernet/pkg/stream"
)

// LoadStats summarizes one load.
type LoadStats struct {
	Stream     stream.Stats `json:"stream"`
	Graph      BuildStats   `json:"graph"`
	DurationMs int64        `json:"duration_ms"`
}

// LoadNetwork opens file and builds the graph from its stream.
//
// The graph is returned only when the stream ended normally. If opening or
// reading fails, or ctx is done, the partial graph is discarded and the error
// wraps ErrLoadFailed. Malformed lines are dropped and counted in the stats.
func (g *GraphClient) LoadNetwork(ctx context.Context, file loader.NetworkFile) (*common.Graph, LoadStats, error) {
	logger.Info("[Graph] Loading network", "source", file.String(), "id", file.ID)

	body, err := file.Open(ctx)
	if err != nil {
		return nil, LoadStats{}, fmt.Errorf("%w: failed to open %s: %w", ErrLoadFailed, file.String(), err)
	}
	defer body.Close()

	return g.BuildNetwork(ctx, body)
}

// BuildNetwork builds a graph from an already opened stream. Decoding and
// graph mutation run on the calling goroutine, one chunk at a time.
func (g *GraphClient) BuildNetwork(ctx context.Context, r io.Reader) (*common.Graph, LoadStats, error) {
	start := time.Now()
	b := NewBuilder()

	var result *common.Graph
	var failure error
	streamStats, _ := stream.Run(ctx, r, g.decoderOptions(), stream.Events{
		OnChunk: b.Apply,
		OnComplete: func() {
			result, failure = b.Commit()
		},
		OnError: func(err error) {
			failure = b.Fail(err)
		},
	})

	stats := LoadStats{
		Stream:     streamStats,
		Graph:      b.Stats(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if failure != nil {
		logger.Error("[Graph] Network load failed", "err", failure, "lines", streamStats.Lines)
		return nil, stats, failure
	}

	logger.Info(
		"[Graph] Network loaded",
		"principals", stats.Graph.Principals,
		"businesses", stats.Graph.Businesses,
		"properties", stats.Graph.Properties,
		"links", stats.Graph.Links,
		"duplicates", stats.Graph.DuplicateEntities,
		"malformed", streamStats.Malformed,
		"took", timing.FormatDuration(time.Since(start)),
	)
	return result, stats, nil
}
