package graph

import "github.com/OFFIS-RIT/ownernet/pkg/stream"

// GraphClient loads ownership networks. It decodes the newline-delimited
// stream of a network file and assembles the graph from it.
//
// A GraphClient should be created using NewGraphClient. It holds no per-load
// state and may be shared by concurrent loads.
type GraphClient struct {
	repairLines  bool
	maxLineBytes int
	readSize     int
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// RepairLines lets the decoder try to repair a malformed line before dropping it.
// MaxLineBytes bounds the size of a single stream line.
// ReadSize is the transport read size.
type NewGraphClientParams struct {
	RepairLines  bool
	MaxLineBytes int
	ReadSize     int
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	client, err := graph.NewGraphClient(graph.NewGraphClientParams{
//		RepairLines: true,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	g, stats, err := client.LoadNetwork(ctx, file)
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	maxLineBytes := params.MaxLineBytes
	if maxLineBytes <= 0 {
		maxLineBytes = stream.DefaultMaxLineBytes
	}
	readSize := params.ReadSize
	if readSize <= 0 {
		readSize = stream.DefaultReadSize
	}
	g := &GraphClient{
		repairLines:  params.RepairLines,
		maxLineBytes: maxLineBytes,
		readSize:     readSize,
	}

	return g, nil
}

func (g *GraphClient) decoderOptions() stream.DecoderOptions {
	return stream.DecoderOptions{
		RepairLines:  g.repairLines,
		MaxLineBytes: g.maxLineBytes,
		ReadSize:     g.readSize,
	}
}
