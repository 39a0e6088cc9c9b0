package storage

import (
	"github.com/OFFIS-RIT/ownernet/internal/util"
	"github.com/OFFIS-RIT/ownernet/pkg/graph"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	loaderio "github.com/OFFIS-RIT/ownernet/pkg/loader/io"
	loaders3 "github.com/OFFIS-RIT/ownernet/pkg/loader/s3"
	"github.com/OFFIS-RIT/ownernet/pkg/loader/web"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"
)

// NewLoaders returns the network file loaders enabled by the environment.
// Web sources are always available, file sources need NETWORK_DATA_DIR and
// S3 sources need a client.
func NewLoaders(s3Client loaders3.ObjectGetter) loader.Loaders {
	loaders := loader.Loaders{
		loader.NetworkFileTypeWeb: web.NewWebNetworkLoader(web.NewWebNetworkLoaderParams{
			Timeout: util.GetEnvSeconds("HTTP_SOURCE_TIMEOUT", 0),
		}),
	}

	if dir := util.GetEnv("NETWORK_DATA_DIR"); dir != "" {
		loaders[loader.NetworkFileTypeFile] = loaderio.NewIONetworkLoader(dir)
	}
	if s3Client != nil {
		loaders[loader.NetworkFileTypeS3] = loaders3.NewS3NetworkLoaderWithClient(Bucket(), s3Client)
	}

	enabled := make([]string, 0, len(loaders))
	for typ := range loaders {
		enabled = append(enabled, string(typ))
	}
	logger.Debug("[Storage] Network sources enabled", "sources", enabled)
	return loaders
}

// NewGraphClient creates a graph client configured from the STREAM_*
// variables.
func NewGraphClient() (*graph.GraphClient, error) {
	return graph.NewGraphClient(graph.NewGraphClientParams{
		RepairLines:  util.GetEnvBool("STREAM_REPAIR_LINES", false),
		MaxLineBytes: util.GetEnvInt("STREAM_MAX_LINE_BYTES", 0),
		ReadSize:     util.GetEnvInt("STREAM_READ_BUFFER", 0),
	})
}
