package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrUnexpectedStatus is returned by remote loaders when the source answers
// with a non-success status before any data was sent.
var ErrUnexpectedStatus = errors.New("unexpected status")

// ErrUnsupportedSource is returned when no loader is registered for a file
// type.
var ErrUnsupportedSource = errors.New("unsupported network source")

type NetworkFileType string

const (
	NetworkFileTypeWeb  NetworkFileType = "web"
	NetworkFileTypeFile NetworkFileType = "file"
	NetworkFileTypeS3   NetworkFileType = "s3"
)

// NetworkFile is one newline-delimited JSON dump of an ownership network,
// addressed by Location. What Location means depends on the type: a URL, a
// path below the data directory, or an object key.
//
// The body is opened through the associated NetworkFileLoader.
type NetworkFile struct {
	ID       string
	Location string
	FileType NetworkFileType
	Loader   NetworkFileLoader
}

// NewNetworkFileParams defines the input parameters for creating a
// NetworkFile.
type NewNetworkFileParams struct {
	ID       string
	Location string
	Loader   NetworkFileLoader
}

// NewWebNetworkFile creates a NetworkFile that is fetched over HTTP.
func NewWebNetworkFile(params NewNetworkFileParams) NetworkFile {
	return newNetworkFile(NetworkFileTypeWeb, params)
}

// NewLocalNetworkFile creates a NetworkFile that is read from disk.
func NewLocalNetworkFile(params NewNetworkFileParams) NetworkFile {
	return newNetworkFile(NetworkFileTypeFile, params)
}

// NewS3NetworkFile creates a NetworkFile that is read from object storage.
func NewS3NetworkFile(params NewNetworkFileParams) NetworkFile {
	return newNetworkFile(NetworkFileTypeS3, params)
}

func newNetworkFile(typ NetworkFileType, params NewNetworkFileParams) NetworkFile {
	return NetworkFile{
		ID:       params.ID,
		Location: params.Location,
		FileType: typ,
		Loader:   params.Loader,
	}
}

// Open starts reading the file. The caller must close the returned body.
//
// Example:
//
//	body, err := file.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer body.Close()
func (f *NetworkFile) Open(ctx context.Context) (io.ReadCloser, error) {
	if f.Loader == nil {
		return nil, fmt.Errorf("%w: %s has no loader", ErrUnsupportedSource, f.FileType)
	}
	return f.Loader.Open(ctx, *f)
}

func (f NetworkFile) String() string {
	return fmt.Sprintf("%s:%s", f.FileType, f.Location)
}

// NetworkFileLoader defines the interface for opening the body of a
// NetworkFile. Implementations may read from the web, disk, or object storage.
// Bodies are streamed, never buffered as a whole.
type NetworkFileLoader interface {
	Open(ctx context.Context, file NetworkFile) (io.ReadCloser, error)
}

// Loaders maps file types to the loader responsible for them.
type Loaders map[NetworkFileType]NetworkFileLoader

// NewFile resolves the loader for typ and returns the file.
func (l Loaders) NewFile(typ NetworkFileType, id, location string) (NetworkFile, error) {
	fl, ok := l[typ]
	if !ok || fl == nil {
		return NetworkFile{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, typ)
	}
	return newNetworkFile(typ, NewNetworkFileParams{ID: id, Location: location, Loader: fl}), nil
}
