package loader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

type stringLoader struct {
	body string
}

func (s stringLoader) Open(ctx context.Context, file NetworkFile) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body + file.Location)), nil
}

func TestLoadersNewFile(t *testing.T) {
	loaders := Loaders{NetworkFileTypeFile: stringLoader{body: "read:"}}

	file, err := loaders.NewFile(NetworkFileTypeFile, "n1", "hartford.ndjson")
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	if file.String() != "file:hartford.ndjson" {
		t.Fatalf("String() = %q", file.String())
	}

	body, err := file.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "read:hartford.ndjson" {
		t.Fatalf("body = %q", data)
	}
}

func TestLoadersNewFileUnsupported(t *testing.T) {
	_, err := Loaders{}.NewFile(NetworkFileTypeS3, "n1", "key")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("NewFile() error = %v, want ErrUnsupportedSource", err)
	}

	file := NewWebNetworkFile(NewNetworkFileParams{ID: "n2", Location: "http://example.invalid"})
	if _, err := file.Open(context.Background()); !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("Open() error = %v, want ErrUnsupportedSource", err)
	}
}
