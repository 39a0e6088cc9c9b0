package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

func TestWebNetworkLoaderStreamsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "abc" {
			t.Errorf("missing header, got %q", r.Header.Get("X-Token"))
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		flusher, _ := w.(http.Flusher)
		fmt.Fprintln(w, `{"type":"entities","data":{"entities":[]}}`)
		if flusher != nil {
			flusher.Flush()
		}
		fmt.Fprintln(w, `{"type":"properties","data":[]}`)
	}))
	defer server.Close()

	l := NewWebNetworkLoader(NewWebNetworkLoaderParams{Headers: map[string]string{"X-Token": "abc"}})
	file := loader.NewWebNetworkFile(loader.NewNetworkFileParams{ID: "n1", Location: server.URL, Loader: l})

	body, err := file.Open(context.Background())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := "{\"type\":\"entities\",\"data\":{\"entities\":[]}}\n{\"type\":\"properties\",\"data\":[]}\n"
	if string(data) != want {
		t.Fatalf("body = %q, want %q", data, want)
	}
}

func TestWebNetworkLoaderRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	l := NewWebNetworkLoader(NewWebNetworkLoaderParams{})
	_, err := l.Open(context.Background(), loader.NetworkFile{Location: server.URL})
	if !errors.Is(err, loader.ErrUnexpectedStatus) {
		t.Fatalf("Open() error = %v, want ErrUnexpectedStatus", err)
	}
}

func TestWebNetworkLoaderHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewWebNetworkLoader(NewWebNetworkLoaderParams{})
	_, err := l.Open(ctx, loader.NetworkFile{Location: "http://127.0.0.1:1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Open() error = %v, want context.Canceled", err)
	}
}
