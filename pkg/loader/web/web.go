package web

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/OFFIS-RIT/ownernet/pkg/loader"
)

// WebNetworkLoader streams network dumps from HTTP endpoints. The response
// body is handed to the caller as it arrives.
type WebNetworkLoader struct {
	client  *http.Client
	headers map[string]string
}

// NewWebNetworkLoaderParams configures a WebNetworkLoader.
//
// Timeout bounds the whole request including reading the body; zero means no
// limit. Headers are added to every request.
type NewWebNetworkLoaderParams struct {
	Timeout time.Duration
	Headers map[string]string
	Client  *http.Client
}

// NewWebNetworkLoader creates a new web loader.
func NewWebNetworkLoader(params NewWebNetworkLoaderParams) *WebNetworkLoader {
	client := params.Client
	if client == nil {
		client = &http.Client{Timeout: params.Timeout}
	}
	return &WebNetworkLoader{
		client:  client,
		headers: params.Headers,
	}
}

// Open issues a GET for file.Location. A non-2xx answer is reported as
// loader.ErrUnexpectedStatus.
func (l *WebNetworkLoader) Open(ctx context.Context, file loader.NetworkFile) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Location, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson, application/json")
	for k, v := range l.headers {
		req.Header.Set(k, v)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch url: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", loader.ErrUnexpectedStatus, resp.Status)
	}

	return resp.Body, nil
}
