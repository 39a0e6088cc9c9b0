package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/ownernet/internal/queue"
	mid "github.com/OFFIS-RIT/ownernet/internal/server/middleware"
	"github.com/OFFIS-RIT/ownernet/internal/session"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/graph"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rabbitmq/amqp091-go"
)

type nopFileLoader struct{}

func (nopFileLoader) Open(ctx context.Context, file loader.NetworkFile) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

type staticClient struct{}

func (staticClient) LoadNetwork(ctx context.Context, file loader.NetworkFile) (*common.Graph, graph.LoadStats, error) {
	if file.Location == "broken.ndjson" {
		return nil, graph.LoadStats{}, graph.ErrLoadFailed
	}
	g := common.NewGraph()
	g.Principals = []common.Entity{{ID: "JSMITH", Type: common.EntityTypePrincipal, Name: "Smith, John"}}
	g.Businesses = []common.Entity{{ID: "B1", Type: common.EntityTypeBusiness, Name: "Acme LLC", IsEntity: true}}
	g.Properties = []common.Property{
		{ID: "1", Address: "10 Main St Apt 1", City: "Hartford", Details: map[string]any{"business_id": "B1"}, AssessedValue: common.Amount{Value: 100000}},
		{ID: "2", Address: "10 Main St Apt 2", City: "Hartford", AssessedValue: common.Amount{Value: 50000}},
		{ID: "3", Address: "5 Elm St", City: "Hartford", Details: map[string]any{"owner_norm": "Smith, John"}, AssessedValue: common.Amount{Value: 7000}},
	}
	g.Links = []common.Link{{Source: "principal_JSMITH", Target: "business_B1"}}
	return g, graph.LoadStats{}, nil
}

type fakeChannel struct {
	keys []string
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error {
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error) {
	return amqp091.Queue{Name: name}, nil
}

func (c *fakeChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	c.keys = append(c.keys, key)
	return nil
}

type fakeLister struct{}

func (fakeLister) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	return &s3.ListObjectsV2Output{
		Contents: []types.Object{
			{Key: aws.String("dumps/hartford.ndjson")},
			{Key: aws.String("dumps/readme.txt")},
		},
	}, nil
}

func newTestApp(t *testing.T) *mid.App {
	t.Helper()
	sessions := session.NewManager(session.NewManagerParams{
		Client:  staticClient{},
		Loaders: loader.Loaders{loader.NetworkFileTypeFile: nopFileLoader{}},
	})
	t.Cleanup(sessions.Close)
	return &mid.App{Sessions: sessions}
}

func do(t *testing.T, app *mid.App, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	New(app).ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type networkBody struct {
	Message string          `json:"message"`
	Network session.Network `json:"network"`
}

func createNetwork(t *testing.T, app *mid.App, location string) session.Network {
	t.Helper()
	rec := do(t, app, http.MethodPost, "/api/networks", `{"source":"file","location":"`+location+`","wait":true}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	return decode[networkBody](t, rec).Network
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestApp(t), http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Fatalf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestNetworkLifecycle(t *testing.T) {
	app := newTestApp(t)
	n := createNetwork(t, app, "hartford.ndjson")
	if n.Status != session.StatusReady {
		t.Fatalf("status = %s, want ready", n.Status)
	}

	rec := do(t, app, http.MethodGet, "/api/networks", "", nil)
	if list := decode[[]session.Network](t, rec); len(list) != 1 || list[0].ID != n.ID {
		t.Fatalf("list = %+v", list)
	}

	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/graph", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("graph status = %d", rec.Code)
	}
	g := decode[struct {
		Generation int               `json:"generation"`
		Properties []common.Property `json:"properties"`
	}](t, rec)
	if g.Generation != 1 || len(g.Properties) != 3 {
		t.Fatalf("graph = %+v", g)
	}

	rec = do(t, app, http.MethodPost, "/api/networks/"+n.ID+"/reload?wait=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reload status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[networkBody](t, rec).Network.Generation; got != 2 {
		t.Fatalf("generation after reload = %d, want 2", got)
	}

	rec = do(t, app, http.MethodDelete, "/api/networks/"+n.ID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID, "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestCreateNetworkErrors(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{`, http.StatusBadRequest},
		{"missing location", `{"source":"file"}`, http.StatusBadRequest},
		{"unknown source", `{"source":"ftp","location":"x"}`, http.StatusBadRequest},
		{"source not enabled", `{"source":"s3","location":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, app, http.MethodPost, "/api/networks", tt.body, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := do(t, app, http.MethodPost, "/api/networks", `{"source":"file","location":"broken.ndjson","wait":true}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	n := decode[networkBody](t, rec).Network
	if n.Status != session.StatusFailed {
		t.Fatalf("status = %s, want failed", n.Status)
	}
	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/buildings", "", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("buildings of failed network status = %d, want 409", rec.Code)
	}
}

func TestBuildings(t *testing.T) {
	app := newTestApp(t)
	n := createNetwork(t, app, "hartford.ndjson")

	rec := do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/buildings", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[struct {
		Summary struct {
			Buildings int `json:"buildings"`
			Singles   int `json:"singles"`
		} `json:"summary"`
	}](t, rec)
	if body.Summary.Buildings != 1 || body.Summary.Singles != 1 {
		t.Fatalf("summary = %+v", body.Summary)
	}
}

func TestFocus(t *testing.T) {
	app := newTestApp(t)
	n := createNetwork(t, app, "hartford.ndjson")

	type focusBody struct {
		Focal common.Entity `json:"focal"`
		Stats struct {
			TotalValue    float64 `json:"totalValue"`
			PropertyCount int     `json:"propertyCount"`
		} `json:"stats"`
		Trace *json.RawMessage `json:"trace"`
	}

	rec := do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/focus/JSMITH", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	view := decode[focusBody](t, rec)
	if view.Focal.ID != "JSMITH" || view.Stats.PropertyCount != 2 || view.Stats.TotalValue != 107000 {
		t.Fatalf("view = %+v", view)
	}
	if view.Trace != nil {
		t.Fatal("trace returned without trace=true")
	}

	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/focus/B1?type=business&trace=true", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if view := decode[focusBody](t, rec); view.Trace == nil || view.Focal.Type != common.EntityTypeBusiness {
		t.Fatalf("view = %+v", view)
	}

	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/focus/NOPE", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown focal status = %d, want 404", rec.Code)
	}
	rec = do(t, app, http.MethodGet, "/api/networks/"+n.ID+"/focus/JSMITH?type=owner", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad type status = %d, want 400", rec.Code)
	}

	rec = do(t, app, http.MethodPost, "/api/networks/"+n.ID+"/focus", `{"requests":[{"id":"JSMITH"},{"id":"NOPE"}]}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("batch status = %d, body %s", rec.Code, rec.Body.String())
	}
	batch := decode[struct {
		Results []struct {
			Error string `json:"error"`
		} `json:"results"`
	}](t, rec)
	if len(batch.Results) != 2 || batch.Results[0].Error != "" || batch.Results[1].Error == "" {
		t.Fatalf("batch = %+v", batch)
	}

	rec = do(t, app, http.MethodPost, "/api/networks/"+n.ID+"/focus", `{"requests":[]}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty batch status = %d, want 400", rec.Code)
	}
}

func TestCreateLoadJob(t *testing.T) {
	app := newTestApp(t)
	body := `{"source":"s3","location":"dumps/hartford.ndjson"}`

	rec := do(t, app, http.MethodPost, "/api/jobs/load", body, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without queue = %d, want 503", rec.Code)
	}

	ch := &fakeChannel{}
	app.Queue = ch
	rec = do(t, app, http.MethodPost, "/api/jobs/load", body, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		NetworkID     string `json:"network_id"`
		CorrelationID string `json:"correlation_id"`
	}](t, rec)
	if resp.NetworkID == "" || resp.CorrelationID == "" {
		t.Fatalf("response = %+v", resp)
	}
	if len(ch.keys) != 1 || ch.keys[0] != queue.LoadQueue {
		t.Fatalf("published to %v", ch.keys)
	}
}

func TestSourcesAndSchema(t *testing.T) {
	app := newTestApp(t)

	rec := do(t, app, http.MethodGet, "/api/sources", "", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status without s3 = %d, want 503", rec.Code)
	}

	app.S3 = fakeLister{}
	rec = do(t, app, http.MethodGet, "/api/sources?prefix=dumps/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	sources := decode[struct {
		Keys []string `json:"keys"`
	}](t, rec)
	if len(sources.Keys) != 1 || sources.Keys[0] != "dumps/hartford.ndjson" {
		t.Fatalf("keys = %v", sources.Keys)
	}

	rec = do(t, app, http.MethodGet, "/api/schema/chunks", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "oneOf") {
		t.Fatalf("schema = %d %s", rec.Code, rec.Body.String())
	}
}
