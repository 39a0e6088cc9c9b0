package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/OFFIS-RIT/ownernet/internal/timing"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/graph"
	"github.com/OFFIS-RIT/ownernet/pkg/grouping"
	"github.com/OFFIS-RIT/ownernet/pkg/loader"
	"github.com/OFFIS-RIT/ownernet/pkg/logger"
	"github.com/OFFIS-RIT/ownernet/pkg/query"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotFound   = errors.New("network not found")
	ErrSuperseded = errors.New("network load superseded")
	ErrNotReady   = errors.New("network not ready")
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// NetworkLoader builds a graph from a network file. *graph.GraphClient
// implements it.
type NetworkLoader interface {
	LoadNetwork(ctx context.Context, file loader.NetworkFile) (*common.Graph, graph.LoadStats, error)
}

// Network is a snapshot of one session.
type Network struct {
	ID          string                 `json:"id"`
	Source      loader.NetworkFileType `json:"source"`
	Location    string                 `json:"location"`
	Generation  int                    `json:"generation"`
	Status      Status                 `json:"status"`
	Error       string                 `json:"error,omitempty"`
	Stats       *graph.LoadStats       `json:"stats,omitempty"`
	StartedAt   time.Time              `json:"started_at"`
	FinishedAt  *time.Time             `json:"finished_at,omitempty"`
	EstimatedMs *int64                 `json:"estimated_ms,omitempty"`
}

type session struct {
	id       string
	file     loader.NetworkFile
	gen      int
	cancel   context.CancelFunc
	done     chan struct{}
	status   Status
	err      error
	graph    *common.Graph
	graphGen int
	stats    *graph.LoadStats
	lines    int
	started  time.Time
	finished *time.Time
	estimate *int64

	buildings []grouping.Item
}

func (s *session) snapshot() Network {
	n := Network{
		ID:          s.id,
		Source:      s.file.FileType,
		Location:    s.file.Location,
		Generation:  s.gen,
		Status:      s.status,
		Stats:       s.stats,
		StartedAt:   s.started,
		FinishedAt:  s.finished,
		EstimatedMs: s.estimate,
	}
	if s.err != nil {
		n.Error = s.err.Error()
	}
	return n
}

// Manager owns the network sessions of a process. Each session runs at most
// one load at a time: starting a new load cancels the previous one and its
// result is dropped. Committed graphs are shared read-only between requests.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session

	client   NetworkLoader
	loaders  loader.Loaders
	tracker  *timing.Tracker
	parallel int
	onLoaded func(Network)

	group singleflight.Group
	wg    sync.WaitGroup
}

// NewManagerParams configures a Manager.
//
// QueryParallel bounds FocusMany. OnLoaded, if set, is called after every
// load of the current generation finishes, successfully or not.
type NewManagerParams struct {
	Client        NetworkLoader
	Loaders       loader.Loaders
	Tracker       *timing.Tracker
	QueryParallel int
	OnLoaded      func(Network)
}

func NewManager(params NewManagerParams) *Manager {
	tracker := params.Tracker
	if tracker == nil {
		tracker = timing.NewTracker()
	}
	parallel := params.QueryParallel
	if parallel <= 0 {
		parallel = 4
	}
	return &Manager{
		sessions: make(map[string]*session),
		client:   params.Client,
		loaders:  params.Loaders,
		tracker:  tracker,
		parallel: parallel,
		onLoaded: params.OnLoaded,
	}
}

// Create registers a new session for the given source and starts loading it.
func (m *Manager) Create(typ loader.NetworkFileType, location string) (Network, error) {
	id, err := gonanoid.New()
	if err != nil {
		return Network{}, fmt.Errorf("failed to generate network id: %w", err)
	}
	file, err := m.loaders.NewFile(typ, id, strings.TrimSpace(location))
	if err != nil {
		return Network{}, err
	}

	s := &session{id: id, file: file}

	m.mu.Lock()
	m.sessions[id] = s
	n := m.startLocked(s)
	m.mu.Unlock()

	logger.Info("[Session] Network created", "id", id, "source", file.String())
	return n, nil
}

// Reload starts a new load for an existing session. An in-flight load is
// cancelled and its result discarded; the last committed graph stays
// readable until the new load finishes.
func (m *Manager) Reload(id string) (Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.cancel != nil && s.status == StatusLoading {
		logger.Info("[Session] Superseding in-flight load", "id", id, "generation", s.gen)
	}
	return m.startLocked(s), nil
}

func (m *Manager) startLocked(s *session) Network {
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.gen++
	s.cancel = cancel
	s.done = make(chan struct{})
	s.status = StatusLoading
	s.err = nil
	s.started = time.Now()
	s.finished = nil
	s.estimate = nil
	if s.lines > 0 {
		if d, ok := m.tracker.PredictProcessingTime(string(s.file.FileType), s.lines); ok {
			ms := d.Milliseconds()
			s.estimate = &ms
		}
	}

	m.wg.Add(1)
	go m.run(ctx, s, s.gen, s.file, s.done)
	return s.snapshot()
}

func (m *Manager) run(ctx context.Context, s *session, gen int, file loader.NetworkFile, done chan struct{}) {
	defer m.wg.Done()
	defer close(done)

	g, stats, err := m.client.LoadNetwork(ctx, file)

	m.mu.Lock()
	if m.sessions[s.id] != s || s.gen != gen {
		m.mu.Unlock()
		logger.Info("[Session] Discarding superseded load", "id", s.id, "generation", gen)
		return
	}

	now := time.Now()
	s.finished = &now
	s.stats = &stats
	s.cancel = nil
	if err != nil {
		s.status = StatusFailed
		s.err = err
	} else {
		s.status = StatusReady
		s.graph = g
		s.graphGen = gen
		s.buildings = nil
		s.lines = stats.Stream.Lines
		m.tracker.AddProcessingTime(string(file.FileType), stats.Stream.Lines, now.Sub(s.started))
	}
	n := s.snapshot()
	hook := m.onLoaded
	m.mu.Unlock()

	if err != nil {
		logger.Warn("[Session] Network load failed", "id", s.id, "generation", gen, "err", err)
	} else {
		logger.Info("[Session] Network ready", "id", s.id, "generation", gen, "took", timing.FormatDuration(now.Sub(n.StartedAt)))
	}
	if hook != nil {
		hook(n)
	}
}

// Get returns a snapshot of the session.
func (m *Manager) Get(id string) (Network, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return Network{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.snapshot(), nil
}

// List returns snapshots of all sessions ordered by start time.
func (m *Manager) List() []Network {
	m.mu.RLock()
	out := make([]Network, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Network) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Delete cancels any running load and forgets the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.cancel != nil {
		s.cancel()
	}
	delete(m.sessions, id)
	return nil
}

// Wait blocks until the load of the given generation finishes. It returns
// ErrSuperseded if a newer load replaced it first.
func (m *Manager) Wait(ctx context.Context, id string, generation int) (Network, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.RUnlock()
		return Network{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if generation != s.gen {
		m.mu.RUnlock()
		return Network{}, fmt.Errorf("%w: generation %d", ErrSuperseded, generation)
	}
	done := s.done
	m.mu.RUnlock()

	select {
	case <-ctx.Done():
		return Network{}, ctx.Err()
	case <-done:
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sessions[id] != s {
		return Network{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.gen != generation {
		return Network{}, fmt.Errorf("%w: generation %d", ErrSuperseded, generation)
	}
	return s.snapshot(), nil
}

// Close cancels all running loads and waits for them to return.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, s := range m.sessions {
		if s.cancel != nil {
			s.cancel()
		}
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Graph returns the last committed graph of the session with the generation
// that committed it. A reload in progress does not change either.
func (m *Manager) Graph(id string) (*common.Graph, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if s.graph == nil {
		if s.err != nil {
			return nil, 0, fmt.Errorf("%w: %w", ErrNotReady, s.err)
		}
		return nil, 0, fmt.Errorf("%w: %s is %s", ErrNotReady, id, s.status)
	}
	return s.graph, s.graphGen, nil
}

// Buildings returns the grouped property view of the committed graph.
// Concurrent callers share one computation; the result is kept until the
// next graph is committed.
func (m *Manager) Buildings(id string) ([]grouping.Item, error) {
	g, gen, err := m.Graph(id)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	s := m.sessions[id]
	cached := s != nil && s.graph == g && s.buildings != nil
	var items []grouping.Item
	if cached {
		items = s.buildings
	}
	m.mu.RUnlock()
	if cached {
		return items, nil
	}

	key := fmt.Sprintf("%s:%d:buildings", id, gen)
	res, err, _ := m.group.Do(key, func() (any, error) {
		items := grouping.Group(g.Properties)

		m.mu.Lock()
		if s, ok := m.sessions[id]; ok && s.graph == g {
			s.buildings = items
		}
		m.mu.Unlock()
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]grouping.Item), nil
}

// Focus computes the view around one entity of the committed graph.
// Identical concurrent requests share one computation.
func (m *Manager) Focus(id string, req query.FocusRequest, opts ...query.Option) (*query.NetworkView, error) {
	g, gen, err := m.Graph(id)
	if err != nil {
		return nil, err
	}
	if len(opts) > 0 {
		return query.Focus(g, req, opts...)
	}

	key := fmt.Sprintf("%s:%d:focus:%s:%s", id, gen, req.Type, req.ID)
	res, err, _ := m.group.Do(key, func() (any, error) {
		return query.Focus(g, req)
	})
	if err != nil {
		return nil, err
	}
	return res.(*query.NetworkView), nil
}

// FocusMany runs several focus requests against the same committed graph.
func (m *Manager) FocusMany(ctx context.Context, id string, reqs []query.FocusRequest) ([]query.FocusResult, error) {
	g, _, err := m.Graph(id)
	if err != nil {
		return nil, err
	}
	return query.FocusMany(ctx, g, reqs, m.parallel)
}
