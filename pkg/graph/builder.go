package graph

import (
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ownernet/pkg/canonical"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
	"github.com/OFFIS-RIT/ownernet/pkg/stream"
)

var (
	// ErrNotOpen is returned when a chunk is applied to, or a terminal step is
	// taken on, a builder that already committed or failed.
	ErrNotOpen = errors.New("graph builder is not open")
	// ErrLoadFailed wraps the cause of a failed network load.
	ErrLoadFailed = errors.New("network load failed")
)

type State int

const (
	StateOpen State = iota
	StateCommitted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BuildStats counts what a builder accumulated.
type BuildStats struct {
	Principals        int `json:"principals"`
	Businesses        int `json:"businesses"`
	Properties        int `json:"properties"`
	Links             int `json:"links"`
	ConnectionLinks   int `json:"connection_links"`
	DuplicateEntities int `json:"duplicate_entities"`
	IgnoredChunks     int `json:"ignored_chunks"`
}

// Builder owns the working graph of a single load. Chunks are applied in
// arrival order while the builder is open; Commit hands out the finished graph
// and Fail discards it. Both are terminal.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	state State
	graph *common.Graph
	seen  map[common.EntityKey]struct{}
	stats BuildStats
	err   error
}

// NewBuilder returns an open builder with an empty graph.
func NewBuilder() *Builder {
	return &Builder{
		state: StateOpen,
		graph: common.NewGraph(),
		seen:  make(map[common.EntityKey]struct{}),
	}
}

func (b *Builder) State() State {
	return b.state
}

func (b *Builder) Stats() BuildStats {
	return b.stats
}

// Err returns the failure cause once the builder has failed.
func (b *Builder) Err() error {
	return b.err
}

// Apply merges one decoded chunk into the working graph.
func (b *Builder) Apply(chunk stream.Chunk) error {
	if b.state != StateOpen {
		return fmt.Errorf("%w: %s", ErrNotOpen, b.state)
	}

	switch {
	case chunk.Entities != nil:
		b.applyEntities(chunk.Entities)
	case chunk.Properties != nil:
		b.graph.Properties = append(b.graph.Properties, chunk.Properties.Properties...)
		b.stats.Properties += len(chunk.Properties.Properties)
	default:
		b.stats.IgnoredChunks++
	}
	return nil
}

func (b *Builder) applyEntities(chunk *stream.EntitiesChunk) {
	for _, entity := range chunk.Entities {
		key := entity.Key()
		if _, ok := b.seen[key]; ok {
			b.stats.DuplicateEntities++
			continue
		}
		b.seen[key] = struct{}{}

		entity.IsEntity = canonical.IsCorporateName(entity.Name)
		switch entity.Type {
		case common.EntityTypePrincipal:
			b.graph.Principals = append(b.graph.Principals, entity)
			b.stats.Principals++
		case common.EntityTypeBusiness:
			b.graph.Businesses = append(b.graph.Businesses, entity)
			b.stats.Businesses++
		}

		links := connectionLinks(entity)
		b.graph.Links = append(b.graph.Links, links...)
		b.stats.ConnectionLinks += len(links)
		b.stats.Links += len(links)
	}

	links := chunk.Links.Links()
	b.graph.Links = append(b.graph.Links, links...)
	b.stats.Links += len(links)
}

// Commit freezes the graph and returns it. The builder keeps no reference to
// the graph afterwards.
func (b *Builder) Commit() (*common.Graph, error) {
	if b.state != StateOpen {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, b.state)
	}
	g := b.graph
	b.graph = nil
	b.seen = nil
	b.state = StateCommitted
	return g, nil
}

// Fail discards the working graph and records cause. It returns cause wrapped
// in ErrLoadFailed.
func (b *Builder) Fail(cause error) error {
	if b.state != StateOpen {
		return fmt.Errorf("%w: %s", ErrNotOpen, b.state)
	}
	b.graph = nil
	b.seen = nil
	b.state = StateFailed
	b.err = fmt.Errorf("%w: %w", ErrLoadFailed, cause)
	return b.err
}

// connectionLinks synthesizes links from details.connections. An object
// connection contributes its id, any other value is used as is.
func connectionLinks(entity common.Entity) []common.Link {
	raw, ok := entity.Details["connections"]
	if !ok {
		return nil
	}
	connections, ok := raw.([]any)
	if !ok {
		return nil
	}

	links := make([]common.Link, 0, len(connections))
	for _, c := range connections {
		var target string
		switch v := c.(type) {
		case map[string]any:
			target = common.StringifyID(v["id"])
		default:
			target = common.StringifyID(v)
		}
		if target == "" {
			continue
		}
		links = append(links, common.Link{Source: entity.ID, Target: common.ID(target)})
	}
	return links
}
