package query

import (
	"slices"
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventLinkKeys          TraceEventKind = "link_keys"
	TraceEventMatchedLinks      TraceEventKind = "matched_links"
	TraceEventReachableIDs      TraceEventKind = "reachable_ids"
	TraceEventMatchedProperties TraceEventKind = "matched_properties"
)

// MatchReason tells why a property joined a focal view.
type MatchReason string

const (
	MatchBusinessID  MatchReason = "business_id"
	MatchOwnerName   MatchReason = "owner_norm"
	MatchCoOwnerName MatchReason = "co_owner_norm"
)

// TraceEvent is an extensible event envelope for query tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	Keys        []string
	LinkIndexes []int
	IDs         []string
	PropertyIDs []string
	Reason      MatchReason
}

// Tracer is a sink for query tracing events.
//
// Implementers can forward events to logs or custom post-processing.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordLinkKeys(t Tracer, keys ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventLinkKeys, Keys: keys})
}

func RecordMatchedLinks(t Tracer, indexes ...int) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventMatchedLinks, LinkIndexes: indexes})
}

func RecordReachableIDs(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventReachableIDs, IDs: ids})
}

func RecordMatchedProperties(t Tracer, reason MatchReason, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventMatchedProperties, Reason: reason, PropertyIDs: ids})
}

// QueryTrace collects what a focal query matched: the link keys it searched
// for, the links that hit, the ids reached and the properties taken in with
// the reason they matched.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	linkKeys     map[string]struct{}
	matchedLinks map[int]struct{}
	reachableIDs map[string]struct{}
	properties   map[MatchReason]map[string]struct{}
}

type QueryTraceSnapshot struct {
	LinkKeys     []string                 `json:"linkKeys"`
	MatchedLinks []int                    `json:"matchedLinks"`
	ReachableIDs []string                 `json:"reachableIds"`
	Properties   map[MatchReason][]string `json:"properties"`
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		linkKeys:     make(map[string]struct{}),
		matchedLinks: make(map[int]struct{}),
		reachableIDs: make(map[string]struct{}),
		properties:   make(map[MatchReason]map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventLinkKeys:
		for _, k := range event.Keys {
			if k == "" {
				continue
			}
			t.linkKeys[k] = struct{}{}
		}
	case TraceEventMatchedLinks:
		for _, idx := range event.LinkIndexes {
			t.matchedLinks[idx] = struct{}{}
		}
	case TraceEventReachableIDs:
		for _, id := range event.IDs {
			if id == "" {
				continue
			}
			t.reachableIDs[id] = struct{}{}
		}
	case TraceEventMatchedProperties:
		set, ok := t.properties[event.Reason]
		if !ok {
			set = make(map[string]struct{})
			t.properties[event.Reason] = set
		}
		for _, id := range event.PropertyIDs {
			set[id] = struct{}{}
		}
	default:
		return
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		LinkKeys:     make([]string, 0, len(t.linkKeys)),
		MatchedLinks: make([]int, 0, len(t.matchedLinks)),
		ReachableIDs: make([]string, 0, len(t.reachableIDs)),
		Properties:   make(map[MatchReason][]string, len(t.properties)),
	}

	for k := range t.linkKeys {
		s.LinkKeys = append(s.LinkKeys, k)
	}
	for idx := range t.matchedLinks {
		s.MatchedLinks = append(s.MatchedLinks, idx)
	}
	for id := range t.reachableIDs {
		s.ReachableIDs = append(s.ReachableIDs, id)
	}
	for reason, set := range t.properties {
		ids := make([]string, 0, len(set))
		for id := range set {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		s.Properties[reason] = ids
	}

	sort.Strings(s.LinkKeys)
	slices.Sort(s.MatchedLinks)
	sort.Strings(s.ReachableIDs)

	return s
}
