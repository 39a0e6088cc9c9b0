// Package query derives the sub-network around a focal principal or business
// and its aggregate statistics. Queries never modify the graph and may run
// concurrently on the same committed graph.
package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/ownernet/pkg/canonical"
	"github.com/OFFIS-RIT/ownernet/pkg/common"

	"golang.org/x/sync/errgroup"
)

// ErrFocalNotFound is returned when the focal id names no entity in the graph.
var ErrFocalNotFound = errors.New("focal entity not found")

const (
	principalPrefix = "principal_"
	businessPrefix  = "business_"
)

// FocusRequest selects the focal entity. Type is optional; without it a
// principal wins over a business with the same id.
type FocusRequest struct {
	ID   common.ID         `json:"id" validate:"required"`
	Type common.EntityType `json:"type,omitempty" validate:"omitempty,oneof=principal business"`
}

// Stats are recomputed from the entities and properties of one view.
type Stats struct {
	TotalValue       float64 `json:"totalValue"`
	TotalAppraised   float64 `json:"totalAppraised"`
	PropertyCount    int     `json:"propertyCount"`
	PrincipalCount   int     `json:"principalCount"`
	BusinessCount    int     `json:"businessCount"`
	HumanPrincipals  int     `json:"humanPrincipals"`
	EntityPrincipals int     `json:"entityPrincipals"`
	LinkCount        int     `json:"linkCount"`
}

// NetworkView is the part of a graph connected to a focal entity.
type NetworkView struct {
	Focal      common.Entity     `json:"focal"`
	Reachable  []common.ID       `json:"reachable"`
	Principals []common.Entity   `json:"principals"`
	Businesses []common.Entity   `json:"businesses"`
	Properties []common.Property `json:"properties"`
	Links      []common.Link     `json:"links"`
	Stats      Stats             `json:"stats"`
}

type options struct {
	tracer Tracer
}

type Option func(*options)

// WithTracer records what the query matched.
func WithTracer(t Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

type reachMask uint8

const (
	reachPrincipal reachMask = 1 << iota
	reachBusiness
	reachAny = reachPrincipal | reachBusiness
)

// Focus computes the view around the focal entity.
//
// Every link that names the focal id, bare or with a principal_/business_
// prefix, on either end contributes its other end to the reachable set.
// A property belongs to the view when details.business_id is the focal
// business or a reachable id, or, for a principal focus, when
// details.owner_norm or details.co_owner_norm canonicalizes to the focal name.
func Focus(g *common.Graph, req FocusRequest, opts ...Option) (*NetworkView, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	focal, err := resolveFocal(g, req)
	if err != nil {
		return nil, err
	}

	keys := linkKeys(focal.ID)
	RecordLinkKeys(o.tracer, keys...)

	view := &NetworkView{
		Focal:      focal,
		Reachable:  make([]common.ID, 0),
		Principals: make([]common.Entity, 0),
		Businesses: make([]common.Entity, 0),
		Properties: make([]common.Property, 0),
		Links:      make([]common.Link, 0),
	}

	reachable := make(map[common.ID]reachMask)
	matched := make([]int, 0)
	for i, l := range g.Links {
		var other common.ID
		switch {
		case slices.Contains(keys, string(l.Source)):
			other = l.Target
		case slices.Contains(keys, string(l.Target)):
			other = l.Source
		default:
			continue
		}
		matched = append(matched, i)
		view.Links = append(view.Links, l)

		id, mask := stripPrefix(other)
		if id == "" || (id == focal.ID && mask == maskFor(focal.Type)) {
			continue
		}
		reachable[id] |= mask
	}
	RecordMatchedLinks(o.tracer, matched...)

	for id := range reachable {
		view.Reachable = append(view.Reachable, id)
	}
	slices.Sort(view.Reachable)
	reachableStrings := make([]string, len(view.Reachable))
	for i, id := range view.Reachable {
		reachableStrings[i] = string(id)
	}
	RecordReachableIDs(o.tracer, reachableStrings...)

	isMember := func(typ common.EntityType, id common.ID) bool {
		if typ == focal.Type && id == focal.ID {
			return true
		}
		return reachable[id]&maskFor(typ) != 0
	}

	for _, p := range g.Principals {
		if isMember(common.EntityTypePrincipal, p.ID) {
			view.Principals = append(view.Principals, p)
		}
	}
	for _, b := range g.Businesses {
		if isMember(common.EntityTypeBusiness, b.ID) {
			view.Businesses = append(view.Businesses, b)
		}
	}

	focalName := ""
	if focal.Type == common.EntityTypePrincipal {
		focalName = canonical.PersonName(focal.Name)
	}
	for _, p := range g.Properties {
		reason, ok := propertyMatch(p, focalName, isMember)
		if !ok {
			continue
		}
		view.Properties = append(view.Properties, p)
		RecordMatchedProperties(o.tracer, reason, string(p.ID))
	}

	view.Stats = computeStats(view)
	return view, nil
}

func propertyMatch(p common.Property, focalName string, isMember func(common.EntityType, common.ID) bool) (MatchReason, bool) {
	if bid := common.ID(common.DetailString(p.Details, "business_id")); bid != "" {
		if isMember(common.EntityTypeBusiness, bid) {
			return MatchBusinessID, true
		}
	}
	if focalName == "" {
		return "", false
	}
	if canonical.PersonName(common.DetailString(p.Details, "owner_norm")) == focalName {
		return MatchOwnerName, true
	}
	if canonical.PersonName(common.DetailString(p.Details, "co_owner_norm")) == focalName {
		return MatchCoOwnerName, true
	}
	return "", false
}

func computeStats(view *NetworkView) Stats {
	s := Stats{
		PropertyCount:  len(view.Properties),
		PrincipalCount: len(view.Principals),
		BusinessCount:  len(view.Businesses),
		LinkCount:      len(view.Links),
	}
	for _, p := range view.Properties {
		s.TotalValue += p.AssessedValue.Value
		s.TotalAppraised += p.AppraisedValue.Value
	}
	for _, p := range view.Principals {
		if canonical.IsCorporateName(p.Name) {
			s.EntityPrincipals++
		} else {
			s.HumanPrincipals++
		}
	}
	return s
}

func resolveFocal(g *common.Graph, req FocusRequest) (common.Entity, error) {
	id := common.ID(strings.TrimSpace(string(req.ID)))
	if id == "" || g == nil {
		return common.Entity{}, fmt.Errorf("%w: %q", ErrFocalNotFound, req.ID)
	}

	types := []common.EntityType{common.EntityTypePrincipal, common.EntityTypeBusiness}
	if req.Type != "" {
		types = []common.EntityType{req.Type}
	}
	for _, typ := range types {
		if e, ok := g.Entity(typ, id); ok {
			return *e, nil
		}
	}
	return common.Entity{}, fmt.Errorf("%w: %q", ErrFocalNotFound, id)
}

// linkKeys lists the spellings under which links may refer to id.
func linkKeys(id common.ID) []string {
	s := string(id)
	return []string{s, principalPrefix + s, businessPrefix + s}
}

func stripPrefix(id common.ID) (common.ID, reachMask) {
	s := string(id)
	switch {
	case strings.HasPrefix(s, principalPrefix):
		return common.ID(strings.TrimPrefix(s, principalPrefix)), reachPrincipal
	case strings.HasPrefix(s, businessPrefix):
		return common.ID(strings.TrimPrefix(s, businessPrefix)), reachBusiness
	default:
		return id, reachAny
	}
}

func maskFor(typ common.EntityType) reachMask {
	switch typ {
	case common.EntityTypePrincipal:
		return reachPrincipal
	case common.EntityTypeBusiness:
		return reachBusiness
	default:
		return 0
	}
}

// FocusResult is the outcome of one request of FocusMany.
type FocusResult struct {
	Request FocusRequest `json:"request"`
	View    *NetworkView `json:"view,omitempty"`
	Error   string       `json:"error,omitempty"`
	err     error
}

func (r FocusResult) Err() error {
	return r.err
}

// FocusMany runs Focus for every request with at most parallel queries at a
// time. Results keep the order of reqs; a failed request is reported in its
// result and does not stop the others. The returned error is set only when
// ctx ends first.
func FocusMany(ctx context.Context, g *common.Graph, reqs []FocusRequest, parallel int, opts ...Option) ([]FocusResult, error) {
	if parallel <= 0 {
		parallel = 1
	}
	results := make([]FocusResult, len(reqs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallel)
	for i, req := range reqs {
		eg.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			view, err := Focus(g, req, opts...)
			results[i] = FocusResult{Request: req, View: view, err: err}
			if err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
