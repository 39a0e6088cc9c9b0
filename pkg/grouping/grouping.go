// Package grouping clusters parcel records into composite buildings by their
// canonical street address.
package grouping

import (
	"slices"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ownernet/pkg/canonical"
	"github.com/OFFIS-RIT/ownernet/pkg/common"
)

// Item is one row of the grouped view: either a single property or a
// composite building. UnitCount is set for both.
type Item struct {
	Key       string                    `json:"key"`
	Property  *common.Property          `json:"property,omitempty"`
	Building  *common.CompositeBuilding `json:"building,omitempty"`
	UnitCount int                       `json:"unitCount"`
}

// IsBuilding reports whether the item merges two or more parcels.
func (i Item) IsBuilding() bool {
	return i.Building != nil
}

// Summary counts the grouped view.
type Summary struct {
	Items     int `json:"items"`
	Buildings int `json:"buildings"`
	Singles   int `json:"singles"`
	Parcels   int `json:"parcels"`
	Units     int `json:"units"`
	Ungrouped int `json:"ungrouped"`
}

type group struct {
	key     string
	members []int
}

// Group clusters properties that share a grouping key (expanded street base
// and city). Properties without a leading house number or with a very short
// base are never merged and keep a key of their own.
//
// The result is a fresh projection of the input: items appear in the order
// their key was first seen, and the input slice is not modified.
func Group(properties []common.Property) []Item {
	order := make([]*group, 0, len(properties))
	byKey := make(map[string]*group)

	for i, p := range properties {
		base := canonical.ParseAddress(p.StreetAddress()).Base
		if !canonical.IsGroupable(base) {
			order = append(order, &group{key: singletonKey(p, i), members: []int{i}})
			continue
		}

		key := canonical.GroupingKey(p.StreetAddress(), p.City)
		g, ok := byKey[key]
		if !ok {
			g = &group{key: key}
			byKey[key] = g
			order = append(order, g)
		}
		g.members = append(g.members, i)
	}

	items := make([]Item, 0, len(order))
	for _, g := range order {
		if len(g.members) == 1 {
			p := properties[g.members[0]]
			items = append(items, Item{Key: g.key, Property: &p, UnitCount: p.UnitCount()})
			continue
		}
		b := buildComposite(g.key, properties, g.members)
		items = append(items, Item{Key: g.key, Building: b, UnitCount: b.UnitCount})
	}
	return items
}

func singletonKey(p common.Property, index int) string {
	return "parcel:" + string(p.ID) + "#" + strconv.Itoa(index)
}

func buildComposite(key string, properties []common.Property, members []int) *common.CompositeBuilding {
	units := make([]common.Property, 0, len(members))
	for _, idx := range members {
		units = append(units, properties[idx])
	}
	slices.SortStableFunc(units, func(a, b common.Property) int {
		la, lb := UnitLabel(a), UnitLabel(b)
		switch {
		case canonical.NaturalLess(la, lb):
			return -1
		case canonical.NaturalLess(lb, la):
			return 1
		default:
			return 0
		}
	})

	first := properties[members[0]]
	b := &common.CompositeBuilding{
		CanonicalKey:   key,
		DisplayAddress: canonical.ParseAddress(first.StreetAddress()).Base,
		City:           strings.TrimSpace(first.City),
		Units:          units,
	}
	for _, u := range units {
		b.AggregateAssessed += u.AssessedValue.Value
		b.AggregateAppraised += u.AppraisedValue.Value
		b.UnitCount += u.UnitCount()
		if b.ImageURL == "" {
			b.ImageURL = u.ImageURL()
		}
	}
	return b
}

// UnitLabel returns the label used to order units inside a building: the
// explicit unit field, or the unit split off the address.
func UnitLabel(p common.Property) string {
	if u := strings.TrimSpace(p.Unit); u != "" {
		return u
	}
	return canonical.ParseAddress(p.StreetAddress()).Unit
}

// Summarize counts buildings, single parcels and units in a grouped view.
func Summarize(items []Item) Summary {
	s := Summary{Items: len(items)}
	for _, it := range items {
		s.Units += it.UnitCount
		if it.IsBuilding() {
			s.Buildings++
			s.Parcels += len(it.Building.Units)
			continue
		}
		s.Singles++
		s.Parcels++
		if strings.HasPrefix(it.Key, "parcel:") {
			s.Ungrouped++
		}
	}
	return s
}
