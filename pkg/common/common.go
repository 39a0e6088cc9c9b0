package common

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/ownernet/pkg/canonical"
)

// Graph is the ownership network assembled from one streamed load.
// It holds every principal and business exactly once (keyed by type and id),
// every property parcel as delivered, and the links between them.
//
// Links are directionless: consumers must match both ends. The same edge may
// appear more than once.
type Graph struct {
	Principals []Entity   `json:"principals"`
	Businesses []Entity   `json:"businesses"`
	Properties []Property `json:"properties"`
	Links      []Link     `json:"links"`
}

// NewGraph returns an empty graph with non-nil slices so it serializes as
// empty arrays rather than null.
func NewGraph() *Graph {
	return &Graph{
		Principals: make([]Entity, 0),
		Businesses: make([]Entity, 0),
		Properties: make([]Property, 0),
		Links:      make([]Link, 0),
	}
}

// Entity looks up a principal or business by type and id.
func (g *Graph) Entity(typ EntityType, id ID) (*Entity, bool) {
	var list []Entity
	switch typ {
	case EntityTypePrincipal:
		list = g.Principals
	case EntityTypeBusiness:
		list = g.Businesses
	default:
		return nil, false
	}
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}

type EntityType string

const (
	EntityTypePrincipal EntityType = "principal"
	EntityTypeBusiness  EntityType = "business"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t == EntityTypePrincipal || t == EntityTypeBusiness
}

// Entity is a principal (a natural person) or a business (a registered legal
// entity). Ids are assigned by the server and only unique per type.
//
// Details is an open bag and may carry a "connections" list hinting at links
// to entities of the other type.
type Entity struct {
	ID       ID             `json:"id"`
	Type     EntityType     `json:"type"`
	Name     string         `json:"name"`
	Status   string         `json:"status,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	IsEntity bool           `json:"isEntity"`
}

// EntityKey identifies an entity across both entity lists.
type EntityKey struct {
	Type EntityType
	ID   ID
}

func (k EntityKey) String() string {
	return string(k.Type) + ":" + string(k.ID)
}

// Key returns the (type, id) uniqueness key of the entity.
func (e Entity) Key() EntityKey {
	return EntityKey{Type: e.Type, ID: e.ID}
}

// Property is a single assessor parcel or unit record.
type Property struct {
	ID             ID             `json:"id"`
	Address        string         `json:"address"`
	Location       string         `json:"location,omitempty"`
	Unit           string         `json:"unit,omitempty"`
	City           string         `json:"city"`
	AssessedValue  Amount         `json:"assessed_value"`
	AppraisedValue Amount         `json:"appraised_value"`
	Owner          string         `json:"owner"`
	Details        map[string]any `json:"details,omitempty"`
}

// StreetAddress returns the address line used for grouping. Some records only
// carry a location field.
func (p Property) StreetAddress() string {
	if strings.TrimSpace(p.Address) != "" {
		return p.Address
	}
	if strings.TrimSpace(p.Location) != "" {
		return p.Location
	}
	return DetailString(p.Details, "location")
}

// UnitCount returns the number of units the record declares, or 1. Counts
// are taken from numbers, integer strings or the length of a unit list.
func (p Property) UnitCount() int {
	for _, key := range []string{"unit_count", "number_of_units", "units"} {
		if n := declaredCount(p.Details[key]); n > 0 {
			return n
		}
	}
	return 1
}

func declaredCount(raw any) int {
	switch v := raw.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
		if f, err := v.Float64(); err == nil {
			return int(f)
		}
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	case []any:
		return len(v)
	}
	return 0
}

// ImageURL returns the first photo reference found in the details bag.
func (p Property) ImageURL() string {
	for _, key := range []string{"image_url", "photo_url", "photo", "image"} {
		if v := DetailString(p.Details, key); v != "" {
			return v
		}
	}
	return ""
}

// Link is an asserted relationship between two identifiers. Either end may be
// a bare entity id or a prefixed form such as "principal_<name>" or
// "business_<id>".
type Link struct {
	Source ID `json:"source"`
	Target ID `json:"target"`
}

// CompositeBuilding groups two or more parcels that share a canonical base
// address within one city. It is a derived view and is never mutated.
type CompositeBuilding struct {
	CanonicalKey       string     `json:"canonicalKey"`
	DisplayAddress     string     `json:"displayAddress"`
	City               string     `json:"city"`
	Units              []Property `json:"units"`
	AggregateAssessed  float64    `json:"aggregateAssessed"`
	AggregateAppraised float64    `json:"aggregateAppraised"`
	UnitCount          int        `json:"unitCount"`
	ImageURL           string     `json:"imageUrl,omitempty"`
}

// ID is an identifier that may arrive as a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	case '{', '[', 't', 'f':
		return fmt.Errorf("invalid id: %s", data)
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Amount is a monetary value that may arrive as a number or as a
// currency-formatted string such as "$100,000". Text keeps the original
// string for display.
type Amount struct {
	Text  string
	Value float64
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*a = Amount{}
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount{Text: s, Value: canonical.ParseAmount(s)}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		// Anything else is treated as an unknown value rather than a broken record.
		*a = Amount{}
		return nil
	}
	*a = Amount{Value: v}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if a.Text != "" {
		return json.Marshal(a.Text)
	}
	return json.Marshal(a.Value)
}

// StringifyID renders a schema-less JSON value as an identifier string.
func StringifyID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case ID:
		return string(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// DetailString returns details[key] as a string, or "" if absent.
func DetailString(details map[string]any, key string) string {
	if details == nil {
		return ""
	}
	v, ok := details[key]
	if !ok {
		return ""
	}
	return StringifyID(v)
}
