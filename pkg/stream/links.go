package stream

import (
	"bytes"
	"encoding/json"

	"github.com/OFFIS-RIT/ownernet/pkg/common"
)

type LinksShape int

const (
	// LinksShapeNone means the payload was absent or not understood.
	LinksShapeNone LinksShape = iota
	// LinksShapeList is a plain array of {source, target} pairs.
	LinksShapeList
	// LinksShapeKeyed maps a source identifier to a list of targets.
	LinksShapeKeyed
)

// LinksPayload is the links part of an entities chunk in one of its two wire
// shapes. Keyed entries keep the order in which the keys arrived.
type LinksPayload struct {
	Shape LinksShape
	List  []common.Link
	Keyed []KeyedLinks
}

// KeyedLinks is one entry of the keyed shape.
type KeyedLinks struct {
	Key     common.ID
	Targets []LinkTarget
}

// LinkTarget is either an explicit pair, copied verbatim, or a bare target id
// that is paired with the entry key.
type LinkTarget struct {
	Pair *common.Link
	ID   common.ID
}

// UnmarshalJSON never fails: an unrecognized payload leaves the shape at
// LinksShapeNone so the rest of the chunk is still processed.
func (p *LinksPayload) UnmarshalJSON(data []byte) error {
	*p = LinksPayload{}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		p.Shape = LinksShapeList
		p.List = make([]common.Link, 0, len(items))
		for _, item := range items {
			if pair, ok := parseLinkPair(item); ok {
				p.List = append(p.List, pair)
			}
		}
	case '{':
		keyed, ok := parseKeyedLinks(data)
		if !ok {
			return nil
		}
		p.Shape = LinksShapeKeyed
		p.Keyed = keyed
	}
	return nil
}

// Links flattens the payload into source/target pairs.
func (p LinksPayload) Links() []common.Link {
	switch p.Shape {
	case LinksShapeList:
		out := make([]common.Link, len(p.List))
		copy(out, p.List)
		return out
	case LinksShapeKeyed:
		out := make([]common.Link, 0)
		for _, entry := range p.Keyed {
			for _, target := range entry.Targets {
				if target.Pair != nil {
					out = append(out, *target.Pair)
					continue
				}
				out = append(out, common.Link{Source: entry.Key, Target: target.ID})
			}
		}
		return out
	default:
		return nil
	}
}

func parseKeyedLinks(data []byte) ([]KeyedLinks, bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}

	out := make([]KeyedLinks, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return out, true
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return out, true
		}

		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			continue
		}

		entry := KeyedLinks{Key: common.ID(key), Targets: make([]LinkTarget, 0, len(items))}
		for _, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) > 0 && item[0] == '{' {
				if pair, ok := parseLinkPair(item); ok {
					entry.Targets = append(entry.Targets, LinkTarget{Pair: &pair})
				}
				continue
			}
			var id common.ID
			if err := json.Unmarshal(item, &id); err != nil || id == "" {
				continue
			}
			entry.Targets = append(entry.Targets, LinkTarget{ID: id})
		}
		out = append(out, entry)
	}
	return out, true
}

func parseLinkPair(raw json.RawMessage) (common.Link, bool) {
	var pair common.Link
	if err := json.Unmarshal(raw, &pair); err != nil {
		return common.Link{}, false
	}
	if pair.Source == "" || pair.Target == "" {
		return common.Link{}, false
	}
	return pair, true
}
