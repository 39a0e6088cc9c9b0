package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/ownernet/pkg/common"
)

type ChunkType string

const (
	ChunkTypeEntities   ChunkType = "entities"
	ChunkTypeProperties ChunkType = "properties"
)

// Chunk is one decoded line of the network stream. For a known type exactly
// one of Entities or Properties is set; an unknown type carries neither and is
// ignored downstream.
type Chunk struct {
	Type       ChunkType
	Entities   *EntitiesChunk
	Properties *PropertiesChunk

	// Line is the 1-based line number in the stream.
	Line int
	// Skipped counts records inside the chunk that could not be decoded.
	Skipped int
}

// Known reports whether the chunk carries a recognized payload.
func (c Chunk) Known() bool {
	return c.Entities != nil || c.Properties != nil
}

// EntitiesChunk carries principal and business records and an optional links
// payload.
type EntitiesChunk struct {
	Entities []common.Entity
	Links    LinksPayload
}

// PropertiesChunk carries parcel records.
type PropertiesChunk struct {
	Properties []common.Property
}

type envelope struct {
	Type ChunkType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// parseChunk decodes one line. It fails only when the line is not a JSON
// object; unknown types and unrecognized sub-parts produce a chunk that
// carries whatever could be understood.
func parseChunk(line []byte) (Chunk, error) {
	var env envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Chunk{}, fmt.Errorf("invalid chunk: %w", err)
	}

	switch env.Type {
	case ChunkTypeEntities:
		entities, skipped := decodeEntitiesData(env.Data)
		return Chunk{Type: env.Type, Entities: entities, Skipped: skipped}, nil
	case ChunkTypeProperties:
		properties, skipped := decodePropertiesData(env.Data)
		return Chunk{Type: env.Type, Properties: properties, Skipped: skipped}, nil
	default:
		return Chunk{Type: env.Type}, nil
	}
}

func decodeEntitiesData(data json.RawMessage) (*EntitiesChunk, int) {
	res := &EntitiesChunk{Entities: make([]common.Entity, 0)}

	var parts map[string]json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return res, 0
	}

	skipped := 0
	var records []json.RawMessage
	if raw, ok := parts["entities"]; ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			records = nil
		}
	}
	for _, raw := range records {
		var entity common.Entity
		if err := decodeRecord(raw, &entity); err != nil {
			skipped++
			continue
		}
		if entity.ID == "" || !entity.Type.Valid() {
			skipped++
			continue
		}
		res.Entities = append(res.Entities, entity)
	}

	if raw, ok := parts["links"]; ok {
		_ = json.Unmarshal(raw, &res.Links)
	}

	return res, skipped
}

func decodePropertiesData(data json.RawMessage) (*PropertiesChunk, int) {
	res := &PropertiesChunk{Properties: make([]common.Property, 0)}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return res, 0
	}

	skipped := 0
	for _, raw := range records {
		var property common.Property
		if err := decodeRecord(raw, &property); err != nil {
			skipped++
			continue
		}
		res.Properties = append(res.Properties, property)
	}
	return res, skipped
}

// decodeRecord keeps numbers in open detail bags as json.Number so large
// numeric ids survive exactly.
func decodeRecord(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
