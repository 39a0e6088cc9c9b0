package stream

import (
	"reflect"

	"github.com/OFFIS-RIT/ownernet/pkg/common"

	"github.com/invopop/jsonschema"
)

type entitiesLine struct {
	Type string `json:"type" jsonschema:"enum=entities"`
	Data struct {
		Entities []common.Entity `json:"entities"`
		Links    LinksPayload    `json:"links,omitempty"`
	} `json:"data"`
}

type propertiesLine struct {
	Type string            `json:"type" jsonschema:"enum=properties"`
	Data []common.Property `json:"data"`
}

// Schema describes one line of the network stream as JSON Schema. It is
// published for server implementers; the decoder itself is more lenient than
// the schema.
func Schema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Mapper:         mapSchemaType,
	}

	entities := r.Reflect(&entitiesLine{})
	entities.Version = ""
	properties := r.Reflect(&propertiesLine{})
	properties.Version = ""

	return &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Ownership network stream line",
		Description: "One newline-delimited JSON chunk of a network load.",
		OneOf:       []*jsonschema.Schema{entities, properties},
	}
}

func mapSchemaType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeFor[common.ID](), reflect.TypeFor[common.Amount]():
		return scalarSchema()
	case reflect.TypeFor[LinksPayload]():
		pair := linkPairSchema()
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "array", Items: pair},
				{
					Type: "object",
					AdditionalProperties: &jsonschema.Schema{
						Type: "array",
						Items: &jsonschema.Schema{
							OneOf: []*jsonschema.Schema{pair, {Type: "string"}, {Type: "number"}},
						},
					},
				},
			},
		}
	}
	return nil
}

func scalarSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		OneOf: []*jsonschema.Schema{{Type: "string"}, {Type: "number"}},
	}
}

func linkPairSchema() *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeFor[common.ID]() {
				return scalarSchema()
			}
			return nil
		},
	}
	s := r.Reflect(&common.Link{})
	s.Version = ""
	return s
}
