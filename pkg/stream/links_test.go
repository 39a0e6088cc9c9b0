package stream

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/ownernet/pkg/common"
)

func TestLinksPayloadShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		shape LinksShape
		want  []common.Link
	}{
		{
			name:  "list",
			input: `[{"source":"A","target":"B"}]`,
			shape: LinksShapeList,
			want:  []common.Link{{Source: "A", Target: "B"}},
		},
		{
			name:  "keyed scalar",
			input: `{"A":["B"]}`,
			shape: LinksShapeKeyed,
			want:  []common.Link{{Source: "A", Target: "B"}},
		},
		{
			name:  "keyed mixed targets keep order",
			input: `{"principal_JSMITH":["business_B1",{"source":"X","target":"Y"},42],"business_B2":["principal_ANN"]}`,
			shape: LinksShapeKeyed,
			want: []common.Link{
				{Source: "principal_JSMITH", Target: "business_B1"},
				{Source: "X", Target: "Y"},
				{Source: "principal_JSMITH", Target: "42"},
				{Source: "business_B2", Target: "principal_ANN"},
			},
		},
		{
			name:  "list drops incomplete pairs",
			input: `[{"source":"A"},{"source":"A","target":"B"},"junk"]`,
			shape: LinksShapeList,
			want:  []common.Link{{Source: "A", Target: "B"}},
		},
		{
			name:  "keyed entry that is not an array is ignored",
			input: `{"A":"B","C":["D"]}`,
			shape: LinksShapeKeyed,
			want:  []common.Link{{Source: "C", Target: "D"}},
		},
		{
			name:  "unrecognized",
			input: `"A->B"`,
			shape: LinksShapeNone,
			want:  nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p LinksPayload
			if err := json.Unmarshal([]byte(tc.input), &p); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if p.Shape != tc.shape {
				t.Fatalf("shape = %v, want %v", p.Shape, tc.shape)
			}
			if got := p.Links(); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Links() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestLinksPayloadBadShapeKeepsEntities(t *testing.T) {
	line := `{"type":"entities","data":{"entities":[{"id":"B1","type":"business","name":"Acme LLC"}],"links":true}}`
	c, err := parseChunk([]byte(line))
	if err != nil {
		t.Fatalf("parseChunk() error = %v", err)
	}
	if len(c.Entities.Entities) != 1 {
		t.Fatalf("entities = %d, want 1", len(c.Entities.Entities))
	}
	if c.Entities.Links.Shape != LinksShapeNone {
		t.Fatalf("links shape = %v, want none", c.Entities.Links.Shape)
	}
}
