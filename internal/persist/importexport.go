package persist

import (
	"fmt"
	"math"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// ImportError describes exactly which part of an import payload is invalid.
// Raised before any state mutation so the current model is never corrupted.
type ImportError struct {
	Field  string
	Reason string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("invalid model file: %s: %s", e.Field, e.Reason)
}

// ModelFile is the exchange format written by Export and read by Import:
// the wire-shaped model without server-assigned metadata.
type ModelFile struct {
	Name  string            `json:"name"`
	Nodes []schemas.APINode `json:"nodes"`
	Edges []schemas.APIEdge `json:"edges"`
}

// ParseModelFile validates and decodes an exported model payload. Every
// missing or malformed field produces a specific ImportError.
func ParseModelFile(data []byte) (ModelFile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return ModelFile{}, &ImportError{Field: "payload", Reason: "not a JSON object"}
	}
	for _, field := range []string{"name", "nodes", "edges"} {
		if _, ok := raw[field]; !ok {
			return ModelFile{}, &ImportError{Field: field, Reason: "missing"}
		}
	}

	var file ModelFile
	if err := json.Unmarshal(data, &file); err != nil {
		return ModelFile{}, &ImportError{Field: "payload", Reason: err.Error()}
	}
	if file.Name == "" {
		return ModelFile{}, &ImportError{Field: "name", Reason: "must not be empty"}
	}

	seen := make(map[string]bool, len(file.Nodes))
	for i, n := range file.Nodes {
		field := fmt.Sprintf("nodes[%d]", i)
		if n.ID == "" {
			return ModelFile{}, &ImportError{Field: field + ".id", Reason: "missing"}
		}
		if seen[n.ID] {
			return ModelFile{}, &ImportError{Field: field + ".id", Reason: "duplicate id " + n.ID}
		}
		seen[n.ID] = true
		if !n.Type.Valid() {
			return ModelFile{}, &ImportError{Field: field + ".type", Reason: fmt.Sprintf("unknown kind %q", n.Type)}
		}
		if math.IsNaN(n.X) || math.IsInf(n.X, 0) || math.IsNaN(n.Y) || math.IsInf(n.Y, 0) {
			return ModelFile{}, &ImportError{Field: field, Reason: "position must be finite"}
		}
		if n.Data.Label == "" {
			return ModelFile{}, &ImportError{Field: field + ".data.label", Reason: "missing"}
		}
	}

	for i, e := range file.Edges {
		field := fmt.Sprintf("edges[%d]", i)
		if e.ID == "" {
			return ModelFile{}, &ImportError{Field: field + ".id", Reason: "missing"}
		}
		if e.Source == "" || e.Target == "" {
			return ModelFile{}, &ImportError{Field: field, Reason: "source and target are required"}
		}
		if !seen[e.Source] {
			return ModelFile{}, &ImportError{Field: field + ".source", Reason: "references unknown node " + e.Source}
		}
		if !seen[e.Target] {
			return ModelFile{}, &ImportError{Field: field + ".target", Reason: "references unknown node " + e.Target}
		}
	}

	return file, nil
}

// ExportModelFile encodes the current graph as an exchange payload.
func ExportModelFile(name string, nodes []schemas.Node, edges []schemas.Edge) ([]byte, error) {
	file := ModelFile{
		Name:  name,
		Nodes: schemas.NodesToAPI(nodes),
		Edges: schemas.EdgesToAPI(edges),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode model file: %w", err)
	}
	return data, nil
}
