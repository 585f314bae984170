package schemas

import "time"

// Recognized property keys. Properties is an open map; these are the keys the
// derivation engine and property panel understand per node kind.
const (
	PropHashkeyName           = "hashkeyName"
	PropHashdiffName          = "hashdiffName"
	PropBusinessKeys          = "businessKeys"
	PropAttributes            = "attributes"
	PropIsTransactional       = "isTransactional"
	PropSatelliteType         = "satelliteType"
	PropEffectiveFromColumn   = "effectiveFromColumn"
	PropEffectiveToColumn     = "effectiveToColumn"
	PropIsDeletedColumn       = "isDeletedColumn"
	PropMultiActiveKey        = "multiActiveKey"
	PropReferenceType         = "referenceType"
	PropReferenceKeys         = "referenceKeys"
	PropDescriptiveAttributes = "descriptiveAttributes"
	PropDimensionKeyName      = "dimensionKeyName"
	PropSnapshotDateColumn    = "snapshotDateColumn"
	PropComputedAttributes    = "computedAttributes"
	PropTableName             = "tableName"
)

// Properties is the open, string-keyed metadata map attached to every node.
type Properties map[string]any

// String returns the value at key if it is a non-empty string.
func (p Properties) String(key string) string {
	if p == nil {
		return ""
	}
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// Bool returns the value at key if it is a bool, false otherwise.
func (p Properties) Bool(key string) bool {
	if p == nil {
		return false
	}
	b, _ := p[key].(bool)
	return b
}

// StringSlice returns the value at key coerced to a string slice. JSON decoding
// produces []any, so both []string and []any element-wise are accepted.
func (p Properties) StringSlice(key string) []string {
	if p == nil {
		return nil
	}
	switch v := p[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone returns a shallow-plus-one-level copy safe for independent mutation.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		if slice, ok := v.([]any); ok {
			copied := make([]any, len(slice))
			copy(copied, slice)
			out[k] = copied
			continue
		}
		if slice, ok := v.([]string); ok {
			copied := make([]string, len(slice))
			copy(copied, slice)
			out[k] = copied
			continue
		}
		out[k] = v
	}
	return out
}

// Node is a placed Data Vault entity on the canvas.
type Node struct {
	ID          string     `json:"id"`
	Kind        NodeKind   `json:"type"`
	Position    Position   `json:"position"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Properties  Properties `json:"properties,omitempty"`
}

// EdgeStyle carries the presentation attributes materialized from Settings at
// connect time. Topology lives on the Edge itself; style is replaceable.
type EdgeStyle struct {
	Type     string `json:"type"`
	Animated bool   `json:"animated"`
	Floating bool   `json:"floating"`
	Color    string `json:"color,omitempty"`
}

// Edge connects two nodes. Source and Target always reference existing nodes;
// the graph store enforces this on connect and via cascade delete.
type Edge struct {
	ID           string    `json:"id"`
	Source       string    `json:"source"`
	Target       string    `json:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty"`
	Style        EdgeStyle `json:"style"`
}

// Model is the persistence unit: a named diagram. ID is empty until the first
// successful remote create and immutable afterwards.
type Model struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// ModelSummary is a list entry returned by the remote model service.
type ModelSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	NodeCount int       `json:"node_count"`
	EdgeCount int       `json:"edge_count"`
}
