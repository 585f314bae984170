package schemas

import "time"

// Wire representations used by the remote model service. Nodes flatten the
// canvas position into x/y and tuck everything else into data, matching the
// backend's storage schema.

// APINodeData is the payload stored alongside a node record.
type APINodeData struct {
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Properties  Properties `json:"properties,omitempty"`
}

// APINode is a node as the model service sends and receives it.
type APINode struct {
	ID    string      `json:"id"`
	Model string      `json:"model,omitempty"`
	Type  NodeKind    `json:"type"`
	X     float64     `json:"x"`
	Y     float64     `json:"y"`
	Data  APINodeData `json:"data"`
}

// APIEdgeData is the payload stored alongside an edge record.
type APIEdgeData struct {
	SourceHandle string    `json:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty"`
	Style        EdgeStyle `json:"style"`
}

// APIEdge is an edge as the model service sends and receives it.
type APIEdge struct {
	ID     string      `json:"id"`
	Model  string      `json:"model,omitempty"`
	Source string      `json:"source"`
	Target string      `json:"target"`
	Data   APIEdgeData `json:"data"`
}

// APIModel is the full model record returned by GET /models/{id}/.
type APIModel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	Nodes     []APINode `json:"nodes"`
	Edges     []APIEdge `json:"edges"`
}

// CreateModelRequest is the body for POST /models/ and PUT /models/{id}/.
// Nodes and edges omit the denormalized model field; nil slices mean
// "leave unchanged" on update.
type CreateModelRequest struct {
	Name  string    `json:"name"`
	Nodes []APINode `json:"nodes,omitempty"`
	Edges []APIEdge `json:"edges,omitempty"`
}

// NodeToAPI converts an in-memory node to its wire form.
func NodeToAPI(n Node) APINode {
	return APINode{
		ID:   n.ID,
		Type: n.Kind,
		X:    n.Position.X,
		Y:    n.Position.Y,
		Data: APINodeData{
			Label:       n.Label,
			Description: n.Description,
			Properties:  n.Properties,
		},
	}
}

// NodeFromAPI converts a wire node back to the in-memory form.
func NodeFromAPI(a APINode) Node {
	return Node{
		ID:          a.ID,
		Kind:        a.Type,
		Position:    Position{X: a.X, Y: a.Y},
		Label:       a.Data.Label,
		Description: a.Data.Description,
		Properties:  a.Data.Properties,
	}
}

// EdgeToAPI converts an in-memory edge to its wire form.
func EdgeToAPI(e Edge) APIEdge {
	return APIEdge{
		ID:     e.ID,
		Source: e.Source,
		Target: e.Target,
		Data: APIEdgeData{
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Style:        e.Style,
		},
	}
}

// EdgeFromAPI converts a wire edge back to the in-memory form.
func EdgeFromAPI(a APIEdge) Edge {
	return Edge{
		ID:           a.ID,
		Source:       a.Source,
		Target:       a.Target,
		SourceHandle: a.Data.SourceHandle,
		TargetHandle: a.Data.TargetHandle,
		Style:        a.Data.Style,
	}
}

// NodesToAPI maps a node slice to wire form, preserving order.
func NodesToAPI(nodes []Node) []APINode {
	out := make([]APINode, len(nodes))
	for i, n := range nodes {
		out[i] = NodeToAPI(n)
	}
	return out
}

// NodesFromAPI maps a wire node slice to the in-memory form, preserving order.
func NodesFromAPI(nodes []APINode) []Node {
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = NodeFromAPI(n)
	}
	return out
}

// EdgesToAPI maps an edge slice to wire form, preserving order.
func EdgesToAPI(edges []Edge) []APIEdge {
	out := make([]APIEdge, len(edges))
	for i, e := range edges {
		out[i] = EdgeToAPI(e)
	}
	return out
}

// EdgesFromAPI maps a wire edge slice to the in-memory form, preserving order.
func EdgesFromAPI(edges []APIEdge) []Edge {
	out := make([]Edge, len(edges))
	for i, e := range edges {
		out[i] = EdgeFromAPI(e)
	}
	return out
}
