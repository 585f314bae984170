package server

import (
	"encoding/json"
	"time"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// DataModel is a stored diagram. Nodes and edges are owned rows deleted with
// the model.
type DataModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"not null;size:200"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Nodes []NodeRecord `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
	Edges []EdgeRecord `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE"`
}

// NodeRecord stores one node. The data payload (label, description,
// properties) is kept as a JSON blob, mirroring the wire format.
type NodeRecord struct {
	ModelID string  `gorm:"primaryKey;size:36"`
	ID      string  `gorm:"primaryKey;size:64"`
	Type    string  `gorm:"not null;size:16"`
	X       float64 `gorm:"not null"`
	Y       float64 `gorm:"not null"`
	Data    string  `gorm:"type:text"`
}

// EdgeRecord stores one edge with its JSON data payload.
type EdgeRecord struct {
	ModelID string `gorm:"primaryKey;size:36"`
	ID      string `gorm:"primaryKey;size:64"`
	Source  string `gorm:"not null;size:64"`
	Target  string `gorm:"not null;size:64"`
	Data    string `gorm:"type:text"`
}

// SettingsRecord is the singleton settings row.
type SettingsRecord struct {
	ID        uint   `gorm:"primaryKey"`
	Data      string `gorm:"type:text"`
	UpdatedAt time.Time
}

func nodeRecordFrom(modelID string, n schemas.APINode) (NodeRecord, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return NodeRecord{}, err
	}
	return NodeRecord{
		ModelID: modelID,
		ID:      n.ID,
		Type:    string(n.Type),
		X:       n.X,
		Y:       n.Y,
		Data:    string(data),
	}, nil
}

func (r NodeRecord) toAPI() schemas.APINode {
	var data schemas.APINodeData
	if r.Data != "" {
		// A payload that fails to decode renders as an empty data object
		// rather than failing the whole model fetch.
		_ = json.Unmarshal([]byte(r.Data), &data)
	}
	return schemas.APINode{
		ID:    r.ID,
		Model: r.ModelID,
		Type:  schemas.NodeKind(r.Type),
		X:     r.X,
		Y:     r.Y,
		Data:  data,
	}
}

func edgeRecordFrom(modelID string, e schemas.APIEdge) (EdgeRecord, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return EdgeRecord{}, err
	}
	return EdgeRecord{
		ModelID: modelID,
		ID:      e.ID,
		Source:  e.Source,
		Target:  e.Target,
		Data:    string(data),
	}, nil
}

func (r EdgeRecord) toAPI() schemas.APIEdge {
	var data schemas.APIEdgeData
	if r.Data != "" {
		_ = json.Unmarshal([]byte(r.Data), &data)
	}
	return schemas.APIEdge{
		ID:     r.ID,
		Model:  r.ModelID,
		Source: r.Source,
		Target: r.Target,
		Data:   data,
	}
}

func (m DataModel) toAPI() schemas.APIModel {
	out := schemas.APIModel{
		ID:        m.ID,
		Name:      m.Name,
		CreatedAt: m.CreatedAt,
		Nodes:     make([]schemas.APINode, len(m.Nodes)),
		Edges:     make([]schemas.APIEdge, len(m.Edges)),
	}
	for i, n := range m.Nodes {
		out.Nodes[i] = n.toAPI()
	}
	for i, e := range m.Edges {
		out.Edges[i] = e.toAPI()
	}
	return out
}
