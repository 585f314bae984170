package schemas

// NodeKind identifies the Data Vault entity a node represents.
type NodeKind string

const (
	KindHub       NodeKind = "HUB"
	KindLink      NodeKind = "LNK"
	KindSatellite NodeKind = "SAT"
	KindReference NodeKind = "REF"
	KindPIT       NodeKind = "PIT"
	KindBridge    NodeKind = "BRIDGE"
)

// AllNodeKinds lists every kind in a stable order, used for validation and CLI help.
var AllNodeKinds = []NodeKind{KindHub, KindLink, KindSatellite, KindReference, KindPIT, KindBridge}

// Valid reports whether k is one of the known node kinds.
func (k NodeKind) Valid() bool {
	switch k {
	case KindHub, KindLink, KindSatellite, KindReference, KindPIT, KindBridge:
		return true
	}
	return false
}

// SatelliteType refines how a satellite tracks history.
type SatelliteType string

const (
	SatStandard       SatelliteType = "standard"
	SatMultiActive    SatelliteType = "multi-active"
	SatEffectivity    SatelliteType = "effectivity"
	SatRecordTracking SatelliteType = "record-tracking"
	SatNonHistorized  SatelliteType = "non-historized"
)

// ReferenceType refines how a reference node is materialized.
type ReferenceType string

const (
	RefTable     ReferenceType = "table"
	RefHub       ReferenceType = "hub"
	RefSatellite ReferenceType = "satellite"
)

// Position is a point on the canvas. Both coordinates must be finite.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
