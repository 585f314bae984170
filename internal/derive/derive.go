// Package derive computes the display column set and physical table name for a
// node from its kind, its properties and the graph around it. Everything here
// is pure and deterministic: the same node, nodes and edges always produce the
// same columns in the same order, so re-derivation after unrelated edits never
// changes displayed names.
package derive

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// Data types assigned to synthesized columns.
const (
	typeHash      = "BINARY(20)"
	typeKey       = "VARCHAR(100)"
	typeAttribute = "VARCHAR(255)"
	typeTimestamp = "TIMESTAMP"
	typeDate      = "DATE"
	typeBigInt    = "BIGINT"
	typeBoolean   = "BOOLEAN"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Slug lower-cases a label and collapses whitespace runs to single underscores.
func Slug(label string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(label), "_")
}

// HashKeyName returns the hash-key column name for a node: the configured
// hashkeyName property when present, otherwise a name synthesized from the
// label with the kind's conventional suffix.
func HashKeyName(n schemas.Node) string {
	if name := n.Properties.String(schemas.PropHashkeyName); name != "" {
		return name
	}
	switch n.Kind {
	case schemas.KindHub:
		return "hk_" + Slug(n.Label) + "_h"
	case schemas.KindLink:
		return "hk_" + Slug(n.Label) + "_l"
	default:
		return Slug(n.Label) + "_hashkey"
	}
}

// Columns derives the full ordered column set for node given the current graph
// and the configured global columns.
func Columns(node schemas.Node, nodes []schemas.Node, edges []schemas.Edge, globals []schemas.ColumnDefinition) []schemas.ColumnDefinition {
	var columns []schemas.ColumnDefinition

	// PIT and bridge tables are snapshot-driven and carry no load date of
	// their own; every other kind takes the global set unfiltered.
	if node.Kind == schemas.KindPIT || node.Kind == schemas.KindBridge {
		for _, col := range globals {
			if col.ID != "load_date" {
				columns = append(columns, col)
			}
		}
	} else {
		columns = append(columns, globals...)
	}

	switch node.Kind {
	case schemas.KindHub:
		columns = append(columns, hubColumns(node)...)
	case schemas.KindLink:
		columns = append(columns, linkColumns(node, nodes, edges)...)
	case schemas.KindSatellite:
		columns = append(columns, satelliteColumns(node, nodes, edges)...)
	case schemas.KindReference:
		columns = append(columns, referenceColumns(node)...)
	case schemas.KindPIT:
		columns = append(columns, pitColumns(node, nodes, edges)...)
	case schemas.KindBridge:
		columns = append(columns, bridgeColumns(node, nodes, edges)...)
	}

	return columns
}

func hubColumns(node schemas.Node) []schemas.ColumnDefinition {
	cols := []schemas.ColumnDefinition{{
		ID:          "hub_hashkey",
		Name:        HashKeyName(node),
		DataType:    typeHash,
		Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerHK},
		Description: "Hub hash key (primary key)",
		IsRequired:  true,
	}}

	businessKeys := node.Properties.StringSlice(schemas.PropBusinessKeys)
	if len(businessKeys) > 0 {
		for i, bk := range businessKeys {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("business_key_%d", i),
				Name:        bk,
				DataType:    typeKey,
				Markers:     []schemas.MarkerType{schemas.MarkerBK, schemas.MarkerNK},
				Description: fmt.Sprintf("Business key %d", i+1),
				IsRequired:  true,
			})
		}
		return cols
	}

	return append(cols, schemas.ColumnDefinition{
		ID:          "business_key",
		Name:        "business_key",
		DataType:    typeKey,
		Markers:     []schemas.MarkerType{schemas.MarkerBK, schemas.MarkerNK},
		Description: "Natural business key",
		IsRequired:  true,
	})
}

func linkColumns(node schemas.Node, nodes []schemas.Node, edges []schemas.Edge) []schemas.ColumnDefinition {
	cols := []schemas.ColumnDefinition{{
		ID:          "link_hashkey",
		Name:        HashKeyName(node),
		DataType:    typeHash,
		Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerHK},
		Description: "Link hash key (primary key)",
		IsRequired:  true,
	}}

	hubs := connectedByKind(node.ID, nodes, edges, schemas.KindHub)
	if len(hubs) > 0 {
		for i, hub := range hubs {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("hub_hashkey_%d", i),
				Name:        HashKeyName(hub),
				DataType:    typeHash,
				Markers:     []schemas.MarkerType{schemas.MarkerFK, schemas.MarkerHK},
				Description: fmt.Sprintf("%s hash key (foreign key)", hub.Label),
				IsRequired:  true,
			})
		}
	} else {
		for i, placeholder := range []string{"hk_hub1_h", "hk_hub2_h"} {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("hub_hashkey_%d", i),
				Name:        placeholder,
				DataType:    typeHash,
				Markers:     []schemas.MarkerType{schemas.MarkerFK, schemas.MarkerHK},
				Description: fmt.Sprintf("Hub %d hash key (foreign key)", i+1),
				IsRequired:  true,
			})
		}
	}

	if node.Properties.Bool(schemas.PropIsTransactional) {
		for i, attr := range node.Properties.StringSlice(schemas.PropAttributes) {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("attribute_%d", i),
				Name:        attr,
				DataType:    typeAttribute,
				Description: "Transactional attribute: " + attr,
			})
		}
	}

	return cols
}

func satelliteColumns(node schemas.Node, nodes []schemas.Node, edges []schemas.Edge) []schemas.ColumnDefinition {
	var cols []schemas.ColumnDefinition

	if parent, ok := connectedParent(node.ID, nodes, edges); ok {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "parent_hashkey",
			Name:        HashKeyName(parent),
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerFK, schemas.MarkerHK},
			Description: fmt.Sprintf("Parent %s hash key", strings.ToLower(string(parent.Kind))),
			IsRequired:  true,
		})
	} else {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "parent_hashkey",
			Name:        "hk_parent_h",
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerFK, schemas.MarkerHK},
			Description: "Parent hub/link hash key",
			IsRequired:  true,
		})
	}

	satType := schemas.SatelliteType(node.Properties.String(schemas.PropSatelliteType))
	if satType == "" {
		satType = schemas.SatStandard
	}

	switch satType {
	case schemas.SatEffectivity:
		if from := node.Properties.String(schemas.PropEffectiveFromColumn); from != "" {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          "effective_from",
				Name:        from,
				DataType:    typeTimestamp,
				Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerLDTS},
				Description: "Effective from timestamp",
				IsRequired:  true,
			})
		}
		if to := node.Properties.String(schemas.PropEffectiveToColumn); to != "" {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          "effective_to",
				Name:        to,
				DataType:    typeTimestamp,
				Markers:     []schemas.MarkerType{schemas.MarkerRTE},
				Description: "Effective to timestamp",
			})
		}
	case schemas.SatRecordTracking:
		if del := node.Properties.String(schemas.PropIsDeletedColumn); del != "" {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          "is_deleted",
				Name:        del,
				DataType:    typeBoolean,
				Markers:     []schemas.MarkerType{schemas.MarkerDEL},
				Description: "Deletion tracking flag",
				IsRequired:  true,
			})
		}
	case schemas.SatNonHistorized:
		// No change-detection column: non-historized satellites are insert-only.
	default:
		// Standard and multi-active satellites track changes via a hashdiff.
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "hashdiff",
			Name:        hashdiffName(node),
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerHD},
			Description: "Hash difference for change detection",
			IsRequired:  true,
		})
	}

	if satType == schemas.SatMultiActive {
		if mak := node.Properties.String(schemas.PropMultiActiveKey); mak != "" {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          "multi_active_key",
				Name:        mak,
				DataType:    typeKey,
				Markers:     []schemas.MarkerType{schemas.MarkerPK},
				Description: "Multi-active key",
				IsRequired:  true,
			})
		}
	}

	for i, attr := range node.Properties.StringSlice(schemas.PropAttributes) {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          fmt.Sprintf("attribute_%d", i),
			Name:        attr,
			DataType:    typeAttribute,
			Description: "Satellite attribute: " + attr,
		})
	}

	return cols
}

func referenceColumns(node schemas.Node) []schemas.ColumnDefinition {
	var cols []schemas.ColumnDefinition

	refKeys := node.Properties.StringSlice(schemas.PropReferenceKeys)
	if len(refKeys) > 0 {
		for i, key := range refKeys {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("reference_key_%d", i),
				Name:        key,
				DataType:    typeKey,
				Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerNK},
				Description: fmt.Sprintf("Reference key %d", i+1),
				IsRequired:  true,
			})
		}
	} else {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "reference_key",
			Name:        "reference_key",
			DataType:    typeKey,
			Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerNK},
			Description: "Reference data key",
			IsRequired:  true,
		})
	}

	refType := schemas.ReferenceType(node.Properties.String(schemas.PropReferenceType))
	if refType == schemas.RefSatellite {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "hashdiff",
			Name:        hashdiffName(node),
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerHD},
			Description: "Hash difference for change detection",
			IsRequired:  true,
		})
	}

	for i, attr := range node.Properties.StringSlice(schemas.PropDescriptiveAttributes) {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          fmt.Sprintf("descriptive_attr_%d", i),
			Name:        attr,
			DataType:    typeAttribute,
			Description: "Descriptive attribute: " + attr,
		})
	}

	return cols
}

func pitColumns(node schemas.Node, nodes []schemas.Node, edges []schemas.Edge) []schemas.ColumnDefinition {
	dimensionKey := node.Properties.String(schemas.PropDimensionKeyName)
	if dimensionKey == "" {
		dimensionKey = Slug(node.Label) + "_key"
	}
	cols := []schemas.ColumnDefinition{{
		ID:          "dimension_key",
		Name:        dimensionKey,
		DataType:    typeBigInt,
		Markers:     []schemas.MarkerType{schemas.MarkerPK},
		Description: "Dimension key",
		IsRequired:  true,
	}}

	parent, hasParent := connectedParent(node.ID, nodes, edges)
	if hasParent {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "parent_hashkey",
			Name:        HashKeyName(parent),
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerFK, schemas.MarkerHK},
			Description: fmt.Sprintf("%s hash key", parent.Kind),
			IsRequired:  true,
		})
	} else {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          "parent_hashkey",
			Name:        "hk_hub_h",
			DataType:    typeHash,
			Markers:     []schemas.MarkerType{schemas.MarkerPK, schemas.MarkerFK, schemas.MarkerHK},
			Description: "Parent hub/link hash key",
			IsRequired:  true,
		})
	}

	snapshotDate := node.Properties.String(schemas.PropSnapshotDateColumn)
	if snapshotDate == "" {
		snapshotDate = "snapshot_date"
	}
	cols = append(cols, schemas.ColumnDefinition{
		ID:          "snapshot_date",
		Name:        snapshotDate,
		DataType:    typeDate,
		Markers:     []schemas.MarkerType{schemas.MarkerPK},
		Description: "Point-in-time snapshot date",
		IsRequired:  true,
	})

	// Two hops: the PIT indexes the load state of every satellite hanging off
	// its parent.
	if hasParent {
		for _, sat := range connectedSatellites(parent.ID, nodes, edges) {
			satSlug := Slug(sat.Label)
			cols = append(cols,
				schemas.ColumnDefinition{
					ID:          "sat_" + satSlug + "_ldts",
					Name:        "sat_" + satSlug + "_ldts",
					DataType:    typeTimestamp,
					Markers:     []schemas.MarkerType{schemas.MarkerLDTS},
					Description: sat.Label + " load date timestamp",
				},
				schemas.ColumnDefinition{
					ID:          "sat_" + satSlug + "_rsrc",
					Name:        "sat_" + satSlug + "_rsrc",
					DataType:    typeKey,
					Markers:     []schemas.MarkerType{schemas.MarkerRSRC},
					Description: sat.Label + " record source",
				},
			)
		}
	}

	return cols
}

func bridgeColumns(node schemas.Node, nodes []schemas.Node, edges []schemas.Edge) []schemas.ColumnDefinition {
	var cols []schemas.ColumnDefinition

	connected := connectedNodes(node.ID, nodes, edges)
	if len(connected) > 0 {
		for i, other := range connected {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("node_hashkey_%d", i),
				Name:        HashKeyName(other),
				DataType:    typeHash,
				Markers:     []schemas.MarkerType{schemas.MarkerFK, schemas.MarkerHK},
				Description: other.Label + " hash key",
				IsRequired:  true,
			})
		}
	} else {
		for i, placeholder := range []string{"hk_hub1_h", "hk_hub2_h"} {
			cols = append(cols, schemas.ColumnDefinition{
				ID:          fmt.Sprintf("node_hashkey_%d", i),
				Name:        placeholder,
				DataType:    typeHash,
				Markers:     []schemas.MarkerType{schemas.MarkerFK, schemas.MarkerHK},
				Description: fmt.Sprintf("Node %d hash key", i+1),
				IsRequired:  true,
			})
		}
	}

	snapshotDate := node.Properties.String(schemas.PropSnapshotDateColumn)
	if snapshotDate == "" {
		snapshotDate = "snapshot_date"
	}
	cols = append(cols, schemas.ColumnDefinition{
		ID:          "snapshot_date",
		Name:        snapshotDate,
		DataType:    typeDate,
		Markers:     []schemas.MarkerType{schemas.MarkerPK},
		Description: "Bridge snapshot date",
		IsRequired:  true,
	})

	for i, attr := range node.Properties.StringSlice(schemas.PropComputedAttributes) {
		cols = append(cols, schemas.ColumnDefinition{
			ID:          fmt.Sprintf("computed_attr_%d", i),
			Name:        attr,
			DataType:    typeAttribute,
			Description: "Computed attribute: " + attr,
		})
	}

	return cols
}

func hashdiffName(n schemas.Node) string {
	if name := n.Properties.String(schemas.PropHashdiffName); name != "" {
		return name
	}
	return "hd_" + Slug(n.Label) + "_s"
}

// neighborIDs collects the ids on the far side of every edge touching nodeID.
func neighborIDs(nodeID string, edges []schemas.Edge) map[string]bool {
	ids := make(map[string]bool)
	for _, e := range edges {
		if e.Source == nodeID {
			ids[e.Target] = true
		} else if e.Target == nodeID {
			ids[e.Source] = true
		}
	}
	return ids
}

// connectedByKind returns neighbors of the given kind in node-list order, which
// keeps derived FK column order stable across edits.
func connectedByKind(nodeID string, nodes []schemas.Node, edges []schemas.Edge, kind schemas.NodeKind) []schemas.Node {
	ids := neighborIDs(nodeID, edges)
	var out []schemas.Node
	for _, n := range nodes {
		if ids[n.ID] && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// connectedNodes returns all neighbors in node-list order.
func connectedNodes(nodeID string, nodes []schemas.Node, edges []schemas.Edge) []schemas.Node {
	ids := neighborIDs(nodeID, edges)
	var out []schemas.Node
	for _, n := range nodes {
		if ids[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// connectedParent finds the hub or link feeding nodeID: an upstream node where
// the parent is the edge source and nodeID the target.
func connectedParent(nodeID string, nodes []schemas.Node, edges []schemas.Edge) (schemas.Node, bool) {
	upstream := make(map[string]bool)
	for _, e := range edges {
		if e.Target == nodeID {
			upstream[e.Source] = true
		}
	}
	for _, n := range nodes {
		if upstream[n.ID] && (n.Kind == schemas.KindHub || n.Kind == schemas.KindLink) {
			return n, true
		}
	}
	return schemas.Node{}, false
}

// connectedSatellites finds the satellites fed by parentID (parent as source).
func connectedSatellites(parentID string, nodes []schemas.Node, edges []schemas.Edge) []schemas.Node {
	downstream := make(map[string]bool)
	for _, e := range edges {
		if e.Source == parentID {
			downstream[e.Target] = true
		}
	}
	var out []schemas.Node
	for _, n := range nodes {
		if downstream[n.ID] && n.Kind == schemas.KindSatellite {
			out = append(out, n)
		}
	}
	return out
}
