package derive

import "github.com/dvwtools/dvw-cli/api/schemas"

// TableName derives the physical table name for a node: the configured
// tableName property when present, otherwise the label slug with the
// conventional suffix for the node's kind and sub-type.
func TableName(n schemas.Node) string {
	if name := n.Properties.String(schemas.PropTableName); name != "" {
		return name
	}
	return Slug(n.Label) + tableSuffix(n)
}

func tableSuffix(n schemas.Node) string {
	switch n.Kind {
	case schemas.KindHub:
		return "_h"
	case schemas.KindLink:
		return "_l"
	case schemas.KindSatellite:
		switch schemas.SatelliteType(n.Properties.String(schemas.PropSatelliteType)) {
		case schemas.SatMultiActive:
			return "_mas"
		case schemas.SatEffectivity:
			return "_es"
		case schemas.SatNonHistorized:
			return "_nhs"
		case schemas.SatRecordTracking:
			return "_rts"
		default:
			return "_s"
		}
	case schemas.KindReference:
		switch schemas.ReferenceType(n.Properties.String(schemas.PropReferenceType)) {
		case schemas.RefHub:
			return "_rh"
		case schemas.RefSatellite:
			return "_rs"
		default:
			return "_r"
		}
	case schemas.KindPIT:
		return "_bp"
	case schemas.KindBridge:
		return "_bs"
	}
	return ""
}
