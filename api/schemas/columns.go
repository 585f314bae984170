package schemas

import "strings"

// MarkerType tags the role a column plays in a Data Vault table.
type MarkerType string

const (
	MarkerPK   MarkerType = "PK"
	MarkerBK   MarkerType = "BK"
	MarkerFK   MarkerType = "FK"
	MarkerNK   MarkerType = "NK"
	MarkerHK   MarkerType = "HK"
	MarkerHD   MarkerType = "HD"
	MarkerLDTS MarkerType = "LDTS"
	MarkerRSRC MarkerType = "RSRC"
	MarkerRTS  MarkerType = "RTS"
	MarkerRTE  MarkerType = "RTE"
	MarkerCDC  MarkerType = "CDC"
	MarkerDEL  MarkerType = "DEL"
)

// Marker carries the fixed display metadata for a marker type.
type Marker struct {
	Type        MarkerType `json:"type"`
	Label       string     `json:"label"`
	Color       string     `json:"color"`
	Description string     `json:"description"`
}

// Markers is the closed registry of marker definitions.
var Markers = map[MarkerType]Marker{
	MarkerPK:   {Type: MarkerPK, Label: "PK", Color: "#dc2626", Description: "Primary Key"},
	MarkerBK:   {Type: MarkerBK, Label: "BK", Color: "#2563eb", Description: "Business Key"},
	MarkerFK:   {Type: MarkerFK, Label: "FK", Color: "#7c3aed", Description: "Foreign Key"},
	MarkerNK:   {Type: MarkerNK, Label: "NK", Color: "#059669", Description: "Natural Key"},
	MarkerHK:   {Type: MarkerHK, Label: "HK", Color: "#ea580c", Description: "Hash Key"},
	MarkerHD:   {Type: MarkerHD, Label: "HD", Color: "#0891b2", Description: "Hash Diff"},
	MarkerLDTS: {Type: MarkerLDTS, Label: "LDTS", Color: "#65a30d", Description: "Load Date Timestamp"},
	MarkerRSRC: {Type: MarkerRSRC, Label: "RSRC", Color: "#7c2d12", Description: "Record Source"},
	MarkerRTS:  {Type: MarkerRTS, Label: "RTS", Color: "#be185d", Description: "Record Timestamp"},
	MarkerRTE:  {Type: MarkerRTE, Label: "RTE", Color: "#9333ea", Description: "Record End Timestamp"},
	MarkerCDC:  {Type: MarkerCDC, Label: "CDC", Color: "#c2410c", Description: "Change Data Capture"},
	MarkerDEL:  {Type: MarkerDEL, Label: "DEL", Color: "#b91c1c", Description: "Delete Indicator"},
}

// ColumnDefinition is a derived column. Computed fresh from the node and graph
// whenever needed, never persisted on its own.
type ColumnDefinition struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	DataType    string       `json:"dataType"`
	Markers     []MarkerType `json:"markers"`
	Description string       `json:"description,omitempty"`
	IsRequired  bool         `json:"isRequired,omitempty"`
	IsGlobal    bool         `json:"isGlobal,omitempty"`
}

// HasMarker reports whether the column carries the given marker.
func (c ColumnDefinition) HasMarker(m MarkerType) bool {
	for _, t := range c.Markers {
		if t == m {
			return true
		}
	}
	return false
}

// Display renders the column as "name (PK, HK)" for CLI and panel output.
func (c ColumnDefinition) Display() string {
	if len(c.Markers) == 0 {
		return c.Name
	}
	labels := make([]string, len(c.Markers))
	for i, m := range c.Markers {
		labels[i] = Markers[m].Label
	}
	return c.Name + " (" + strings.Join(labels, ", ") + ")"
}

// DefaultGlobalColumns returns the columns applied to every node regardless of
// kind. Returned fresh so callers may edit their copy via Settings.
func DefaultGlobalColumns() []ColumnDefinition {
	return []ColumnDefinition{
		{
			ID:          "record_source",
			Name:        "record_source",
			DataType:    "VARCHAR(100)",
			Markers:     []MarkerType{MarkerRSRC},
			Description: "Source system identifier",
			IsRequired:  true,
			IsGlobal:    true,
		},
		{
			ID:          "load_date",
			Name:        "load_date",
			DataType:    "TIMESTAMP",
			Markers:     []MarkerType{MarkerLDTS},
			Description: "Date when record was loaded",
			IsRequired:  true,
			IsGlobal:    true,
		},
	}
}
