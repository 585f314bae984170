package schemas

// Settings is the per-workspace preference set. One instance per workspace;
// it parameterizes edge materialization, grid snapping and auto-save.
type Settings struct {
	Theme                string             `json:"theme"`
	AutoSave             bool               `json:"autoSave"`
	AutoSaveIntervalSec  int                `json:"autoSaveIntervalSec"`
	SnapToGrid           bool               `json:"snapToGrid"`
	GridSize             int                `json:"gridSize"`
	EdgeType             string             `json:"edgeType"`
	FloatingEdges        bool               `json:"floatingEdges"`
	EdgeAnimation        bool               `json:"edgeAnimation"`
	ShowConnectionPoints bool               `json:"showConnectionPoints"`
	GlobalColumns        []ColumnDefinition `json:"globalColumns"`
}

// DefaultSettings returns the documented defaults.
func DefaultSettings() Settings {
	return Settings{
		Theme:                "light",
		AutoSave:             false,
		AutoSaveIntervalSec:  30,
		SnapToGrid:           false,
		GridSize:             16,
		EdgeType:             "smoothstep",
		FloatingEdges:        true,
		EdgeAnimation:        true,
		ShowConnectionPoints: true,
		GlobalColumns:        DefaultGlobalColumns(),
	}
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Theme                *string             `json:"theme,omitempty"`
	AutoSave             *bool               `json:"autoSave,omitempty"`
	AutoSaveIntervalSec  *int                `json:"autoSaveIntervalSec,omitempty"`
	SnapToGrid           *bool               `json:"snapToGrid,omitempty"`
	GridSize             *int                `json:"gridSize,omitempty"`
	EdgeType             *string             `json:"edgeType,omitempty"`
	FloatingEdges        *bool               `json:"floatingEdges,omitempty"`
	EdgeAnimation        *bool               `json:"edgeAnimation,omitempty"`
	ShowConnectionPoints *bool               `json:"showConnectionPoints,omitempty"`
	GlobalColumns        *[]ColumnDefinition `json:"globalColumns,omitempty"`
}

// Apply merges the patch into s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.AutoSave != nil {
		s.AutoSave = *p.AutoSave
	}
	if p.AutoSaveIntervalSec != nil {
		s.AutoSaveIntervalSec = *p.AutoSaveIntervalSec
	}
	if p.SnapToGrid != nil {
		s.SnapToGrid = *p.SnapToGrid
	}
	if p.GridSize != nil {
		s.GridSize = *p.GridSize
	}
	if p.EdgeType != nil {
		s.EdgeType = *p.EdgeType
	}
	if p.FloatingEdges != nil {
		s.FloatingEdges = *p.FloatingEdges
	}
	if p.EdgeAnimation != nil {
		s.EdgeAnimation = *p.EdgeAnimation
	}
	if p.ShowConnectionPoints != nil {
		s.ShowConnectionPoints = *p.ShowConnectionPoints
	}
	if p.GlobalColumns != nil {
		cols := make([]ColumnDefinition, len(*p.GlobalColumns))
		copy(cols, *p.GlobalColumns)
		s.GlobalColumns = cols
	}
	return s
}
