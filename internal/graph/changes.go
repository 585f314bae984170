package graph

import "github.com/dvwtools/dvw-cli/api/schemas"

// ChangeType labels an incremental change record reported by the rendering
// collaborator.
type ChangeType string

const (
	ChangePosition ChangeType = "position"
	ChangeSelect   ChangeType = "select"
	ChangeRemove   ChangeType = "remove"
)

// NodeChange is one entry of a node change batch.
type NodeChange struct {
	Type     ChangeType
	ID       string
	Position schemas.Position
	Selected bool
}

// EdgeChange is one entry of an edge change batch.
type EdgeChange struct {
	Type     ChangeType
	ID       string
	Selected bool
}

// ApplyNodeChanges applies a batch of UI-originated node changes in order.
// Remove entries behave exactly like DeleteNode, cascading to incident edges.
func (s *Store) ApplyNodeChanges(changes []NodeChange) {
	if len(changes) == 0 {
		return
	}

	cfg := s.settings.Current()

	s.mu.Lock()
	mutated := false
	for _, c := range changes {
		switch c.Type {
		case ChangePosition:
			pos := c.Position
			if cfg.SnapToGrid {
				pos = SnapToGrid(pos, cfg.GridSize)
			}
			for i := range s.nodes {
				if s.nodes[i].ID == c.ID {
					s.nodes[i].Position = pos
					mutated = true
					break
				}
			}
		case ChangeSelect:
			if c.Selected {
				s.selected[c.ID] = true
			} else {
				delete(s.selected, c.ID)
			}
		case ChangeRemove:
			if s.deleteNodeLocked(c.ID) {
				mutated = true
			}
		}
	}
	s.mu.Unlock()

	if mutated {
		s.notifySubscribers()
	}
}

// ApplyEdgeChanges applies a batch of UI-originated edge changes in order.
func (s *Store) ApplyEdgeChanges(changes []EdgeChange) {
	if len(changes) == 0 {
		return
	}

	s.mu.Lock()
	mutated := false
	for _, c := range changes {
		switch c.Type {
		case ChangeSelect:
			if c.Selected {
				s.selected[c.ID] = true
			} else {
				delete(s.selected, c.ID)
			}
		case ChangeRemove:
			if s.deleteEdgeLocked(c.ID) {
				mutated = true
			}
		}
	}
	s.mu.Unlock()

	if mutated {
		s.notifySubscribers()
	}
}

// Selected reports whether the node or edge with the given id is selected.
func (s *Store) Selected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected[id]
}
