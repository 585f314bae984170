// Package graph owns the node and edge collections for the currently open
// model and every operation that mutates them. All mutations hold the store
// lock and run to completion, so no caller ever observes a half-applied
// change; the referential-integrity invariant (no edge references a missing
// node) is maintained by endpoint validation on connect and cascade delete.
package graph

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNodeNotFound = errors.New("node not found")
	ErrEdgeNotFound = errors.New("edge not found")
	ErrSelfLoop     = errors.New("edge endpoints must differ")
	ErrEmptyLabel   = errors.New("label must not be empty")
	ErrBadPosition  = errors.New("position must be finite")
)

// Accent applied to edges touching a satellite. Presentation policy, not a
// structural rule.
const satelliteAccent = "#eab308"

// Offset applied to cloned nodes so the copy does not cover the original.
const cloneOffset = 40

// SettingsProvider supplies the current workspace settings. The store reads
// settings; it never mutates them.
type SettingsProvider interface {
	Current() schemas.Settings
}

// Store is the mutable graph model. Order of nodes and edges is preserved so
// derived column order and persisted payloads stay stable.
type Store struct {
	mu       sync.RWMutex
	nodes    []schemas.Node
	edges    []schemas.Edge
	selected map[string]bool

	settings SettingsProvider
	log      *zap.Logger

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewStore creates an empty graph store.
func NewStore(settings SettingsProvider, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		selected: make(map[string]bool),
		settings: settings,
		log:      logger.Named("graph"),
		subs:     make(map[int]func()),
	}
}

// Subscribe registers a callback invoked after every completed mutation.
// The returned function unsubscribes.
func (s *Store) Subscribe(fn func()) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// notifySubscribers runs outside the store lock so callbacks may read back.
func (s *Store) notifySubscribers() {
	s.subMu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns copies of the current node and edge slices. Property maps
// are cloned as well: snapshots cross goroutine boundaries (auto-save, cache
// mirroring) and must never alias state still mutable under the store lock.
func (s *Store) Snapshot() ([]schemas.Node, []schemas.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	nodes := make([]schemas.Node, len(s.nodes))
	copy(nodes, s.nodes)
	for i := range nodes {
		nodes[i].Properties = nodes[i].Properties.Clone()
	}
	edges := make([]schemas.Edge, len(s.edges))
	copy(edges, s.edges)
	return nodes, edges
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (schemas.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.nodes {
		if n.ID == id {
			n.Properties = n.Properties.Clone()
			return n, true
		}
	}
	return schemas.Node{}, false
}

// Counts returns the number of nodes and edges.
func (s *Store) Counts() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// AddNode creates a node of the given kind. The position is quantized to the
// grid when snapping is enabled in settings.
func (s *Store) AddNode(kind schemas.NodeKind, pos schemas.Position, label string, props schemas.Properties) (schemas.Node, error) {
	if !kind.Valid() {
		return schemas.Node{}, fmt.Errorf("unknown node kind %q", kind)
	}
	if math.IsNaN(pos.X) || math.IsInf(pos.X, 0) || math.IsNaN(pos.Y) || math.IsInf(pos.Y, 0) {
		return schemas.Node{}, ErrBadPosition
	}

	cfg := s.settings.Current()
	if cfg.SnapToGrid {
		pos = SnapToGrid(pos, cfg.GridSize)
	}

	node := schemas.Node{
		ID:         uuid.New().String(),
		Kind:       kind,
		Position:   pos,
		Label:      label,
		Properties: props,
	}

	s.mu.Lock()
	s.nodes = append(s.nodes, node)
	s.mu.Unlock()

	s.log.Debug("node added", zap.String("id", node.ID), zap.String("kind", string(kind)))
	s.notifySubscribers()
	return node, nil
}

// CloneNode deep-copies a node with a fresh id, an offset position and a
// " (Copy)" label suffix. Unknown ids are a no-op.
func (s *Store) CloneNode(id string) (schemas.Node, bool) {
	s.mu.Lock()
	var clone schemas.Node
	found := false
	for _, n := range s.nodes {
		if n.ID == id {
			clone = n
			clone.ID = uuid.New().String()
			clone.Position.X += cloneOffset
			clone.Position.Y += cloneOffset
			clone.Label = n.Label + " (Copy)"
			clone.Properties = n.Properties.Clone()
			s.nodes = append(s.nodes, clone)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return schemas.Node{}, false
	}
	s.notifySubscribers()
	return clone, true
}

// DeleteNode removes the node and, atomically, every incident edge.
// Unknown ids are a no-op.
func (s *Store) DeleteNode(id string) {
	s.mu.Lock()
	removed := s.deleteNodeLocked(id)
	s.mu.Unlock()
	if removed {
		s.notifySubscribers()
	}
}

func (s *Store) deleteNodeLocked(id string) bool {
	idx := -1
	for i, n := range s.nodes {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	s.nodes = append(s.nodes[:idx], s.nodes[idx+1:]...)
	delete(s.selected, id)

	kept := s.edges[:0]
	dropped := 0
	for _, e := range s.edges {
		if e.Source == id || e.Target == id {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	s.edges = kept
	s.log.Debug("node deleted", zap.String("id", id), zap.Int("cascaded_edges", dropped))
	return true
}

// DeleteEdge removes exactly one edge by id. Unknown ids are a no-op.
func (s *Store) DeleteEdge(id string) {
	s.mu.Lock()
	removed := s.deleteEdgeLocked(id)
	s.mu.Unlock()
	if removed {
		s.notifySubscribers()
	}
}

func (s *Store) deleteEdgeLocked(id string) bool {
	for i, e := range s.edges {
		if e.ID == id {
			s.edges = append(s.edges[:i], s.edges[i+1:]...)
			return true
		}
	}
	return false
}

// Connect creates an edge between two existing, distinct nodes. The visual
// style is materialized from current settings; connections touching a
// satellite get a distinct accent color.
func (s *Store) Connect(sourceID, targetID, sourceHandle, targetHandle string) (schemas.Edge, error) {
	if sourceID == targetID {
		return schemas.Edge{}, ErrSelfLoop
	}

	s.mu.Lock()
	source, sourceOK := s.nodeLocked(sourceID)
	target, targetOK := s.nodeLocked(targetID)
	if !sourceOK || !targetOK {
		s.mu.Unlock()
		if !sourceOK {
			return schemas.Edge{}, fmt.Errorf("source %q: %w", sourceID, ErrNodeNotFound)
		}
		return schemas.Edge{}, fmt.Errorf("target %q: %w", targetID, ErrNodeNotFound)
	}

	edge := schemas.Edge{
		ID:           uuid.New().String(),
		Source:       sourceID,
		Target:       targetID,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
		Style:        MaterializeStyle(s.settings.Current(), source.Kind, target.Kind),
	}
	s.edges = append(s.edges, edge)
	s.mu.Unlock()

	s.log.Debug("edge connected", zap.String("id", edge.ID), zap.String("source", sourceID), zap.String("target", targetID))
	s.notifySubscribers()
	return edge, nil
}

func (s *Store) nodeLocked(id string) (schemas.Node, bool) {
	for _, n := range s.nodes {
		if n.ID == id {
			n.Properties = n.Properties.Clone()
			return n, true
		}
	}
	return schemas.Node{}, false
}

// UpdateNodeLabel applies a new label. Empty or whitespace-only labels are
// rejected; unknown ids return ErrNodeNotFound.
func (s *Store) UpdateNodeLabel(id, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		return ErrEmptyLabel
	}

	s.mu.Lock()
	updated := false
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			s.nodes[i].Label = label
			updated = true
			break
		}
	}
	s.mu.Unlock()

	if !updated {
		return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	s.notifySubscribers()
	return nil
}

// UpdateNodeProperty merges value into the node's property map at key.
func (s *Store) UpdateNodeProperty(id, key string, value any) error {
	s.mu.Lock()
	updated := false
	for i := range s.nodes {
		if s.nodes[i].ID == id {
			if s.nodes[i].Properties == nil {
				s.nodes[i].Properties = make(schemas.Properties)
			}
			s.nodes[i].Properties[key] = value
			updated = true
			break
		}
	}
	s.mu.Unlock()

	if !updated {
		return fmt.Errorf("node %q: %w", id, ErrNodeNotFound)
	}
	s.notifySubscribers()
	return nil
}

// ReplaceEdges swaps the entire edge set, used after import or a
// settings-driven re-materialization pass.
func (s *Store) ReplaceEdges(edges []schemas.Edge) {
	copied := make([]schemas.Edge, len(edges))
	copy(copied, edges)
	s.mu.Lock()
	s.edges = copied
	s.mu.Unlock()
	s.notifySubscribers()
}

// Replace atomically swaps both collections. Edge styles are re-materialized
// from current settings so loaded models match workspace preferences.
func (s *Store) Replace(nodes []schemas.Node, edges []schemas.Edge) {
	copiedNodes := make([]schemas.Node, len(nodes))
	copy(copiedNodes, nodes)
	copiedEdges := make([]schemas.Edge, len(edges))
	copy(copiedEdges, edges)

	cfg := s.settings.Current()
	kinds := make(map[string]schemas.NodeKind, len(copiedNodes))
	for _, n := range copiedNodes {
		kinds[n.ID] = n.Kind
	}
	for i := range copiedEdges {
		copiedEdges[i].Style = MaterializeStyle(cfg, kinds[copiedEdges[i].Source], kinds[copiedEdges[i].Target])
	}

	s.mu.Lock()
	s.nodes = copiedNodes
	s.edges = copiedEdges
	s.selected = make(map[string]bool)
	s.mu.Unlock()
	s.notifySubscribers()
}

// RematerializeEdges refreshes every edge's presentation attributes from the
// current settings without touching topology.
func (s *Store) RematerializeEdges() {
	cfg := s.settings.Current()
	s.mu.Lock()
	kinds := make(map[string]schemas.NodeKind, len(s.nodes))
	for _, n := range s.nodes {
		kinds[n.ID] = n.Kind
	}
	for i := range s.edges {
		s.edges[i].Style = MaterializeStyle(cfg, kinds[s.edges[i].Source], kinds[s.edges[i].Target])
	}
	s.mu.Unlock()
	s.notifySubscribers()
}

// MaterializeStyle derives an edge's presentation attributes from settings and
// its endpoint kinds.
func MaterializeStyle(cfg schemas.Settings, source, target schemas.NodeKind) schemas.EdgeStyle {
	style := schemas.EdgeStyle{
		Type:     cfg.EdgeType,
		Animated: cfg.EdgeAnimation,
		Floating: cfg.FloatingEdges,
	}
	if source == schemas.KindSatellite || target == schemas.KindSatellite {
		style.Color = satelliteAccent
	}
	return style
}

// SnapToGrid quantizes a position to the nearest grid point.
func SnapToGrid(pos schemas.Position, gridSize int) schemas.Position {
	if gridSize <= 0 {
		gridSize = 16
	}
	g := float64(gridSize)
	return schemas.Position{
		X: math.Round(pos.X/g) * g,
		Y: math.Round(pos.Y/g) * g,
	}
}
