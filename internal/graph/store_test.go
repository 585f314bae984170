package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// -- Test Helper Functions --

// fakeSettings is a mutable SettingsProvider for tests.
type fakeSettings struct {
	s schemas.Settings
}

func (f *fakeSettings) Current() schemas.Settings { return f.s }

func newTestStore(t *testing.T) (*Store, *fakeSettings) {
	t.Helper()
	settings := &fakeSettings{s: schemas.DefaultSettings()}
	return NewStore(settings, zap.NewNop()), settings
}

func mustAddNode(t *testing.T, s *Store, kind schemas.NodeKind, label string) schemas.Node {
	t.Helper()
	n, err := s.AddNode(kind, schemas.Position{X: 100, Y: 100}, label, nil)
	require.NoError(t, err)
	return n
}

// -- AddNode --

func TestAddNode(t *testing.T) {
	s, _ := newTestStore(t)

	n, err := s.AddNode(schemas.KindHub, schemas.Position{X: 10, Y: 20}, "Customer", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, schemas.KindHub, n.Kind)
	assert.Equal(t, "Customer", n.Label)

	nodes, edges := s.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, 0, edges)
}

func TestAddNodeRejectsUnknownKind(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddNode("WIDGET", schemas.Position{}, "x", nil)
	assert.Error(t, err)
}

func TestAddNodeRejectsNonFinitePosition(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.AddNode(schemas.KindHub, schemas.Position{X: math.NaN()}, "x", nil)
	assert.ErrorIs(t, err, ErrBadPosition)
	_, err = s.AddNode(schemas.KindHub, schemas.Position{Y: math.Inf(1)}, "x", nil)
	assert.ErrorIs(t, err, ErrBadPosition)
}

func TestAddNodeSnapsToGrid(t *testing.T) {
	s, settings := newTestStore(t)
	settings.s.SnapToGrid = true
	settings.s.GridSize = 16

	n, err := s.AddNode(schemas.KindHub, schemas.Position{X: 23, Y: 40.2}, "Customer", nil)
	require.NoError(t, err)
	assert.Equal(t, 16.0, n.Position.X)
	assert.Equal(t, 48.0, n.Position.Y)
}

func TestAddNodeIDsAreUnique(t *testing.T) {
	s, _ := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		n := mustAddNode(t, s, schemas.KindHub, "Customer")
		require.False(t, seen[n.ID], "duplicate id %s", n.ID)
		seen[n.ID] = true
	}
}

// -- CloneNode --

func TestCloneNode(t *testing.T) {
	s, _ := newTestStore(t)
	orig, err := s.AddNode(schemas.KindHub, schemas.Position{X: 10, Y: 20}, "Customer", schemas.Properties{
		schemas.PropBusinessKeys: []any{"customer_no"},
	})
	require.NoError(t, err)

	clone, ok := s.CloneNode(orig.ID)
	require.True(t, ok)
	assert.NotEqual(t, orig.ID, clone.ID)
	assert.Equal(t, "Customer (Copy)", clone.Label)
	assert.Equal(t, 50.0, clone.Position.X)
	assert.Equal(t, 60.0, clone.Position.Y)

	// The clone's properties are an independent copy.
	require.NoError(t, s.UpdateNodeProperty(clone.ID, schemas.PropBusinessKeys, []any{"other"}))
	reloaded, _ := s.Node(orig.ID)
	assert.Equal(t, []string{"customer_no"}, reloaded.Properties.StringSlice(schemas.PropBusinessKeys))
}

func TestCloneNodeUnknownID(t *testing.T) {
	s, _ := newTestStore(t)
	_, ok := s.CloneNode("missing")
	assert.False(t, ok)
}

// -- Connect and edges --

func TestConnect(t *testing.T) {
	s, _ := newTestStore(t)
	hub := mustAddNode(t, s, schemas.KindHub, "Customer")
	link := mustAddNode(t, s, schemas.KindLink, "Orders")

	e, err := s.Connect(hub.ID, link.ID, "right", "left")
	require.NoError(t, err)
	assert.Equal(t, hub.ID, e.Source)
	assert.Equal(t, link.ID, e.Target)
	assert.Equal(t, "smoothstep", e.Style.Type)
	assert.True(t, e.Style.Animated)
	assert.True(t, e.Style.Floating)
	assert.Empty(t, e.Style.Color)
}

func TestConnectSatelliteGetsAccent(t *testing.T) {
	s, _ := newTestStore(t)
	hub := mustAddNode(t, s, schemas.KindHub, "Customer")
	sat := mustAddNode(t, s, schemas.KindSatellite, "Details")

	e, err := s.Connect(hub.ID, sat.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, satelliteAccent, e.Style.Color)
}

func TestConnectRejectsSelfLoop(t *testing.T) {
	s, _ := newTestStore(t)
	hub := mustAddNode(t, s, schemas.KindHub, "Customer")
	_, err := s.Connect(hub.ID, hub.ID, "", "")
	assert.ErrorIs(t, err, ErrSelfLoop)
}

func TestConnectRejectsMissingEndpoints(t *testing.T) {
	s, _ := newTestStore(t)
	hub := mustAddNode(t, s, schemas.KindHub, "Customer")

	_, err := s.Connect("missing", hub.ID, "", "")
	assert.ErrorIs(t, err, ErrNodeNotFound)
	_, err = s.Connect(hub.ID, "missing", "", "")
	assert.ErrorIs(t, err, ErrNodeNotFound)

	_, edges := s.Counts()
	assert.Equal(t, 0, edges)
}

func TestConnectAllowsParallelEdges(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddNode(t, s, schemas.KindHub, "A")
	b := mustAddNode(t, s, schemas.KindLink, "B")

	e1, err := s.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)
	e2, err := s.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, e1.ID, e2.ID)

	_, edges := s.Counts()
	assert.Equal(t, 2, edges)
}

// -- Deletion --

func TestDeleteNodeCascadesEdges(t *testing.T) {
	s, _ := newTestStore(t)
	hub := mustAddNode(t, s, schemas.KindHub, "Customer")
	link := mustAddNode(t, s, schemas.KindLink, "Orders")
	sat := mustAddNode(t, s, schemas.KindSatellite, "Details")

	_, err := s.Connect(hub.ID, link.ID, "", "")
	require.NoError(t, err)
	_, err = s.Connect(hub.ID, sat.ID, "", "")
	require.NoError(t, err)
	survivor, err := s.Connect(link.ID, sat.ID, "", "")
	require.NoError(t, err)

	s.DeleteNode(hub.ID)

	nodes, edges := s.Counts()
	assert.Equal(t, 2, nodes)
	assert.Equal(t, 1, edges)

	_, remaining := s.Snapshot()
	require.Len(t, remaining, 1)
	assert.Equal(t, survivor.ID, remaining[0].ID)
}

func TestDeleteEdgeRemovesOnlyThatEdge(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustAddNode(t, s, schemas.KindHub, "A")
	b := mustAddNode(t, s, schemas.KindLink, "B")
	e1, _ := s.Connect(a.ID, b.ID, "", "")
	e2, _ := s.Connect(a.ID, b.ID, "", "")

	s.DeleteEdge(e1.ID)

	_, remaining := s.Snapshot()
	require.Len(t, remaining, 1)
	assert.Equal(t, e2.ID, remaining[0].ID)

	nodes, _ := s.Counts()
	assert.Equal(t, 2, nodes)
}

// -- Label and property updates --

func TestUpdateNodeLabel(t *testing.T) {
	s, _ := newTestStore(t)
	n := mustAddNode(t, s, schemas.KindHub, "Customer")

	require.NoError(t, s.UpdateNodeLabel(n.ID, "  Client  "))
	updated, _ := s.Node(n.ID)
	assert.Equal(t, "Client", updated.Label)

	assert.ErrorIs(t, s.UpdateNodeLabel(n.ID, "   "), ErrEmptyLabel)
	assert.ErrorIs(t, s.UpdateNodeLabel("missing", "x"), ErrNodeNotFound)
}

func TestUpdateNodeProperty(t *testing.T) {
	s, _ := newTestStore(t)
	n := mustAddNode(t, s, schemas.KindHub, "Customer")

	require.NoError(t, s.UpdateNodeProperty(n.ID, schemas.PropHashkeyName, "hk_cust"))
	updated, _ := s.Node(n.ID)
	assert.Equal(t, "hk_cust", updated.Properties.String(schemas.PropHashkeyName))

	assert.ErrorIs(t, s.UpdateNodeProperty("missing", "k", "v"), ErrNodeNotFound)
}

func TestSnapshotIsolatedFromLaterEdits(t *testing.T) {
	s, _ := newTestStore(t)
	n, err := s.AddNode(schemas.KindHub, schemas.Position{X: 100, Y: 100}, "Customer",
		schemas.Properties{schemas.PropHashkeyName: "hk_before"})
	require.NoError(t, err)

	nodes, _ := s.Snapshot()
	require.Len(t, nodes, 1)

	require.NoError(t, s.UpdateNodeProperty(n.ID, schemas.PropHashkeyName, "hk_after"))
	assert.Equal(t, "hk_before", nodes[0].Properties.String(schemas.PropHashkeyName))

	// Writing through the snapshot must not leak back into the store either.
	nodes[0].Properties[schemas.PropHashkeyName] = "hk_scribbled"
	live, _ := s.Node(n.ID)
	assert.Equal(t, "hk_after", live.Properties.String(schemas.PropHashkeyName))
}

func TestSnapshotSafeToMarshalDuringEdits(t *testing.T) {
	s, _ := newTestStore(t)
	n, err := s.AddNode(schemas.KindHub, schemas.Position{X: 100, Y: 100}, "Customer",
		schemas.Properties{schemas.PropHashkeyName: "hk_cust"})
	require.NoError(t, err)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			nodes, _ := s.Snapshot()
			_, err := json.Marshal(nodes)
			assert.NoError(t, err)
		}
	}()

	for i := 0; i < 500; i++ {
		require.NoError(t, s.UpdateNodeProperty(n.ID, schemas.PropHashkeyName, fmt.Sprintf("hk_%d", i)))
	}
	close(done)
	wg.Wait()
}

// -- Replace and re-materialization --

func TestReplaceRematerializesStyles(t *testing.T) {
	s, settings := newTestStore(t)

	nodes := []schemas.Node{
		{ID: "h1", Kind: schemas.KindHub, Label: "Customer"},
		{ID: "s1", Kind: schemas.KindSatellite, Label: "Details"},
	}
	edges := []schemas.Edge{
		{ID: "e1", Source: "h1", Target: "s1", Style: schemas.EdgeStyle{Type: "bezier"}},
	}

	settings.s.EdgeType = "straight"
	settings.s.EdgeAnimation = false
	s.Replace(nodes, edges)

	_, got := s.Snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, "straight", got[0].Style.Type)
	assert.False(t, got[0].Style.Animated)
	assert.Equal(t, satelliteAccent, got[0].Style.Color)
}

func TestReplaceClearsSelection(t *testing.T) {
	s, _ := newTestStore(t)
	n := mustAddNode(t, s, schemas.KindHub, "Customer")
	s.ApplyNodeChanges([]NodeChange{{Type: ChangeSelect, ID: n.ID, Selected: true}})
	require.True(t, s.Selected(n.ID))

	s.Replace(nil, nil)
	assert.False(t, s.Selected(n.ID))
}

func TestRematerializeEdges(t *testing.T) {
	s, settings := newTestStore(t)
	a := mustAddNode(t, s, schemas.KindHub, "A")
	b := mustAddNode(t, s, schemas.KindLink, "B")
	e, err := s.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "smoothstep", e.Style.Type)

	settings.s.EdgeType = "straight"
	s.RematerializeEdges()

	_, edges := s.Snapshot()
	require.Len(t, edges, 1)
	assert.Equal(t, "straight", edges[0].Style.Type)
	// Topology untouched.
	assert.Equal(t, a.ID, edges[0].Source)
	assert.Equal(t, b.ID, edges[0].Target)
}

// -- Subscriptions --

func TestSubscribeNotifiesOnMutation(t *testing.T) {
	s, _ := newTestStore(t)

	var calls atomic.Int64
	unsubscribe := s.Subscribe(func() { calls.Add(1) })

	n := mustAddNode(t, s, schemas.KindHub, "Customer")
	assert.Equal(t, int64(1), calls.Load())

	s.DeleteNode(n.ID)
	assert.Equal(t, int64(2), calls.Load())

	// No-op deletes do not notify.
	s.DeleteNode("missing")
	assert.Equal(t, int64(2), calls.Load())

	unsubscribe()
	mustAddNode(t, s, schemas.KindHub, "Other")
	assert.Equal(t, int64(2), calls.Load())
}

// Callbacks may read back into the store without deadlocking.
func TestSubscriberCanReadStore(t *testing.T) {
	s, _ := newTestStore(t)
	var observed atomic.Int64
	s.Subscribe(func() {
		nodes, _ := s.Snapshot()
		observed.Store(int64(len(nodes)))
	})

	mustAddNode(t, s, schemas.KindHub, "Customer")
	assert.Equal(t, int64(1), observed.Load())
}

// -- SnapToGrid --

func TestSnapToGrid(t *testing.T) {
	assert.Equal(t, schemas.Position{X: 16, Y: 32}, SnapToGrid(schemas.Position{X: 20, Y: 25}, 16))
	assert.Equal(t, schemas.Position{X: 0, Y: 0}, SnapToGrid(schemas.Position{X: 7, Y: -7}, 16))
	// Non-positive grid sizes fall back to the default.
	assert.Equal(t, schemas.Position{X: 16, Y: 16}, SnapToGrid(schemas.Position{X: 20, Y: 10}, 0))
}
