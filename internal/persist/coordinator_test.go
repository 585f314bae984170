package persist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/dvwtools/dvw-cli/internal/graph"
	"github.com/dvwtools/dvw-cli/internal/notify"
	"github.com/dvwtools/dvw-cli/internal/settings"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// -- Test doubles --

// fakeModelService is an in-memory stand-in for the remote model store.
type fakeModelService struct {
	mu     sync.Mutex
	models map[string]schemas.APIModel
	nextID int

	createCalls int
	updateCalls int

	failCreate error
	failUpdate error
	failGet    error
	failDelete error
	failList   error
}

func newFakeModelService() *fakeModelService {
	return &fakeModelService{models: make(map[string]schemas.APIModel)}
}

func (f *fakeModelService) ListModels(ctx context.Context) ([]schemas.APIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList != nil {
		return nil, f.failList
	}
	out := make([]schemas.APIModel, 0, len(f.models))
	for _, m := range f.models {
		out = append(out, m)
	}
	return out, nil
}

func (f *fakeModelService) GetModel(ctx context.Context, id string) (schemas.APIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return schemas.APIModel{}, f.failGet
	}
	m, ok := f.models[id]
	if !ok {
		return schemas.APIModel{}, errors.New("model not found")
	}
	return m, nil
}

func (f *fakeModelService) CreateModel(ctx context.Context, req schemas.CreateModelRequest) (schemas.APIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return schemas.APIModel{}, f.failCreate
	}
	f.nextID++
	m := schemas.APIModel{
		ID:        fmt.Sprintf("m-%d", f.nextID),
		Name:      req.Name,
		CreatedAt: time.Now(),
		Nodes:     req.Nodes,
		Edges:     req.Edges,
	}
	f.models[m.ID] = m
	return m, nil
}

func (f *fakeModelService) UpdateModel(ctx context.Context, id string, req schemas.CreateModelRequest) (schemas.APIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if f.failUpdate != nil {
		return schemas.APIModel{}, f.failUpdate
	}
	m, ok := f.models[id]
	if !ok {
		return schemas.APIModel{}, errors.New("model not found")
	}
	if req.Name != "" {
		m.Name = req.Name
	}
	if req.Nodes != nil {
		m.Nodes = req.Nodes
	}
	if req.Edges != nil {
		m.Edges = req.Edges
	}
	f.models[id] = m
	return m, nil
}

func (f *fakeModelService) DeleteModel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	delete(f.models, id)
	return nil
}

func (f *fakeModelService) counts() (creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.updateCalls
}

// fakeSettingsService records the patches pushed to it.
type fakeSettingsService struct {
	mu      sync.Mutex
	patches []schemas.SettingsPatch
	failAll error
}

func (f *fakeSettingsService) GetSettings(ctx context.Context) (schemas.Settings, error) {
	if f.failAll != nil {
		return schemas.Settings{}, f.failAll
	}
	return schemas.DefaultSettings(), nil
}

func (f *fakeSettingsService) PatchSettings(ctx context.Context, patch schemas.SettingsPatch) (schemas.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return schemas.Settings{}, f.failAll
	}
	f.patches = append(f.patches, patch)
	return schemas.DefaultSettings(), nil
}

func (f *fakeSettingsService) ResetSettings(ctx context.Context) (schemas.Settings, error) {
	if f.failAll != nil {
		return schemas.Settings{}, f.failAll
	}
	return schemas.DefaultSettings(), nil
}

// -- Fixture --

type coordFixture struct {
	store    *graph.Store
	mgr      *settings.Manager
	cache    *FileCache
	svc      *fakeModelService
	settings *fakeSettingsService
	center   *notify.Center
	coord    *Coordinator
}

func newCoordFixture(t *testing.T) *coordFixture {
	t.Helper()
	mgr := settings.NewManager(schemas.DefaultSettings())
	store := graph.NewStore(mgr, zap.NewNop())
	cache := NewFileCache(filepath.Join(t.TempDir(), "workspace.json"), zap.NewNop())
	svc := newFakeModelService()
	settingsSvc := &fakeSettingsService{}
	center := notify.NewCenter(zap.NewNop())

	coord := NewCoordinator(store, mgr, cache, svc, settingsSvc, center, zap.NewNop())
	t.Cleanup(func() {
		coord.Close()
		center.Close()
	})
	return &coordFixture{
		store:    store,
		mgr:      mgr,
		cache:    cache,
		svc:      svc,
		settings: settingsSvc,
		center:   center,
		coord:    coord,
	}
}

func (f *coordFixture) addNode(t *testing.T, label string) schemas.Node {
	t.Helper()
	n, err := f.store.AddNode(schemas.KindHub, schemas.Position{X: 10, Y: 10}, label, nil)
	require.NoError(t, err)
	return n
}

func (f *coordFixture) notificationTitles() []string {
	var titles []string
	for _, n := range f.center.List() {
		titles = append(titles, n.Title)
	}
	return titles
}

// -- Dirty tracking and cache mirroring --

func TestNewCoordinatorStartsClean(t *testing.T) {
	f := newCoordFixture(t)
	assert.False(t, f.coord.HasUnsavedChanges())
	assert.Equal(t, "", f.coord.ModelID())
	assert.Equal(t, UntitledModelName, f.coord.ModelName())
}

func TestGraphEditMarksDirtyAndMirrorsToCache(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")

	assert.True(t, f.coord.HasUnsavedChanges())

	snap, ok, err := f.cache.Read()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Nodes, 1)
	assert.Equal(t, "Customer", snap.Nodes[0].Label)
}

func TestCoordinatorRestoresFromCache(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileCache(filepath.Join(dir, "workspace.json"), zap.NewNop())
	require.NoError(t, cache.Write(Snapshot{
		Nodes:     []schemas.Node{{ID: "n1", Kind: schemas.KindHub, Label: "Customer"}},
		ModelID:   "m-9",
		ModelName: "Sales",
	}))

	mgr := settings.NewManager(schemas.DefaultSettings())
	store := graph.NewStore(mgr, zap.NewNop())
	center := notify.NewCenter(zap.NewNop())
	coord := NewCoordinator(store, mgr, cache, newFakeModelService(), &fakeSettingsService{}, center, zap.NewNop())
	defer func() {
		coord.Close()
		center.Close()
	}()

	nodes, _ := store.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, "m-9", coord.ModelID())
	assert.Equal(t, "Sales", coord.ModelName())
	// Restoring is not an edit.
	assert.False(t, coord.HasUnsavedChanges())
}

// -- Save --

func TestSaveCreatesThenUpdates(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")

	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales"}))
	assert.Equal(t, "m-1", f.coord.ModelID())
	assert.Equal(t, "Sales", f.coord.ModelName())
	assert.False(t, f.coord.HasUnsavedChanges())
	assert.False(t, f.coord.LastSaveTime().IsZero())

	f.addNode(t, "Order")
	require.True(t, f.coord.HasUnsavedChanges())
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{}))

	creates, updates := f.svc.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, "m-1", f.coord.ModelID())
	assert.Contains(t, f.notificationTitles(), "Model saved")
}

func TestSaveAsNewCreatesFreshIdentity(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales"}))

	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales Copy", AsNew: true}))
	assert.Equal(t, "m-2", f.coord.ModelID())
	assert.Equal(t, "Sales Copy", f.coord.ModelName())

	creates, _ := f.svc.counts()
	assert.Equal(t, 2, creates)
}

func TestSaveFailureKeepsDirtyStateAndNotifies(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	f.svc.failCreate = errors.New("remote down")

	err := f.coord.Save(context.Background(), SaveOptions{})
	require.Error(t, err)

	// Unsaved-changes stays set so the scheduler can retry later.
	assert.True(t, f.coord.HasUnsavedChanges())
	assert.Equal(t, "", f.coord.ModelID())
	assert.Contains(t, f.coord.LastError(), "remote down")
	assert.Contains(t, f.notificationTitles(), "Save failed")

	// The cached snapshot still holds the unsaved work.
	snap, ok, readErr := f.cache.Read()
	require.NoError(t, readErr)
	require.True(t, ok)
	assert.Len(t, snap.Nodes, 1)
}

func TestSaveSuccessClearsLastError(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	f.svc.failCreate = errors.New("remote down")
	require.Error(t, f.coord.Save(context.Background(), SaveOptions{}))

	f.svc.failCreate = nil
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{}))
	assert.Empty(t, f.coord.LastError())
}

// -- Load --

func TestLoadReplacesWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Scratch")

	seeded, err := f.svc.CreateModel(context.Background(), schemas.CreateModelRequest{
		Name: "Sales",
		Nodes: []schemas.APINode{
			{ID: "n1", Type: schemas.KindHub, X: 1, Y: 2, Data: schemas.APINodeData{Label: "Customer"}},
			{ID: "n2", Type: schemas.KindSatellite, X: 3, Y: 4, Data: schemas.APINodeData{Label: "Details"}},
		},
		Edges: []schemas.APIEdge{
			{ID: "e1", Source: "n1", Target: "n2"},
		},
	})
	require.NoError(t, err)

	require.NoError(t, f.coord.Load(context.Background(), seeded.ID))

	nodes, edges := f.store.Snapshot()
	require.Len(t, nodes, 2)
	require.Len(t, edges, 1)
	assert.Equal(t, "Customer", nodes[0].Label)
	// Styles are re-materialized on load; satellite edges get the accent.
	assert.Equal(t, "#eab308", edges[0].Style.Color)

	assert.Equal(t, seeded.ID, f.coord.ModelID())
	assert.Equal(t, "Sales", f.coord.ModelName())
	assert.False(t, f.coord.HasUnsavedChanges())
	assert.Contains(t, f.notificationTitles(), "Model loaded")
}

func TestSaveThenLoadRoundTripsWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	hub := f.addNode(t, "Customer")
	sat, err := f.store.AddNode(schemas.KindSatellite, schemas.Position{X: 80, Y: 40}, "Details", nil)
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateNodeProperty(hub.ID, schemas.PropHashkeyName, "hk_customer"))
	_, err = f.store.Connect(hub.ID, sat.ID, "", "")
	require.NoError(t, err)

	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales"}))
	beforeNodes, beforeEdges := f.store.Snapshot()

	require.NoError(t, f.coord.Load(context.Background(), f.coord.ModelID()))
	afterNodes, afterEdges := f.store.Snapshot()

	// Edge styles are re-materialized on load from the same settings, so the
	// loaded workspace must match the saved one exactly.
	assert.Empty(t, cmp.Diff(beforeNodes, afterNodes))
	assert.Empty(t, cmp.Diff(beforeEdges, afterEdges))
	assert.False(t, f.coord.HasUnsavedChanges())
}

func TestLoadFailureLeavesWorkspaceIntact(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	f.svc.failGet = errors.New("remote down")

	require.Error(t, f.coord.Load(context.Background(), "m-1"))

	nodes, _ := f.store.Counts()
	assert.Equal(t, 1, nodes)
	assert.Contains(t, f.notificationTitles(), "Load failed")
}

// -- New model, delete, refresh --

func TestNewModelResets(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales"}))

	f.coord.NewModel()

	nodes, edges := f.store.Counts()
	assert.Equal(t, 0, nodes)
	assert.Equal(t, 0, edges)
	assert.Equal(t, "", f.coord.ModelID())
	assert.Equal(t, UntitledModelName, f.coord.ModelName())
	assert.False(t, f.coord.HasUnsavedChanges())
}

func TestDeleteCurrentModelResetsWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Sales"}))
	id := f.coord.ModelID()

	require.NoError(t, f.coord.Delete(context.Background(), id))

	nodes, _ := f.store.Counts()
	assert.Equal(t, 0, nodes)
	assert.Equal(t, "", f.coord.ModelID())
	assert.Empty(t, f.coord.AvailableModels())
}

func TestDeleteOtherModelKeepsWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	other, err := f.svc.CreateModel(context.Background(), schemas.CreateModelRequest{Name: "Other"})
	require.NoError(t, err)

	f.addNode(t, "Customer")
	require.NoError(t, f.coord.Delete(context.Background(), other.ID))

	nodes, _ := f.store.Counts()
	assert.Equal(t, 1, nodes)
}

func TestRefreshModelsSummaries(t *testing.T) {
	f := newCoordFixture(t)
	_, err := f.svc.CreateModel(context.Background(), schemas.CreateModelRequest{
		Name: "Sales",
		Nodes: []schemas.APINode{
			{ID: "n1", Type: schemas.KindHub, Data: schemas.APINodeData{Label: "A"}},
			{ID: "n2", Type: schemas.KindHub, Data: schemas.APINodeData{Label: "B"}},
		},
		Edges: []schemas.APIEdge{{ID: "e1", Source: "n1", Target: "n2"}},
	})
	require.NoError(t, err)

	summaries, err := f.coord.RefreshModels(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Sales", summaries[0].Name)
	assert.Equal(t, 2, summaries[0].NodeCount)
	assert.Equal(t, 1, summaries[0].EdgeCount)
	assert.Equal(t, summaries, f.coord.AvailableModels())
}

// -- Import / export --

func TestImportReplacesAndMarksUnsaved(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Scratch")
	require.NoError(t, f.coord.Save(context.Background(), SaveOptions{Name: "Old"}))

	f.coord.Import(ModelFile{
		Name: "Imported",
		Nodes: []schemas.APINode{
			{ID: "n1", Type: schemas.KindHub, Data: schemas.APINodeData{Label: "Customer"}},
		},
	})

	nodes, _ := f.store.Counts()
	assert.Equal(t, 1, nodes)
	assert.Equal(t, "Imported", f.coord.ModelName())
	// Imported content has no remote identity until explicitly saved.
	assert.Equal(t, "", f.coord.ModelID())
	assert.True(t, f.coord.HasUnsavedChanges())
}

func TestExportRoundTripsThroughImport(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")

	data, err := f.coord.Export()
	require.NoError(t, err)

	file, err := ParseModelFile(data)
	require.NoError(t, err)
	assert.Equal(t, UntitledModelName, file.Name)
	require.Len(t, file.Nodes, 1)
	assert.Equal(t, "Customer", file.Nodes[0].Data.Label)
}

// -- Settings pipeline --

func TestUpdateSettingsRematerializesAndPushes(t *testing.T) {
	f := newCoordFixture(t)
	a := f.addNode(t, "A")
	b := f.addNode(t, "B")
	_, err := f.store.Connect(a.ID, b.ID, "", "")
	require.NoError(t, err)

	straight := "straight"
	applied := f.coord.UpdateSettings(context.Background(), schemas.SettingsPatch{EdgeType: &straight})
	assert.Equal(t, "straight", applied.EdgeType)

	_, edges := f.store.Snapshot()
	require.Len(t, edges, 1)
	assert.Equal(t, "straight", edges[0].Style.Type)

	f.settings.mu.Lock()
	patches := len(f.settings.patches)
	f.settings.mu.Unlock()
	assert.Equal(t, 1, patches)
}

func TestUpdateSettingsRemoteFailureIsBestEffort(t *testing.T) {
	f := newCoordFixture(t)
	f.settings.failAll = errors.New("remote down")

	dark := "dark"
	applied := f.coord.UpdateSettings(context.Background(), schemas.SettingsPatch{Theme: &dark})

	// Local settings win even when the push fails.
	assert.Equal(t, "dark", applied.Theme)
	assert.Equal(t, "dark", f.mgr.Current().Theme)
	assert.Contains(t, f.notificationTitles(), "Settings not synced")
}

// -- Auto-save scheduler --

func TestAutoSaveSavesDirtyWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	one := 1
	enabled := true
	f.coord.UpdateSettings(context.Background(), schemas.SettingsPatch{
		AutoSave:            &enabled,
		AutoSaveIntervalSec: &one,
	})

	f.addNode(t, "Customer")
	require.True(t, f.coord.HasUnsavedChanges())

	assert.Eventually(t, func() bool {
		creates, _ := f.svc.counts()
		return creates == 1 && !f.coord.HasUnsavedChanges()
	}, 5*time.Second, 50*time.Millisecond)
	assert.Contains(t, f.notificationTitles(), "Auto-saved")
}

func TestAutoSaveSkipsCleanWorkspace(t *testing.T) {
	f := newCoordFixture(t)
	one := 1
	enabled := true
	// Enable the scheduler without touching the store so the workspace stays
	// clean.
	f.mgr.Apply(schemas.SettingsPatch{AutoSave: &enabled, AutoSaveIntervalSec: &one})
	f.coord.RestartAutoSave()
	require.False(t, f.coord.HasUnsavedChanges())

	time.Sleep(1500 * time.Millisecond)
	creates, updates := f.svc.counts()
	assert.Equal(t, 0, creates)
	assert.Equal(t, 0, updates)
}

func TestAutoSaveDisabledNeverSaves(t *testing.T) {
	f := newCoordFixture(t)
	one := 1
	disabled := false
	f.mgr.Apply(schemas.SettingsPatch{AutoSave: &disabled, AutoSaveIntervalSec: &one})
	f.coord.RestartAutoSave()

	f.addNode(t, "Customer")
	require.True(t, f.coord.HasUnsavedChanges())

	time.Sleep(1500 * time.Millisecond)
	creates, updates := f.svc.counts()
	assert.Equal(t, 0, creates)
	assert.Equal(t, 0, updates)
	assert.True(t, f.coord.HasUnsavedChanges())
}

func TestStopAutoSaveIsIdempotent(t *testing.T) {
	f := newCoordFixture(t)
	f.coord.StopAutoSave()
	f.coord.StopAutoSave()

	enabled := true
	one := 1
	f.mgr.Apply(schemas.SettingsPatch{AutoSave: &enabled, AutoSaveIntervalSec: &one})
	f.coord.RestartAutoSave()
	f.coord.StopAutoSave()
	f.coord.StopAutoSave()
}

// -- Clearing persisted state --

func TestClearPersistedState(t *testing.T) {
	f := newCoordFixture(t)
	f.addNode(t, "Customer")

	require.NoError(t, f.coord.ClearPersistedState())
	_, ok, err := f.cache.Read()
	require.NoError(t, err)
	assert.False(t, ok)

	// In-memory state is untouched.
	nodes, _ := f.store.Counts()
	assert.Equal(t, 1, nodes)
}
