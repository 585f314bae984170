// Package persist synchronizes the graph store and settings with the durable
// local cache and the remote model service, and owns the auto-save scheduler
// and unsaved-changes tracking.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/dvwtools/dvw-cli/internal/graph"
	"github.com/dvwtools/dvw-cli/internal/settings"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// UntitledModelName is the name of a freshly created, unidentified model.
const UntitledModelName = "Untitled Model"

// Notification durations, milliseconds. Auto-save results are deliberately
// short-lived so they do not pile up.
const (
	notifyDuration     = 5000
	autoNotifyDuration = 2000
)

// ErrNoModelID is returned by operations that need a remote identity.
var ErrNoModelID = errors.New("model has no remote id")

// SaveOptions controls one save operation.
type SaveOptions struct {
	// Name renames the model as part of the save. Empty keeps the current name.
	Name string
	// AsNew forces a create even when a remote identity exists ("Save As").
	AsNew bool
	// Auto marks the save as scheduler-triggered: transient notifications only.
	Auto bool
}

// Coordinator owns the model's identity and the save/load lifecycle.
type Coordinator struct {
	store     *graph.Store
	settings  *settings.Manager
	cache     *FileCache
	models    schemas.ModelService
	settingsS schemas.SettingsService
	notifier  schemas.Notifier
	log       *zap.Logger

	mu         sync.Mutex
	modelID    string
	modelName  string
	hasUnsaved bool
	lastSave   time.Time
	lastErr    string
	available  []schemas.ModelSummary

	// saveGroup collapses a manual save racing an auto-save tick into a
	// single flight.
	saveGroup singleflight.Group

	// loadGen invalidates in-flight loads superseded by a newer load, import
	// or new-model operation.
	loadGen atomic.Int64

	autoMu     sync.Mutex
	autoCancel chan struct{}
	autoDone   chan struct{}

	unsubscribe func()
}

// NewCoordinator wires the coordinator and restores the last cached workspace
// state, if any, before any remote call is made.
func NewCoordinator(
	store *graph.Store,
	mgr *settings.Manager,
	cache *FileCache,
	models schemas.ModelService,
	settingsSvc schemas.SettingsService,
	notifier schemas.Notifier,
	logger *zap.Logger,
) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		store:     store,
		settings:  mgr,
		cache:     cache,
		models:    models,
		settingsS: settingsSvc,
		notifier:  notifier,
		log:       logger.Named("persist"),
		modelName: UntitledModelName,
	}

	c.restoreFromCache()

	// Every graph mutation marks the model dirty and mirrors it to the cache
	// synchronously, so a crash mid-anything loses nothing.
	c.unsubscribe = store.Subscribe(c.onGraphChanged)
	return c
}

// Close stops the auto-save scheduler and detaches from the store.
func (c *Coordinator) Close() {
	c.StopAutoSave()
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *Coordinator) restoreFromCache() {
	snap, ok, err := c.cache.Read()
	if err != nil {
		c.log.Warn("failed to restore workspace cache", zap.Error(err))
		return
	}
	if !ok {
		return
	}
	c.store.Replace(snap.Nodes, snap.Edges)
	c.mu.Lock()
	c.modelID = snap.ModelID
	if snap.ModelName != "" {
		c.modelName = snap.ModelName
	}
	c.hasUnsaved = false
	c.mu.Unlock()
	c.log.Info("workspace restored from cache",
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)),
		zap.String("model", c.modelName))
}

func (c *Coordinator) onGraphChanged() {
	nodes, edges := c.store.Snapshot()

	c.mu.Lock()
	c.hasUnsaved = true
	snap := Snapshot{
		Nodes:     nodes,
		Edges:     edges,
		ModelID:   c.modelID,
		ModelName: c.modelName,
	}
	c.mu.Unlock()

	if err := c.cache.Write(snap); err != nil {
		c.log.Warn("failed to mirror workspace to cache", zap.Error(err))
	}
}

func (c *Coordinator) writeCache() {
	nodes, edges := c.store.Snapshot()
	c.mu.Lock()
	snap := Snapshot{
		Nodes:     nodes,
		Edges:     edges,
		ModelID:   c.modelID,
		ModelName: c.modelName,
	}
	c.mu.Unlock()
	if err := c.cache.Write(snap); err != nil {
		c.log.Warn("failed to mirror workspace to cache", zap.Error(err))
	}
}

// HasUnsavedChanges reports whether edits exist since the last save.
func (c *Coordinator) HasUnsavedChanges() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasUnsaved
}

// ModelID returns the current remote identity, empty for an unsaved model.
func (c *Coordinator) ModelID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelID
}

// ModelName returns the current model name.
func (c *Coordinator) ModelName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.modelName
}

// LastSaveTime returns the time of the last successful save.
func (c *Coordinator) LastSaveTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSave
}

// LastError returns the most recent remote failure, empty when the last
// remote operation succeeded.
func (c *Coordinator) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// AvailableModels returns the cached remote model list.
func (c *Coordinator) AvailableModels() []schemas.ModelSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schemas.ModelSummary, len(c.available))
	copy(out, c.available)
	return out
}

func (c *Coordinator) setError(err error) {
	c.mu.Lock()
	if err != nil {
		c.lastErr = err.Error()
	} else {
		c.lastErr = ""
	}
	c.mu.Unlock()
}

// Save persists the current graph remotely. Without a remote identity, or
// when opts.AsNew is set, it creates a new model; otherwise it updates the
// existing one. On failure the error notification is emitted and the error
// returned, with hasUnsavedChanges left untouched so the scheduler can retry.
func (c *Coordinator) Save(ctx context.Context, opts SaveOptions) error {
	_, err, _ := c.saveGroup.Do("save", func() (any, error) {
		return nil, c.doSave(ctx, opts)
	})
	return err
}

func (c *Coordinator) doSave(ctx context.Context, opts SaveOptions) error {
	nodes, edges := c.store.Snapshot()

	c.mu.Lock()
	modelID := c.modelID
	name := c.modelName
	c.mu.Unlock()
	if opts.Name != "" {
		name = opts.Name
	}

	req := schemas.CreateModelRequest{
		Name:  name,
		Nodes: schemas.NodesToAPI(nodes),
		Edges: schemas.EdgesToAPI(edges),
	}

	var (
		saved schemas.APIModel
		err   error
	)
	creating := modelID == "" || opts.AsNew
	if creating {
		saved, err = c.models.CreateModel(ctx, req)
	} else {
		saved, err = c.models.UpdateModel(ctx, modelID, req)
	}
	if err != nil {
		c.setError(err)
		duration := notifyDuration
		if opts.Auto {
			duration = autoNotifyDuration
		}
		c.notifier.Notify(schemas.NotifyError, "Save failed", err.Error(), duration)
		return fmt.Errorf("save failed: %w", err)
	}

	c.mu.Lock()
	if creating {
		c.modelID = saved.ID
	}
	c.modelName = name
	c.hasUnsaved = false
	c.lastSave = time.Now()
	c.lastErr = ""
	c.mu.Unlock()

	c.writeCache()

	if opts.Auto {
		c.notifier.Notify(schemas.NotifyInfo, "Auto-saved", "", autoNotifyDuration)
	} else {
		c.notifier.Notify(schemas.NotifySuccess, "Model saved", fmt.Sprintf("%q saved", name), notifyDuration)
	}
	c.log.Info("model saved",
		zap.String("id", saved.ID),
		zap.String("name", name),
		zap.Bool("created", creating),
		zap.Bool("auto", opts.Auto))
	return nil
}

// Load fetches a remote model and replaces the graph atomically. A load that
// finishes after a newer load, import or new-model began is discarded.
func (c *Coordinator) Load(ctx context.Context, id string) error {
	gen := c.loadGen.Add(1)
	c.StopAutoSave()
	defer c.StartAutoSave()

	model, err := c.models.GetModel(ctx, id)
	if err != nil {
		c.setError(err)
		c.notifier.Notify(schemas.NotifyError, "Load failed", err.Error(), notifyDuration)
		return fmt.Errorf("load failed: %w", err)
	}

	if c.loadGen.Load() != gen {
		c.log.Warn("discarding stale load response", zap.String("id", id))
		return nil
	}

	c.store.Replace(schemas.NodesFromAPI(model.Nodes), schemas.EdgesFromAPI(model.Edges))

	c.mu.Lock()
	c.modelID = model.ID
	c.modelName = model.Name
	c.hasUnsaved = false
	c.lastErr = ""
	c.mu.Unlock()

	c.writeCache()
	c.notifier.Notify(schemas.NotifySuccess, "Model loaded", fmt.Sprintf("%q loaded", model.Name), notifyDuration)
	c.log.Info("model loaded", zap.String("id", model.ID), zap.String("name", model.Name))
	return nil
}

// NewModel resets to an empty, unidentified "Untitled Model" synchronously.
func (c *Coordinator) NewModel() {
	c.loadGen.Add(1)
	c.StopAutoSave()
	defer c.StartAutoSave()

	c.store.Replace(nil, nil)

	c.mu.Lock()
	c.modelID = ""
	c.modelName = UntitledModelName
	c.hasUnsaved = false
	c.mu.Unlock()

	c.writeCache()
	c.log.Info("new model created")
}

// Delete removes a remote model. Deleting the currently open model resets the
// workspace to a new empty model. The model list is refreshed afterwards.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.models.DeleteModel(ctx, id); err != nil {
		c.setError(err)
		c.notifier.Notify(schemas.NotifyError, "Delete failed", err.Error(), notifyDuration)
		return fmt.Errorf("delete failed: %w", err)
	}

	if c.ModelID() == id {
		c.NewModel()
	}

	if _, err := c.RefreshModels(ctx); err != nil {
		c.log.Warn("failed to refresh model list after delete", zap.Error(err))
	}
	c.notifier.Notify(schemas.NotifySuccess, "Model deleted", "", notifyDuration)
	c.log.Info("model deleted", zap.String("id", id))
	return nil
}

// RefreshModels fetches the remote model list and caches summaries of it.
func (c *Coordinator) RefreshModels(ctx context.Context) ([]schemas.ModelSummary, error) {
	list, err := c.models.ListModels(ctx)
	if err != nil {
		c.setError(err)
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	summaries := make([]schemas.ModelSummary, len(list))
	for i, m := range list {
		summaries[i] = schemas.ModelSummary{
			ID:        m.ID,
			Name:      m.Name,
			CreatedAt: m.CreatedAt,
			NodeCount: len(m.Nodes),
			EdgeCount: len(m.Edges),
		}
	}
	c.mu.Lock()
	c.available = summaries
	c.lastErr = ""
	c.mu.Unlock()
	return summaries, nil
}

// Import replaces the workspace with an external payload. The result is
// unsaved and unidentified until explicitly saved.
func (c *Coordinator) Import(file ModelFile) {
	c.loadGen.Add(1)
	c.StopAutoSave()
	defer c.StartAutoSave()

	c.store.Replace(schemas.NodesFromAPI(file.Nodes), schemas.EdgesFromAPI(file.Edges))

	c.mu.Lock()
	c.modelID = ""
	c.modelName = file.Name
	c.hasUnsaved = true
	c.mu.Unlock()

	c.writeCache()
	c.notifier.Notify(schemas.NotifySuccess, "Model imported", fmt.Sprintf("%q imported", file.Name), notifyDuration)
	c.log.Info("model imported",
		zap.String("name", file.Name),
		zap.Int("nodes", len(file.Nodes)),
		zap.Int("edges", len(file.Edges)))
}

// Export encodes the current workspace as an exchange payload.
func (c *Coordinator) Export() ([]byte, error) {
	nodes, edges := c.store.Snapshot()
	return ExportModelFile(c.ModelName(), nodes, edges)
}

// UpdateSettings merges a settings patch and runs the side-effect pipeline in
// a fixed order: scheduler restart, edge re-materialization, remote push.
// The remote push is best-effort; local settings win on failure.
func (c *Coordinator) UpdateSettings(ctx context.Context, patch schemas.SettingsPatch) schemas.Settings {
	applied := c.settings.Apply(patch)

	c.RestartAutoSave()
	c.store.RematerializeEdges()

	if c.settingsS != nil {
		if _, err := c.settingsS.PatchSettings(ctx, patch); err != nil {
			c.log.Warn("failed to push settings to remote", zap.Error(err))
			c.notifier.Notify(schemas.NotifyWarning, "Settings not synced", err.Error(), notifyDuration)
		}
	}
	return applied
}

// StartAutoSave starts the scheduler when settings enable it. Idempotent.
func (c *Coordinator) StartAutoSave() {
	cfg := c.settings.Current()
	if !cfg.AutoSave {
		return
	}
	interval := time.Duration(cfg.AutoSaveIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	c.autoMu.Lock()
	defer c.autoMu.Unlock()
	if c.autoCancel != nil {
		return
	}
	cancel := make(chan struct{})
	done := make(chan struct{})
	c.autoCancel = cancel
	c.autoDone = done

	go c.autoSaveLoop(interval, cancel, done)
	c.log.Debug("auto-save started", zap.Duration("interval", interval))
}

func (c *Coordinator) autoSaveLoop(interval time.Duration, cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-cancel:
			return
		case <-ticker.C:
			if !c.HasUnsavedChanges() {
				continue
			}
			ctx, cancelSave := context.WithTimeout(context.Background(), interval)
			err := c.Save(ctx, SaveOptions{Auto: true})
			cancelSave()
			if err != nil {
				// Already notified by Save; the loop must keep its schedule.
				c.log.Warn("auto-save failed", zap.Error(err))
			}
		}
	}
}

// StopAutoSave cancels the scheduler and waits for the loop to exit, so no
// stale tick can save over state replaced afterwards.
func (c *Coordinator) StopAutoSave() {
	c.autoMu.Lock()
	cancel := c.autoCancel
	done := c.autoDone
	c.autoCancel = nil
	c.autoDone = nil
	c.autoMu.Unlock()

	if cancel != nil {
		close(cancel)
		<-done
	}
}

// RestartAutoSave applies the current settings to the scheduler.
func (c *Coordinator) RestartAutoSave() {
	c.StopAutoSave()
	c.StartAutoSave()
}

// ClearPersistedState drops the durable cache. The in-memory state remains.
func (c *Coordinator) ClearPersistedState() error {
	if err := c.cache.Clear(); err != nil {
		return err
	}
	c.log.Info("persisted workspace state cleared")
	return nil
}
