package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/dvwtools/dvw-cli/internal/graph"
	"github.com/dvwtools/dvw-cli/internal/notify"
	"github.com/dvwtools/dvw-cli/internal/observability"
	"github.com/dvwtools/dvw-cli/internal/persist"
	"github.com/dvwtools/dvw-cli/internal/settings"
)

// session bundles the editor core the way a frontend would hold it: one graph
// store, one settings manager, one notification center and one coordinator,
// all sharing the durable cache and the remote client.
type session struct {
	log      *zap.Logger
	store    *graph.Store
	settings *settings.Manager
	center   *notify.Center
	client   *persist.Client
	coord    *persist.Coordinator
}

// newSession assembles a workspace session from the loaded configuration. The
// coordinator restores the cached workspace as part of construction, so the
// store is populated before the session is returned.
func newSession() (*session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	logger := observability.GetLogger()

	initial := schemas.DefaultSettings()
	initial.AutoSave = cfg.Workspace.AutoSave
	initial.AutoSaveIntervalSec = cfg.Workspace.AutoSaveIntervalSec
	initial.SnapToGrid = cfg.Workspace.SnapToGrid
	if cfg.Workspace.GridSize > 0 {
		initial.GridSize = cfg.Workspace.GridSize
	}
	mgr := settings.NewManager(initial)

	store := graph.NewStore(mgr, logger)
	center := notify.NewCenter(logger)
	cache := persist.NewFileCache(cfg.Cache.Path, logger)
	client := persist.NewClient(cfg.API.BaseURL, cfg.API.Timeout, logger)
	coord := persist.NewCoordinator(store, mgr, cache, client, client, center, logger)

	return &session{
		log:      logger,
		store:    store,
		settings: mgr,
		center:   center,
		client:   client,
		coord:    coord,
	}, nil
}

// close tears the session down and prints any queued notifications, which is
// how save/load feedback reaches the terminal.
func (s *session) close() {
	s.coord.Close()
	for _, n := range s.center.List() {
		if n.Message != "" {
			fmt.Printf("[%s] %s: %s\n", n.Kind, n.Title, n.Message)
		} else {
			fmt.Printf("[%s] %s\n", n.Kind, n.Title)
		}
	}
	s.center.Close()
}
