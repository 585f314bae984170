// Package settings holds the workspace preference set shared by the graph
// store, the derivation engine and the persistence coordinator. Updates go
// through Apply so side effects (auto-save restart, edge re-materialization)
// can be sequenced explicitly by the caller.
package settings

import (
	"sync"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// Manager guards a single Settings value. It satisfies graph.SettingsProvider.
type Manager struct {
	mu sync.RWMutex
	s  schemas.Settings
}

// NewManager starts from the given settings, or the documented defaults when
// the zero value is passed.
func NewManager(initial schemas.Settings) *Manager {
	if initial.GridSize == 0 && initial.EdgeType == "" {
		initial = schemas.DefaultSettings()
	}
	return &Manager{s: initial}
}

// Current returns a copy of the settings.
func (m *Manager) Current() schemas.Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s
}

// Apply merges a patch and returns the resulting settings. Side effects are
// the caller's responsibility, run after Apply returns.
func (m *Manager) Apply(patch schemas.SettingsPatch) schemas.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = patch.Apply(m.s)
	return m.s
}

// Set replaces the settings wholesale, used when the remote settings service
// is the source of truth (initial fetch, reset).
func (m *Manager) Set(s schemas.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
}
