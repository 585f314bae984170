package schemas

import "context"

// ModelService is the remote model store consumed by the persistence
// coordinator. Implemented by the HTTP client in internal/persist and by the
// reference backend's test doubles.
type ModelService interface {
	ListModels(ctx context.Context) ([]APIModel, error)
	GetModel(ctx context.Context, id string) (APIModel, error)
	CreateModel(ctx context.Context, req CreateModelRequest) (APIModel, error)
	UpdateModel(ctx context.Context, id string, req CreateModelRequest) (APIModel, error)
	DeleteModel(ctx context.Context, id string) error
}

// SettingsService is the remote settings store.
type SettingsService interface {
	GetSettings(ctx context.Context) (Settings, error)
	PatchSettings(ctx context.Context, patch SettingsPatch) (Settings, error)
	ResetSettings(ctx context.Context) (Settings, error)
}

// NotificationKind classifies a user-facing status message.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
	NotifyWarning NotificationKind = "warning"
)

// Notifier receives ephemeral user-facing messages. durationMs > 0 schedules
// automatic removal; 0 keeps the message until it is explicitly dismissed.
type Notifier interface {
	Notify(kind NotificationKind, title, message string, durationMs int) string
	Dismiss(id string)
}
