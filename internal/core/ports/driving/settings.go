package driving

import "github.com/custodia-labs/intentflow/internal/core/domain"

// SettingsService resolves process settings.
type SettingsService interface {
	// Get returns settings from the config file merged with the environment
	// and validated.
	Get() (*domain.Settings, error)
}
