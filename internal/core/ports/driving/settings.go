package driving

import "github.com/rickhohler/biographical/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// SetSimilarityBackend selects the similarity implementation.
	SetSimilarityBackend(backend domain.SimilarityBackend) error

	// SetThresholds updates the resolver thresholds, each in (0, 1].
	SetThresholds(fuzzy, suggest float64) error

	// SetWeight overrides one confidence factor weight.
	SetWeight(factor string, weight float64) error

	// SetStorage updates the persistence configuration.
	SetStorage(storage domain.StorageSettings) error

	// Validate checks that current settings are usable.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
