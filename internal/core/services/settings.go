package services

import (
	"fmt"
	"strings"

	"github.com/rickhohler/biographical/internal/core/domain"
	"github.com/rickhohler/biographical/internal/core/ports/driven"
	"github.com/rickhohler/biographical/internal/core/ports/driving"
	"github.com/rickhohler/biographical/internal/matching"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySimilarityBackend = "similarity.backend"
	keyFuzzyThreshold    = "resolver.fuzzy_threshold"
	keySuggestThreshold  = "resolver.suggest_threshold"
	keyWeightsPrefix     = "scoring.weights"
	keyStorageBackend    = "storage.backend"
	keyStorageDataDir    = "storage.data_dir"
	keyStorageWatch      = "storage.watch"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings. Unrecognised or out of range
// values fall back to defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Similarity: s.getSimilarityBackend(defaults.Similarity),
		Resolver: domain.ResolverSettings{
			FuzzyThreshold:   s.getThreshold(keyFuzzyThreshold, defaults.Resolver.FuzzyThreshold),
			SuggestThreshold: s.getThreshold(keySuggestThreshold, defaults.Resolver.SuggestThreshold),
		},
		Scoring: domain.ScoringSettings{
			Weights: s.getWeights(),
		},
		Storage: domain.StorageSettings{
			Backend: s.getStorageBackend(defaults.Storage.Backend),
			DataDir: s.getString(keyStorageDataDir, defaults.Storage.DataDir),
			Watch:   s.getBool(keyStorageWatch, defaults.Storage.Watch),
		},
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := s.configStore.Set(keySimilarityBackend, settings.Similarity.String()); err != nil {
		return fmt.Errorf("save similarity backend: %w", err)
	}

	if err := s.configStore.Set(keyFuzzyThreshold, settings.Resolver.FuzzyThreshold); err != nil {
		return fmt.Errorf("save fuzzy threshold: %w", err)
	}
	if err := s.configStore.Set(keySuggestThreshold, settings.Resolver.SuggestThreshold); err != nil {
		return fmt.Errorf("save suggest threshold: %w", err)
	}

	for factor, w := range settings.Scoring.Weights {
		if err := s.configStore.Set(keyWeightsPrefix+"."+factor, w); err != nil {
			return fmt.Errorf("save weight %s: %w", factor, err)
		}
	}

	if err := s.configStore.Set(keyStorageBackend, settings.Storage.Backend.String()); err != nil {
		return fmt.Errorf("save storage backend: %w", err)
	}
	if err := s.configStore.Set(keyStorageDataDir, settings.Storage.DataDir); err != nil {
		return fmt.Errorf("save storage data_dir: %w", err)
	}
	if err := s.configStore.Set(keyStorageWatch, settings.Storage.Watch); err != nil {
		return fmt.Errorf("save storage watch: %w", err)
	}

	return nil
}

// SetSimilarityBackend selects the similarity implementation.
func (s *SettingsService) SetSimilarityBackend(backend domain.SimilarityBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: similarity backend %q", domain.ErrInvalidConfiguration, backend)
	}
	return s.configStore.Set(keySimilarityBackend, backend.String())
}

// SetThresholds updates both resolver thresholds.
func (s *SettingsService) SetThresholds(fuzzy, suggest float64) error {
	if err := checkThreshold("fuzzy", fuzzy); err != nil {
		return err
	}
	if err := checkThreshold("suggest", suggest); err != nil {
		return err
	}
	if err := s.configStore.Set(keyFuzzyThreshold, fuzzy); err != nil {
		return fmt.Errorf("save fuzzy threshold: %w", err)
	}
	return s.configStore.Set(keySuggestThreshold, suggest)
}

// SetWeight overrides one factor weight. The resulting weight set must still
// be accepted by the confidence model.
func (s *SettingsService) SetWeight(factor string, weight float64) error {
	weights := s.getWeights()
	if weights == nil {
		weights = make(map[string]float64)
	}
	weights[factor] = weight
	if _, err := matching.DefaultWeights().With(weights); err != nil {
		return err
	}
	return s.configStore.Set(keyWeightsPrefix+"."+factor, weight)
}

// SetStorage updates the persistence configuration.
func (s *SettingsService) SetStorage(storage domain.StorageSettings) error {
	if !storage.Backend.IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrInvalidConfiguration, storage.Backend)
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if storage.DataDir == "" {
		storage.DataDir = settings.Storage.DataDir
	}
	settings.Storage = storage
	return s.Save(settings)
}

// Validate checks the raw stored values, since Get hides invalid ones
// behind defaults.
func (s *SettingsService) Validate() error {
	if v := s.configStore.GetString(keySimilarityBackend); v != "" && !domain.SimilarityBackend(v).IsValid() {
		return fmt.Errorf("%w: similarity backend %q", domain.ErrInvalidConfiguration, v)
	}
	if v := s.configStore.GetString(keyStorageBackend); v != "" && !domain.StorageBackend(v).IsValid() {
		return fmt.Errorf("%w: storage backend %q", domain.ErrInvalidConfiguration, v)
	}
	for _, key := range []string{keyFuzzyThreshold, keySuggestThreshold} {
		if _, exists := s.configStore.Get(key); !exists {
			continue
		}
		v, ok := s.configStore.GetFloat(key)
		if !ok {
			return fmt.Errorf("%w: %s is not a number", domain.ErrInvalidConfiguration, key)
		}
		if err := checkThreshold(key, v); err != nil {
			return err
		}
	}
	if _, err := matching.DefaultWeights().With(s.getWeights()); err != nil {
		return err
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

func checkThreshold(name string, v float64) error {
	if v <= 0 || v > 1 {
		return fmt.Errorf("%w: %s threshold must be in (0, 1], got %v", domain.ErrInvalidConfiguration, name, v)
	}
	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getThreshold(key string, defaultVal float64) float64 {
	val, ok := s.configStore.GetFloat(key)
	if !ok || val <= 0 || val > 1 {
		return defaultVal
	}
	return val
}

// getWeights collects scoring.weights.<factor> entries. Non-numeric values
// are skipped.
func (s *SettingsService) getWeights() map[string]float64 {
	var out map[string]float64
	for _, key := range s.configStore.Keys(keyWeightsPrefix) {
		factor := strings.TrimPrefix(key, keyWeightsPrefix+".")
		if factor == key || factor == "" {
			continue
		}
		w, ok := s.configStore.GetFloat(key)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]float64)
		}
		out[factor] = w
	}
	return out
}

func (s *SettingsService) getSimilarityBackend(defaultVal domain.SimilarityBackend) domain.SimilarityBackend {
	val := s.configStore.GetString(keySimilarityBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.SimilarityBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getStorageBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StorageBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
