package driving

import "github.com/custodia-labs/embedscan/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, falling back to defaults
	// for keys that are not configured.
	Get() (*domain.Settings, error)

	// Set parses value for key and persists it.
	// Returns domain.ErrInvalidInput for unknown keys or malformed values.
	Set(key, value string) error

	// Keys returns every recognised configuration key, sorted.
	Keys() []string

	// Validate checks if current settings are usable by the worker.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// DisplayValue returns the stored value of key for display, with
	// secrets masked. Empty if the key is not set.
	DisplayValue(key string) string

	// Path returns where settings are persisted.
	Path() string
}
