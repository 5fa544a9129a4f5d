package backend

import (
	"fmt"

	"spendwise/internal/config"
)

// FromAppConfig converts the application config to a store config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.SessionBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s (valid: %v)", appConfig.SessionBackend, GetBackendTypes())
	}

	return Config{
		Type:         backendType,
		TTL:          appConfig.SessionTTL,
		MaxEntries:   appConfig.SessionMaxEntries,
		SQLiteDBPath: appConfig.SQLiteDBPath,
	}, nil
}

// Validate validates the store configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive, got %v", c.TTL)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case MemoryBackend:
		if c.MaxEntries < 1 {
			return fmt.Errorf("memory backend needs at least one entry, got %d", c.MaxEntries)
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}
