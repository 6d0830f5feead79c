package memory

import (
	"context"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"venue-pulse/internal/forecast/application"
)

// ConfigStore keeps the venue configuration in memory and optionally mirrors
// saves to a yaml file.
type ConfigStore struct {
	mu   sync.RWMutex
	cfg  application.VenueConfig
	path string
}

// NewConfigStore constructs a store seeded with cfg. An empty path keeps saves in memory only.
func NewConfigStore(cfg application.VenueConfig, path string) *ConfigStore {
	return &ConfigStore{cfg: cfg, path: path}
}

// Load returns the current configuration.
func (s *ConfigStore) Load(ctx context.Context) (application.VenueConfig, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg, nil
}

// Save replaces the configuration, writing the yaml file first when configured.
func (s *ConfigStore) Save(ctx context.Context, cfg application.VenueConfig) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path != "" {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := os.WriteFile(s.path, data, 0o644); err != nil {
			return err
		}
	}
	s.cfg = cfg
	return nil
}
