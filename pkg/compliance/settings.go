package compliance

import (
	"context"
	"sync"

	"github.com/cadencehq/cadence/pkg/models"
)

// StaticSettings is an in-memory SettingsSource. Update swaps the whole
// settings object; readers always see a consistent snapshot.
type StaticSettings struct {
	mu       sync.RWMutex
	settings models.ComplianceSettings
}

func NewStaticSettings(settings models.ComplianceSettings) *StaticSettings {
	return &StaticSettings{settings: settings}
}

func (s *StaticSettings) Settings(_ context.Context) (models.ComplianceSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.settings, nil
}

func (s *StaticSettings) Update(settings models.ComplianceSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings = settings
}
