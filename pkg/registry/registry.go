// Package registry holds the sender factories available to the engine
// and validates step configuration against each factory's schema.
package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/cadencehq/cadence/pkg/protocol"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.SenderFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.SenderFactory),
	}
}

func (r *Registry) Register(factory protocol.SenderFactory) {
	r.factories[factory.ID()] = factory
}

// Create validates the config against the factory's schema and builds a
// sender for one step execution.
func (r *Registry) Create(senderType string, config map[string]any) (protocol.Sender, error) {
	factory, ok := r.factories[senderType]
	if !ok {
		return nil, fmt.Errorf("sender type '%s' not registered", senderType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, err
	}

	return factory.Create(config)
}

// Channel returns the compliance channel of a sender type. Unknown and
// non-messaging types report an empty channel.
func (r *Registry) Channel(senderType string) string {
	factory, ok := r.factories[senderType]
	if !ok {
		return ""
	}

	return factory.Channel()
}

// ValidateConfig checks a step config against the sender's schema without
// building a sender. The API uses this at save time.
func (r *Registry) ValidateConfig(senderType string, config map[string]any) error {
	factory, ok := r.factories[senderType]
	if !ok {
		return fmt.Errorf("sender type '%s' not registered", senderType)
	}

	return r.validateConfig(factory, config)
}

// Available returns the registered sender types, sorted.
func (r *Registry) Available() []string {
	types := make([]string, 0, len(r.factories))
	for senderType := range r.factories {
		types = append(types, senderType)
	}

	sort.Strings(types)

	return types
}

// Schema returns the config schema of a sender type.
func (r *Registry) Schema(senderType string) (map[string]any, error) {
	factory, ok := r.factories[senderType]
	if !ok {
		return nil, fmt.Errorf("sender type '%s' not registered", senderType)
	}

	return factory.Schema(), nil
}

func (r *Registry) validateConfig(factory protocol.SenderFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for sender '%s': %w", factory.ID(), err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid config for sender '%s': %s", factory.ID(), strings.Join(descriptions, "; "))
	}

	return nil
}
