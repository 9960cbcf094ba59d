// Package registry manages source adapter registration and instantiation.
// Adapters self-register from their init functions via blank imports in main.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/config"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/connector/core"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/logger"
)

// AdapterFactory is a function that creates a source adapter bound to a
// credential record.
type AdapterFactory func(creds *config.Credentials) (core.SourceAdapter, error)

// Registry manages adapter registration and instantiation
type Registry struct {
	sources map[string]AdapterFactory
	mu      sync.RWMutex
	logger  *zap.Logger
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new adapter registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]AdapterFactory),
		logger:  logger.Get().With(zap.String("component", "adapter_registry")),
	}
}

// RegisterSource registers a source adapter factory
func (r *Registry) RegisterSource(name string, factory AdapterFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source adapter %s already registered", name))
	}

	r.sources[name] = factory
	r.logger.Debug("source adapter registered", zap.String("name", name))
	return nil
}

// CreateSource creates a source adapter instance
func (r *Registry) CreateSource(name string, creds *config.Credentials) (core.SourceAdapter, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source adapter %s not found", name))
	}

	adapter, err := factory(creds)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig,
			fmt.Sprintf("failed to create source adapter %s", name))
	}

	return adapter, nil
}

// ListSources returns the names of all registered source adapters, sorted
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterSource registers a source adapter factory with the global registry
func RegisterSource(name string, factory AdapterFactory) error {
	return globalRegistry.RegisterSource(name, factory)
}

// CreateSource creates a source adapter instance from the global registry
func CreateSource(name string, creds *config.Credentials) (core.SourceAdapter, error) {
	return globalRegistry.CreateSource(name, creds)
}

// ListSources returns all adapter names registered with the global registry
func ListSources() []string {
	return globalRegistry.ListSources()
}
