package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/dirstate/internal/logger"
)

// Registry maps step types to plugins. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]Plugin
	logger  *logger.Logger
}

// NewRegistry returns an empty registry. log may be nil.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		plugins: make(map[string]Plugin),
		logger:  log,
	}
}

// Register adds p under the step type its metadata declares.
func (r *Registry) Register(p Plugin) error {
	if p == nil {
		return fmt.Errorf("plugin is nil")
	}

	meta := p.PluginMetadata()
	if err := meta.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.plugins[meta.StepType]; exists {
		return fmt.Errorf("a plugin for step type '%s' is already registered", meta.StepType)
	}
	r.plugins[meta.StepType] = p

	if r.logger != nil {
		r.logger.WithFields(map[string]any{
			"plugin":    meta.Name,
			"version":   meta.Version,
			"step_type": meta.StepType,
		}).Debug("registered plugin")
	}
	return nil
}

// Get returns the plugin serving stepType.
func (r *Registry) Get(stepType string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.plugins[stepType]
	if !ok {
		return nil, ErrPluginNotFound{Name: stepType}
	}
	return p, nil
}

// List returns the registered step types in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.plugins))
	for stepType := range r.plugins {
		types = append(types, stepType)
	}
	sort.Strings(types)
	return types
}
