package main

import (
	"github.com/alexisbeaulieu97/dirstate/internal/logger"
	"github.com/alexisbeaulieu97/dirstate/internal/plugin"
	directoryplugin "github.com/alexisbeaulieu97/dirstate/internal/plugins/directory"
)

var getRegistryFunc = newRegistry

// newRegistry returns a registry holding every built-in plugin.
func newRegistry(log *logger.Logger) (*plugin.Registry, error) {
	registry := plugin.NewRegistry(log)
	if err := registry.Register(directoryplugin.New()); err != nil {
		return nil, err
	}
	return registry, nil
}
