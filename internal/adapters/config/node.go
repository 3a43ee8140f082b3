package config

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/core/domain"
	"go.trai.ch/sa/internal/core/ports"
)

const (
	// ProjectNodeID is the unique identifier for the project loader Graft node.
	ProjectNodeID graft.ID = "adapter.config.project"

	// SettingsNodeID is the unique identifier for the settings store Graft node.
	SettingsNodeID graft.ID = "adapter.config.settings"
)

func init() {
	graft.Register(graft.Node[ports.ProjectLoader]{
		ID:        ProjectNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ProjectLoader, error) {
			return NewProjectLoader(), nil
		},
	})

	graft.Register(graft.Node[ports.SettingsStore]{
		ID:        SettingsNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.SettingsStore, error) {
			return NewSettingsStore(domain.DefaultConfigPath()), nil
		},
	})
}
