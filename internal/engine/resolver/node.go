package resolver

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/config"
	"go.trai.ch/sa/internal/adapters/logger"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the resolver factory Graft node.
const NodeID graft.ID = "engine.resolver"

func init() {
	graft.Register(graft.Node[ports.ResolverFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, telemetry.MetricsNodeID, config.SettingsNodeID},
		Run: func(ctx context.Context) (ports.ResolverFactory, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			metrics, err := graft.Dep[ports.Metrics](ctx)
			if err != nil {
				return nil, err
			}
			settingsStore, err := graft.Dep[ports.SettingsStore](ctx)
			if err != nil {
				return nil, err
			}
			settings, err := settingsStore.Load()
			if err != nil {
				return nil, err
			}
			return NewFactory(log, metrics, settings.Concurrency), nil
		},
	})
}
