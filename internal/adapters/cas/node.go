package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/config"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the content cache Graft node.
const NodeID graft.ID = "adapter.cas"

func init() {
	graft.Register(graft.Node[ports.ContentCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, httpcache.NodeID, telemetry.MetricsNodeID},
		Run: func(ctx context.Context) (ports.ContentCache, error) {
			settingsStore, err := graft.Dep[ports.SettingsStore](ctx)
			if err != nil {
				return nil, err
			}
			client, err := graft.Dep[*httpcache.Client](ctx)
			if err != nil {
				return nil, err
			}
			metrics, err := graft.Dep[ports.Metrics](ctx)
			if err != nil {
				return nil, err
			}
			settings, err := settingsStore.Load()
			if err != nil {
				return nil, err
			}
			return NewStore(Options{
				Root:    settings.CacheDir,
				Fetcher: client,
				Metrics: metrics,
				Retries: settings.Retries,
			})
		},
	})
}
