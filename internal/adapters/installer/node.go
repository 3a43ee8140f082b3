package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/config"
	safs "go.trai.ch/sa/internal/adapters/fs"
	"go.trai.ch/sa/internal/adapters/telemetry"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the installer Graft node.
const NodeID graft.ID = "adapter.installer"

func init() {
	graft.Register(graft.Node[ports.Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			safs.WalkerNodeID,
			safs.LinkerNodeID,
			safs.VerifierNodeID,
			telemetry.MetricsNodeID,
			config.SettingsNodeID,
		},
		Run: func(ctx context.Context) (ports.Installer, error) {
			walker, err := graft.Dep[*safs.Walker](ctx)
			if err != nil {
				return nil, err
			}
			linker, err := graft.Dep[*safs.Linker](ctx)
			if err != nil {
				return nil, err
			}
			verifier, err := graft.Dep[*safs.Verifier](ctx)
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
			return New(walker, linker, verifier, metrics, settings.Concurrency), nil
		},
	})
}
