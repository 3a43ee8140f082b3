package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/advisory"  //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/cas"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/graphviz"  //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/index"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/installer" //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/lockfile"  //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/sa/internal/core/ports"
	"go.trai.ch/sa/internal/engine/resolver"
	"go.trai.ch/sa/internal/engine/scheduler"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components is what the command layer needs from the graph.
type Components struct {
	App     *App
	Logger  ports.Logger
	Metrics ports.Metrics
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.ProjectNodeID,
			config.SettingsNodeID,
			index.NodeID,
			resolver.NodeID,
			lockfile.StoreNodeID,
			cas.NodeID,
			scheduler.NodeID,
			installer.NodeID,
			graphviz.NodeID,
			advisory.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.MetricsNodeID,
		},
		Run: runComponentsNode,
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	var (
		d   Deps
		err error
	)
	if d.Projects, err = graft.Dep[ports.ProjectLoader](ctx); err != nil {
		return nil, err
	}
	if d.Settings, err = graft.Dep[ports.SettingsStore](ctx); err != nil {
		return nil, err
	}
	if d.Providers, err = graft.Dep[ports.MetadataProviderFactory](ctx); err != nil {
		return nil, err
	}
	if d.Resolvers, err = graft.Dep[ports.ResolverFactory](ctx); err != nil {
		return nil, err
	}
	if d.Locks, err = graft.Dep[ports.LockStore](ctx); err != nil {
		return nil, err
	}
	if d.Cache, err = graft.Dep[ports.ContentCache](ctx); err != nil {
		return nil, err
	}
	if d.Scheduler, err = graft.Dep[*scheduler.Scheduler](ctx); err != nil {
		return nil, err
	}
	if d.Installer, err = graft.Dep[ports.Installer](ctx); err != nil {
		return nil, err
	}
	if d.Renderer, err = graft.Dep[ports.GraphRenderer](ctx); err != nil {
		return nil, err
	}
	if d.Advisories, err = graft.Dep[ports.AdvisorySource](ctx); err != nil {
		return nil, err
	}
	if d.Tracer, err = graft.Dep[ports.Tracer](ctx); err != nil {
		return nil, err
	}
	if d.Logger, err = graft.Dep[ports.Logger](ctx); err != nil {
		return nil, err
	}
	return New(d), nil
}

func runComponentsNode(ctx context.Context) (*Components, error) {
	app, err := graft.Dep[*App](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	metrics, err := graft.Dep[ports.Metrics](ctx)
	if err != nil {
		return nil, err
	}

	return &Components{
		App:     app,
		Logger:  log,
		Metrics: metrics,
	}, nil
}
