package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sa/internal/adapters/logger"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sa/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			cas.NodeID,
			logger.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			cache, err := graft.Dep[ports.ContentCache](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(cache, log, tracer), nil
		},
	})
}
