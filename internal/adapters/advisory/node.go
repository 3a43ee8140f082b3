package advisory

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the advisory source Graft node.
const NodeID graft.ID = "adapter.advisory"

func init() {
	graft.Register(graft.Node[ports.AdvisorySource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{httpcache.NodeID},
		Run: func(ctx context.Context) (ports.AdvisorySource, error) {
			client, err := graft.Dep[*httpcache.Client](ctx)
			if err != nil {
				return nil, err
			}
			return NewSource(client), nil
		},
	})
}
