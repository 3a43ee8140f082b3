package index

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/adapters/httpcache"
	"go.trai.ch/sa/internal/core/ports"
)

// NodeID is the unique identifier for the metadata provider factory Graft node.
const NodeID graft.ID = "adapter.index"

func init() {
	graft.Register(graft.Node[ports.MetadataProviderFactory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{httpcache.NodeID},
		Run: func(ctx context.Context) (ports.MetadataProviderFactory, error) {
			client, err := graft.Dep[*httpcache.Client](ctx)
			if err != nil {
				return nil, err
			}
			return NewFactory(client), nil
		},
	})
}
