package lockfile

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sa/internal/core/ports"
)

const (
	// CodecNodeID is the unique identifier for the lock codec Graft node.
	CodecNodeID graft.ID = "adapter.lockfile.codec"

	// StoreNodeID is the unique identifier for the lock store Graft node.
	StoreNodeID graft.ID = "adapter.lockfile.store"
)

func init() {
	graft.Register(graft.Node[ports.LockCodec]{
		ID:        CodecNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.LockCodec, error) {
			return NewCodec(), nil
		},
	})

	graft.Register(graft.Node[ports.LockStore]{
		ID:        StoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{CodecNodeID},
		Run: func(ctx context.Context) (ports.LockStore, error) {
			codec, err := graft.Dep[ports.LockCodec](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(codec), nil
		},
	})
}
