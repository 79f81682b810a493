package lock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/core/ports"
)

const NodeID graft.ID = "adapter.lock_manager"

func init() {
	graft.Register(graft.Node[ports.LockManager]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.LockManager, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewManager(log), nil
		},
	})
}
