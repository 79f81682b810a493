package cas

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/config"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const NodeID graft.ID = "adapter.blob_store"

func init() {
	graft.Register(graft.Node[ports.BlobStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.BlobStore, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(filepath.Join(settings.CacheDir, "cas"), log)
		},
	})
}
