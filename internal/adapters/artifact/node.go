package artifact

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/config"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const NodeID graft.ID = "adapter.artifact_cache"

func init() {
	graft.Register(graft.Node[ports.ArtifactCache]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.ArtifactCache, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewCache(
				filepath.Join(settings.CacheDir, "artifacts"),
				settings.ArtifactMaxBytes,
				settings.ArtifactMaxAge,
				log,
			)
		},
	})
}
