package gitrepo

import (
	"context"
	"path/filepath"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/cas"
	"go.trai.ch/gale/internal/adapters/config"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const NodeID graft.ID = "adapter.git_mirror"

func init() {
	graft.Register(graft.Node[ports.Mirror]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.SettingsNodeID, cas.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.Mirror, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.BlobStore](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewMirrorStore(filepath.Join(settings.CacheDir, "mirrors"), store, log)
		},
	})
}
