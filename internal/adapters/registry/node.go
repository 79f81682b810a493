package registry

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/cas"
	"go.trai.ch/gale/internal/adapters/config"
	"go.trai.ch/gale/internal/adapters/gitrepo"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/adapters/manifest"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const NodeID graft.ID = "adapter.version_provider"

func init() {
	graft.Register(graft.Node[ports.VersionProvider]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.SettingsNodeID,
			cas.NodeID,
			gitrepo.NodeID,
			manifest.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (ports.VersionProvider, error) {
			settings, err := graft.Dep[domain.Settings](ctx)
			if err != nil {
				return nil, err
			}
			store, err := graft.Dep[ports.BlobStore](ctx)
			if err != nil {
				return nil, err
			}
			mirror, err := graft.Dep[ports.Mirror](ctx)
			if err != nil {
				return nil, err
			}
			loader, err := graft.Dep[ports.ManifestLoader](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewGitProvider(mirror, store, loader, log, settings.Registries), nil
		},
	})
}
