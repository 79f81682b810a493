package config

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/logger"
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

const (
	NodeID graft.ID = "adapter.settings_loader"
	// SettingsNodeID provides the effective settings for the current
	// working directory.
	SettingsNodeID graft.ID = "adapter.settings"
)

func init() {
	graft.Register(graft.Node[ports.SettingsLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.SettingsLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})

	graft.Register(graft.Node[domain.Settings]{
		ID:        SettingsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{NodeID},
		Run: func(ctx context.Context) (domain.Settings, error) {
			loader, err := graft.Dep[ports.SettingsLoader](ctx)
			if err != nil {
				return domain.Settings{}, err
			}
			cwd, err := os.Getwd()
			if err != nil {
				return domain.Settings{}, err
			}
			return loader.Load(cwd)
		},
	})
}
