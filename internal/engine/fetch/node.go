package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/cas"                //nolint:depguard // Wired in engine wiring
	"go.trai.ch/gale/internal/adapters/config"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/gale/internal/adapters/gitrepo"            //nolint:depguard // Wired in engine wiring
	"go.trai.ch/gale/internal/adapters/logger"             //nolint:depguard // Wired in engine wiring
	"go.trai.ch/gale/internal/adapters/telemetry/progrock" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/gale/internal/core/domain"
	"go.trai.ch/gale/internal/core/ports"
)

// NodeID is the unique identifier for the fetch engine Graft node.
const NodeID graft.ID = "engine.fetch"

func init() {
	graft.Register(graft.Node[*Engine]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.SettingsNodeID,
			cas.NodeID,
			gitrepo.NodeID,
			progrock.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Engine, error) {
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
			tel, err := graft.Dep[ports.Telemetry](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			opts := Options{
				Jobs:           settings.Jobs,
				NetworkTimeout: settings.NetworkTimeout,
				RetryAttempts:  settings.RetryAttempts,
				Registries:     settings.Registries,
			}
			return New(mirror, store, tel, log, opts), nil
		},
	})
}
