package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/internal/adapters/artifact" //nolint:depguard // Wired in app layer
	"go.trai.ch/gale/internal/adapters/cas"      //nolint:depguard // Wired in app layer
	"go.trai.ch/gale/internal/adapters/lock"     //nolint:depguard // Wired in app layer
	"go.trai.ch/gale/internal/adapters/logger"   //nolint:depguard // Wired in app layer
	"go.trai.ch/gale/internal/adapters/manifest" //nolint:depguard // Wired in app layer
	"go.trai.ch/gale/internal/core/ports"
	"go.trai.ch/gale/internal/engine/fetch"
	"go.trai.ch/gale/internal/engine/resolver"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains the initialized pieces the CLI layer needs.
type Components struct {
	App    *App
	Logger ports.Logger
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			manifest.NodeID,
			resolver.NodeID,
			fetch.NodeID,
			lock.NodeID,
			cas.NodeID,
			artifact.NodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log}, nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	manifests, err := graft.Dep[ports.ManifestLoader](ctx)
	if err != nil {
		return nil, err
	}
	res, err := graft.Dep[*resolver.Resolver](ctx)
	if err != nil {
		return nil, err
	}
	engine, err := graft.Dep[*fetch.Engine](ctx)
	if err != nil {
		return nil, err
	}
	lockManager, err := graft.Dep[ports.LockManager](ctx)
	if err != nil {
		return nil, err
	}
	store, err := graft.Dep[ports.BlobStore](ctx)
	if err != nil {
		return nil, err
	}
	artifacts, err := graft.Dep[ports.ArtifactCache](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	return New(manifests, res, engine, lockManager, store, artifacts, log), nil
}
