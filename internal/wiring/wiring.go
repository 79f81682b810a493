// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/gale/internal/adapters/artifact"
	_ "go.trai.ch/gale/internal/adapters/cas"
	_ "go.trai.ch/gale/internal/adapters/config"
	_ "go.trai.ch/gale/internal/adapters/gitrepo"
	_ "go.trai.ch/gale/internal/adapters/lock"
	_ "go.trai.ch/gale/internal/adapters/logger"
	_ "go.trai.ch/gale/internal/adapters/manifest"
	_ "go.trai.ch/gale/internal/adapters/registry"
	_ "go.trai.ch/gale/internal/adapters/telemetry/progrock"
	// Register app and engine nodes.
	_ "go.trai.ch/gale/internal/app"
	_ "go.trai.ch/gale/internal/engine/fetch"
	_ "go.trai.ch/gale/internal/engine/resolver"
)
