// Package main is the entry point for the gale CLI.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/gale/cmd/gale/commands"
	"go.trai.ch/gale/internal/app"
	"go.trai.ch/gale/internal/core/domain"
	_ "go.trai.ch/gale/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		var conflict *domain.Conflict
		var drift *domain.Drift
		if errors.As(err, &conflict) || errors.As(err, &drift) {
			// Typed resolution failures already render their own report.
			_, _ = os.Stderr.WriteString(err.Error() + "\n")
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
