// Package main provides the entry point for the livraria API server.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/livraria/livraria-api/internal/di"
	"github.com/livraria/livraria-api/internal/lifecycle"
	"github.com/livraria/livraria-api/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx)
	stop()
	os.Exit(code)
}

func run(ctx context.Context) int {
	injector := di.NewContainer(ctx, version)

	server, err := di.Bootstrap(injector)
	if err != nil {
		return abort(injector, err)
	}

	log := do.MustInvoke[*logger.Logger](injector)
	manager := do.MustInvoke[*lifecycle.Manager](injector)

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Error("Failed to bind listener", "addr", server.Addr, "error", err)
		return manager.Shutdown()
	}

	code := manager.Serve(ctx, ln, server.Server)
	log.Info("Até logo!")
	return code
}

// abort reports a start-up failure and releases whatever was opened.
func abort(injector do.Injector, err error) int {
	log, logErr := do.Invoke[*logger.Logger](injector)
	if logErr != nil {
		fmt.Fprintf(os.Stderr, "Failed to start server: %v\n", err)
		return lifecycle.ExitError
	}
	log.Error("Failed to start server", "error", err)

	if manager, mErr := do.Invoke[*lifecycle.Manager](injector); mErr == nil {
		return manager.Shutdown()
	}
	return lifecycle.ExitError
}
