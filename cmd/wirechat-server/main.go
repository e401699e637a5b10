// Command wirechat-server runs the chat server: it parses CLI flags,
// wires up the configured wire format, and serves connections until a
// client sends a shutdown request or the process receives an interrupt.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gochat-core/wirechat-server/internal/chatroom"
	"github.com/gochat-core/wirechat-server/internal/config"
	"github.com/gochat-core/wirechat-server/internal/log"
	"github.com/gochat-core/wirechat-server/internal/protocol"
	"github.com/gochat-core/wirechat-server/internal/transport"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := log.NewDefault()
	cfg := config.Config{}

	root := &cobra.Command{
		Use:   "wirechat-server",
		Short: "A length-prefixed, dual-encoding multi-room chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg, logger)
		},
		SilenceUsage: true,
	}

	root.Flags().StringVar((*string)(&cfg.Format), "format", string(config.FormatTextual),
		fmt.Sprintf("wire encoding: %q or %q", config.FormatTextual, config.FormatBinary))
	root.Flags().IntVar(&cfg.Workers, "workers", 2, "maximum number of dispatches in flight at once")
	root.Flags().IntVar(&cfg.Port, "port", 10221, "TCP port to listen on")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	root.SetContext(ctx)

	if err := root.Execute(); err != nil {
		logger.Error("server exited with error", "error", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, cfg config.Config, logger log.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	var codec protocol.Codec
	switch cfg.Format {
	case config.FormatTextual:
		codec = protocol.NewTextual()
	case config.FormatBinary:
		codec = protocol.NewBinary()
	}

	registry := chatroom.NewRegistry()

	ctx, shutdown := context.WithCancel(ctx)
	defer shutdown()

	hub := chatroom.NewHub(registry, logger, shutdown)

	addr := &net.TCPAddr{IP: net.IPv4zero, Port: cfg.Port}
	server, err := transport.NewServer(addr, codec, hub, cfg.Workers, logger)
	if err != nil {
		return errors.Wrapf(err, "bind :%d", cfg.Port)
	}

	logger.Info("wirechat-server starting", "format", cfg.Format, "workers", cfg.Workers, "port", cfg.Port)

	err = server.Serve(ctx)
	if err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "serve")
	}
	return nil
}
