package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yousuf/stackmap/internal/config"
	"github.com/yousuf/stackmap/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server",
		Long: `Serves the resolve_stack_trace and detect_stack_format tools over MCP.

The stdio transport is meant to be launched by an agent; the http transport
serves the streamable HTTP protocol. The config file is watched and prefix
rules are reloaded without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("transport") {
				a.cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				a.cfg.Server.Addr = addr
			}
			if err := a.cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, a)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", ":3000", "Listen address for the http transport")

	return cmd
}

func runServe(ctx context.Context, a *app) error {
	logger := a.logger

	svc, err := server.NewService(a.cfg, logger)
	if err != nil {
		return err
	}

	if _, err := os.Stat(a.configPath); err == nil {
		w, err := config.Watch(a.configPath, logger, func(cfg *config.Config) {
			if err := svc.Update(cfg); err != nil {
				logger.Warn("failed to apply reloaded config", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	logger.Info("starting stackmap MCP server",
		zap.String("transport", a.cfg.Server.Transport),
		zap.String("workspace", a.cfg.WorkspaceRoot),
		zap.Int("prefix_rules", len(a.cfg.Prefixes)))

	if a.cfg.Server.Transport == "stdio" {
		if err := server.NewMcpServer(svc).Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("stdio server failed: %w", err)
		}
		return nil
	}

	handler := mcp.NewStreamableHTTPHandler(func(req *http.Request) *mcp.Server {
		return server.NewMcpServer(svc)
	}, &mcp.StreamableHTTPOptions{})

	httpServer := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
