// Package servecmder provides the serve command, which runs the API server
// with the MCP endpoint and the scheduled consistency rebuild.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/memoria/api"
	"github.com/papercomputeco/memoria/api/mcp"
	"github.com/papercomputeco/memoria/cmd/memoria/storeopen"
	"github.com/papercomputeco/memoria/pkg/config"
	"github.com/papercomputeco/memoria/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

type ServeCommander struct {
	flags storeopen.Flags

	listen          string
	rebuildSchedule string
	mcpReadOnly     bool
	noMCP           bool
	logFile         string

	debug  bool
	logger *slog.Logger
}

const serveLongDesc string = `Run the memoria API server.

Serves every namespace under the store root over HTTP:
  /v1/namespaces/:namespace/...   append, retrieve, summaries, stats, rebuild
  /mcp                            MCP tools for agents (retrieve, append)

Namespaces are opened on first use and share the configured embedder,
summarizer, accelerated index and event stream. Every namespace is
rebuilt on maintenance.rebuild_schedule (cron syntax or @every); an empty
schedule disables it.

Examples:
  memoria serve
  memoria serve --listen :9090 --rebuild-schedule "@daily"
  memoria serve --mcp-read-only
  memoria serve --log-file /var/log/memoria.jsonl
  memoria serve --vector-store-provider qdrant --vector-store-target localhost:6334`

const serveShortDesc string = "Run the API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			var closeLog func() error
			cmder.logger, closeLog, err = logger.NewService(cmder.debug, cmder.logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			env, err := storeopen.Load(cmd, cmder.logger, config.FlagAPIListen, config.FlagRebuildSchedule)
			if err != nil {
				return err
			}
			return cmder.run(cmd.Context(), env)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagRebuildSchedule, &cmder.rebuildSchedule)
	cmd.Flags().BoolVar(&cmder.mcpReadOnly, "mcp-read-only", false, "Leave the append tool out of the MCP server")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not serve the MCP endpoint")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")
	storeopen.AddFlags(cmd, &cmder.flags)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context, env *storeopen.Env) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := env.Registry()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeStores())
	}()

	// Fail fast on a broken default namespace.
	if _, err := stores.Get(env.Namespace); err != nil {
		return fmt.Errorf("opening namespace %q: %w", env.Namespace, err)
	}

	apiConfig := api.Config{
		ListenAddr: env.Config.API.Listen,
	}
	if !c.noMCP {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Stores:    stores,
			Namespace: env.Namespace,
			ReadOnly:  c.mcpReadOnly,
			Logger:    c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	apiServer, err := api.NewServer(apiConfig, stores, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	maint, err := newMaintenance(stores, env.Config.Maintenance.RebuildSchedule, c.logger)
	if err != nil {
		return err
	}
	maint.Start()
	defer maint.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := apiServer.Run(); err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return apiServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
