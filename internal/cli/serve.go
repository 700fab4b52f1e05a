package cli

import (
	"context"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/siete/assetforge/pkg/server"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	var noCache, noWatch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the render HTTP API",
		Long: `Run the render HTTP API.

Template overrides under paths.templates are reloaded when they change,
unless --no-watch is given. The server stops gracefully on SIGINT/SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx, appOptions{noCache: noCache, needStore: true})
			if err != nil {
				return err
			}
			defer a.Close()

			states, err := a.states(ctx)
			if err != nil {
				return err
			}
			srv := server.New(server.Options{
				Service:        a.svc,
				OAuth:          a.oauth,
				States:         states,
				Logger:         c.Logger,
				RequestTimeout: a.cfg.Server.RequestTimeout.Duration,
			})

			addr = firstNonEmpty(addr, a.cfg.Server.Addr)
			c.Logger.Info("serving", "addr", addr, "store", a.cfg.Store.Backend, "storage", a.cfg.Storage.Backend, "cache", a.cfg.Cache.Backend)
			if !a.oauth.Configured() {
				c.Logger.Warn("canva oauth is not configured; /api/canva routes will answer 501")
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.ListenAndServe(ctx, addr) })
			if !noWatch {
				g.Go(func() error {
					if err := a.templates.Watch(ctx); err != nil && ctx.Err() == nil {
						c.Logger.Warn("template watcher stopped", "error", err)
					}
					return nil
				})
			}
			if err := g.Wait(); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the render cache")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not reload template overrides on change")

	return cmd
}
