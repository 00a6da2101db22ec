package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pario-ai/quill/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve actions over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer a.close()

			if listen == "" {
				listen = a.cfg.Listen
			}
			srv := server.New(listen, a.router, server.WithLogger(a.logger))

			a.logger.Info("starting quill",
				zap.String("config", *configPath),
				zap.String("version", version),
				zap.Strings("actions", actionNames(a)),
			)
			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func actionNames(a *app) []string {
	actions := a.router.Actions()
	names := make([]string, len(actions))
	for i, act := range actions {
		names[i] = string(act)
	}
	return names
}
