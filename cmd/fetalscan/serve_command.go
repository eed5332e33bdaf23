package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"fetalscan/internal/api"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if value := strings.TrimSpace(bind); value != "" {
				cfg.Paths.APIBind = value
			}
			return ctx.withSession(cmd, func(c context.Context, s *session) error {
				signalCtx, cancel := signal.NotifyContext(c, syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				srv, err := api.NewServer(s.cfg, s.ctrl, s.store.Health, s.logger)
				if err != nil {
					return err
				}
				return srv.Run(signalCtx, func(addr string) {
					fmt.Fprintf(cmd.OutOrStdout(), "Serving fetalscan API on http://%s\n", addr)
				})
			})
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind")
	return cmd
}
