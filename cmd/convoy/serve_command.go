package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"convoy/internal/api"
	"convoy/internal/daemon"
	"convoy/internal/logging"
	"convoy/internal/store"
	"convoy/internal/taskgen"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if b := strings.TrimSpace(bind); b != "" {
				cfg.Paths.APIBind = b
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			st, err := store.Open(cfg)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			svc := taskgen.New(cfg, st, logger, ctx.svcOpts...)
			server, err := api.New(svc, logger)
			if err != nil {
				st.Close()
				return err
			}
			d, err := daemon.New(cfg, st, server, logger)
			if err != nil {
				st.Close()
				return err
			}
			defer d.Close()

			runCtx := cmd.Context()
			if err := d.Start(runCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Convoy API listening on http://%s\n", d.Addr())

			<-runCtx.Done()
			logger.Info("convoy shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override paths.api_bind (host:port)")
	return cmd
}
