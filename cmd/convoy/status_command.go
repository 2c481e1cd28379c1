package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"convoy/internal/daemon"
	"convoy/internal/preflight"
	"convoy/internal/taskgen"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var skipChecks bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show database contents, server state and dependency health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			fmt.Fprintln(out, renderSectionHeader("Server", colorize))
			locked, err := daemon.Locked(cfg.LockPath())
			switch {
			case err != nil:
				fmt.Fprintln(out, renderStatusLine("API", false, err.Error(), colorize))
			case locked:
				fmt.Fprintln(out, renderStatusLine("API", true, "running (lock held at "+cfg.LockPath()+")", colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("API", true, "not running, start with `convoy serve`", colorize))
			}

			err = ctx.withService(func(svc *taskgen.Service) error {
				stats, err := svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				last := "never"
				if !stats.LastMessageAt.IsZero() {
					last = stats.LastMessageAt.Local().Format(time.DateTime)
				}
				fmt.Fprintln(out, renderSectionHeader("Database", colorize))
				fmt.Fprintln(out, renderTable([]column{{header: "Item"}, {header: "Value", right: true}}, [][]string{
					{"Messages", fmt.Sprint(stats.Messages)},
					{"Users", fmt.Sprint(stats.Users)},
					{"Saved tasks", fmt.Sprint(stats.Tasks)},
					{"Last message", last},
					{"Size", humanBytes(stats.DatabaseBytes)},
					{"Path", stats.DatabasePath},
				}))
				return nil
			})
			if err != nil {
				return err
			}

			if skipChecks {
				return nil
			}
			fmt.Fprintln(out, renderSectionHeader("Dependencies", colorize))
			for _, r := range preflight.RunAll(cmd.Context(), cfg, nil) {
				fmt.Fprintln(out, renderStatusLine(r.Name, r.Passed, r.Detail, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipChecks, "offline", false, "Skip the network checks")
	return cmd
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
