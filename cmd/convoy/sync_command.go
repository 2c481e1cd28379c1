package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"convoy/internal/taskgen"
)

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		rf          rangeFlags
		includeBots bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull channel history and users from Slack into the local database",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request()
			if err != nil {
				return err
			}
			syncReq := taskgen.SyncRequest{
				ChannelID:   req.ChannelID,
				ChannelName: req.ChannelName,
				Start:       req.Start,
				End:         req.End,
			}
			if cmd.Flags().Changed("include-bots") {
				syncReq.IncludeBots = &includeBots
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				result, err := svc.Sync(cmd.Context(), syncReq)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Synced %d messages (%d replies) and %d users from workspace %s\n",
					result.Messages, result.Replies, result.Users, result.WorkspaceID)
				return nil
			})
		},
	}

	rf.register(cmd)
	cmd.Flags().BoolVar(&includeBots, "include-bots", false, "Keep bot messages (defaults to slack.include_bot_messages)")
	return cmd
}
