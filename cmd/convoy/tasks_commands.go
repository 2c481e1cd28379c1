package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"convoy/internal/store"
	"convoy/internal/taskgen"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	tasksCmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and edit saved tasks",
	}
	tasksCmd.AddCommand(newTasksListCommand(ctx))
	tasksCmd.AddCommand(newTasksAddCommand(ctx))
	tasksCmd.AddCommand(newTasksEditCommand(ctx))
	tasksCmd.AddCommand(newTasksDeleteCommand(ctx))
	return tasksCmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var (
		filter store.TaskFilter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved tasks, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *taskgen.Service) error {
				tasks, err := svc.Store().ListTasks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					if tasks == nil {
						tasks = []store.Task{}
					}
					return writeJSON(cmd, tasks)
				}
				out := cmd.OutOrStdout()
				if len(tasks) == 0 {
					fmt.Fprintln(out, "No saved tasks")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, t := range tasks {
					rows = append(rows, []string{
						strconv.FormatInt(t.ID, 10),
						label(t.KanbanColumn),
						t.ChannelName,
						truncate(t.Title, 60),
						t.ParentThreadLink,
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "ID", right: true},
					{header: "Column"},
					{header: "Channel"},
					{header: "Title", maxWidth: 60},
					{header: "Thread"},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&filter.ChannelID, "channel", "", "Only tasks from this channel id")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "Maximum tasks to list (default 200)")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "Tasks to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print tasks as JSON")
	return cmd
}

func newTasksAddCommand(ctx *commandContext) *cobra.Command {
	var in store.NewTask

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a task by hand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *taskgen.Service) error {
				saved, err := svc.Store().SaveTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved task %d in %s\n", saved.ID, label(saved.KanbanColumn))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.ChannelID, "channel", "", "Slack channel id")
	cmd.Flags().StringVar(&in.ChannelName, "channel-name", "", "Channel name")
	cmd.Flags().StringVar(&in.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&in.ParentThreadID, "thread", "", "Parent thread timestamp, used for the Slack link")
	cmd.Flags().StringVar(&in.Model, "model", "", "Model name to record")
	return cmd
}

func newTasksEditCommand(ctx *commandContext) *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var update store.TaskUpdate
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if update.Title == nil && update.Description == nil {
				return fmt.Errorf("nothing to change: pass --title or --description")
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				if _, err := svc.Store().UpdateTask(cmd.Context(), id, update); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	return cmd
}

func newTasksDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				if err := svc.Store().DeleteTask(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
				return nil
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
