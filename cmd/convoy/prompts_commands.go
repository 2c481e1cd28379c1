package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"convoy/internal/store"
	"convoy/internal/taskgen"
)

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "Manage extraction prompt templates",
	}
	promptsCmd.AddCommand(newPromptsListCommand(ctx))
	promptsCmd.AddCommand(newPromptsShowCommand(ctx))
	promptsCmd.AddCommand(newPromptsAddCommand(ctx))
	promptsCmd.AddCommand(newPromptsSetDefaultCommand(ctx))
	promptsCmd.AddCommand(newPromptsDeleteCommand(ctx))
	return promptsCmd
}

func newPromptsListCommand(ctx *commandContext) *cobra.Command {
	var (
		kind   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *taskgen.Service) error {
				st := svc.Store()
				if _, _, err := st.EnsureDefaultPrompt(cmd.Context()); err != nil {
					return err
				}
				prompts, err := st.ListPrompts(cmd.Context(), store.PromptFilter{Kind: store.PromptKind(kind)})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, prompts)
				}
				rows := make([][]string, 0, len(prompts))
				for _, p := range prompts {
					rows = append(rows, []string{
						strconv.FormatInt(p.ID, 10),
						p.Name,
						yesNo(p.IsDefault),
						yesNo(p.IsSystem),
						truncate(p.Description, 50),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{
					{header: "ID", right: true},
					{header: "Name"},
					{header: "Default"},
					{header: "System"},
					{header: "Description", maxWidth: 50},
				}, rows))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only system or user prompts")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print prompts as JSON")
	return cmd
}

func newPromptsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a prompt template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				p, err := svc.Store().GetPrompt(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), p.Template)
				return nil
			})
		},
	}
}

func newPromptsAddCommand(ctx *commandContext) *cobra.Command {
	var (
		in           store.PromptInput
		templatePath string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Store a prompt template from a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, templatePath)
			if err != nil {
				return err
			}
			in.Template = string(data)
			return ctx.withService(func(svc *taskgen.Service) error {
				p, err := svc.Store().CreatePrompt(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created prompt %d (%s)\n", p.ID, p.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Prompt name (required)")
	cmd.Flags().StringVar(&in.Description, "description", "", "Prompt description")
	cmd.Flags().StringVar(&templatePath, "file", "", "Template file containing ${threadJson}, or - for stdin (required)")
	cmd.Flags().BoolVar(&in.IsDefault, "default", false, "Make this the default prompt")
	cmd.Flags().StringVar(&in.CreatedBy, "created-by", "", "Owner recorded with the prompt")
	return cmd
}

func newPromptsSetDefaultCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-default <id>",
		Short: "Make a prompt the default for generate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				p, err := svc.Store().SetDefaultPrompt(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Default prompt is now %d (%s)\n", p.ID, p.Name)
				return nil
			})
		},
	}
}

func newPromptsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				if err := svc.Store().DeletePrompt(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted prompt %d\n", id)
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
