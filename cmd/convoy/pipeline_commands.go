package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"convoy/internal/merge"
	"convoy/internal/task"
	"convoy/internal/taskgen"
	"convoy/internal/thread"
)

type rangeFlags struct {
	channel     string
	channelName string
	start       string
	end         string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.channel, "channel", "", "Slack channel id (required)")
	cmd.Flags().StringVar(&f.channelName, "channel-name", "", "Channel name stored with saved tasks")
	cmd.Flags().StringVar(&f.start, "start", "", "First day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&f.end, "end", "", "Last day, YYYY-MM-DD (defaults to --start)")
}

func (f *rangeFlags) request() (taskgen.PrepareRequest, error) {
	if strings.TrimSpace(f.channel) == "" {
		return taskgen.PrepareRequest{}, fmt.Errorf("--channel is required")
	}
	start, err := taskgen.ParseDate(f.start)
	if err != nil {
		return taskgen.PrepareRequest{}, err
	}
	end := start
	if strings.TrimSpace(f.end) != "" {
		if end, err = taskgen.ParseDate(f.end); err != nil {
			return taskgen.PrepareRequest{}, err
		}
	}
	return taskgen.PrepareRequest{
		ChannelID:   strings.TrimSpace(f.channel),
		ChannelName: strings.TrimSpace(f.channelName),
		Start:       start,
		End:         end,
	}, nil
}

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var rf rangeFlags

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Print the stored conversation for a range as thread JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				prepared, err := svc.Prepare(cmd.Context(), req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, prepared)
			})
		},
	}
	rf.register(cmd)
	return cmd
}

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var (
		threadPath   string
		templatePath string
		provider     string
		ollamaURL    string
		model        string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract tasks from one thread JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, threadPath)
			if err != nil {
				return err
			}
			var th thread.Thread
			if err := json.Unmarshal(data, &th); err != nil {
				return fmt.Errorf("decode thread: %w", err)
			}
			var template string
			if templatePath != "" {
				raw, err := readInput(cmd, templatePath)
				if err != nil {
					return err
				}
				template = string(raw)
			}

			return ctx.withService(func(svc *taskgen.Service) error {
				extractor, err := svc.Extractor(cmd.Context(), taskgen.ProviderOverride{Provider: provider, OllamaURL: ollamaURL})
				if err != nil {
					return err
				}
				req := svc.BaseRequest()
				if model != "" {
					req.Model = model
				}
				req.PromptTemplate = template
				result, err := extractor.ExtractThreadTasks(cmd.Context(), th, req)
				if err != nil {
					return err
				}
				return writeJSON(cmd, result)
			})
		},
	}

	cmd.Flags().StringVar(&threadPath, "thread", "", "Thread JSON file, or - for stdin (required)")
	cmd.Flags().StringVar(&templatePath, "prompt-template", "", "Prompt template file containing ${threadJson}")
	cmd.Flags().StringVar(&provider, "provider", "", "Use ollama instead of the configured provider")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama server for --provider ollama")
	cmd.Flags().StringVar(&model, "model", "", "Override llm.model")
	return cmd
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		candidatesPath string
		strategy       string
	)

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge candidate tasks from a JSON array",
		Long: "Merge candidate tasks from a JSON array.\n\nStrategies: " +
			strings.Join(strategyNames(), ", "),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, candidatesPath)
			if err != nil {
				return err
			}
			candidates, err := task.DecodeCandidates(data)
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				opts, err := svc.MergeOptions(strategy)
				if err != nil {
					return err
				}
				merged, err := merge.MergeWithOptions(candidates, opts)
				if err != nil {
					return err
				}
				return writeJSON(cmd, merged)
			})
		},
	}

	cmd.Flags().StringVar(&candidatesPath, "candidates", "", "Candidates JSON file, or - for stdin (required)")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Override extraction.merge_strategy")
	return cmd
}

func strategyNames() []string {
	var names []string
	for _, s := range merge.Strategies() {
		names = append(names, string(s))
	}
	return names
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var (
		rf        rangeFlags
		provider  string
		ollamaURL string
		model     string
		strategy  string
		promptID  int64
		save      bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Extract and merge tasks for every thread in a range",
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := rf.request()
			if err != nil {
				return err
			}
			return ctx.withService(func(svc *taskgen.Service) error {
				result, err := svc.Generate(cmd.Context(), taskgen.GenerateRequest{
					PrepareRequest: req,
					Provider:       taskgen.ProviderOverride{Provider: provider, OllamaURL: ollamaURL},
					Model:          model,
					Strategy:       strategy,
					PromptID:       promptID,
					Save:           save,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, result)
				}
				printGenerateSummary(cmd, result)
				return nil
			})
		},
	}

	rf.register(cmd)
	cmd.Flags().StringVar(&provider, "provider", "", "Use ollama instead of the configured provider")
	cmd.Flags().StringVar(&ollamaURL, "ollama-url", "", "Ollama server for --provider ollama")
	cmd.Flags().StringVar(&model, "model", "", "Override llm.model")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Override extraction.merge_strategy")
	cmd.Flags().Int64Var(&promptID, "prompt", 0, "Stored prompt id (default prompt when omitted)")
	cmd.Flags().BoolVar(&save, "save", false, "Save the merged tasks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func printGenerateSummary(cmd *cobra.Command, result taskgen.GenerateResult) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(result.Tasks))
	for i, t := range result.Tasks {
		threads := make([]string, 0, len(t.Sources))
		for _, src := range t.Sources {
			threads = append(threads, src.ThreadID)
		}
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			truncate(t.Title, 60),
			truncate(t.Description, 80),
			strings.Join(threads, ", "),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]column{
			{header: "#", right: true},
			{header: "Title", maxWidth: 60},
			{header: "Description", maxWidth: 80},
			{header: "Threads"},
		}, rows))
	}
	fmt.Fprintf(out, "%d tasks from %d threads (%d failed), %d candidates, strategy %s\n",
		len(result.Tasks), result.ThreadsProcessed, result.ThreadsFailed, result.CandidatesExtracted, result.Strategy)
	if len(result.Saved) > 0 {
		fmt.Fprintf(out, "Saved %d tasks\n", len(result.Saved))
	}
}
