package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"convoy/internal/config"
	"convoy/internal/logging"
	"convoy/internal/store"
	"convoy/internal/taskgen"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
	svcOpts    []taskgen.Option

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool, opts ...taskgen.Option) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		svcOpts:    opts,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// cliLogger writes to stderr so JSON output on stdout stays clean. Only
// warnings show unless --verbose is set.
func (c *commandContext) cliLogger() *slog.Logger {
	level := "warn"
	if c.verbose != nil && *c.verbose {
		level = "info"
	}
	format := "console"
	if c.config != nil {
		format = c.config.Logging.Format
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format, OutputPaths: []string{"stderr"}})
	if err != nil {
		return logging.NewNop()
	}
	return logger
}

// withService opens the store, builds the task service and runs fn. The
// store is closed afterwards.
func (c *commandContext) withService(fn func(*taskgen.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	return fn(taskgen.New(cfg, st, c.cliLogger(), c.svcOpts...))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
