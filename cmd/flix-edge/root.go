package main

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/flix-app/flix-cache/internal/config"
	"github.com/flix-app/flix-cache/pkg/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type commandContext struct {
	appVersion *string
	store      *string
	logLevel   *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
	logger     zerolog.Logger
}

func newCommandContext(appVersion, store, logLevel *string) *commandContext {
	return &commandContext{
		appVersion: appVersion,
		store:      store,
		logLevel:   logLevel,
		logger:     zerolog.Nop(),
	}
}

// ensureConfig loads the environment once, applies flag overrides and
// configures logging.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = err
			return
		}
		override(&cfg.Version, c.appVersion)
		override(&cfg.Store, c.store)
		override(&cfg.LogLevel, c.logLevel)

		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		c.logger = logging.Setup(cfg.Logging())
		c.config = cfg
	})
	return c.config, c.configErr
}

func override(field *string, flag *string) {
	if flag == nil {
		return
	}
	if v := strings.TrimSpace(*flag); v != "" {
		*field = v
	}
}

func newRootCommand() *cobra.Command {
	var appVersion, store, logLevel string

	ctx := newCommandContext(&appVersion, &store, &logLevel)

	rootCmd := &cobra.Command{
		Use:           "flix-edge",
		Short:         "Offline-capable edge cache for the FLIX app",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&appVersion, "app-version", "", "Deployed version (overrides FLIX_VERSION)")
	rootCmd.PersistentFlags().StringVar(&store, "store", "", "Partition store: memory or redis (overrides FLIX_STORE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides FLIX_LOG_LEVEL)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newInstallCommand(ctx))
	rootCmd.AddCommand(newActivateCommand(ctx))
	rootCmd.AddCommand(newPartitionsCommand(ctx))
	rootCmd.AddCommand(newSyncCommand(ctx))
	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newPrefetchCommand(ctx))

	return rootCmd
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
