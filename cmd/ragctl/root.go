package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"marvel-rag/internal/bootstrap"
	"marvel-rag/internal/config"
	"marvel-rag/internal/observability"
)

// cli carries state shared by subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	logger     *zap.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Maintain marvel-rag knowledge, embeddings and index",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $CONFIG_FILE or configs/config.toml)")

	root.AddCommand(
		newBuildKBCmd(c),
		newGenerateEmbeddingsCmd(c),
		newSyncIndexCmd(c),
		newVerifyCmd(c),
	)
	return root
}

func (c *cli) load() error {
	if c.configPath != "" {
		if err := os.Setenv("CONFIG_FILE", c.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}
	logger, err := observability.NewLogger(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// withApp wires the application for one command and closes it afterwards.
func (c *cli) withApp(ctx context.Context, fn func(a *bootstrap.App) error) error {
	a, err := bootstrap.New(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			c.logger.Warn("close resources failed", zap.Error(err))
		}
		_ = c.logger.Sync()
	}()
	return fn(a)
}
