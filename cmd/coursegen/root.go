package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/x1syne/ai-study-agent-sub001/internal/bootstrap"
	"github.com/x1syne/ai-study-agent-sub001/internal/config"
	"github.com/x1syne/ai-study-agent-sub001/internal/utils"
)

// cliState is shared by every subcommand of one root command.
type cliState struct {
	configFile string
	config     *config.Config
	logger     *zap.Logger
	options    []bootstrap.Option
}

func (s *cliState) app() (*bootstrap.App, error) {
	app, err := bootstrap.New(s.config, s.logger, s.options...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize course pipeline: %w", err)
	}
	return app, nil
}

func newRootCmd() (*cobra.Command, *cliState) {
	state := &cliState{}

	rootCmd := &cobra.Command{
		Use:           "coursegen",
		Short:         "Generate structured lessons and practice tasks for a topic.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(state.configFile)
			if err != nil {
				return err
			}
			state.config = cfg

			if state.logger == nil {
				// the CLI writes results to stdout, so logs stay at warn unless asked
				level := cfg.Server.LogLevel
				if level == "info" {
					level = "warn"
				}
				logger, err := utils.NewLogger(level, cfg.Server.Env)
				if err != nil {
					return fmt.Errorf("failed to initialize logger: %w", err)
				}
				state.logger = logger
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&state.configFile, "config", "c", "", "config file (default is ./coursegen.yaml or $COURSEGEN_CONFIG)")

	rootCmd.AddCommand(newGenerateCmd(state))
	rootCmd.AddCommand(newCacheCmd(state))

	return rootCmd, state
}
