// Package cli implements the placarctl command tree.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/placar/internal/config"
	"github.com/okian/placar/pkg/logger"
)

const defaultCLILogLevel = "warn"

// globals carries persistent flags and the loaded config to subcommands.
type globals struct {
	driver   string
	dsn      string
	logLevel string

	cfg *config.Config
}

// NewRootCommand builds placarctl with all subcommands attached.
func NewRootCommand() *cobra.Command {
	g := &globals{}
	defaults := config.New()

	root := &cobra.Command{
		Use:           "placarctl",
		Short:         "Municipal league statistics tool",
		Long:          "Report leaderboards straight from the database or drive a simulated season through a running placar server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&g.driver, "driver", defaults.DBDriver, "database driver (sqlite or postgres)")
	root.PersistentFlags().StringVar(&g.dsn, "dsn", defaults.DBDSN, "database connection string")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", defaultCLILogLevel, "log level (debug, info, warn, error)")

	root.AddCommand(newReportCommand(g))
	root.AddCommand(newSimulateCommand(g))
	return root
}

// load reads the layered config and lets explicit flags win over it.
func (g *globals) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.DBDriver = g.driver
	}
	if flags.Changed("dsn") {
		cfg.DBDSN = g.dsn
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(g.logLevel); err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}

// Execute runs placarctl and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
