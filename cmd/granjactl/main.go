// Command granjactl is the operator CLI: schema migration, offline parameter
// reports and validation of reproductive-record files.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"granja/internal/config"
	"granja/pkg/logger"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "granjactl",
		Short:         "granja operator tools",
		Long:          "granjactl manages the granja sow store and computes reproductive parameters offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (defaults to $GRANJA_CONFIG)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newParamsCmd(opts))
	cmd.AddCommand(newValidateCycleCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "granjactl %s (commit: %s)\n", Version, Commit)
		},
	}
}

// load reads the configuration and returns a context carrying a CLI logger.
func (o *rootOptions) load(ctx context.Context) (context.Context, *config.Config, error) {
	cfg, err := config.Load(config.Path(o.configPath))
	if err != nil {
		return ctx, nil, err
	}
	level := "warn"
	if o.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Development: true, OutputPaths: []string{"stderr"}})
	if err != nil {
		return ctx, nil, fmt.Errorf("init logger: %w", err)
	}
	return logger.WithLogger(ctx, log), cfg, nil
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
