package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"granja/internal/app"
	"granja/internal/config"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the sows schema in the configured store",
		Long: `Applies the embedded schema to the store selected by store.driver.

The postgres and sqlite schemas only use CREATE ... IF NOT EXISTS, so the
command is safe to run repeatedly. The memory driver has nothing to migrate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cfg, err := opts.load(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Store.Driver == config.DriverMemory {
				fmt.Fprintln(cmd.OutOrStdout(), "memory store: nothing to migrate")
				return nil
			}
			store, err := app.OpenStore(ctx, cfg.Store, nil)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			defer store.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s schema applied\n", cfg.Store.Driver)
			return nil
		},
	}
}
