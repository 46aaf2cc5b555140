package main

import (
	"fmt"

	"github.com/kiranshivaraju/venter/internal/config"
	"github.com/kiranshivaraju/venter/internal/store"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	var dir string
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations, or roll back with --down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if down < 0 {
				return fmt.Errorf("--down must be positive, got %d", down)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if down > 0 {
				if err := store.RollbackMigrations(cfg.Database.URL, dir, down); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", down)
				return nil
			}
			if err := store.RunMigrations(cfg.Database.URL, dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "migrations", "directory holding the SQL migrations")
	cmd.Flags().IntVar(&down, "down", 0, "number of migrations to roll back")
	return cmd
}
