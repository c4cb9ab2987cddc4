package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply SQL migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer rt.close()
	if !rt.pg.Enabled() {
		return errors.New("POSTGRES_DSN is required to run migrations")
	}
	rt.logger.Info("migrations applied")
	return nil
}
