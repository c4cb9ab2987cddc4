package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

var seedAdminCmd = &cobra.Command{
	Use:   "seed-admin",
	Short: "Create the default administrator if it does not exist",
	RunE:  runSeedAdmin,
}

func runSeedAdmin(cmd *cobra.Command, _ []string) error {
	rt, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer rt.close()

	authService := service.NewAuthService(rt.cfg.Auth, service.AuthDependencies{
		UserRepo: rt.users,
		Tokens:   auth.NewTokenService(rt.cfg.Auth.JWTSecret, rt.cfg.Auth.AccessTokenTTL()),
		Logger:   rt.logger,
	})
	created, err := authService.SeedAdmin(cmd.Context(), rt.cfg.Seed)
	if err != nil {
		return err
	}
	rt.logger.Info("seed-admin finished", zap.Bool("created", created), zap.String("email", rt.cfg.Seed.AdminEmail))
	return nil
}
