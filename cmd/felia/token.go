package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felemax/felia/config"
	srv "github.com/felemax/felia/internal/server"
)

func tokenCMD() *cobra.Command {
	var cfgPath string
	var subject string
	var ttl time.Duration
	var token = &cobra.Command{
		Use:   "token",
		Short: "Mint an admin JWT for the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadConfig(cfgPath)
			secret := cfg.Server.JWTSecret
			if secret == "" {
				secret = getenv("FELIA_SERVER_JWT_SECRET", "")
			}
			if secret == "" {
				return fmt.Errorf("server.jwt_secret not configured")
			}
			signed, err := srv.SignJWT(subject, []byte(secret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "admin", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	token.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return token
}
