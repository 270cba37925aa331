package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	jwttoken "securetransfer/internal/jwt_token"
	"securetransfer/internal/platform/config"
)

// token <identity>: mint a bearer token the server accepts for identity.
func tokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <identity>",
		Short: "Issue an API bearer token signed with JWT_SIGNING_KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.TokenTTL
			}
			svc, err := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.DefaultIssuer, jwttoken.DefaultAudience)
			if err != nil {
				return err
			}
			token, err := svc.GenerateToken(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from TOKEN_TTL)")
	return cmd
}
