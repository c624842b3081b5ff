package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fantasylifeleague/healthapi/internal/auth"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	var userID string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a local API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signingKey := stringFlag(cmd, v, "jwt-signing-key")
			if signingKey == "" {
				return errors.New("a JWT signing key is required (--jwt-signing-key or HEALTHSIGN_JWT_SIGNING_KEY)")
			}
			if userID == "" {
				return errors.New("--user is required")
			}

			jwtService := auth.NewJWTService(auth.JWTConfig{
				SigningKey: signingKey,
				Issuer:     stringFlag(cmd, v, "issuer"),
				Audience:   stringFlag(cmd, v, "audience"),
				Expiry:     ttl,
			})

			token, expiresAt, err := jwtService.GenerateAccessToken(userID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := fmt.Fprintln(out, token); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return err
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user ID carried by the token")
	cmd.Flags().String("jwt-signing-key", "", "HS256 key shared with the API (env HEALTHSIGN_JWT_SIGNING_KEY)")
	cmd.Flags().String("issuer", "", "iss claim")
	cmd.Flags().String("audience", "", "aud claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
