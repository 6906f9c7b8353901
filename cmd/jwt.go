package main

import (
	"fmt"
	"sitecheck/internal/config"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// JWTCommand constructs the 'jwt' subcommand that mints an RS256 API token
// for a user ID, mainly for local development.
func JWTCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "jwt",
		Short:        "Generates an API token for the given user ID",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			signed, err := signToken(cfg.JWT.PrivateKey, subject, ttl, time.Now())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed)

			return err //nolint: wrapcheck
		},
	}

	cmd.Flags().String("subject", "", "user ID (UUID); a random one when empty")
	cmd.Flags().Duration("ttl", 24*time.Hour, "Token TTL (e.g., 30s, 15m, 1h)")

	return cmd
}

// signToken signs a token for subject valid from now for ttl. The API only
// accepts UUID subjects, so anything else is rejected here.
func signToken(privateKeyPEM, subject string, ttl time.Duration, now time.Time) (string, error) {
	if subject == "" {
		subject = uuid.NewString()
	}
	if _, err := uuid.Parse(subject); err != nil {
		return "", fmt.Errorf("subject must be a UUID: %w", err)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", fmt.Errorf("could not parse RSA private key: %w", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("could not sign JWT: %w", err)
	}

	return signed, nil
}
