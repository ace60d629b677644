package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"evalgo.org/lixiv/internal/auth"
	"evalgo.org/lixiv/internal/config"
)

var (
	tokenRoles      []string
	tokenExpiration time.Duration
	tokenSecret     string
)

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Generate an API token",
	Long: `Generate a JWT for the API.

The token is signed with security.jwt_secret and carries the given roles.
Readers may query the catalog and the graph; writers may also create and
delete kinds, nodes and edges.

Examples:
  # Read-only token for a dashboard
  lixiv token dashboard

  # Writer token valid for a week
  lixiv token importer --role writer --expiration 168h`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{"reader"}, "roles to grant (reader, writer)")
	tokenCmd.Flags().DurationVar(&tokenExpiration, "expiration", 0, "token lifetime (default: security.token_expiration)")
	tokenCmd.Flags().StringVar(&tokenSecret, "secret", "", "signing secret (default: security.jwt_secret)")
}

func runToken(cmd *cobra.Command, args []string) error {
	if cfg == nil {
		cfg = config.Default()
	}
	sec := cfg.Security
	if tokenSecret != "" {
		sec.JWTSecret = tokenSecret
	}
	if sec.JWTSecret == "" {
		return fmt.Errorf(`jwt_secret not found in config file and --secret not provided

Please either:
  1. Add to your config.yaml:
     security:
       jwt_secret: your-secret-here

  2. Or set LX_SECURITY_JWT_SECRET`)
	}

	roles := make([]auth.Role, 0, len(tokenRoles))
	for _, r := range tokenRoles {
		role, err := auth.ParseRole(r)
		if err != nil {
			return err
		}
		roles = append(roles, role)
	}

	tokens := auth.NewTokenService(&config.Config{Security: sec})
	token, err := tokens.GenerateToken(args[0], roles, tokenExpiration)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	expiration := tokenExpiration
	if expiration <= 0 {
		expiration = sec.TokenExpiration
	}
	printToken(cmd.OutOrStdout(), args[0], roles, expiration, token)
	return nil
}

func printToken(w io.Writer, subject string, roles []auth.Role, expiration time.Duration, token string) {
	fmt.Fprintf(w, "Subject:    %s\n", subject)
	fmt.Fprintf(w, "Roles:      %v\n", roles)
	fmt.Fprintf(w, "Expiration: %s\n", expiration)
	fmt.Fprintf(w, "\nToken:\n%s\n\n", token)
	fmt.Fprintln(w, "⚠️  Keep this token secure!")
}
