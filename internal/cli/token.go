package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"quizdesk/internal/auth"
	"quizdesk/internal/config"
	"quizdesk/internal/domain"
)

// NewTokenCmd mints a bearer token for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var id domain.Identity
	var role string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed bearer token for the given identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is not configured")
			}
			id.Role = domain.Role(role)
			if id.Role != domain.RoleAdmin && id.Role != domain.RoleStudent {
				return fmt.Errorf("role must be admin or student, got %q", role)
			}
			issuer := auth.NewIssuer(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 0))
			token, err := issuer.Issue(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&id.ID, "id", "", "user id")
	cmd.Flags().StringVar(&role, "role", string(domain.RoleStudent), "admin or student")
	cmd.Flags().StringVar(&id.Name, "name", "", "display name")
	cmd.Flags().StringVar(&id.Email, "email", "", "email address")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}
