package main

import (
	"fmt"
	"time"

	"github.com/fedutinova/vidshelf/internal/auth"
	"github.com/fedutinova/vidshelf/internal/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an API token signed with the server's AUTH_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			roles := v.GetStringSlice("role")
			for _, r := range roles {
				if !auth.KnownRole(r) {
					return fmt.Errorf("%w: unknown role %q", common.ErrBadRequest, r)
				}
			}

			tok, err := auth.NewToken(
				v.GetString("auth-secret"),
				v.GetString("auth-issuer"),
				v.GetString("subject"),
				roles,
				v.GetDuration("ttl"),
			)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("auth-secret", "", "HS256 signing secret (VIDSHELF_AUTH_SECRET)")
	flags.String("auth-issuer", "vidshelf", "token issuer")
	flags.String("subject", "vidshelfctl", "token subject")
	flags.StringSlice("role", []string{"editor"}, "roles to grant (reader, editor, admin)")
	flags.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = v.BindPFlags(flags)
	return cmd
}
