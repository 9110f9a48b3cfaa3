// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/model"
	"github.com/toeirei/ringwork/internal/security"
	"golang.org/x/term"
)

// promptPassword returns the --password flag when given, otherwise reads the
// password from the terminal without echo or, when stdin is not a terminal,
// as one line from stdin.
func promptPassword(cmd *cobra.Command, prompt string) (security.Secret, error) {
	if cmd.Flags().Changed("password") {
		p, _ := cmd.Flags().GetString("password")
		return security.FromString(p), nil
	}
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return nil, fmt.Errorf("%s", i18n.T("cli.error.read_password", err))
		}
		return security.Secret(b), nil
	}
	line, err := readLine(in)
	if err != nil {
		return nil, fmt.Errorf("%s", i18n.T("cli.error.read_password", err))
	}
	return security.FromString(line), nil
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and remember the session for later commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd, i18n.T("cli.login.password_prompt"))
			if err != nil {
				return err
			}
			defer password.Zero()

			return withServices(func(s *services) error {
				tok, tf, err := loadToken(s)
				if err != nil {
					return err
				}
				profile, issued, err := s.sessions.Login(context.Background(), args[0], password, tok)
				if err != nil {
					return describe(err)
				}
				if err := tf.Save(issued); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.login.success", profile.Username))
				return nil
			})
		},
	}
	cmd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the remembered session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(s *services) error {
				tok, tf, err := loadToken(s)
				if err != nil {
					return err
				}
				if err := tf.Save(s.sessions.Logout(context.Background(), tok)); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.logout.success"))
				return nil
			})
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				profile, err := s.sessions.Resolve(ctx, tok)
				if err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.whoami", profile.Username, profile.Workspace))
				return nil
			})
		},
	}
}
