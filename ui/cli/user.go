// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/ringwork/internal/db"
	"github.com/toeirei/ringwork/internal/i18n"
)

// newUserCmd builds the account administration commands. They operate on
// the configured database directly and need no login.
func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage portal accounts (add, passwd, remove, list)",
	}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace, _ := cmd.Flags().GetString("workspace")
			password, err := promptPassword(cmd, i18n.T("cli.user.password_prompt", args[0]))
			if err != nil {
				return err
			}
			defer password.Zero()
			return withServices(func(s *services) error {
				p, err := s.accounts.AddUser(context.Background(), args[0], password, workspace)
				if errors.Is(err, db.ErrDuplicate) {
					return errors.New(i18n.T("cli.user.exists", args[0]))
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user.added", p.Username, p.Workspace))
				return nil
			})
		},
	}
	add.Flags().StringP("password", "p", "", "Password (prompted when omitted)")
	add.Flags().String("workspace", "", "Workspace holding the user's ring (defaults to the username)")

	passwd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set a new password and revoke the user's sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := promptPassword(cmd, i18n.T("cli.user.password_prompt", args[0]))
			if err != nil {
				return err
			}
			defer password.Zero()
			return withServices(func(s *services) error {
				err := s.accounts.SetPassword(context.Background(), args[0], password)
				if errors.Is(err, db.ErrUserNotFound) {
					return errors.New(i18n.T("cli.user.not_found", args[0]))
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user.password_changed", args[0]))
				return nil
			})
		},
	}
	passwd.Flags().StringP("password", "p", "", "Password (prompted when omitted)")

	remove := &cobra.Command{
		Use:   "remove <username>",
		Short: "Delete an account together with its sessions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				ok, err := confirm(cmd, i18n.T("cli.user.remove_confirm", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.aborted"))
					return nil
				}
			}
			return withServices(func(s *services) error {
				err := s.accounts.RemoveUser(context.Background(), args[0])
				if errors.Is(err, db.ErrUserNotFound) {
					return errors.New(i18n.T("cli.user.not_found", args[0]))
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user.removed", args[0]))
				return nil
			})
		},
	}
	remove.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	list := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(func(s *services) error {
				users, err := s.accounts.ListUsers(context.Background())
				if err != nil {
					return err
				}
				if len(users) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.user.none"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "USERNAME\tWORKSPACE")
				for _, u := range users {
					fmt.Fprintf(w, "%s\t%s\n", u.Username, u.Workspace)
				}
				return w.Flush()
			})
		},
	}

	cmd.AddCommand(add, passwd, remove, list)
	return cmd
}
