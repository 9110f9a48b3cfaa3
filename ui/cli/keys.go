// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/model"
)

// newKeyCmd builds the commands working on the logged in user's ring.
func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage your SSH keys (list, show, generate, import, delete, public, copy)",
		Long: `The 'key' command group works on the ring of the user logged in with
'ringwork login':
  - List keys with algorithm, size and fingerprint
  - Show a key including its private half
  - Generate a new key pair or import an existing private key
  - Delete a key
  - Print or copy the public (or private) key`,
	}
	cmd.AddCommand(
		newKeyListCmd(),
		newKeyShowCmd(),
		newKeyGenerateCmd(),
		newKeyImportCmd(),
		newKeyDeleteCmd(),
		newKeyPublicCmd(),
		newKeyCopyCmd(),
	)
	return cmd
}

func newKeyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				items, err := s.keys.List(ctx, tok)
				if err != nil {
					return describe(err)
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.none"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tALGORITHM\tBITS\tFINGERPRINT\tCOMMENT\tCREATED")
				for _, k := range items {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
						k.Name, k.Algorithm, k.Bits, k.Fingerprint, k.Comment, k.CreatedAt.Format("2006-01-02"))
				}
				return w.Flush()
			})
		},
	}
}

func newKeyShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show key details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withPrivate, _ := cmd.Flags().GetBool("private")
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				k, err := s.keys.Get(ctx, tok, args[0])
				if err != nil {
					return describe(err)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:        %s\n", k.Name)
				fmt.Fprintf(out, "User:        %s\n", k.User)
				fmt.Fprintf(out, "Algorithm:   %s\n", k.Algorithm)
				fmt.Fprintf(out, "Bits:        %d\n", k.Bits)
				fmt.Fprintf(out, "Comment:     %s\n", k.Comment)
				fmt.Fprintf(out, "Fingerprint: %s\n", k.Fingerprint)
				fmt.Fprintf(out, "Created:     %s\n", k.CreatedAt.Format("2006-01-02 15:04:05"))
				fmt.Fprintf(out, "\n%s\n", k.Public)
				if withPrivate {
					fmt.Fprintf(out, "\n%s", k.Private)
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("private", false, "Also print the private key")
	return cmd
}

func newKeyGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <name>",
		Short: "Generate a new key pair",
		Long: `Generates a key pair and stores it in your ring.

Key sizes: rsa defaults to 4096 bits (minimum 1024), ecdsa to 521 bits
(256, 384 or 521), dsa is always 1024 and ed25519 always 256 bits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comment, _ := cmd.Flags().GetString("comment")
			algorithm, _ := cmd.Flags().GetString("algorithm")
			bits, _ := cmd.Flags().GetInt("bits")
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				k, err := s.keys.Generate(ctx, tok, core.GenerateRequest{
					Name:      args[0],
					Comment:   comment,
					Algorithm: model.Algorithm(algorithm),
					Bits:      bits,
				})
				if err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.generated", k.Name, k.Algorithm, k.Bits))
				fmt.Fprintln(cmd.OutOrStdout(), k.Fingerprint)
				return nil
			})
		},
	}
	cmd.Flags().StringP("comment", "c", "", "Key comment (required)")
	cmd.Flags().StringP("algorithm", "a", string(model.AlgorithmEd25519), "Algorithm: rsa, dsa, ecdsa or ed25519")
	cmd.Flags().IntP("bits", "b", 0, "Key size in bits (0 selects the algorithm default)")
	return cmd
}

func newKeyImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <private-key-file|->",
		Short: "Import an existing private key",
		Long: `Imports an unencrypted private key (OpenSSH, PKCS#1, PKCS#8, SEC1 or DSA PEM).
Without --name the key is named after its embedded comment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				k, err := s.keys.Import(ctx, tok, core.ImportRequest{Name: name, Private: string(data)})
				if err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.imported", k.Name, k.Algorithm, k.Bits))
				return nil
			})
		},
	}
	cmd.Flags().StringP("name", "n", "", "Key name (derived from the key comment when omitted)")
	return cmd
}

func newKeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				// Resolve first so an anonymous caller is not asked to confirm.
				if _, err := s.keys.Get(ctx, tok, args[0]); err != nil {
					return describe(err)
				}
				if !yes {
					ok, err := confirm(cmd, i18n.T("cli.key.delete_confirm", args[0]))
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.aborted"))
						return nil
					}
				}
				if err := s.keys.Delete(ctx, tok, args[0]); err != nil {
					return describe(err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.deleted", args[0]))
				return nil
			})
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newKeyPublicCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "public <name>",
		Short: "Print a public key in authorized_keys format",
		Long: `Prints the public key of one of your keys. With --user any user's key is
looked up without logging in, like the public key URLs of the web API.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, _ := cmd.Flags().GetString("user")
			output, _ := cmd.Flags().GetString("output")
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				pub, err := publicKey(ctx, s, tok, user, args[0])
				if err != nil {
					return err
				}
				if output != "" {
					if err := os.WriteFile(output, []byte(pub+"\n"), 0o644); err != nil {
						return fmt.Errorf("write %s: %w", output, err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.written", output))
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), pub)
				return nil
			})
		},
	}
	cmd.Flags().StringP("user", "u", "", "Look up the key of this user instead of your own")
	cmd.Flags().StringP("output", "o", "", "Write the key to this file (e.g. <name>.pub)")
	return cmd
}

func publicKey(ctx context.Context, s *services, tok model.IdentityToken, user, name string) (string, error) {
	if user != "" {
		pub, err := s.keys.PublicKey(ctx, user, name)
		if err != nil {
			return "", describe(err)
		}
		return pub, nil
	}
	k, err := s.keys.Get(ctx, tok, name)
	if err != nil {
		return "", describe(err)
	}
	return k.Public, nil
}

func newKeyCopyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "copy <name>",
		Short: "Copy a public (or private) key to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withPrivate, _ := cmd.Flags().GetBool("private")
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				k, err := s.keys.Get(ctx, tok, args[0])
				if err != nil {
					return describe(err)
				}
				text, what := k.Public, "public"
				if withPrivate {
					text, what = k.Private, "private"
				}
				if err := clipboardWrite(text); err != nil {
					return fmt.Errorf("%s", i18n.T("cli.key.clipboard_failed", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.key.copied", what, k.Name))
				return nil
			})
		},
	}
	cmd.Flags().Bool("private", false, "Copy the private key instead of the public key")
	return cmd
}
