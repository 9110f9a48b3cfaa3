// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/logging"
	"github.com/toeirei/ringwork/internal/reaper"
	"github.com/toeirei/ringwork/internal/web"
)

// newServer builds the HTTP server from appConfig on top of s.
func newServer(s *services) (*web.Server, error) {
	handler := web.NewHandler(s.sessions, s.keys, web.CookieConfig{
		Secure:    appConfig.Session.CookieSecure,
		SecretTTL: appConfig.Session.TTL,
	})
	return web.New(&web.HTTPServerConfig{
		ListenAddr:               appConfig.Server.ListenAddr,
		Quiet:                    appConfig.Server.Quiet,
		ReadTimeout:              appConfig.Server.ReadTimeout,
		WriteTimeout:             appConfig.Server.WriteTimeout,
		GracefulShutdownDuration: appConfig.Server.ShutdownTimeout,
	}, handler)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web API",
		Long: `Starts the HTTP server with the session and key API and the public key
URLs (/api/ssh/pub/raw/<user>/<key> and /api/ssh/pub/download/<user>/<key>).
Expired sessions are removed in the background. SIGINT or SIGTERM shuts the
server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen-addr") {
				appConfig.Server.ListenAddr, _ = cmd.Flags().GetString("listen-addr")
			}
			if cmd.Flags().Changed("quiet") {
				appConfig.Server.Quiet, _ = cmd.Flags().GetBool("quiet")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withServices(func(s *services) error {
				srv, err := newServer(s)
				if err != nil {
					return err
				}
				reaped := reaper.Start(ctx, s.accounts, appConfig.Session.ReapInterval)
				errCh := srv.RunInBackground()
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.serve.listening", appConfig.Server.ListenAddr))

				var runErr error
				select {
				case <-ctx.Done():
					logging.Infof("shutting down")
				case err, ok := <-errCh:
					if ok {
						runErr = err
					}
				}
				stop()
				srv.Shutdown()
				<-reaped
				return runErr
			})
		},
	}
	cmd.Flags().String("listen-addr", "", "Address to listen on (host:port), overrides server.listen_addr")
	cmd.Flags().Bool("quiet", true, "Suppress the per-request access log")
	return cmd
}

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail of logins and key changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return withServices(func(s *services) error {
				entries, err := s.audit.Entries(context.Background(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.audit.none"))
					return nil
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "TIMESTAMP\tUSER\tACTION\tDETAILS")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Username, e.Action, e.Details)
				}
				return w.Flush()
			})
		},
	}
	cmd.Flags().IntP("limit", "n", 50, "Number of entries to show (0 shows all)")
	return cmd
}

func newDBMaintainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db-maintain",
		Short: "Run database maintenance (VACUUM/ANALYZE/OPTIMIZE) and purge expired sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return withServices(func(s *services) error {
				removed := reaper.Sweep(ctx, s.accounts)
				if err := s.store.RunDBMaintenance(ctx); err != nil {
					return fmt.Errorf("%s", i18n.T("cli.db.maintenance_failed", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.db.maintenance_done", removed))
				return nil
			})
		},
	}
	cmd.Flags().Duration("timeout", 0, "Abort maintenance after this long (0 means no timeout)")
	return cmd
}
