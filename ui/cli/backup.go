// Copyright (c) 2026 Ringwork Team
// Ringwork - SSH key portal
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
	"github.com/toeirei/ringwork/internal/core"
	"github.com/toeirei/ringwork/internal/i18n"
	"github.com/toeirei/ringwork/internal/model"
)

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Export your ring to a compressed (zstd) JSON file",
		Long: `Writes the name and private key of every key in your ring to a single
Zstandard-compressed JSON file. Everything else is derived again on restore.

If an output file is specified, '.zst' will be appended to the name if it's not already present.
If no output file is specified, 'ringwork-backup-<user>-YYYY-MM-DD.json.zst' is used.

The file contains unencrypted private keys; store it accordingly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				profile, err := s.sessions.Resolve(ctx, tok)
				if err != nil {
					return describe(core.ErrLoginRequired)
				}
				items, err := s.keys.List(ctx, tok)
				if err != nil {
					return describe(err)
				}

				outputFile := fmt.Sprintf("ringwork-backup-%s-%s.json.zst", profile.Username, time.Now().Format("2006-01-02"))
				if len(args) > 0 {
					outputFile = args[0]
					if !strings.HasSuffix(outputFile, ".zst") {
						outputFile += ".zst"
					}
				}

				data := model.RingBackup{SchemaVersion: model.RingBackupVersion, Username: profile.Username}
				for _, k := range items {
					data.Keys = append(data.Keys, model.RingBackupEntry{Name: k.Name, Private: k.Private})
				}
				if err := writeCompressedBackup(outputFile, &data); err != nil {
					return fmt.Errorf("%s", i18n.T("cli.backup.error_write", err))
				}
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.backup.success", len(data.Keys), outputFile))
				return nil
			})
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Import the keys of a backup into your ring",
		Long: `Imports every key of a backup created with 'ringwork backup' into the ring of
the logged in user. Keys whose name is already taken are reported and skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCompressedBackup(args[0])
			if err != nil {
				return fmt.Errorf("%s", i18n.T("cli.restore.error_read", err))
			}
			if data.SchemaVersion > model.RingBackupVersion {
				return fmt.Errorf("%s", i18n.T("cli.restore.unsupported_version", data.SchemaVersion))
			}
			return withSession(func(ctx context.Context, s *services, tok model.IdentityToken) error {
				res, err := restoreRing(ctx, s.keys, tok, data)
				if err != nil {
					return describe(err)
				}
				out := cmd.OutOrStdout()
				for _, name := range res.skipped {
					fmt.Fprintln(out, i18n.T("cli.restore.skipped", name))
				}
				for _, f := range res.failed {
					fmt.Fprintln(out, i18n.T("cli.restore.failed", f.name, describe(f.err)))
				}
				fmt.Fprintln(out, i18n.T("cli.restore.summary", res.imported, len(res.skipped), len(res.failed)))
				if len(res.failed) > 0 {
					return errors.New(i18n.T("cli.restore.incomplete"))
				}
				return nil
			})
		},
	}
}

type restoreFailure struct {
	name string
	err  error
}

// restoreResult lists skipped and failed entries in backup order.
type restoreResult struct {
	imported int
	skipped  []string
	failed   []restoreFailure
}

// restoreRing imports every backup entry through the orchestrator so the
// usual validation applies. A missing login aborts the whole restore.
func restoreRing(ctx context.Context, keys *core.Orchestrator, tok model.IdentityToken, data *model.RingBackup) (restoreResult, error) {
	var res restoreResult
	for _, entry := range data.Keys {
		_, err := keys.Import(ctx, tok, core.ImportRequest{Name: entry.Name, Private: entry.Private})
		switch {
		case err == nil:
			res.imported++
		case errors.Is(err, core.ErrConflict):
			res.skipped = append(res.skipped, entry.Name)
		case errors.Is(err, core.ErrLoginRequired):
			return res, err
		default:
			res.failed = append(res.failed, restoreFailure{name: entry.Name, err: err})
		}
	}
	return res, nil
}

// writeCompressedBackup streams data as indented JSON through a zstd writer.
func writeCompressedBackup(filename string, data *model.RingBackup) error {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := encodeBackup(file, data); err != nil {
		return err
	}
	return file.Close()
}

func encodeBackup(w io.Writer, data *model.RingBackup) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	encoder := json.NewEncoder(zw)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// readCompressedBackup reads and decodes a zstd-compressed JSON backup.
func readCompressedBackup(filename string) (*model.RingBackup, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = file.Close() }()
	return decodeBackup(file)
}

func decodeBackup(r io.Reader) (*model.RingBackup, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zr.Close()

	var data model.RingBackup
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}
