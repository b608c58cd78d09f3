package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/subaccounts/notes-server/internal/backup"
	"github.com/subaccounts/notes-server/internal/config"
)

// version is reported in backup manifests.
var version = "dev"

func newBackupCmd(opts *rootOptions) *cobra.Command {
	var backupDir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backups of the data directory",
	}
	cmd.PersistentFlags().StringVar(&backupDir, "backup-dir", "", "Backup directory (default: backups next to the data directory)")

	resolveDir := func() (string, error) {
		if backupDir != "" {
			return backupDir, nil
		}
		path, err := config.ResolveDataPath(opts.dataPath)
		if err != nil {
			return "", err
		}
		return filepath.Join(filepath.Dir(path), "backups"), nil
	}

	var output string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Write a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolveDir()
			if err != nil {
				return err
			}
			kv, err := opts.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			result, err := backup.NewBackupService(kv, dir, version, opts.log()).
				Create(cmd.Context(), backup.BackupOptions{OutputPath: output})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result)
			}
			fmt.Fprintf(out, "Backup written: %s (%d bytes)\n", result.Path, result.Size)
			fmt.Fprintf(out, "  notes: %d, ledgers: %d, transactions: %d, purchase lists: %d\n",
				result.Counts.Notes, result.Counts.Ledgers, result.Counts.Transactions, result.Counts.PurchaseLists)
			fmt.Fprintf(out, "  sha256: %s\n", result.Checksum)
			return nil
		},
	}
	createCmd.Flags().StringVarP(&output, "output", "o", "", "Archive path (default: timestamped file in the backup directory)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolveDir()
			if err != nil {
				return err
			}

			// Listing reads only the backup directory.
			backups, err := backup.NewBackupService(nil, dir, version, opts.log()).List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, backups)
			}
			if len(backups) == 0 {
				fmt.Fprintln(out, "No backups")
				return nil
			}
			for _, b := range backups {
				fmt.Fprintf(out, "%s  %s  %d bytes\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Size)
			}
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate [path]",
		Short: "Check a backup archive without restoring it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := backup.NewRestoreService(nil, opts.log()).Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result)
			}
			for _, w := range result.Warnings {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if !result.Valid {
				for _, e := range result.Errors {
					fmt.Fprintf(out, "error: %s\n", e)
				}
				return fmt.Errorf("backup %s is not valid", args[0])
			}
			fmt.Fprintf(out, "Backup is valid: %d notes, %d transactions\n",
				result.ExpectedCounts.Notes, result.ExpectedCounts.Transactions)
			return nil
		},
	}

	var (
		mode     string
		strategy string
		dryRun   bool
	)
	restoreCmd := &cobra.Command{
		Use:   "restore [path]",
		Short: "Restore a backup archive into the data directory",
		Long: `restore loads notes, ledgers and purchase records from an archive.
--mode full replaces everything; --mode merge keeps existing data and
resolves ID collisions with --strategy.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := opts.openStore()
			if err != nil {
				return err
			}
			defer kv.Close()

			result, err := backup.NewRestoreService(kv, opts.log()).Restore(cmd.Context(), args[0], backup.RestoreOptions{
				Mode:          backup.RestoreMode(mode),
				MergeStrategy: backup.MergeStrategy(strategy),
				DryRun:        dryRun,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, result)
			}
			prefix := "Restored"
			if dryRun {
				prefix = "Would restore"
			}
			fmt.Fprintf(out, "%s %d notes, %d transactions, %d purchase lists\n", prefix,
				result.Imported.Notes, result.Imported.Transactions, result.Imported.Purchases)
			for _, e := range result.Errors {
				fmt.Fprintf(out, "skipped %s %s: %s\n", e.EntityType, e.EntityID, e.Error)
			}
			return nil
		},
	}
	restoreCmd.Flags().StringVar(&mode, "mode", string(backup.RestoreModeMerge), "Restore mode: full or merge")
	restoreCmd.Flags().StringVar(&strategy, "strategy", string(backup.MergeKeepLocal), "Merge conflict strategy: keep_local, keep_backup or newest")
	restoreCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Read the archive without writing")

	cmd.AddCommand(createCmd, listCmd, validateCmd, restoreCmd)
	return cmd
}
