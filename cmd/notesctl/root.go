package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/subaccounts/notes-server/internal/config"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/logger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/store"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	dataPath string
	verbose  bool
	json     bool
	logger   *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notesctl",
		Short: "Inspect and maintain the Sub Account notes data directory",
		Long: `notesctl opens the notes server's key-value store directly.
It lists and deletes notes, reads and clears transaction ledgers,
seeds the sample public notes, dumps raw keys and manages backups.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			opts.logger = logger.New(logger.Config{
				Writer:  cmd.ErrOrStderr(),
				Level:   level,
				NoColor: os.Getenv("NO_COLOR") != "",
			}).Logger
		},
	}

	cmd.PersistentFlags().StringVar(&opts.dataPath, "data-path", os.Getenv("DATA_PATH"), "Store directory (default ~/SubAccountNotes/data)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Output in JSON format")

	cmd.AddCommand(
		newNotesCmd(opts),
		newLedgerCmd(opts),
		newSeedCmd(opts),
		newInspectCmd(opts),
		newBackupCmd(opts),
	)
	return cmd
}

// openStore opens the configured data directory.
func (o *rootOptions) openStore() (*store.Store, error) {
	path, err := config.ResolveDataPath(o.dataPath)
	if err != nil {
		return nil, err
	}
	o.log().Debug("opening store", "path", path)
	return store.New(path, o.log())
}

// repository builds a note repository that never seeds on read.
func (o *rootOptions) repository(kv store.KeyValue) *notes.Repository {
	return notes.NewRepository(kv, o.log(), notes.WithSampleSeeding(false))
}

func (o *rootOptions) ledger(kv store.KeyValue) *ledger.Ledger {
	return ledger.New(kv, o.log())
}

func (o *rootOptions) log() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
