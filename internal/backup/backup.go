package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/subaccounts/notes-server/internal/backup/stream"
	"github.com/subaccounts/notes-server/internal/codec"
	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/store"
)

// Store is the key-value surface backups read and write.
type Store interface {
	store.KeyValue
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// BackupService writes archives of the note store into a backup directory
// and catalogues the archives found there.
type BackupService struct {
	store   Store
	dir     string
	version string // recorded in the manifest
	logger  *slog.Logger
}

// NewBackupService creates a BackupService. s may be nil when only the
// catalogue is needed.
func NewBackupService(s Store, dir, version string, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BackupService{store: s, dir: dir, version: version, logger: logger}
}

// Create writes an archive of every note, ledger and purchase list.
func (s *BackupService) Create(ctx context.Context, opts BackupOptions) (*BackupResult, error) {
	path := opts.OutputPath
	if path == "" {
		if err := os.MkdirAll(s.dir, 0o750); err != nil {
			return nil, fmt.Errorf("create backup dir: %w", err)
		}
		path = s.nextPath(time.Now())
	}

	result, err := s.export(ctx, path)
	if err != nil {
		s.logger.Error("backup failed", "path", path, "error", err)
		return nil, err
	}

	s.logger.Info("backup written",
		"path", result.Path,
		"notes", result.Counts.Notes,
		"transactions", result.Counts.Transactions,
		"bytes", result.Size,
		"took", result.Duration)
	return result, nil
}

// export writes the archive to a temp file and renames it on success.
func (s *BackupService) export(ctx context.Context, outputPath string) (*BackupResult, error) {
	start := time.Now()

	tmpPath := outputPath + ".partial"
	f, err := os.Create(tmpPath) //#nosec G304 -- operator chosen path
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	zw := zip.NewWriter(io.MultiWriter(f, hash))

	manifest := &Manifest{
		Version:       FormatVersion,
		CreatedAt:     time.Now().UTC(),
		ServerVersion: s.version,
	}

	steps := []struct {
		name string
		fn   func(context.Context, *zip.Writer, *EntityCounts) error
	}{
		{"notes", s.exportNotes},
		{"ledgers", s.exportLedgers},
		{"purchases", s.exportPurchases},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.fn(ctx, zw, &manifest.Counts); err != nil {
			return nil, fmt.Errorf("export %s: %w", step.name, err)
		}
	}

	// The manifest goes last so it carries the final counts.
	w, err := zw.Create(manifestFile)
	if err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := json.NewEncoder(w).Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close file: %w", err)
	}

	if err := os.Rename(tmpPath, outputPath); err != nil {
		return nil, fmt.Errorf("rename backup: %w", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, err
	}

	return &BackupResult{
		Path:     outputPath,
		Size:     info.Size(),
		Counts:   manifest.Counts,
		Duration: time.Since(start),
		Checksum: hex.EncodeToString(hash.Sum(nil)),
	}, nil
}

func (s *BackupService) exportNotes(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	raw, ok, err := s.store.Read(ctx, store.NotesKey)
	if err != nil {
		return err
	}
	notes, err := codec.Notes(s.logger).DecodeStrict(raw, ok)
	if err != nil {
		return err
	}

	w, err := stream.Create[domain.Note](zw, notesFile)
	if err != nil {
		return err
	}
	for _, n := range notes {
		if err := w.Write(n.Persisted()); err != nil {
			return err
		}
	}
	counts.Notes = w.Count()
	return nil
}

func (s *BackupService) exportLedgers(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	w, err := stream.Create[LedgerEntry](zw, ledgersFile)
	if err != nil {
		return err
	}

	txCodec := codec.Transactions(s.logger)
	err = s.eachAccount(ctx, store.TransactionsPrefix, func(account, raw string) error {
		records, err := txCodec.DecodeStrict(raw, true)
		if err != nil {
			return fmt.Errorf("ledger %s: %w", account, err)
		}
		counts.Transactions += len(records)
		return w.Write(LedgerEntry{Account: account, Transactions: records})
	})
	counts.Ledgers = w.Count()
	return err
}

func (s *BackupService) exportPurchases(ctx context.Context, zw *zip.Writer, counts *EntityCounts) error {
	w, err := stream.Create[PurchaseEntry](zw, purchasesFile)
	if err != nil {
		return err
	}

	idCodec := codec.NoteIDs(s.logger)
	err = s.eachAccount(ctx, store.PurchasesPrefix, func(account, raw string) error {
		ids, err := idCodec.DecodeStrict(raw, true)
		if err != nil {
			return fmt.Errorf("purchases %s: %w", account, err)
		}
		return w.Write(PurchaseEntry{Account: account, NoteIDs: ids})
	})
	counts.PurchaseLists = w.Count()
	return err
}

// eachAccount calls fn with the account suffix and value of every key under prefix.
func (s *BackupService) eachAccount(ctx context.Context, prefix string, fn func(account, raw string) error) error {
	keys, err := s.store.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	slices.Sort(keys)

	for _, key := range keys {
		raw, ok, err := s.store.Read(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(strings.TrimPrefix(key, prefix), raw); err != nil {
			return err
		}
	}
	return nil
}
