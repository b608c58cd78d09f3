package backup

import (
	"archive/zip"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/subaccounts/notes-server/internal/backup/stream"
	"github.com/subaccounts/notes-server/internal/codec"
	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/store"
)

// Entity type names used in restore counts.
const (
	entityNotes        = "notes"
	entityTransactions = "transactions"
	entityPurchases    = "purchases"
)

// RestoreService restores from backups.
type RestoreService struct {
	store  Store
	logger *slog.Logger
}

// NewRestoreService creates a RestoreService.
func NewRestoreService(s Store, logger *slog.Logger) *RestoreService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RestoreService{store: s, logger: logger}
}

// archive is the decoded content of a backup file.
type archive struct {
	manifest  Manifest
	notes     []domain.Note
	ledgers   []LedgerEntry
	purchases []PurchaseEntry
}

// Restore restores from a backup file.
func (s *RestoreService) Restore(ctx context.Context, path string, opts RestoreOptions) (*RestoreResult, error) {
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("unknown restore mode %q", opts.Mode)
	}
	if !opts.MergeStrategy.Valid() {
		return nil, fmt.Errorf("unknown merge strategy %q", opts.MergeStrategy)
	}
	if opts.MergeStrategy == "" {
		opts.MergeStrategy = MergeKeepLocal
	}
	if opts.LedgerCap <= 0 {
		opts.LedgerCap = ledger.DefaultCap
	}

	s.logger.Info("starting restore",
		"path", path,
		"mode", opts.Mode,
		"merge_strategy", opts.MergeStrategy,
		"dry_run", opts.DryRun)

	start := time.Now()
	result := &RestoreResult{}

	a, err := s.read(path, result)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		result.Imported.Notes = len(a.notes)
		for _, l := range a.ledgers {
			result.Imported.Transactions += len(l.Transactions)
		}
		result.Imported.Purchases = len(a.purchases)
		result.Duration = time.Since(start)
		return result, nil
	}

	if opts.Mode == RestoreModeFull {
		if err := s.wipe(ctx); err != nil {
			return nil, fmt.Errorf("clear existing data: %w", err)
		}
	}

	if err := s.restoreNotes(ctx, a.notes, opts.MergeStrategy, result); err != nil {
		return nil, fmt.Errorf("restore notes: %w", err)
	}
	for _, entry := range a.ledgers {
		if err := s.restoreLedger(ctx, entry, opts, result); err != nil {
			return nil, fmt.Errorf("restore ledger %s: %w", entry.Account, err)
		}
	}
	for _, entry := range a.purchases {
		if err := s.restorePurchases(ctx, entry, result); err != nil {
			return nil, fmt.Errorf("restore purchases %s: %w", entry.Account, err)
		}
	}

	result.Duration = time.Since(start)
	s.logger.Info("restore complete",
		"notes", result.Imported.Notes,
		"transactions", result.Imported.Transactions,
		"skipped_notes", result.Skipped.Notes,
		"errors", len(result.Errors),
		"duration", result.Duration)

	return result, nil
}

// read opens path, checks the manifest and decodes every entity. Entities
// that fail validation are reported in result and left out.
func (s *RestoreService) read(path string, result *RestoreResult) (*archive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open backup: %w", err)
	}
	defer zr.Close()

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		return nil, err
	}
	if manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %s", ErrVersionMismatch, manifest.Version)
	}

	a := &archive{manifest: *manifest}

	a.notes, err = readEntities(&zr.Reader, notesFile, entityNotes, result, func(n domain.Note) (string, error) {
		return n.ID, codec.ValidateNote(n)
	})
	if err != nil {
		return nil, err
	}

	a.ledgers, err = readEntities(&zr.Reader, ledgersFile, entityTransactions, result, func(l LedgerEntry) (string, error) {
		if l.Account == "" {
			return "", errors.New("ledger without account")
		}
		for _, r := range l.Transactions {
			if err := codec.ValidateTransaction(r); err != nil {
				return l.Account, err
			}
		}
		return l.Account, nil
	})
	if err != nil {
		return nil, err
	}

	a.purchases, err = readEntities(&zr.Reader, purchasesFile, entityPurchases, result, func(p PurchaseEntry) (string, error) {
		if p.Account == "" {
			return "", errors.New("purchase list without account")
		}
		return p.Account, nil
	})
	if err != nil {
		return nil, err
	}

	if len(a.notes) != manifest.Counts.Notes && len(result.Errors) == 0 {
		return nil, fmt.Errorf("%w: manifest lists %d notes, archive holds %d",
			ErrCorruptedBackup, manifest.Counts.Notes, len(a.notes))
	}
	return a, nil
}

func readManifest(zr *zip.Reader) (*Manifest, error) {
	rc, err := stream.Open(zr, manifestFile)
	if err != nil {
		return nil, ErrInvalidManifest
	}
	defer rc.Close()

	var manifest Manifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	return &manifest, nil
}

// readEntities decodes one JSONL file. A missing file yields no entities.
func readEntities[T any](zr *zip.Reader, file, entityType string, result *RestoreResult, check func(T) (string, error)) ([]T, error) {
	rc, err := stream.Open(zr, file)
	if errors.Is(err, stream.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []T
	for entity, err := range stream.Lines[T](rc) {
		if err != nil {
			result.Errors = append(result.Errors, RestoreError{EntityType: entityType, Error: err.Error()})
			continue
		}
		if id, err := check(entity); err != nil {
			result.Errors = append(result.Errors, RestoreError{EntityType: entityType, EntityID: id, Error: err.Error()})
			continue
		}
		out = append(out, entity)
	}
	return out, nil
}

// wipe removes every note, ledger and purchase record.
func (s *RestoreService) wipe(ctx context.Context) error {
	if err := s.store.Remove(ctx, store.NotesKey); err != nil {
		return err
	}
	for _, prefix := range []string{store.TransactionsPrefix, store.PurchasesPrefix} {
		keys, err := s.store.Keys(ctx, prefix)
		if err != nil {
			return err
		}
		for _, key := range keys {
			if err := s.store.Remove(ctx, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RestoreService) restoreNotes(ctx context.Context, incoming []domain.Note, strategy MergeStrategy, result *RestoreResult) error {
	notesCodec := codec.Notes(s.logger)

	// Update may re-run fn on a write conflict, so counts are taken from the last run.
	var imported, skipped int
	err := s.store.Update(ctx, store.NotesKey, func(current string, ok bool) (string, bool, error) {
		local, err := notesCodec.DecodeStrict(current, ok)
		if err != nil {
			return "", false, err
		}

		var merged []domain.Note
		merged, imported, skipped = mergeByID(local, incoming, strategy,
			func(n domain.Note) string { return n.ID },
			func(n domain.Note) int64 { return n.Updated })

		encoded, err := notesCodec.Encode(merged)
		return encoded, false, err
	})
	if err != nil {
		return err
	}

	result.Imported.Notes += imported
	result.Skipped.Notes += skipped
	return nil
}

func (s *RestoreService) restoreLedger(ctx context.Context, entry LedgerEntry, opts RestoreOptions, result *RestoreResult) error {
	txCodec := codec.Transactions(s.logger)

	var imported, skipped int
	err := s.store.Update(ctx, store.TransactionsKey(entry.Account), func(current string, ok bool) (string, bool, error) {
		local, err := txCodec.DecodeStrict(current, ok)
		if err != nil {
			return "", false, err
		}

		var merged []domain.TransactionRecord
		merged, imported, skipped = mergeByID(local, entry.Transactions, opts.MergeStrategy,
			func(r domain.TransactionRecord) string { return r.ID },
			func(r domain.TransactionRecord) int64 { return r.Timestamp })

		// Ledgers stay newest first and bounded.
		slices.SortStableFunc(merged, func(a, b domain.TransactionRecord) int {
			return cmp.Compare(b.Timestamp, a.Timestamp)
		})
		if len(merged) > opts.LedgerCap {
			merged = merged[:opts.LedgerCap]
		}

		encoded, err := txCodec.Encode(merged)
		return encoded, false, err
	})
	if err != nil {
		return err
	}

	result.Imported.Transactions += imported
	result.Skipped.Transactions += skipped
	return nil
}

func (s *RestoreService) restorePurchases(ctx context.Context, entry PurchaseEntry, result *RestoreResult) error {
	idCodec := codec.NoteIDs(s.logger)
	err := s.store.Update(ctx, store.PurchasesKey(entry.Account), func(current string, ok bool) (string, bool, error) {
		ids, err := idCodec.DecodeStrict(current, ok)
		if err != nil {
			return "", false, err
		}
		for _, id := range entry.NoteIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}

		encoded, err := idCodec.Encode(ids)
		return encoded, false, err
	})
	if err != nil {
		return err
	}

	result.Imported.Purchases++
	return nil
}

// mergeByID adds incoming items to local. On an ID collision strategy picks
// the surviving version; version orders items for MergeNewest.
func mergeByID[T any](local, incoming []T, strategy MergeStrategy, id func(T) string, version func(T) int64) (merged []T, imported, skipped int) {
	merged = slices.Clone(local)
	index := make(map[string]int, len(merged))
	for i, item := range merged {
		index[id(item)] = i
	}

	for _, item := range incoming {
		i, exists := index[id(item)]
		if !exists {
			index[id(item)] = len(merged)
			merged = append(merged, item)
			imported++
			continue
		}

		replace := false
		switch strategy {
		case MergeKeepBackup:
			replace = true
		case MergeNewest:
			replace = version(item) > version(merged[i])
		}
		if replace {
			merged[i] = item
			imported++
		} else {
			skipped++
		}
	}
	return merged, imported, skipped
}

// Validate checks a backup without importing.
func (s *RestoreService) Validate(_ context.Context, path string) (*ValidationResult, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []string{fmt.Sprintf("failed to open backup: %v", err)},
		}, nil
	}
	defer zr.Close()

	result := &ValidationResult{Valid: true}

	manifest, err := readManifest(&zr.Reader)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result, nil
	}

	result.Manifest = manifest
	result.ExpectedCounts = manifest.Counts

	if manifest.Version != FormatVersion {
		result.Valid = false
		result.Errors = append(result.Errors,
			fmt.Sprintf("unsupported version %s (want %s)", manifest.Version, FormatVersion))
	}

	for _, file := range []string{notesFile, ledgersFile, purchasesFile} {
		rc, err := stream.Open(&zr.Reader, file)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("missing file: %s", file))
			continue
		}
		rc.Close()
	}

	return result, nil
}
