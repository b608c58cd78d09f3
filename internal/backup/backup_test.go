package backup_test

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaccounts/notes-server/internal/backup"
	"github.com/subaccounts/notes-server/internal/domain"
	"github.com/subaccounts/notes-server/internal/ledger"
	"github.com/subaccounts/notes-server/internal/notes"
	"github.com/subaccounts/notes-server/internal/store"
)

const (
	alice = "0xA11CE00000000000000000000000000000000001"
	bob   = "0xB0B0000000000000000000000000000000000002"
)

type fixture struct {
	store     *store.Store
	repo      *notes.Repository
	ledger    *ledger.Ledger
	backups   *backup.BackupService
	restores  *backup.RestoreService
	backupDir string
}

// testSetup creates an in-memory store and backup/restore services.
func testSetup(t *testing.T) *fixture {
	t.Helper()

	s, err := store.NewInMemory(nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	backupDir := filepath.Join(t.TempDir(), "backups")

	return &fixture{
		store:     s,
		repo:      notes.NewRepository(s, nil),
		ledger:    ledger.New(s, nil),
		backups:   backup.NewBackupService(s, backupDir, "test", nil),
		restores:  backup.NewRestoreService(s, nil),
		backupDir: backupDir,
	}
}

// populate writes two notes, a purchase and a ledger for bob.
func (f *fixture) populate(t *testing.T) domain.Note {
	t.Helper()
	ctx := context.Background()

	priced, err := f.repo.Create(ctx, domain.NoteDraft{
		Title: "Paid", Content: "secret", IsPublic: true, PublicPrice: "0.0001",
	}, alice)
	require.NoError(t, err)

	_, err = f.repo.Create(ctx, domain.NoteDraft{Title: "Private", Content: "mine"}, alice)
	require.NoError(t, err)

	_, err = f.repo.Purchase(ctx, priced.ID, bob)
	require.NoError(t, err)

	_, err = f.ledger.Append(ctx, bob, domain.TransactionInput{
		Hash: "0xpaid", Type: domain.TransactionSend, Details: "Purchased note", NoteID: priced.ID,
	})
	require.NoError(t, err)

	return priced
}

func TestBackup_CreateListValidate(t *testing.T) {
	f := testSetup(t)
	f.populate(t)
	ctx := context.Background()

	result, err := f.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	assert.FileExists(t, result.Path)
	assert.Positive(t, result.Size)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, backup.EntityCounts{Notes: 3, Ledgers: 1, Transactions: 1, PurchaseLists: 1}, result.Counts)

	list, err := f.backups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, result.Path, list[0].Path)

	info, err := f.backups.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, result.Size, info.Size)

	validation, err := f.restores.Validate(ctx, result.Path)
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Empty(t, validation.Warnings)
	assert.Equal(t, result.Counts, validation.ExpectedCounts)
}

func TestBackup_GetAndDeleteMissing(t *testing.T) {
	f := testSetup(t)
	ctx := context.Background()

	_, err := f.backups.Get(ctx, "nope")
	assert.ErrorIs(t, err, backup.ErrBackupNotFound)
	assert.ErrorIs(t, f.backups.Delete(ctx, "nope"), backup.ErrBackupNotFound)

	list, err := f.backups.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	for _, id := range []string{"", "../outside", "sub/dir", ".hidden"} {
		_, err := f.backups.Get(ctx, id)
		assert.ErrorIs(t, err, backup.ErrBackupNotFound, "id %q", id)
	}
}

func TestBackup_SameSecondNamesDoNotCollide(t *testing.T) {
	f := testSetup(t)
	f.populate(t)
	ctx := context.Background()

	first, err := f.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	second, err := f.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Path, second.Path)

	list, err := f.backups.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, info := range list {
		assert.WithinDuration(t, time.Now(), info.CreatedAt, time.Minute)
	}
	require.NoError(t, f.backups.Delete(ctx, list[0].ID))
	list, err = f.backups.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRestore_FullIntoEmptyStore(t *testing.T) {
	src := testSetup(t)
	priced := src.populate(t)
	ctx := context.Background()

	created, err := src.backups.Create(ctx, backup.BackupOptions{
		OutputPath: filepath.Join(t.TempDir(), "snapshot.notes.zip"),
	})
	require.NoError(t, err)

	dst := testSetup(t)
	// Pre-existing data is wiped by a full restore.
	_, err = dst.repo.Create(ctx, domain.NoteDraft{Title: "Stale", Content: "gone"}, bob)
	require.NoError(t, err)

	result, err := dst.restores.Restore(ctx, created.Path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported.Notes)
	assert.Equal(t, 1, result.Imported.Transactions)
	assert.Equal(t, 1, result.Imported.Purchases)
	assert.Empty(t, result.Errors)

	all, err := dst.repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	feed, err := dst.repo.ListPublicOthers(ctx, bob)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, priced.ID, feed[0].ID)
	assert.True(t, feed[0].Unlocked)

	records, err := dst.ledger.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0xpaid", records[0].Hash)
}

func TestRestore_MergeStrategies(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		strategy  backup.MergeStrategy
		wantTitle string
		imported  int
		skipped   int
	}{
		{backup.MergeKeepLocal, "Local edit", 0, 1},
		{backup.MergeKeepBackup, "Original", 1, 0},
		{backup.MergeNewest, "Local edit", 0, 1},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			f := testSetup(t)
			note, err := f.repo.Create(ctx, domain.NoteDraft{Title: "Original", Content: "body"}, alice)
			require.NoError(t, err)

			created, err := f.backups.Create(ctx, backup.BackupOptions{})
			require.NoError(t, err)

			// The local edit is newer than the backed-up version.
			time.Sleep(2 * time.Millisecond)
			title := "Local edit"
			_, err = f.repo.Update(ctx, note.ID, domain.NotePatch{Title: &title})
			require.NoError(t, err)

			result, err := f.restores.Restore(ctx, created.Path, backup.RestoreOptions{
				Mode:          backup.RestoreModeMerge,
				MergeStrategy: tt.strategy,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.imported, result.Imported.Notes)
			assert.Equal(t, tt.skipped, result.Skipped.Notes)

			got, err := f.repo.Get(ctx, note.ID, alice)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, got.Title)
		})
	}
}

func TestRestore_MergeKeepsLedgerBounded(t *testing.T) {
	f := testSetup(t)
	ctx := context.Background()

	for range 3 {
		_, err := f.ledger.Append(ctx, bob, domain.TransactionInput{Hash: "0xold", Type: domain.TransactionSign})
		require.NoError(t, err)
	}
	created, err := f.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	require.NoError(t, f.ledger.Clear(ctx, bob))
	fresh, err := f.ledger.Append(ctx, bob, domain.TransactionInput{Hash: "0xnew", Type: domain.TransactionSign})
	require.NoError(t, err)

	_, err = f.restores.Restore(ctx, created.Path, backup.RestoreOptions{
		Mode:      backup.RestoreModeMerge,
		LedgerCap: 2,
	})
	require.NoError(t, err)

	records, err := f.ledger.List(ctx, bob)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, fresh.ID, records[0].ID)
}

func TestRestore_DryRunWritesNothing(t *testing.T) {
	src := testSetup(t)
	src.populate(t)
	ctx := context.Background()

	created, err := src.backups.Create(ctx, backup.BackupOptions{})
	require.NoError(t, err)

	dst := testSetup(t)
	result, err := dst.restores.Restore(ctx, created.Path, backup.RestoreOptions{
		Mode:   backup.RestoreModeFull,
		DryRun: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Imported.Notes)

	all, err := dst.repo.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestRestore_RejectsBadArchives(t *testing.T) {
	f := testSetup(t)
	ctx := context.Background()
	dir := t.TempDir()

	writeZip := func(name string, files map[string]string) string {
		path := filepath.Join(dir, name)
		out, err := os.Create(path)
		require.NoError(t, err)
		zw := zip.NewWriter(out)
		for file, content := range files {
			w, err := zw.Create(file)
			require.NoError(t, err)
			_, err = w.Write([]byte(content))
			require.NoError(t, err)
		}
		require.NoError(t, zw.Close())
		require.NoError(t, out.Close())
		return path
	}

	t.Run("missing manifest", func(t *testing.T) {
		path := writeZip("empty.zip", map[string]string{"notes.jsonl": ""})
		_, err := f.restores.Restore(ctx, path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
		assert.ErrorIs(t, err, backup.ErrInvalidManifest)

		validation, err := f.restores.Validate(ctx, path)
		require.NoError(t, err)
		assert.False(t, validation.Valid)
	})

	t.Run("future version", func(t *testing.T) {
		path := writeZip("future.zip", map[string]string{"manifest.json": `{"version":"9.0"}`})
		_, err := f.restores.Restore(ctx, path, backup.RestoreOptions{Mode: backup.RestoreModeFull})
		assert.ErrorIs(t, err, backup.ErrVersionMismatch)
	})

	t.Run("invalid entities are reported", func(t *testing.T) {
		path := writeZip("partial.zip", map[string]string{
			"manifest.json": `{"version":"1.0","counts":{"notes":2}}`,
			"notes.jsonl":   `{"id":"note-1","title":"ok","content":"c","owner":"anonymous"}` + "\n" + `{"title":"no id"}` + "\n",
		})
		result, err := f.restores.Restore(ctx, path, backup.RestoreOptions{Mode: backup.RestoreModeMerge})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Imported.Notes)
		require.Len(t, result.Errors, 1)
		assert.Equal(t, "notes", result.Errors[0].EntityType)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := f.restores.Restore(ctx, "unused.zip", backup.RestoreOptions{Mode: "partial"})
		assert.Error(t, err)
	})
}

func TestOptionsValid(t *testing.T) {
	assert.True(t, backup.RestoreModeFull.Valid())
	assert.True(t, backup.RestoreModeMerge.Valid())
	assert.False(t, backup.RestoreMode("events_only").Valid())

	assert.True(t, backup.MergeStrategy("").Valid())
	assert.True(t, backup.MergeNewest.Valid())
	assert.False(t, backup.MergeStrategy("random").Valid())
}
