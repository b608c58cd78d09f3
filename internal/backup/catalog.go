package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	backupExt    = ".notes.zip"
	backupPrefix = "backup-"
	stampLayout  = "20060102T150405Z"
)

// nextPath names an archive after t, adding a counter when a backup from
// the same second already exists.
func (s *BackupService) nextPath(t time.Time) string {
	id := backupPrefix + t.UTC().Format(stampLayout)
	path := filepath.Join(s.dir, id+backupExt)
	for n := 2; fileExists(path); n++ {
		path = filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", id, n, backupExt))
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// List returns the archives in the backup directory, newest first. A
// missing directory holds no backups.
func (s *BackupService) List(_ context.Context) ([]BackupInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []BackupInfo
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), backupExt)
		if !ok || e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, describe(id, filepath.Join(s.dir, e.Name()), fi))
	}
	slices.SortFunc(out, func(a, b BackupInfo) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

// Get looks up one archive by ID.
func (s *BackupService) Get(_ context.Context, id string) (*BackupInfo, error) {
	path, err := s.pathFor(id)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrBackupNotFound
	}
	if err != nil {
		return nil, err
	}
	info := describe(id, path, fi)
	return &info, nil
}

// Delete removes one archive.
func (s *BackupService) Delete(ctx context.Context, id string) error {
	info, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return os.Remove(info.Path)
}

// pathFor maps an ID to its file. IDs never leave the backup directory.
func (s *BackupService) pathFor(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", ErrBackupNotFound
	}
	return filepath.Join(s.dir, id+backupExt), nil
}

// describe prefers the time encoded in generated names over the file's
// modification time, which copies do not preserve.
func describe(id, path string, fi fs.FileInfo) BackupInfo {
	created := fi.ModTime()
	if stamp, ok := strings.CutPrefix(id, backupPrefix); ok {
		stamp, _, _ = strings.Cut(stamp, "-")
		if t, err := time.Parse(stampLayout, stamp); err == nil {
			created = t
		}
	}
	return BackupInfo{ID: id, Path: path, Size: fi.Size(), CreatedAt: created}
}
