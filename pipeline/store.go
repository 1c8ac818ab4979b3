package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aluiziolira/go-inventory-bridge/config"
)

const (
	backupPrefix    = "inventory_"
	timestampLayout = "20060102_150405"
)

// FileStore owns the backup, archive and quarantine directories.
type FileStore struct {
	backupDir       string
	archiveDir      string
	quarantineDir   string
	deleteOnSuccess bool
	now             func() time.Time
}

// NewFileStore builds a store from the configured directories. Directories are
// created on first use.
func NewFileStore(cfg *config.Config) *FileStore {
	return &FileStore{
		backupDir:       cfg.BackupDir,
		archiveDir:      cfg.ArchiveDir,
		quarantineDir:   cfg.QuarantineDir,
		deleteOnSuccess: cfg.DeleteOnSuccess,
		now:             time.Now,
	}
}

// Backup copies path to backups/inventory_<timestamp>_<name> and returns the copy's path.
func (s *FileStore) Backup(path string) (string, error) {
	if err := ensureDir(s.backupDir); err != nil {
		return "", err
	}
	name := backupPrefix + s.now().Format(timestampLayout) + "_" + filepath.Base(path)
	dst := s.uniquePath(s.backupDir, name)
	if err := copyFile(path, dst); err != nil {
		return "", fmt.Errorf("backup %s: %w", filepath.Base(path), err)
	}
	return dst, nil
}

// Archive moves a delivered file to the archive directory, or deletes it when
// configured to. The returned path is empty after a delete.
func (s *FileStore) Archive(path string) (string, error) {
	if s.deleteOnSuccess {
		if err := os.Remove(path); err != nil {
			return "", fmt.Errorf("delete %s: %w", filepath.Base(path), err)
		}
		return "", nil
	}
	return s.moveInto(path, s.archiveDir)
}

// Quarantine moves a failed file to the quarantine directory.
func (s *FileStore) Quarantine(path string) (string, error) {
	return s.moveInto(path, s.quarantineDir)
}

// LatestBackup returns the most recent backup copy.
func (s *FileStore) LatestBackup() (string, error) {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), backupPrefix) {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no backups in %s", s.backupDir)
	}

	// The timestamp prefix sorts lexically.
	sort.Strings(names)
	return filepath.Join(s.backupDir, names[len(names)-1]), nil
}

// Restore copies a backup into dir under its original upload name so it can be
// submitted again without consuming the backup.
func (s *FileStore) Restore(backup, dir string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	name := filepath.Base(backup)
	if rest, ok := strings.CutPrefix(name, backupPrefix); ok && len(rest) > len(timestampLayout)+1 {
		name = rest[len(timestampLayout)+1:]
	}
	dst := s.uniquePath(dir, name)
	if err := copyFile(backup, dst); err != nil {
		return "", fmt.Errorf("restore %s: %w", filepath.Base(backup), err)
	}
	return dst, nil
}

func (s *FileStore) moveInto(path, dir string) (string, error) {
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	dst := s.uniquePath(dir, filepath.Base(path))
	if err := moveFile(path, dst); err != nil {
		return "", fmt.Errorf("move %s to %s: %w", filepath.Base(path), dir, err)
	}
	return dst, nil
}

// uniquePath returns dir/name, or a timestamp-suffixed variant when a file of
// that name already exists.
func (s *FileStore) uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	if !exists(candidate) {
		return candidate
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext) + "_" + s.now().Format(timestampLayout)
	candidate = filepath.Join(dir, stem+ext)
	for i := 1; exists(candidate); i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, i, ext))
	}
	return candidate
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// moveFile renames src to dst, falling back to copy and remove across devices.
func moveFile(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}
	if _, err := os.Stat(src); err != nil {
		return renameErr
	}
	if err := copyFile(src, dst); err != nil {
		return errors.Join(renameErr, err)
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(dst)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
