// Package txn rewrites a file in place behind a backup copy that is restored
// when the rewrite fails.
package txn

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/LocIntegrator/pkg/core"
)

// BackupSuffix is appended to the target name to form the backup name
const BackupSuffix = "_original"

// Transaction rewrites Target. The backup is written before anything else
// and is left in place afterwards; it is overwritten by the next run.
type Transaction struct {
	Target string
	Backup string

	staging *os.File
	log     logrus.FieldLogger
	closed  bool

	failCommit error // injected by tests
}

// Begin copies path to path+suffix and opens a staging file next to it.
func Begin(path, suffix string, log logrus.FieldLogger) (*Transaction, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if suffix == "" {
		suffix = BackupSuffix
	}

	t := &Transaction{
		Target: path,
		Backup: path + suffix,
		log:    log.WithField("file", path),
	}
	if err := copyFile(path, t.Backup); err != nil {
		return nil, core.IOError("failed to back up report", err)
	}
	t.log.WithField("backup", t.Backup).Debug("Backup written")

	staging, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, core.IOError("failed to create staging file", err)
	}
	t.staging = staging
	return t, nil
}

// Source opens the backup for reading.
func (t *Transaction) Source() (*os.File, error) {
	f, err := os.Open(t.Backup)
	if err != nil {
		return nil, core.IOError("failed to open backup", err)
	}
	return f, nil
}

// Writer returns the staging file the new content goes to.
func (t *Transaction) Writer() io.Writer {
	return t.staging
}

// Commit replaces the target with the staged content.
func (t *Transaction) Commit() error {
	if t.closed {
		return errors.New("transaction already finished")
	}
	if t.failCommit != nil {
		return t.failCommit
	}

	if err := t.staging.Sync(); err != nil {
		return core.IOError("failed to sync staging file", err)
	}
	if err := t.staging.Close(); err != nil {
		return core.IOError("failed to close staging file", err)
	}
	t.closed = true

	if info, err := os.Stat(t.Backup); err == nil {
		if err := os.Chmod(t.staging.Name(), info.Mode().Perm()); err != nil {
			t.log.Warnf("Could not keep file mode: %v", err)
		}
	}
	if err := os.Rename(t.staging.Name(), t.Target); err != nil {
		return core.IOError("failed to replace report", err)
	}
	t.log.Debug("Report replaced")
	return nil
}

// Rollback discards the staged content and copies the backup over the target.
// A failure while copying leaves the target in an undefined state.
func (t *Transaction) Rollback() error {
	if !t.closed {
		t.staging.Close()
		t.closed = true
	}
	if err := os.Remove(t.staging.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		t.log.Warnf("Could not remove staging file: %v", err)
	}

	if err := copyFile(t.Backup, t.Target); err != nil {
		return core.IOError("failed to restore report from backup", err)
	}
	t.log.WithField("backup", t.Backup).Info("Report restored from backup")
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
