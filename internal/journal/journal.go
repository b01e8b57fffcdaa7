// Package journal implements the resumable transaction journal (spec.md
// §4.6): durable, crash-safe batch execution with rollback to backup.
//
// Grounded on cmd/bd/sync.go's flock.TryLock guard against two concurrent
// syncs, generalized into the preflight "refuse if InProgress" check, and
// on BeadsLog's backup-before-migrate idiom in cmd/bd/migrate.go
// (copyFile into a timestamped backup before any destructive rewrite).
package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/gloudx/docmigrate/internal/document"
)

// OperationStatus tracks one file's progress through a transaction.
type OperationStatus string

const (
	OperationPending    OperationStatus = "Pending"
	OperationBackedUp   OperationStatus = "BackedUp"
	OperationProcessing OperationStatus = "Processing"
	OperationCompleted  OperationStatus = "Completed"
)

// JournalStatus is the overall transaction state.
type JournalStatus string

const (
	StatusInProgress JournalStatus = "InProgress"
	StatusCommitted  JournalStatus = "Committed"
	StatusRolledBack JournalStatus = "RolledBack"
)

// Operation is one file's entry in the journal.
type Operation struct {
	FilePath string          `json:"filePath"`
	Status   OperationStatus `json:"status"`
}

// Journal is the on-disk record of a resumable batch transaction
// (spec.md §6: journal-<transaction_id>.json).
type Journal struct {
	TransactionID string        `json:"transactionId"`
	Status        JournalStatus `json:"status"`
	Operations    []Operation   `json:"operations"`
}

// Transaction drives one resumable batch against a storage directory.
type Transaction struct {
	dir     string
	lock    *flock.Flock
	journal Journal
}

func journalPath(dir, transactionID string) string {
	return filepath.Join(dir, fmt.Sprintf("journal-%s.json", transactionID))
}

func backupDir(dir, transactionID string) string {
	return filepath.Join(dir, fmt.Sprintf("backup-%s", transactionID))
}

// Begin mints a fresh transaction_id, refuses if an InProgress journal is
// already present, and writes the initial journal with one Pending
// operation per file path in filePaths (one per non-SKIP action; the
// caller filters SKIPs out before calling Begin).
func Begin(dir string, filePaths []string) (*Transaction, error) {
	lock := flock.New(filepath.Join(dir, ".journal.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("journal: acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("journal: another transaction is starting in %s", dir)
	}

	existing, err := findInProgress(dir)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	if existing != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("%w: transaction %s; run resume first", document.ErrIncompleteTransaction, existing.TransactionID)
	}

	ops := make([]Operation, len(filePaths))
	for i, p := range filePaths {
		ops[i] = Operation{FilePath: p, Status: OperationPending}
	}

	txn := &Transaction{
		dir:  dir,
		lock: lock,
		journal: Journal{
			TransactionID: uuid.NewString(),
			Status:        StatusInProgress,
			Operations:    ops,
		},
	}
	if err := txn.writeJournal(); err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return txn, nil
}

// findInProgress scans dir for journal-*.json files and returns the first
// one whose status is InProgress, or nil if none exists.
func findInProgress(dir string) (*Journal, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: scanning %s: %w", dir, err)
	}
	for _, ent := range entries {
		name := ent.Name()
		if ent.IsDir() || !strings.HasPrefix(name, "journal-") || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("journal: reading %s: %w", name, err)
		}
		var j Journal
		if err := json.Unmarshal(raw, &j); err != nil {
			return nil, fmt.Errorf("journal: parsing %s: %w", name, err)
		}
		if j.Status == StatusInProgress {
			return &j, nil
		}
	}
	return nil, nil
}

// TransactionID returns the minted transaction identifier.
func (t *Transaction) TransactionID() string { return t.journal.TransactionID }

// Backup copies every operation's file (if it exists) into
// backup-<transaction_id>/<basename>.<transaction_id>.backup and marks
// the operation BackedUp. The journal is rewritten atomically after each
// successful copy.
func (t *Transaction) Backup() error {
	dir := backupDir(t.dir, t.journal.TransactionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("journal: creating backup dir: %w", err)
	}

	for i, op := range t.journal.Operations {
		if _, err := os.Stat(op.FilePath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("journal: stat %s: %w", op.FilePath, err)
		}

		dest := filepath.Join(dir, fmt.Sprintf("%s.%s.backup", filepath.Base(op.FilePath), t.journal.TransactionID))
		if err := copyFile(op.FilePath, dest); err != nil {
			return fmt.Errorf("journal: backing up %s: %w", op.FilePath, err)
		}

		t.journal.Operations[i].Status = OperationBackedUp
		if err := t.writeJournal(); err != nil {
			return err
		}
	}
	return nil
}

// MarkProcessing updates one operation's status mid-execution.
func (t *Transaction) MarkProcessing(filePath string) error {
	return t.updateOperation(filePath, OperationProcessing)
}

// MarkCompleted updates one operation's status after a successful write.
func (t *Transaction) MarkCompleted(filePath string) error {
	return t.updateOperation(filePath, OperationCompleted)
}

func (t *Transaction) updateOperation(filePath string, status OperationStatus) error {
	for i, op := range t.journal.Operations {
		if op.FilePath == filePath {
			t.journal.Operations[i].Status = status
			return t.writeJournal()
		}
	}
	return fmt.Errorf("journal: no operation for %s", filePath)
}

// Commit marks the journal Committed, removes the backup directory, and
// deletes the journal file.
func (t *Transaction) Commit() error {
	t.journal.Status = StatusCommitted
	if err := t.writeJournal(); err != nil {
		return err
	}
	if err := os.RemoveAll(backupDir(t.dir, t.journal.TransactionID)); err != nil {
		return fmt.Errorf("journal: removing backup dir: %w", err)
	}
	if err := os.Remove(journalPath(t.dir, t.journal.TransactionID)); err != nil {
		return fmt.Errorf("journal: removing journal file: %w", err)
	}
	return t.lock.Unlock()
}

// Resume finds the InProgress journal under dir, restores every
// BackedUp-or-later file from its backup, marks the journal RolledBack,
// deletes the backup directory and journal file, and returns a
// MigrationResult with status "Rolled Back" and zero counts.
func Resume(dir string) (document.MigrationResult, error) {
	j, err := findInProgress(dir)
	if err != nil {
		return document.MigrationResult{}, err
	}
	if j == nil {
		return document.MigrationResult{}, fmt.Errorf("journal: no in-progress transaction in %s", dir)
	}

	bdir := backupDir(dir, j.TransactionID)
	for _, op := range j.Operations {
		if op.Status == OperationPending {
			continue
		}
		backupPath := filepath.Join(bdir, fmt.Sprintf("%s.%s.backup", filepath.Base(op.FilePath), j.TransactionID))
		if _, err := os.Stat(backupPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return document.MigrationResult{}, fmt.Errorf("journal: stat backup %s: %w", backupPath, err)
		}
		if err := copyFile(backupPath, op.FilePath); err != nil {
			return document.MigrationResult{}, fmt.Errorf("journal: restoring %s: %w", op.FilePath, err)
		}
	}

	j.Status = StatusRolledBack
	if err := writeJournalFile(dir, *j); err != nil {
		return document.MigrationResult{}, err
	}
	if err := os.RemoveAll(bdir); err != nil {
		return document.MigrationResult{}, fmt.Errorf("journal: removing backup dir: %w", err)
	}
	if err := os.Remove(journalPath(dir, j.TransactionID)); err != nil {
		return document.MigrationResult{}, fmt.Errorf("journal: removing journal file: %w", err)
	}

	return document.MigrationResult{
		Summary: document.ResultSummary{Status: "Rolled Back"},
	}, nil
}

func (t *Transaction) writeJournal() error {
	return writeJournalFile(t.dir, t.journal)
}

func writeJournalFile(dir string, j Journal) error {
	raw, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return fmt.Errorf("journal: encoding: %w", err)
	}
	if err := atomicWrite(journalPath(dir, j.TransactionID), raw); err != nil {
		return fmt.Errorf("journal: writing: %w", err)
	}
	return nil
}

func atomicWrite(dest string, content []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-journal-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-copy-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, dest)
}
