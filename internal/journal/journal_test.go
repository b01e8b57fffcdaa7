package journal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestBeginBackupCommitCleansUp(t *testing.T) {
	storageDir := t.TempDir()
	fileDir := t.TempDir()

	file := filepath.Join(fileDir, "doc.json")
	if err := os.WriteFile(file, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	txn, err := Begin(storageDir, []string{file})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn.Backup(); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := os.WriteFile(file, []byte(`{"a":2}`), 0o644); err != nil {
		t.Fatalf("simulate migration write: %v", err)
	}
	if err := txn.MarkCompleted(file); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if err := txn.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	entries, err := os.ReadDir(storageDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".lock" {
			t.Fatalf("expected storage dir empty after commit, found %s", e.Name())
		}
	}
}

func TestBeginRefusesWhenInProgressExists(t *testing.T) {
	storageDir := t.TempDir()
	fileDir := t.TempDir()
	file := filepath.Join(fileDir, "doc.json")
	if err := os.WriteFile(file, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	txn1, err := Begin(storageDir, []string{file})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn1.Backup(); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	// txn1 never commits; simulate the process dying mid-batch.

	_, err = Begin(storageDir, []string{file})
	if err == nil {
		t.Fatalf("expected second Begin to refuse while a transaction is in progress")
	}
}

func TestResumeRestoresBackedUpFilesAndCleansUp(t *testing.T) {
	storageDir := t.TempDir()
	fileDir := t.TempDir()
	file := filepath.Join(fileDir, "doc.json")
	original := []byte(`{"timeout":30}`)
	if err := os.WriteFile(file, original, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	txn, err := Begin(storageDir, []string{file})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := txn.Backup(); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	// Simulate the crash: the migration wrote new content but never committed.
	if err := os.WriteFile(file, []byte(`{"execution_timeout":30}`), 0o644); err != nil {
		t.Fatalf("simulate migration write: %v", err)
	}

	result, err := Resume(storageDir)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if result.Summary.Status != "Rolled Back" {
		t.Fatalf("expected Rolled Back status, got %+v", result.Summary)
	}

	restored, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(restored) != string(original) {
		t.Fatalf("expected original content restored, got %s", restored)
	}

	entries, err := os.ReadDir(storageDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".lock" {
			t.Fatalf("expected no journal/backup dir left behind, found %s", e.Name())
		}
	}
}

func TestResumeFailsWhenNoInProgressTransaction(t *testing.T) {
	storageDir := t.TempDir()
	if _, err := Resume(storageDir); err == nil {
		t.Fatalf("expected error when no in-progress transaction exists")
	}
}
