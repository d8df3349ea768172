package ingestion

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"motor-tariff/core/tariff"
)

// Backup is the on-disk form of an imported table
type Backup struct {
	Version     int            `json:"version"`
	ContentHash string         `json:"content_hash"`
	EffectiveAt time.Time      `json:"effective_at"`
	CreatedAt   time.Time      `json:"created_at"`
	Source      string         `json:"source"`
	Entries     []tariff.Entry `json:"entries"`
}

// BackupManager writes and restores gzipped JSON table backups
type BackupManager struct{}

// NewBackupManager creates a backup manager
func NewBackupManager() *BackupManager {
	return &BackupManager{}
}

// WriteBackup writes t under dir and returns the file path
func (m *BackupManager) WriteBackup(dir string, t *tariff.Table) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("tariff_v%d_%s.json.gz", t.Version, t.ContentHash.Short()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	gzw := gzip.NewWriter(f)
	err = json.NewEncoder(gzw).Encode(Backup{
		Version:     t.Version,
		ContentHash: t.ContentHash.Hex(),
		EffectiveAt: t.EffectiveAt,
		CreatedAt:   t.CreatedAt,
		Source:      t.Source.String(),
		Entries:     t.Entries(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode backup: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return "", err
	}
	return path, f.Sync()
}

// ReadBackup restores a table and verifies it against the recorded hash
func (m *BackupManager) ReadBackup(path string) (*tariff.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gzr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("backup is not gzip: %w", err)
	}
	defer gzr.Close()

	var b Backup
	if err := json.NewDecoder(gzr).Decode(&b); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	builder := tariff.NewBuilder(b.Version).
		WithSource(tariff.SourceBackup).
		WithEffectiveAt(b.EffectiveAt).
		WithCreatedAt(b.CreatedAt)
	for _, e := range b.Entries {
		builder.AddRow(e.Key, e.Row)
	}
	t, err := builder.Build()
	if err != nil {
		return nil, err
	}
	if t.ContentHash.Hex() != b.ContentHash {
		return nil, fmt.Errorf("%w: backup %s", tariff.ErrHashMismatch, filepath.Base(path))
	}
	return t, nil
}
