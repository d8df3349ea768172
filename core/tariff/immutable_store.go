// Immutable snapshot storage.
// Tables are write-once, content-hashed, and versioned on disk.
package tariff

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"motor-tariff/core/determinism"
)

// ErrImmutabilityViolation is returned when attempting to overwrite a stored table
var ErrImmutabilityViolation = errors.New("immutability violation: tariff table cannot be modified")

// ErrHashMismatch is returned when stored data doesn't match its recorded hash
var ErrHashMismatch = errors.New("tariff table hash mismatch: data may be corrupted")

// ErrTableNotStored is returned for unknown table IDs
var ErrTableNotStored = errors.New("tariff table not found in store")

// SnapshotStore is a file store that ENFORCES immutability.
// Once a table is written it can never be overwritten.
type SnapshotStore struct {
	mu       sync.RWMutex
	basePath string

	index  map[TableID]*SnapshotMetadata
	latest TableID
}

// SnapshotMetadata is stored alongside each table
type SnapshotMetadata struct {
	ID          TableID   `json:"id"`
	Version     int       `json:"version"`
	ContentHash string    `json:"content_hash"`
	FileHash    string    `json:"file_hash"`
	CreatedAt   time.Time `json:"created_at"`
	EffectiveAt time.Time `json:"effective_at"`
	Rows        int       `json:"rows"`
	Size        int64     `json:"size"`
	FilePath    string    `json:"file_path"`
}

type storedTable struct {
	ID          TableID   `json:"id"`
	Version     int       `json:"version"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	EffectiveAt time.Time `json:"effective_at"`
	Source      string    `json:"source"`
	Entries     []Entry   `json:"entries"`
}

type indexFile struct {
	Tables    map[TableID]*SnapshotMetadata `json:"tables"`
	Latest    TableID                       `json:"latest"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// NewSnapshotStore creates a store rooted at basePath
func NewSnapshotStore(basePath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	store := &SnapshotStore{
		basePath: basePath,
		index:    make(map[TableID]*SnapshotMetadata),
	}
	if err := store.loadIndex(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load snapshot index: %w", err)
	}
	return store, nil
}

// Store writes a table - FAILS if it already exists
func (s *SnapshotStore) Store(ctx context.Context, t *Table) (*SnapshotMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[t.ID]; exists {
		return nil, ErrImmutabilityViolation
	}
	if !t.Verify() {
		return nil, ErrHashMismatch
	}

	data, err := json.MarshalIndent(storedTable{
		ID:          t.ID,
		Version:     t.Version,
		ContentHash: t.ContentHash.Hex(),
		CreatedAt:   t.CreatedAt,
		EffectiveAt: t.EffectiveAt,
		Source:      t.Source.String(),
		Entries:     t.Entries(),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize table: %w", err)
	}

	fileHash := sha256.Sum256(data)
	fileHashStr := hex.EncodeToString(fileHash[:])

	filename := fmt.Sprintf("v%d_%s.json", t.Version, t.ID)
	filePath := filepath.Join(s.basePath, filename)
	if _, err := os.Stat(filePath); err == nil {
		return nil, ErrImmutabilityViolation
	}
	if err := os.WriteFile(filePath, data, 0444); err != nil {
		return nil, fmt.Errorf("failed to write table: %w", err)
	}

	meta := &SnapshotMetadata{
		ID:          t.ID,
		Version:     t.Version,
		ContentHash: t.ContentHash.Hex(),
		FileHash:    fileHashStr,
		CreatedAt:   t.CreatedAt,
		EffectiveAt: t.EffectiveAt,
		Rows:        t.Len(),
		Size:        int64(len(data)),
		FilePath:    filePath,
	}
	s.index[t.ID] = meta

	if cur, ok := s.index[s.latest]; !ok || cur.Version < t.Version {
		s.latest = t.ID
	}

	return meta, s.saveIndex()
}

// Get retrieves a table by ID and verifies both hashes
func (s *SnapshotStore) Get(ctx context.Context, id TableID) (*Table, error) {
	s.mu.RLock()
	meta, ok := s.index[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrTableNotStored
	}

	data, err := os.ReadFile(meta.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	fileHash := sha256.Sum256(data)
	if hex.EncodeToString(fileHash[:]) != meta.FileHash {
		return nil, ErrHashMismatch
	}

	return s.deserialize(data)
}

// GetLatest retrieves the highest stored version
func (s *SnapshotStore) GetLatest(ctx context.Context) (*Table, error) {
	s.mu.RLock()
	id := s.latest
	s.mu.RUnlock()
	if id == "" {
		return nil, ErrTableNotStored
	}
	return s.Get(ctx, id)
}

// ListVersions returns metadata for all stored tables, newest first
func (s *SnapshotStore) ListVersions() []*SnapshotMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*SnapshotMetadata, 0, len(s.index))
	for _, meta := range s.index {
		result = append(result, meta)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Version > result[j].Version
	})
	return result
}

// VerifyIntegrity checks all stored tables
func (s *SnapshotStore) VerifyIntegrity() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var corrupted []string
	for _, id := range determinism.SortedKeys(s.index) {
		meta := s.index[id]
		data, err := os.ReadFile(meta.FilePath)
		if err != nil {
			corrupted = append(corrupted, fmt.Sprintf("%s: file missing", id))
			continue
		}
		h := sha256.Sum256(data)
		if hex.EncodeToString(h[:]) != meta.FileHash {
			corrupted = append(corrupted, fmt.Sprintf("%s: hash mismatch", id))
		}
	}
	return corrupted
}

func (s *SnapshotStore) deserialize(data []byte) (*Table, error) {
	var st storedTable
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}

	b := NewBuilder(st.Version).
		WithSource(ParseSource(st.Source)).
		WithEffectiveAt(st.EffectiveAt).
		WithCreatedAt(st.CreatedAt)
	for _, e := range st.Entries {
		b.AddRow(e.Key, e.Row)
	}
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	if t.ContentHash.Hex() != st.ContentHash {
		return nil, ErrHashMismatch
	}
	return t, nil
}

func (s *SnapshotStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.basePath, "index.json"))
	if err != nil {
		return err
	}

	var idx indexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return err
	}
	if idx.Tables != nil {
		s.index = idx.Tables
	}
	s.latest = idx.Latest
	return nil
}

func (s *SnapshotStore) saveIndex() error {
	indexPath := filepath.Join(s.basePath, "index.json")

	data, err := json.MarshalIndent(indexFile{
		Tables:    s.index,
		Latest:    s.latest,
		UpdatedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return err
	}

	tempPath := indexPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, indexPath)
}
