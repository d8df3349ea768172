package tariff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"time"

	"motor-tariff/core/determinism"
)

// TableID uniquely identifies a tariff table snapshot
type TableID string

// Table is IMMUTABLE after creation.
// It represents one published version of the tariff.
type Table struct {
	// Identity
	ID          TableID
	Version     int
	ContentHash determinism.ContentHash
	CreatedAt   time.Time
	EffectiveAt time.Time

	Source Source

	// Sorted entries and their index
	entries []Entry
	index   map[Key]int
}

// Entry pairs a key with its row
type Entry struct {
	Key Key `json:"key"`
	Row Row `json:"row"`
}

// Source indicates where a table came from
type Source int

const (
	SourceManual   Source = iota // Built in code or tests
	SourceFile                   // Parsed from a tariff file
	SourceDatabase               // Loaded from the pricing database
	SourceImport                 // Imported from a workbook export
	SourceBackup                 // Restored from a backup file
)

// String returns the source name
func (s Source) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourceFile:
		return "file"
	case SourceDatabase:
		return "database"
	case SourceImport:
		return "import"
	case SourceBackup:
		return "backup"
	default:
		return "unknown"
	}
}

// ParseSource is the inverse of Source.String
func ParseSource(s string) Source {
	switch s {
	case "file":
		return SourceFile
	case "database":
		return SourceDatabase
	case "import":
		return SourceImport
	case "backup":
		return SourceBackup
	default:
		return SourceManual
	}
}

// Builder builds a tariff table
type Builder struct {
	version     int
	source      Source
	effectiveAt time.Time
	createdAt   time.Time
	entries     []Entry
	seen        map[Key]bool
	duplicates  []Key
	invalid     []string
}

// NewBuilder creates a new builder for a table version
func NewBuilder(version int) *Builder {
	now := time.Now().UTC()
	return &Builder{
		version:     version,
		source:      SourceManual,
		effectiveAt: now,
		createdAt:   now,
		seen:        make(map[Key]bool),
	}
}

// WithSource sets the table source
func (b *Builder) WithSource(source Source) *Builder {
	b.source = source
	return b
}

// WithEffectiveAt sets the effective date
func (b *Builder) WithEffectiveAt(t time.Time) *Builder {
	b.effectiveAt = t.UTC()
	return b
}

// WithCreatedAt overrides the creation time (used when rehydrating stored tables)
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t.UTC()
	return b
}

// AddRow adds a row to the table
func (b *Builder) AddRow(key Key, row Row) *Builder {
	if b.seen[key] {
		b.duplicates = append(b.duplicates, key)
		return b
	}
	if err := row.Validate(); err != nil {
		b.invalid = append(b.invalid, key.String()+": "+err.Error())
		return b
	}
	b.seen[key] = true
	b.entries = append(b.entries, Entry{Key: key, Row: row})
	return b
}

// Build creates an immutable table
func (b *Builder) Build() (*Table, error) {
	if b.version <= 0 {
		return nil, fmt.Errorf("table version must be positive, got %d", b.version)
	}
	if len(b.duplicates) > 0 {
		return nil, fmt.Errorf("duplicate tariff keys: %v", b.duplicates)
	}
	if len(b.invalid) > 0 {
		return nil, fmt.Errorf("invalid tariff rows: %v", b.invalid)
	}

	entries := make([]Entry, len(b.entries))
	copy(entries, b.entries)
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key.Less(entries[j].Key)
	})

	index := make(map[Key]int, len(entries))
	for i := range entries {
		index[entries[i].Key] = i
	}

	t := &Table{
		Version:     b.version,
		CreatedAt:   b.createdAt,
		EffectiveAt: b.effectiveAt,
		Source:      b.source,
		entries:     entries,
		index:       index,
	}
	t.ContentHash = t.computeHash()
	t.ID = TableID(hex.EncodeToString(t.ContentHash[:8]))
	return t, nil
}

// computeHash creates a content hash of the version and all rows
func (t *Table) computeHash() determinism.ContentHash {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(t.Version)))
	h.Write([]byte(t.EffectiveAt.Format(time.RFC3339)))
	for _, e := range t.entries {
		h.Write(e.Row.bytes(e.Key))
	}
	var hash determinism.ContentHash
	copy(hash[:], h.Sum(nil))
	return hash
}

// Lookup returns the row for a key
func (t *Table) Lookup(key Key) (Row, bool) {
	i, ok := t.index[key]
	if !ok {
		return Row{}, false
	}
	return t.entries[i].Row, true
}

// Entries returns all entries in key order
func (t *Table) Entries() []Entry {
	result := make([]Entry, len(t.entries))
	copy(result, t.entries)
	return result
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.entries)
}

// Verify checks content hash integrity
func (t *Table) Verify() bool {
	return t.computeHash() == t.ContentHash
}

// Coverage reports which required keys the table lacks
type Coverage struct {
	Required int
	Present  int
	Missing  []Key
	// Inconsistent lists keys whose stored total disagrees with the component sum
	Inconsistent []Key
}

// Complete reports whether every required key has a row
func (c Coverage) Complete() bool {
	return len(c.Missing) == 0
}

// Coverage checks the table against the baseline classification scheme
func (t *Table) Coverage() Coverage {
	required := BaselineKeys()
	cov := Coverage{Required: len(required)}
	for _, k := range required {
		if _, ok := t.index[k]; ok {
			cov.Present++
		} else {
			cov.Missing = append(cov.Missing, k)
		}
	}
	for _, e := range t.entries {
		if !e.Row.Consistent() {
			cov.Inconsistent = append(cov.Inconsistent, e.Key)
		}
	}
	return cov
}
