package ingestion

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"motor-tariff/core/tariff"
	"motor-tariff/internal/logging"
)

// Committer persists and activates tables. db.PricingStore satisfies it.
type Committer interface {
	Create(ctx context.Context, t *tariff.Table) error
	Activate(ctx context.Context, id tariff.TableID) error
}

// Announcer tells running servers a new table is active
type Announcer interface {
	Announce(ctx context.Context, t *tariff.Table) error
}

// Sources holds the two sheet exports. Either may be nil.
type Sources struct {
	Internal io.Reader
	Border   io.Reader
}

// Options controls one import run
type Options struct {
	Version     int
	EffectiveAt time.Time
	// DryRun parses and validates without backing up or committing
	DryRun bool
	// Activate makes the table active when it passes validation
	Activate bool
}

// Status is the state of an import run
type Status string

const (
	StatusValidated Status = "validated"
	StatusCommitted Status = "committed"
	StatusActivated Status = "activated"
	StatusRejected  Status = "rejected"
)

// Result describes an import run
type Result struct {
	RunID      uuid.UUID         `json:"runId"`
	Status     Status            `json:"status"`
	Table      *tariff.Table     `json:"-"`
	Issues     []Issue           `json:"issues,omitempty"`
	Validation *ValidationResult `json:"validation"`
	BackupPath string            `json:"backupPath,omitempty"`
}

// Pipeline orchestrates parse → validate → backup → commit → announce
type Pipeline struct {
	store     Committer
	announcer Announcer
	validator *Validator
	backups   *BackupManager
	backupDir string
	logger    *zap.Logger
}

// NewPipeline creates a pipeline. announcer may be nil.
func NewPipeline(store Committer, announcer Announcer, contract Contract, backupDir string) *Pipeline {
	return &Pipeline{
		store:     store,
		announcer: announcer,
		validator: NewValidator(contract),
		backups:   NewBackupManager(),
		backupDir: backupDir,
		logger:    logging.Named("ingestion"),
	}
}

// BuildTable parses both sheets into a table
func BuildTable(src Sources, version int, effectiveAt time.Time) (*tariff.Table, []Issue, error) {
	b := tariff.NewBuilder(version).WithSource(tariff.SourceImport)
	if !effectiveAt.IsZero() {
		b.WithEffectiveAt(effectiveAt)
	}

	var issues []Issue
	parsers := []struct {
		r     io.Reader
		parse func(io.Reader) ([]ImportedRow, []Issue, error)
	}{
		{src.Internal, ParseInternal},
		{src.Border, ParseBorder},
	}
	for _, p := range parsers {
		if p.r == nil {
			continue
		}
		rows, is, err := p.parse(p.r)
		if err != nil {
			return nil, nil, err
		}
		issues = append(issues, is...)
		for _, r := range rows {
			b.AddRow(r.Key, r.Row)
		}
	}

	t, err := b.Build()
	if err != nil {
		return nil, issues, err
	}
	return t, issues, nil
}

// Import runs the pipeline. A table that fails validation is never committed.
func (p *Pipeline) Import(ctx context.Context, src Sources, opts Options) (*Result, error) {
	res := &Result{RunID: uuid.New()}
	log := p.logger.With(zap.String("run_id", res.RunID.String()), zap.Int("version", opts.Version))

	t, issues, err := BuildTable(src, opts.Version, opts.EffectiveAt)
	res.Issues = issues
	for _, is := range issues {
		log.Warn("import row skipped", zap.String("sheet", is.Sheet), zap.Int("line", is.Line), zap.String("reason", is.Reason))
	}
	if err != nil {
		return res, fmt.Errorf("build failed: %w", err)
	}
	res.Table = t

	res.Validation = p.validator.Validate(t)
	for _, w := range res.Validation.Warnings {
		log.Warn("import validation warning", zap.String("detail", w))
	}
	if !res.Validation.IsValid {
		res.Status = StatusRejected
		log.Error("import rejected", zap.Strings("errors", res.Validation.Errors))
		return res, fmt.Errorf("table v%d failed validation: %v", t.Version, res.Validation.Errors)
	}
	res.Status = StatusValidated
	if opts.DryRun {
		return res, nil
	}

	if p.backupDir != "" {
		path, err := p.backups.WriteBackup(p.backupDir, t)
		if err != nil {
			return res, fmt.Errorf("backup failed: %w", err)
		}
		res.BackupPath = path
	}

	if err := p.store.Create(ctx, t); err != nil {
		return res, fmt.Errorf("commit failed: %w", err)
	}
	res.Status = StatusCommitted
	log.Info("tariff table committed", append(logging.Table(t), zap.Int("rows", t.Len()))...)

	if !opts.Activate {
		return res, nil
	}
	if err := p.store.Activate(ctx, t.ID); err != nil {
		return res, fmt.Errorf("activation failed: %w", err)
	}
	res.Status = StatusActivated
	log.Info("tariff table activated", logging.Table(t)...)

	if p.announcer != nil {
		if err := p.announcer.Announce(ctx, t); err != nil {
			// servers still pick the table up on their next scheduled refresh
			log.Warn("announce failed", zap.Error(err))
		}
	}
	return res, nil
}
