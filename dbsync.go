package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Target names used in logs and UploadError
const (
	TargetD1     = "d1"
	TargetMirror = "mirror"
)

// RunStatus describes how a run ended
type RunStatus string

const (
	StatusSkipped     RunStatus = "skipped"      // Dataset unchanged, nothing written
	StatusSynced      RunStatus = "synced"       // Uploaded and recorded
	StatusPreviewOnly RunStatus = "preview-only" // No credentials and no mirror
	StatusDryRun      RunStatus = "dry-run"      // Plan reported, nothing applied
)

// RunResult summarizes one pipeline run
type RunResult struct {
	RunID               string
	Status              RunStatus
	Fingerprint         string
	PreviousFingerprint string
	Rows                int
	Statements          int
	Batches             int
	Targets             []string
	SyncedAt            string // Recorded timestamp, set only when the run was recorded
}

// Syncer runs the fetch, detect, generate, upload and record pipeline.
//
// It assumes single-flight execution: nothing guards the fingerprint file or
// the remote database against two concurrent runs.
type Syncer struct {
	Config   Config
	Fetcher  Fetcher
	Store    FingerprintStore
	Recorder *RunRecorder
	Uploader *Uploader

	// Remote receives the statements when UploadEnabled is set
	Remote        Executor
	UploadEnabled bool
	// Mirror, when set, receives the same statements after Remote
	Mirror Executor
	// OpenMirror opens the mirror on demand when Mirror is nil. It is only
	// called once a run goes on to upload, so skipped and dry runs leave no
	// mirror file behind.
	OpenMirror func(ctx context.Context) (Executor, func(), error)

	// Force bypasses change detection
	Force bool
}

// NewSyncer wires a syncer from the configuration. The D1 client is attached
// when credentials are present; the mirror is left for the caller to attach.
func NewSyncer(cfg Config) *Syncer {
	store := NewFileFingerprintStore(cfg.State.FingerprintPath)
	s := &Syncer{
		Config:        cfg,
		Fetcher:       NewHTTPFetcher(cfg.SourceTimeout()),
		Store:         store,
		Recorder:      NewRunRecorder(store, cfg.State.RunRecordPath),
		Uploader:      NewUploader(cfg.D1.BatchSize),
		UploadEnabled: cfg.UploadEnabled(),
	}
	if s.UploadEnabled {
		s.Remote = NewD1Client(cfg.D1, cfg.D1Timeout())
	}
	return s
}

// Run executes the pipeline once
func (s *Syncer) Run(ctx context.Context) (*RunResult, error) {
	result := &RunResult{RunID: uuid.NewString()}

	log.Printf("Run %s: fetching dataset from %s...", result.RunID, s.Config.Source.URL)
	data, err := s.Fetcher.Fetch(ctx, s.Config.Source.URL)
	if err != nil {
		return nil, err
	}
	log.Printf("Fetched %d bytes.", len(data))

	result.Fingerprint = Fingerprint(data)
	stored, ok, err := s.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("error loading fingerprint: %w", err)
	}
	result.PreviousFingerprint = stored

	if !HasChanged(result.Fingerprint, stored, ok) {
		if !s.Force {
			result.Status = StatusSkipped
			log.Printf("Dataset unchanged (fingerprint %s). Nothing to do.", shortDigest(result.Fingerprint))
			return result, nil
		}
		log.Println("Dataset unchanged, rebuilding anyway (forced).")
	}

	models, err := ParseModels(data, s.Config.ParseOptions())
	if err != nil {
		return nil, err
	}
	result.Rows = len(models)
	log.Printf("Loaded %d rows from dataset.", len(models))

	stmts := GenerateStatements(models, s.Config.SchemaSpec())
	result.Statements = len(stmts)
	result.Batches = len(Batches(stmts, s.Uploader.BatchSize))
	result.Targets = s.targets()

	if err := writePreview(s.Config.State.PreviewPath, stmts); err != nil {
		return nil, err
	}
	log.Printf("SQL preview saved to %s (%d statements).", s.Config.State.PreviewPath, len(stmts))

	if s.Config.DryRun {
		plan := s.plan(result, stored, ok)
		log.Print(plan.String())
		result.Status = StatusDryRun
		return result, nil
	}

	if len(result.Targets) == 0 {
		log.Println("Warning: D1 credentials are not set and no mirror is configured; only the SQL preview was generated.")
		result.Status = StatusPreviewOnly
		return result, nil
	}

	if s.UploadEnabled && s.Remote == nil {
		return nil, fmt.Errorf("upload enabled but no remote executor configured")
	}
	mirror := s.Mirror
	if mirror == nil && s.OpenMirror != nil {
		exec, closeMirror, err := s.OpenMirror(ctx)
		if err != nil {
			return nil, err
		}
		defer closeMirror()
		mirror = exec
	}

	if s.UploadEnabled {
		if err := s.Uploader.Upload(ctx, TargetD1, s.Remote, stmts); err != nil {
			return nil, err
		}
	}
	if mirror != nil {
		if err := s.Uploader.Upload(ctx, TargetMirror, mirror, stmts); err != nil {
			return nil, err
		}
	}

	if !s.UploadEnabled {
		log.Println("Warning: D1 credentials are not set; mirror updated but the sync was not recorded.")
		result.Status = StatusPreviewOnly
		return result, nil
	}

	syncedAt, err := s.Recorder.Record(result.Fingerprint)
	if err != nil {
		return nil, err
	}
	result.SyncedAt = syncedAt
	result.Status = StatusSynced
	log.Printf("Sync recorded at %s.", syncedAt)
	return result, nil
}

// targets lists the enabled upload targets in submission order
func (s *Syncer) targets() []string {
	var targets []string
	if s.UploadEnabled {
		targets = append(targets, TargetD1)
	}
	if s.Mirror != nil || s.OpenMirror != nil {
		targets = append(targets, TargetMirror)
	}
	return targets
}

func (s *Syncer) plan(result *RunResult, stored string, hasStored bool) *ExecutionPlan {
	schemaStatements := len(SchemaStatements(s.Config.SchemaSpec()))
	return &ExecutionPlan{
		RunID:               result.RunID,
		SourceURL:           s.Config.Source.URL,
		Fingerprint:         result.Fingerprint,
		PreviousFingerprint: stored,
		HasPrevious:         hasStored,
		Forced:              s.Force,
		Schema:              s.Config.SchemaSpec(),
		RowCount:            result.Rows,
		SchemaStatements:    schemaStatements,
		TotalStatements:     result.Statements,
		BatchSize:           s.Uploader.BatchSize,
		BatchCount:          result.Batches,
		Targets:             result.Targets,
		PreviewPath:         s.Config.State.PreviewPath,
	}
}

// writePreview saves the full statement sequence for inspection
func writePreview(path string, stmts []string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create preview directory '%s': %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(strings.Join(stmts, "\n")), 0644); err != nil {
		return fmt.Errorf("cannot write SQL preview '%s': %w", path, err)
	}
	return nil
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

// ExecutionPlan represents the planned rebuild reported in dry-run mode
type ExecutionPlan struct {
	RunID               string
	SourceURL           string
	Fingerprint         string
	PreviousFingerprint string
	HasPrevious         bool
	Forced              bool
	Schema              Schema
	RowCount            int
	SchemaStatements    int
	TotalStatements     int
	BatchSize           int
	BatchCount          int
	Targets             []string
	PreviewPath         string
}

// String returns a human-readable representation of the execution plan
func (p *ExecutionPlan) String() string {
	var buf bytes.Buffer

	buf.WriteString("[DRY-RUN Mode] Execution Plan\n")
	buf.WriteString("----------------------------------------------------\n")
	buf.WriteString("Execution Summary:\n")
	fmt.Fprintf(&buf, "- Run ID: %s\n", p.RunID)
	fmt.Fprintf(&buf, "- Source: %s\n", p.SourceURL)
	fmt.Fprintf(&buf, "- Fingerprint: %s\n", p.Fingerprint)
	if p.HasPrevious {
		fmt.Fprintf(&buf, "- Previous Fingerprint: %s\n", p.PreviousFingerprint)
	} else {
		buf.WriteString("- Previous Fingerprint: (none, first sync)\n")
	}
	if p.Forced {
		buf.WriteString("- Change detection: bypassed (forced)\n")
	}
	fmt.Fprintf(&buf, "- Rows in Dataset: %d\n", p.RowCount)

	buf.WriteString("\nPlanned Operations:\n")
	fmt.Fprintf(&buf, "\n1. Rebuild schema (%d statements)\n", p.SchemaStatements)
	buf.WriteString("----------------------------------------------------\n")
	fmt.Fprintf(&buf, "Table: %s\n", p.Schema.Table)
	fmt.Fprintf(&buf, "Full-text table: %s (sync: %s)\n", p.Schema.FTSTable, p.Schema.FTSSync)

	fmt.Fprintf(&buf, "\n2. INSERT Operations (%d rows)\n", p.RowCount)
	buf.WriteString("----------------------------------------------------\n")
	fmt.Fprintf(&buf, "Total statements: %d\n", p.TotalStatements)
	fmt.Fprintf(&buf, "Batches: %d (at most %d statements each)\n", p.BatchCount, p.BatchSize)

	buf.WriteString("\n3. Targets\n")
	buf.WriteString("----------------------------------------------------\n")
	if len(p.Targets) == 0 {
		buf.WriteString("(none, preview only)\n")
	}
	for _, t := range p.Targets {
		fmt.Fprintf(&buf, "- %s\n", t)
	}
	fmt.Fprintf(&buf, "\nSQL preview: %s\n", p.PreviewPath)

	return buf.String()
}
