// Package migration converts a legacy flat layout, where the cache files of
// the single forecasting context lived directly in one directory, into the
// profile/query tree.
//
// A run walks NotMigrated → BackingUp → Moving → Verifying → Committed. Any
// failure restores the legacy files from the backup, removes the partially
// built tree and ends in RolledBack, so a failed run can simply be retried.
package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forecastkit/wsctl/internal/filesystem"
	"github.com/forecastkit/wsctl/internal/logging"
	"github.com/forecastkit/wsctl/internal/workspace"
)

// State is a step of the migration state machine.
type State string

const (
	NotMigrated State = "not_migrated"
	BackingUp   State = "backing_up"
	Moving      State = "moving"
	Verifying   State = "verifying"
	Committed   State = "committed"
	RolledBack  State = "rolled_back"
)

// BackupsDir is the directory below the workspace root that holds one
// backup per migration run.
const BackupsDir = "backups"

const manifestFile = "manifest.json"

// Error reports a failed run. Phase is the state the run was in when it
// failed; by the time the error is returned the legacy layout is restored.
type Error struct {
	Phase State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("migration failed while %s (rolled back): %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Digest is the checksum and size of one legacy file.
type Digest struct {
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// Manifest is written next to the backup and lists every file it holds.
type Manifest struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Source    string            `json:"source"`
	Files     map[string]Digest `json:"files"`
}

// Report describes a run.
type Report struct {
	RunID            string              `json:"run_id,omitempty"`
	State            State               `json:"state"`
	BackupDir        string              `json:"backup_dir,omitempty"`
	Moved            []string            `json:"moved,omitempty"`
	Selection        workspace.Selection `json:"selection"`
	SettingsImported bool                `json:"settings_imported"`
	AlreadyMigrated  bool                `json:"already_migrated"`
	Bootstrapped     bool                `json:"bootstrapped"`
}

// Migrator runs the legacy migration for one workspace.
type Migrator struct {
	ws       *workspace.Workspace
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	verify   func(path, expectedHash string) (bool, error)
	movePath func(src, dst string) error
}

// Option configures a Migrator.
type Option func(*Migrator)

// WithLogger routes migration logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Migrator) { m.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Migrator) { m.now = now }
}

// New returns a Migrator for ws.
func New(ws *workspace.Workspace, opts ...Option) *Migrator {
	m := &Migrator{
		ws:       ws,
		logger:   logging.Discard(),
		now:      time.Now,
		newID:    uuid.NewString,
		verify:   filesystem.VerifyFile,
		movePath: filesystem.MovePath,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Needed reports whether a run would move anything: there is no registry yet
// and at least one legacy artefact exists.
func (m *Migrator) Needed() bool {
	return !m.ws.Registry.Exists() && len(m.legacyItems()) > 0
}

// Run migrates the legacy layout. It is a no-op once a registry exists, and
// bootstraps an empty workspace when there is nothing to migrate.
func (m *Migrator) Run(ctx context.Context) (Report, error) {
	if m.ws.Registry.Exists() {
		reg, err := m.ws.Registry.Load()
		if err != nil {
			return Report{State: Committed, AlreadyMigrated: true}, err
		}
		return Report{State: Committed, AlreadyMigrated: true, Selection: reg.Active()}, nil
	}

	items := m.legacyItems()
	if len(items) == 0 {
		reg, err := m.ws.Registry.Bootstrap()
		if err != nil {
			return Report{State: NotMigrated}, err
		}
		return Report{State: Committed, Bootstrapped: true, Selection: reg.Active()}, nil
	}

	r := &run{
		Migrator: m,
		ctx:      ctx,
		items:    items,
		report:   Report{RunID: m.newID(), State: NotMigrated},
	}
	r.report.BackupDir = filepath.Join(m.ws.Layout.Root, BackupsDir, "migration-"+r.report.RunID)
	m.logger.Info("starting legacy migration", "run_id", r.report.RunID, "items", items, "source", m.ws.Layout.LegacyRoot)

	if err := r.execute(); err != nil {
		phase := r.report.State
		r.rollback()
		r.report.State = RolledBack
		m.logger.Error("legacy migration rolled back", "run_id", r.report.RunID, "phase", phase, "error", err)
		return r.report, &Error{Phase: phase, Err: err}
	}

	r.report.State = Committed
	m.logger.Info("legacy migration committed", "run_id", r.report.RunID, "profile_id", r.report.Selection.ProfileID, "moved", len(r.report.Moved))
	return r.report, nil
}

// legacyItems lists the Cache Bundle artefacts present in the legacy root.
func (m *Migrator) legacyItems() []string {
	var items []string
	for _, name := range slices.Concat(workspace.BundleFiles, []string{workspace.CalcCacheDir}) {
		if filesystem.FileExists(filepath.Join(m.ws.Layout.LegacyRoot, name)) {
			items = append(items, name)
		}
	}
	return items
}

// run holds the state of one migration attempt.
type run struct {
	*Migrator
	ctx      context.Context
	items    []string
	manifest Manifest
	profile  *workspace.Profile
	bundle   workspace.Bundle
	backedUp bool
	registry bool
	report   Report
}

func (r *run) execute() error {
	steps := []struct {
		state State
		fn    func() error
	}{
		{BackingUp, r.backup},
		{Moving, r.move},
		{Verifying, r.verifyMoved},
	}
	for _, step := range steps {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		r.report.State = step.state
		r.logger.Debug("migration phase", "run_id", r.report.RunID, "state", step.state)
		if err := step.fn(); err != nil {
			return err
		}
	}
	return nil
}

// backup copies every legacy item into the run's backup directory, records
// its digests, and checks the copies against them.
func (r *run) backup() error {
	root := r.ws.Layout.LegacyRoot
	r.manifest = Manifest{
		RunID:     r.report.RunID,
		CreatedAt: r.now().UTC(),
		Source:    root,
		Files:     map[string]Digest{},
	}

	for _, item := range r.items {
		err := filesystem.WalkFiles(filepath.Join(root, item), func(p string, _ os.DirEntry) error {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			sum, size, err := filesystem.HashFile(p)
			if err != nil {
				return err
			}
			r.manifest.Files[filepath.ToSlash(rel)] = Digest{SHA256: sum, Size: size}
			return nil
		})
		if err != nil {
			return fmt.Errorf("hashing %s: %w", item, err)
		}
	}

	if err := os.MkdirAll(r.report.BackupDir, 0o750); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	for _, item := range r.items {
		src := filepath.Join(root, item)
		dst := filepath.Join(r.report.BackupDir, item)
		if err := copyItem(src, dst); err != nil {
			return fmt.Errorf("backing up %s: %w", item, err)
		}
	}
	for rel, want := range r.manifest.Files {
		if err := checkDigest(filepath.Join(r.report.BackupDir, filepath.FromSlash(rel)), want, filesystem.VerifyFile); err != nil {
			return fmt.Errorf("backup of %s: %w", rel, err)
		}
	}

	data, err := json.MarshalIndent(r.manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := filesystem.WriteFileAtomic(filepath.Join(r.report.BackupDir, manifestFile), append(data, '\n'), 0o600); err != nil {
		return err
	}
	r.backedUp = true
	return nil
}

// move seeds the default tree, imports legacy settings, moves every legacy
// item into the default query's Cache Bundle and writes the registry.
func (r *run) move() error {
	p, err := r.ws.Registry.SeedDefault()
	if err != nil {
		return err
	}
	r.profile = p
	r.bundle = r.ws.Layout.Bundle(p.ID, p.Queries[0].ID)

	imported, err := importSettings(r.ws, p, filepath.Join(r.ws.Layout.LegacyRoot, SettingsFile), r.logger)
	if err != nil {
		return fmt.Errorf("importing legacy settings: %w", err)
	}
	r.report.SettingsImported = imported

	for _, item := range r.items {
		dst := r.bundle.Path(item)
		if item == workspace.CalcCacheDir {
			// The seeded bundle already has an empty calc cache directory.
			if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		if err := r.movePath(filepath.Join(r.ws.Layout.LegacyRoot, item), dst); err != nil {
			return fmt.Errorf("moving %s: %w", item, err)
		}
		r.report.Moved = append(r.report.Moved, item)
	}

	reg, err := r.ws.Registry.CommitDefault(p)
	if err != nil {
		return err
	}
	r.registry = true
	r.report.Selection = reg.Active()
	return nil
}

// verifyMoved checks size and checksum of every moved file against the
// manifest.
func (r *run) verifyMoved() error {
	for rel, want := range r.manifest.Files {
		if err := checkDigest(r.bundle.Path(rel), want, r.verify); err != nil {
			return fmt.Errorf("moved file %s: %w", rel, err)
		}
	}
	return nil
}

// rollback returns the legacy root to its pre-migration state. Steps are
// best-effort and failures are logged; the backup directory is kept.
func (r *run) rollback() {
	if r.registry {
		if err := filesystem.DeleteFile(r.ws.Layout.RegistryPath()); err != nil {
			r.logger.Warn("rollback: removing registry failed", "error", err)
		}
	}

	// Legacy files are untouched until the backup is complete. After that,
	// an item may be half moved even if it never made it into Moved.
	root := r.ws.Layout.LegacyRoot
	for _, item := range r.items {
		if !r.backedUp || r.legacyIntact(item) {
			continue
		}
		dst := filepath.Join(root, item)
		if err := filesystem.RemoveTree(dst); err != nil {
			r.logger.Warn("rollback: clearing legacy path failed", "item", item, "error", err)
		}
		if err := copyItem(filepath.Join(r.report.BackupDir, item), dst); err != nil {
			r.logger.Warn("rollback: restoring from backup failed", "item", item, "error", err)
		}
	}
	r.report.Moved = nil

	if r.profile != nil {
		if err := filesystem.RemoveTree(r.ws.Layout.ProfileDir(r.profile.ID)); err != nil {
			r.logger.Warn("rollback: removing profile tree failed", "profile_id", r.profile.ID, "error", err)
		}
	}
}

// legacyIntact reports whether the legacy copy of item still holds exactly
// the files the manifest recorded for it.
func (r *run) legacyIntact(item string) bool {
	root := r.ws.Layout.LegacyRoot
	if !filesystem.FileExists(filepath.Join(root, item)) {
		return false
	}
	want := 0
	for rel, digest := range r.manifest.Files {
		if rel != item && !strings.HasPrefix(rel, item+"/") {
			continue
		}
		want++
		if checkDigest(filepath.Join(root, filepath.FromSlash(rel)), digest, filesystem.VerifyFile) != nil {
			return false
		}
	}
	got := 0
	err := filesystem.WalkFiles(filepath.Join(root, item), func(string, os.DirEntry) error {
		got++
		return nil
	})
	return err == nil && got == want
}

// LoadManifest reads the manifest of a backup directory.
func LoadManifest(backupDir string) (*Manifest, error) {
	data, err := filesystem.ReadFile(filepath.Join(backupDir, manifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest in %s: %w", backupDir, err)
	}
	return &m, nil
}

func copyItem(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return filesystem.CopyTree(src, dst)
	}
	return filesystem.CopyFile(src, dst)
}

func checkDigest(p string, want Digest, verify func(string, string) (bool, error)) error {
	ok, err := verify(p, want.SHA256)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("checksum mismatch at %s", filepath.Base(p))
	}
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.Size() != want.Size {
		return fmt.Errorf("size mismatch at %s: want %d, got %d", filepath.Base(p), want.Size, info.Size())
	}
	return nil
}
