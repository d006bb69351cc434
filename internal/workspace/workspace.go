// Package workspace implements the profile/query hierarchy: the registry with
// its active pointers, per-profile and per-query records, isolated Cache
// Bundles, and the managers that create, switch, duplicate and delete them.
//
// Every mutation of a persisted record goes through an atomic
// write-then-rename, and structural operations commit directories before the
// registry on create and children before parents on delete.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/forecastkit/wsctl/internal/filesystem"
	"github.com/forecastkit/wsctl/internal/logging"
)

// Workspace bundles the stores and managers of one workspace tree.
type Workspace struct {
	Layout   Layout
	Registry *RegistryStore
	Profiles *ProfileStore
	Queries  *QueryStore

	ProfileManager *ProfileManager
	QueryManager   *QueryManager
}

// Option configures Open.
type Option func(*env)

// WithLogger routes engine logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *env) { e.logger = logger }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *env) { e.now = now }
}

// env is the state shared by the stores and managers.
type env struct {
	layout   Layout
	logger   *slog.Logger
	now      func() time.Time
	validate *validator.Validate
}

// Open wires the stores and managers for layout. It performs no I/O.
func Open(layout Layout, opts ...Option) *Workspace {
	e := &env{
		layout:   layout,
		logger:   logging.Discard(),
		now:      time.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		opt(e)
	}

	queries := &QueryStore{env: e}
	profiles := &ProfileStore{env: e, queries: queries}
	registry := &RegistryStore{env: e, profiles: profiles, queries: queries}

	ws := &Workspace{
		Layout:   layout,
		Registry: registry,
		Profiles: profiles,
		Queries:  queries,
	}
	ws.QueryManager = &QueryManager{env: e, registry: registry, profiles: profiles, queries: queries}
	ws.ProfileManager = &ProfileManager{env: e, registry: registry, profiles: profiles, queries: queries, queryManager: ws.QueryManager}
	return ws
}

// Resolver returns a path resolver for the current registry, or a legacy
// resolver when no registry exists.
func (w *Workspace) Resolver() (Resolver, error) {
	reg, err := w.Registry.Load()
	if errors.Is(err, ErrLegacyMode) {
		return NewResolver(w.Layout, nil), nil
	}
	if err != nil {
		return Resolver{}, err
	}
	return NewResolver(w.Layout, reg), nil
}

// EnsureInitialized loads the registry, bootstrapping a default profile and
// query when the workspace is brand new. Installs that still need a legacy
// migration must run it before calling this.
func (w *Workspace) EnsureInitialized() (*Registry, error) {
	reg, err := w.Registry.Load()
	if errors.Is(err, ErrLegacyMode) {
		return w.Registry.Bootstrap()
	}
	return reg, err
}

func (e *env) timestamp() time.Time {
	return e.now().UTC()
}

// readRecord decodes the JSON file at path into v and validates it. Decode or
// validation failures come back as *CorruptionError; a missing file keeps
// its os.ErrNotExist error.
func (e *env) readRecord(path string, v any) error {
	data, err := filesystem.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &CorruptionError{Path: path, Err: err}
	}
	return nil
}

// writeRecord validates v and atomically replaces path with its JSON form.
func (e *env) writeRecord(path string, v any) error {
	if err := e.validate.Struct(v); err != nil {
		return validationFailure(err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')
	return filesystem.WriteFileAtomic(path, data, 0o600)
}

func (e *env) check(path string, v any) error {
	if err := e.validate.Struct(v); err != nil {
		return &CorruptionError{Path: path, Err: err}
	}
	return nil
}

// validationFailure converts validator output into a ValidationError naming
// the first offending field.
func validationFailure(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := fmt.Sprintf("failed %q constraint", fe.Tag())
		if fe.Param() != "" {
			reason = fmt.Sprintf("failed %q constraint (%s)", fe.Tag(), fe.Param())
		}
		return &ValidationError{Field: fe.Namespace(), Reason: reason}
	}
	return &ValidationError{Field: "record", Reason: err.Error()}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}
