package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forecastkit/wsctl/internal/filesystem"
)

// Bundle is the set of cache artefacts owned by one query.
type Bundle struct {
	Dir string
}

func (b Bundle) RawDataPath() string    { return b.Path(RawDataCache) }
func (b Bundle) StatisticsPath() string { return b.Path(StatisticsCache) }
func (b Bundle) MetricsPath() string    { return b.Path(MetricsCache) }
func (b Bundle) CalcCacheDir() string   { return b.Path(CalcCacheDir) }

// Path returns the location of name inside the bundle.
func (b Bundle) Path(name string) string {
	return filepath.Join(b.Dir, filepath.FromSlash(name))
}

// FragmentPath returns the location of a calculation-cache fragment.
func (b Bundle) FragmentPath(name string) string {
	return filepath.Join(b.CalcCacheDir(), filepath.Base(name))
}

// ActiveTarget captures the selection a long-running fetch writes into. Pass
// it back to WriteCache when the fetch completes.
func (w *Workspace) ActiveTarget() (Selection, error) {
	reg, err := w.Registry.Load()
	if err != nil {
		return Selection{}, err
	}
	return reg.Active(), nil
}

// WriteCache stores data under logical for target. The destination is
// resolved at write time, and the write is dropped with ErrStaleTarget when
// target is no longer the active selection, so a fetch that finishes after
// the user switched away never lands in the wrong bundle.
func (w *Workspace) WriteCache(target Selection, logical string, data []byte) (string, error) {
	if !isQueryScoped(logical) || logical == QueryFile || logical == CalcCacheDir || strings.Contains(filepath.ToSlash(logical), "..") {
		return "", &ValidationError{Field: "logical", Reason: fmt.Sprintf("%q is not a cache bundle artefact", logical)}
	}

	reg, err := w.Registry.Load()
	if err != nil {
		return "", err
	}
	if reg.Active() != target {
		w.Registry.logger.Info("discarding stale cache write",
			"profile_id", target.ProfileID, "query_id", target.QueryID, "logical", logical)
		return "", ErrStaleTarget
	}

	path := NewResolver(w.Layout, reg).Resolve(logical)
	if err := ensureDir(filepath.Dir(path)); err != nil {
		return "", err
	}
	if err := filesystem.WriteFileAtomic(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}
