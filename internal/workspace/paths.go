package workspace

import (
	"path"
	"path/filepath"
	"strings"
)

// On-disk names.
const (
	RegistryFile = "profiles.json"
	ProfilesDir  = "profiles"
	ProfileFile  = "profile.json"
	QueriesDir   = "queries"
	QueryFile    = "query.json"
)

// Cache Bundle artefacts, one set per query.
const (
	RawDataCache    = "jira_cache.json"
	StatisticsCache = "project_data.json"
	MetricsCache    = "metrics_snapshots.json"
	CalcCacheDir    = "cache"
)

// BundleFiles lists the file artefacts of a Cache Bundle.
var BundleFiles = []string{RawDataCache, StatisticsCache, MetricsCache}

var queryScoped = map[string]bool{
	RawDataCache:    true,
	StatisticsCache: true,
	MetricsCache:    true,
	CalcCacheDir:    true,
	QueryFile:       true,
}

// Layout computes the fixed physical locations of the workspace tree. The
// tree is addressed by slug ids only, never by display names.
type Layout struct {
	Root       string
	LegacyRoot string
}

// NewLayout returns a layout rooted at root. An empty legacyRoot means the
// legacy flat files lived directly in root.
func NewLayout(root, legacyRoot string) Layout {
	if legacyRoot == "" {
		legacyRoot = root
	}
	return Layout{Root: root, LegacyRoot: legacyRoot}
}

func (l Layout) RegistryPath() string {
	return filepath.Join(l.Root, RegistryFile)
}

func (l Layout) ProfilesRoot() string {
	return filepath.Join(l.Root, ProfilesDir)
}

func (l Layout) ProfileDir(profileID string) string {
	return filepath.Join(l.Root, ProfilesDir, profileID)
}

func (l Layout) ProfilePath(profileID string) string {
	return filepath.Join(l.ProfileDir(profileID), ProfileFile)
}

func (l Layout) QueriesRoot(profileID string) string {
	return filepath.Join(l.ProfileDir(profileID), QueriesDir)
}

func (l Layout) QueryDir(profileID, queryID string) string {
	return filepath.Join(l.QueriesRoot(profileID), queryID)
}

func (l Layout) QueryPath(profileID, queryID string) string {
	return filepath.Join(l.QueryDir(profileID, queryID), QueryFile)
}

// Bundle returns the Cache Bundle of one query.
func (l Layout) Bundle(profileID, queryID string) Bundle {
	return Bundle{Dir: l.QueryDir(profileID, queryID)}
}

// Resolver maps logical file names to physical paths for one registry
// snapshot. It performs no I/O; callers build a fresh one after every
// switch.
type Resolver struct {
	layout   Layout
	registry *Registry
}

// NewResolver returns a resolver for reg. A nil registry selects legacy mode.
func NewResolver(layout Layout, reg *Registry) Resolver {
	return Resolver{layout: layout, registry: reg}
}

// LegacyMode reports whether paths resolve into the flat pre-profile layout.
func (r Resolver) LegacyMode() bool {
	return r.registry == nil
}

// Active returns the selection the resolver is bound to. It is empty in
// legacy mode.
func (r Resolver) Active() Selection {
	if r.registry == nil {
		return Selection{}
	}
	return r.registry.Active()
}

// Resolve returns the physical path for logical. Cache Bundle artefacts land
// in the active query directory, profile.json in the active profile
// directory, and everything else in the workspace root.
func (r Resolver) Resolve(logical string) string {
	if r.registry == nil {
		return filepath.Join(r.layout.LegacyRoot, logical)
	}

	active := r.registry.Active()
	switch {
	case isQueryScoped(logical):
		return filepath.Join(r.layout.QueryDir(active.ProfileID, active.QueryID), filepath.FromSlash(logical))
	case logical == ProfileFile:
		return r.layout.ProfilePath(active.ProfileID)
	default:
		return filepath.Join(r.layout.Root, logical)
	}
}

// isQueryScoped also accepts fragment paths below the calc cache directory,
// such as "cache/velocity.json".
func isQueryScoped(logical string) bool {
	if queryScoped[logical] {
		return true
	}
	return strings.HasPrefix(path.Clean(filepath.ToSlash(logical)), CalcCacheDir+"/")
}
