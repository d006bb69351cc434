package workspace

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/forecastkit/wsctl/internal/filesystem"
)

// RegistryStore guards the registry file. Save is the only way the active
// pointers change on disk.
type RegistryStore struct {
	*env
	profiles *ProfileStore
	queries  *QueryStore
}

// Exists reports whether a registry file is present. Its absence means the
// install still uses the legacy layout.
func (s *RegistryStore) Exists() bool {
	return filesystem.FileExists(s.layout.RegistryPath())
}

// Load reads and validates the registry. A missing file yields ErrLegacyMode.
// A corrupt file is quarantined and the registry is rebuilt from the profile
// directories on disk, or bootstrapped from scratch, so startup never fails on
// a damaged pointer file. Entries whose profile directory vanished are pruned
// and dangling active pointers are repaired.
func (s *RegistryStore) Load() (*Registry, error) {
	path := s.layout.RegistryPath()

	var reg Registry
	err := s.readRecord(path, &reg)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, ErrLegacyMode
	case err != nil:
		var corrupt *CorruptionError
		if errors.As(err, &corrupt) {
			return s.rebuild(corrupt)
		}
		return nil, err
	}

	if reg.SchemaVersion > SchemaVersion {
		return s.rebuild(&CorruptionError{Path: path, Err: fmt.Errorf("schema version %d is newer than supported %d", reg.SchemaVersion, SchemaVersion)})
	}
	if err := s.check(path, &reg); err != nil {
		var corrupt *CorruptionError
		errors.As(err, &corrupt)
		return s.rebuild(corrupt)
	}

	dirty := reg.SchemaVersion != SchemaVersion
	reg.SchemaVersion = SchemaVersion

	repaired, err := s.reconcile(&reg)
	if err != nil {
		return nil, err
	}
	if dirty || repaired {
		if err := s.Save(&reg); err != nil {
			return nil, err
		}
	}
	return &reg, nil
}

// Save atomically replaces the registry file.
func (s *RegistryStore) Save(reg *Registry) error {
	if err := ensureDir(s.layout.Root); err != nil {
		return err
	}
	reg.SchemaVersion = SchemaVersion
	return s.writeRecord(s.layout.RegistryPath(), reg)
}

// SetActive points the registry at profileID/queryID after checking that
// both exist and that the query belongs to the profile.
func (s *RegistryStore) SetActive(profileID, queryID string) (*Registry, error) {
	reg, err := s.Load()
	if err != nil {
		return nil, err
	}
	summary := reg.Find(profileID)
	if summary == nil {
		return nil, profileNotFound(profileID)
	}
	p, err := s.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}
	if p.FindQuery(queryID) == nil || !s.queries.Exists(profileID, queryID) {
		return nil, queryNotFound(queryID)
	}

	reg.ActiveProfileID = profileID
	reg.ActiveQueryID = queryID
	summary.LastQueryID = queryID
	summary.LastUsed = s.timestamp()
	if err := s.Save(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Bootstrap creates the first profile and query of a fresh install and
// writes a registry pointing at them.
func (s *RegistryStore) Bootstrap() (*Registry, error) {
	p, err := s.SeedDefault()
	if err != nil {
		return nil, err
	}
	reg, err := s.CommitDefault(p)
	if err != nil {
		_ = filesystem.RemoveTree(s.layout.ProfileDir(p.ID))
		return nil, err
	}
	s.logger.Info("bootstrapped workspace", "profile_id", p.ID, "query_id", reg.ActiveQueryID)
	return reg, nil
}

// SeedDefault materializes a "Default" profile with one default query but
// writes no registry. Migration fills the seeded Cache Bundle before it
// commits.
func (s *RegistryStore) SeedDefault() (*Profile, error) {
	if err := ensureDir(s.layout.ProfilesRoot()); err != nil {
		return nil, err
	}

	id := uniqueSlug(Slugify(DefaultName), func(candidate string) bool {
		return filesystem.FileExists(s.layout.ProfileDir(candidate))
	})
	p := s.profiles.newProfile(id, DefaultName, "")
	if err := s.profiles.materialize(p, nil, nil); err != nil {
		return nil, fmt.Errorf("creating default profile: %w", err)
	}
	return p, nil
}

// CommitDefault writes a registry whose only, active profile is p.
func (s *RegistryStore) CommitDefault(p *Profile) (*Registry, error) {
	if len(p.Queries) == 0 {
		return nil, fmt.Errorf("profile %s has no queries", p.ID)
	}
	summary := p.summary()
	summary.LastQueryID = p.Queries[0].ID
	reg := &Registry{
		SchemaVersion:   SchemaVersion,
		ActiveProfileID: p.ID,
		ActiveQueryID:   p.Queries[0].ID,
		Profiles:        []ProfileSummary{summary},
	}
	if err := s.Save(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// rebuild replaces a corrupt registry. Valid profile directories are
// re-registered; when none survive, a default profile is bootstrapped.
func (s *RegistryStore) rebuild(cause *CorruptionError) (*Registry, error) {
	path := s.layout.RegistryPath()
	s.logger.Warn("registry is corrupt, rebuilding", "error", cause)

	quarantine := fmt.Sprintf("%s.corrupt-%d", path, s.timestamp().UnixNano())
	if err := os.Rename(path, quarantine); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("quarantining corrupt registry: %w", err)
	}

	entries, err := os.ReadDir(s.layout.ProfilesRoot())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	reg := &Registry{SchemaVersion: SchemaVersion}
	for _, entry := range entries {
		if !entry.IsDir() || len(reg.Profiles) >= MaxProfiles {
			continue
		}
		p, err := s.profiles.Load(entry.Name())
		if err != nil {
			s.logger.Warn("skipping unreadable profile during rebuild", "profile_id", entry.Name(), "error", err)
			continue
		}
		if reg.NameTaken(p.Name, "") {
			s.logger.Warn("skipping profile with duplicate name during rebuild", "profile_id", p.ID, "name", p.Name)
			continue
		}
		reg.Profiles = append(reg.Profiles, p.summary())
	}

	if len(reg.Profiles) == 0 {
		return s.Bootstrap()
	}

	slices.SortStableFunc(reg.Profiles, func(a, b ProfileSummary) int {
		return b.LastUsed.Compare(a.LastUsed)
	})
	if _, err := s.reconcile(reg); err != nil {
		return nil, err
	}
	if err := s.Save(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// reconcile prunes entries whose profile directory is gone and repairs the
// active pointers. It reports whether reg changed.
func (s *RegistryStore) reconcile(reg *Registry) (bool, error) {
	changed := false

	kept := reg.Profiles[:0]
	for _, summary := range reg.Profiles {
		if s.profiles.Exists(summary.ID) {
			kept = append(kept, summary)
			continue
		}
		s.logger.Warn("pruning registry entry without profile directory", "profile_id", summary.ID)
		changed = true
	}
	reg.Profiles = kept

	if len(reg.Profiles) == 0 {
		fresh, err := s.Bootstrap()
		if err != nil {
			return false, err
		}
		*reg = *fresh
		return true, nil
	}

	active := reg.Find(reg.ActiveProfileID)
	if active == nil {
		active = &reg.Profiles[0]
		s.logger.Warn("active profile missing, falling back", "missing", reg.ActiveProfileID, "profile_id", active.ID)
		reg.ActiveProfileID = active.ID
		reg.ActiveQueryID = ""
		changed = true
	}

	p, err := s.profiles.Load(active.ID)
	if err != nil {
		return false, err
	}
	if p.FindQuery(reg.ActiveQueryID) == nil {
		q := lastKnownGood(p, active.LastQueryID)
		s.logger.Warn("active query missing, falling back", "missing", reg.ActiveQueryID, "query_id", q.ID)
		reg.ActiveQueryID = q.ID
		active.LastQueryID = q.ID
		active.QueryCount = len(p.Queries)
		changed = true
	}
	return changed, nil
}

// lastKnownGood picks the query a profile should resolve to: the last one
// selected inside it when still present, otherwise the most recently used.
// p must hold at least one query.
func lastKnownGood(p *Profile, lastQueryID string) *QuerySummary {
	if lastQueryID != "" {
		if q := p.FindQuery(lastQueryID); q != nil {
			return q
		}
	}
	return p.MostRecentQuery()
}

// sync refreshes the registry summary of p, keeping its LastQueryID.
func (reg *Registry) sync(p *Profile) {
	summary := reg.Find(p.ID)
	if summary == nil {
		return
	}
	last := summary.LastQueryID
	*summary = p.summary()
	if p.FindQuery(last) != nil {
		summary.LastQueryID = last
	}
}
