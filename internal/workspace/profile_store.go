package workspace

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/forecastkit/wsctl/internal/filesystem"
)

// ProfileStore persists profile records.
type ProfileStore struct {
	*env
	queries *QueryStore
}

// profileUpgrades[v] lifts a record from schema version v to v+1.
var profileUpgrades = []func(*Profile){
	0: func(p *Profile) {
		if p.SharedSettings.PertFactor == 0 {
			p.SharedSettings.PertFactor = DefaultPertFactor
		}
		if p.SharedSettings.DataPointsCount == 0 {
			p.SharedSettings.DataPointsCount = DefaultDataPointsCount
		}
	},
}

// Load reads a profile, upgrading older schema versions and repairing two
// kinds of damage in place: query entries whose directory is gone are
// dropped, and a profile left without queries gets a fresh default query.
func (s *ProfileStore) Load(id string) (*Profile, error) {
	if !ValidID(id) {
		return nil, profileNotFound(id)
	}
	path := s.layout.ProfilePath(id)

	var p Profile
	if err := s.readRecord(path, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, profileNotFound(id)
		}
		return nil, err
	}
	if p.SchemaVersion > SchemaVersion {
		return nil, &CorruptionError{Path: path, Err: fmt.Errorf("schema version %d is newer than supported %d", p.SchemaVersion, SchemaVersion)}
	}

	dirty := false
	for v := p.SchemaVersion; v < SchemaVersion; v++ {
		profileUpgrades[v](&p)
		dirty = true
	}
	p.SchemaVersion = SchemaVersion
	if p.FieldMappings == nil {
		p.FieldMappings = map[string]string{}
	}
	if p.ClassificationConfig == nil {
		p.ClassificationConfig = map[string][]string{}
	}
	if err := s.check(path, &p); err != nil {
		return nil, err
	}
	if p.ID != id {
		return nil, &CorruptionError{Path: path, Err: fmt.Errorf("record id %q does not match directory %q", p.ID, id)}
	}

	before := len(p.Queries)
	p.Queries = slices.DeleteFunc(p.Queries, func(q QuerySummary) bool {
		return !s.queries.Exists(id, q.ID)
	})
	if len(p.Queries) != before {
		s.logger.Warn("dropped query entries without a directory", "profile_id", id, "count", before-len(p.Queries))
		dirty = true
	}

	if len(p.Queries) == 0 {
		q, err := s.defaultQuery(&p)
		if err != nil {
			return nil, fmt.Errorf("repairing empty profile %s: %w", id, err)
		}
		p.Queries = append(p.Queries, q.summary())
		s.logger.Warn("profile had no queries, created default query", "profile_id", id, "query_id", q.ID)
		dirty = true
	}

	if dirty {
		if err := s.Save(&p); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Save atomically writes p. The profile directory must exist.
func (s *ProfileStore) Save(p *Profile) error {
	p.SchemaVersion = SchemaVersion
	return s.writeRecord(s.layout.ProfilePath(p.ID), p)
}

// Exists reports whether the profile record is on disk.
func (s *ProfileStore) Exists(id string) bool {
	return ValidID(id) && filesystem.FileExists(s.layout.ProfilePath(id))
}

// newProfile builds a profile record with placeholder settings.
func (s *ProfileStore) newProfile(id, name, description string) *Profile {
	now := s.timestamp()
	return &Profile{
		SchemaVersion:        SchemaVersion,
		ID:                   id,
		Name:                 name,
		Description:          description,
		CreatedAt:            now,
		LastUsed:             now,
		SharedSettings:       DefaultSharedSettings(),
		FieldMappings:        map[string]string{},
		ClassificationConfig: map[string][]string{},
	}
}

// defaultQuery creates a "Default" query inside p without touching the
// profile record.
func (s *ProfileStore) defaultQuery(p *Profile) (*Query, error) {
	name := DefaultName
	for i := 2; p.QueryNameTaken(name, ""); i++ {
		name = fmt.Sprintf("%s %d", DefaultName, i)
	}

	now := s.timestamp()
	q := &Query{
		ID:        uniqueSlug(Slugify(name), p.queryIDTaken),
		Name:      name,
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := ensureDir(s.layout.QueriesRoot(p.ID)); err != nil {
		return nil, err
	}
	if err := s.queries.newQuery(p.ID, q); err != nil {
		return nil, err
	}
	return q, nil
}

// materialize writes a brand-new profile tree: directories, every query in
// qs, then the profile record. On any failure the whole profile directory is
// removed so no half-built tree survives.
func (s *ProfileStore) materialize(p *Profile, qs []*Query, fill func(q *Query) error) (err error) {
	dir := s.layout.ProfileDir(p.ID)
	if filesystem.FileExists(dir) {
		return fmt.Errorf("profile directory %s already exists", dir)
	}
	defer func() {
		if err != nil {
			if rmErr := filesystem.RemoveTree(dir); rmErr != nil {
				s.logger.Warn("failed to clean up partial profile", "profile_id", p.ID, "error", rmErr)
			}
		}
	}()

	if err := ensureDir(s.layout.QueriesRoot(p.ID)); err != nil {
		return fmt.Errorf("creating profile directory: %w", err)
	}

	if len(qs) == 0 {
		q, err := s.defaultQuery(p)
		if err != nil {
			return err
		}
		p.Queries = append(p.Queries, q.summary())
	}
	for _, q := range qs {
		if err := s.queries.newQuery(p.ID, q); err != nil {
			return err
		}
		if fill != nil {
			if err := fill(q); err != nil {
				return err
			}
		}
		p.Queries = append(p.Queries, q.summary())
	}

	return s.Save(p)
}
