package workspace

import (
	"errors"
	"fmt"
	"os"

	"github.com/forecastkit/wsctl/internal/filesystem"
)

// QueryStore persists query records and owns the Cache Bundle directories.
type QueryStore struct {
	*env
}

// Load reads the record of one query.
func (s *QueryStore) Load(profileID, queryID string) (*Query, error) {
	if !ValidID(profileID) || !ValidID(queryID) {
		return nil, queryNotFound(queryID)
	}
	path := s.layout.QueryPath(profileID, queryID)

	var q Query
	if err := s.readRecord(path, &q); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, queryNotFound(queryID)
		}
		return nil, err
	}
	if q.SchemaVersion > SchemaVersion {
		return nil, &CorruptionError{Path: path, Err: fmt.Errorf("schema version %d is newer than supported %d", q.SchemaVersion, SchemaVersion)}
	}
	q.SchemaVersion = SchemaVersion
	if err := s.check(path, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Save atomically writes q below profileID. The query directory must exist.
func (s *QueryStore) Save(profileID string, q *Query) error {
	q.SchemaVersion = SchemaVersion
	return s.writeRecord(s.layout.QueryPath(profileID, q.ID), q)
}

// Exists reports whether the query record is on disk.
func (s *QueryStore) Exists(profileID, queryID string) bool {
	return ValidID(profileID) && ValidID(queryID) && filesystem.FileExists(s.layout.QueryPath(profileID, queryID))
}

// CreateBundle lays out an empty Cache Bundle. No data is fetched.
func (s *QueryStore) CreateBundle(profileID, queryID string) error {
	b := s.layout.Bundle(profileID, queryID)
	if err := ensureDir(b.CalcCacheDir()); err != nil {
		return fmt.Errorf("creating cache bundle for query %s: %w", queryID, err)
	}
	return nil
}

// Remove deletes the query directory, record and Cache Bundle together.
func (s *QueryStore) Remove(profileID, queryID string) error {
	if err := filesystem.RemoveTree(s.layout.QueryDir(profileID, queryID)); err != nil {
		return fmt.Errorf("removing query %s: %w", queryID, err)
	}
	return nil
}

// CopyBundle copies the cache artefacts of one query into another query's
// bundle. The query record itself is not copied.
func (s *QueryStore) CopyBundle(src, dst Selection) error {
	from := s.layout.Bundle(src.ProfileID, src.QueryID)
	to := s.layout.Bundle(dst.ProfileID, dst.QueryID)

	for _, name := range BundleFiles {
		path := from.Path(name)
		if !filesystem.FileExists(path) {
			continue
		}
		if err := filesystem.CopyFile(path, to.Path(name)); err != nil {
			return fmt.Errorf("copying %s: %w", name, err)
		}
	}
	if filesystem.FileExists(from.CalcCacheDir()) {
		if err := filesystem.CopyTree(from.CalcCacheDir(), to.CalcCacheDir()); err != nil {
			return fmt.Errorf("copying calc cache: %w", err)
		}
	}
	return nil
}

// newQuery creates the bundle and record for a fresh query. The directory is
// removed again when the record cannot be written.
func (s *QueryStore) newQuery(profileID string, q *Query) error {
	if err := s.CreateBundle(profileID, q.ID); err != nil {
		return err
	}
	if err := s.Save(profileID, q); err != nil {
		_ = s.Remove(profileID, q.ID)
		return err
	}
	return nil
}

func (q *Query) summary() QuerySummary {
	return QuerySummary{
		ID:          q.ID,
		Name:        q.Name,
		QueryString: q.QueryString,
		CreatedAt:   q.CreatedAt,
		LastUsed:    q.LastUsed,
	}
}
