package workspace

import (
	"fmt"
	"slices"
	"strings"
)

// QueryManager runs lifecycle operations on the queries of a profile.
type QueryManager struct {
	*env
	registry *RegistryStore
	profiles *ProfileStore
	queries  *QueryStore
}

// List returns the query summaries of a profile.
func (m *QueryManager) List(profileID string) ([]QuerySummary, error) {
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}
	return p.Queries, nil
}

// Get returns the full record of one query.
func (m *QueryManager) Get(profileID, queryID string) (*Query, error) {
	if !m.profiles.Exists(profileID) {
		return nil, profileNotFound(profileID)
	}
	return m.queries.Load(profileID, queryID)
}

// Create adds a query to a profile with an empty Cache Bundle. The profile
// needs a tested connection first, since the first use of a query fetches
// from the data source.
func (m *QueryManager) Create(profileID, name, queryString, description string) (*Query, error) {
	name = strings.TrimSpace(name)
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}

	if !Status(p).ConnectionConfigured {
		return nil, &DependencyError{Missing: StageConnection, Reason: "cannot create a query before the data source connection has been tested"}
	}
	if err := m.checkNewName(p, name); err != nil {
		return nil, err
	}

	now := m.timestamp()
	q := &Query{
		ID:          uniqueSlug(Slugify(name), p.queryIDTaken),
		Name:        name,
		Description: description,
		QueryString: queryString,
		CreatedAt:   now,
		LastUsed:    now,
	}
	if err := m.attach(reg, p, q, nil); err != nil {
		return nil, err
	}
	m.logger.Info("query created", "profile_id", profileID, "query_id", q.ID)
	return q, nil
}

// Switch makes queryID the active query. Only the registry is rewritten; the
// Cache Bundles stay untouched and warm.
func (m *QueryManager) Switch(profileID, queryID string) (Selection, error) {
	reg, err := m.registry.SetActive(profileID, queryID)
	if err != nil {
		return Selection{}, err
	}
	m.logger.Debug("query switched", "profile_id", profileID, "query_id", queryID)
	return reg.Active(), nil
}

// Delete removes a query and its Cache Bundle. The active query and the last
// query of a profile are protected unless allowCascade is set, which profile
// deletion uses to tear down every child.
func (m *QueryManager) Delete(profileID, queryID string, allowCascade bool) error {
	reg, err := m.registry.Load()
	if err != nil {
		return err
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return err
	}
	if p.FindQuery(queryID) == nil {
		return queryNotFound(queryID)
	}

	if !allowCascade {
		if reg.ActiveProfileID == profileID && reg.ActiveQueryID == queryID {
			return &SafetyError{Reason: fmt.Sprintf("query %q is active; switch to another query before deleting it", queryID)}
		}
		if len(p.Queries) == 1 {
			return &SafetyError{Reason: fmt.Sprintf("query %q is the only query of profile %q; a profile must keep at least one query", queryID, profileID)}
		}
	}

	if err := m.queries.Remove(profileID, queryID); err != nil {
		return err
	}
	p.Queries = slices.DeleteFunc(p.Queries, func(q QuerySummary) bool { return q.ID == queryID })
	if err := m.profiles.Save(p); err != nil {
		return err
	}

	if !allowCascade {
		reg.sync(p)
		if err := m.registry.Save(reg); err != nil {
			return err
		}
	}
	m.logger.Info("query deleted", "profile_id", profileID, "query_id", queryID, "cascade", allowCascade)
	return nil
}

// Duplicate copies a query's record under a new name, and its Cache Bundle
// when copyCache is set. Shared settings live on the profile and are not
// copied.
func (m *QueryManager) Duplicate(profileID, sourceQueryID, newName string, copyCache bool) (*Query, error) {
	newName = strings.TrimSpace(newName)
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}
	src, err := m.queries.Load(profileID, sourceQueryID)
	if err != nil {
		return nil, err
	}
	if err := m.checkNewName(p, newName); err != nil {
		return nil, err
	}

	now := m.timestamp()
	q := &Query{
		ID:          uniqueSlug(Slugify(newName), p.queryIDTaken),
		Name:        newName,
		Description: src.Description,
		QueryString: src.QueryString,
		CreatedAt:   now,
		LastUsed:    now,
	}

	var fill func(*Query) error
	if copyCache {
		fill = func(q *Query) error {
			return m.queries.CopyBundle(
				Selection{ProfileID: profileID, QueryID: src.ID},
				Selection{ProfileID: profileID, QueryID: q.ID},
			)
		}
	}
	if err := m.attach(reg, p, q, fill); err != nil {
		return nil, err
	}
	m.logger.Info("query duplicated", "profile_id", profileID, "source_id", src.ID, "query_id", q.ID, "copy_cache", copyCache)
	return q, nil
}

// Rename changes the display name of a query. Its id and directory stay.
func (m *QueryManager) Rename(profileID, queryID, newName string) (*Query, error) {
	newName = strings.TrimSpace(newName)
	if err := ValidateName("query name", newName); err != nil {
		return nil, err
	}
	return m.update(profileID, queryID, func(p *Profile, q *Query) error {
		if p.QueryNameTaken(newName, queryID) {
			return &ValidationError{Field: "query name", Reason: fmt.Sprintf("a query named %q already exists in this profile", newName)}
		}
		q.Name = newName
		return nil
	})
}

// UpdateQueryString replaces the data-source query of a query. Cached data is
// left in place; refreshing it is the fetcher's job.
func (m *QueryManager) UpdateQueryString(profileID, queryID, queryString, description string) (*Query, error) {
	return m.update(profileID, queryID, func(_ *Profile, q *Query) error {
		q.QueryString = queryString
		if description != "" {
			q.Description = description
		}
		return nil
	})
}

func (m *QueryManager) update(profileID, queryID string, mutate func(*Profile, *Query) error) (*Query, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}
	q, err := m.queries.Load(profileID, queryID)
	if err != nil {
		return nil, err
	}
	if err := mutate(p, q); err != nil {
		return nil, err
	}

	if err := m.queries.Save(profileID, q); err != nil {
		return nil, err
	}
	if s := p.FindQuery(queryID); s != nil {
		s.Name = q.Name
		s.QueryString = q.QueryString
	}
	if err := m.profiles.Save(p); err != nil {
		return nil, err
	}
	reg.sync(p)
	if err := m.registry.Save(reg); err != nil {
		return nil, err
	}
	return q, nil
}

func (m *QueryManager) checkNewName(p *Profile, name string) error {
	if err := ValidateName("query name", name); err != nil {
		return err
	}
	if p.QueryNameTaken(name, "") {
		return &ValidationError{Field: "query name", Reason: fmt.Sprintf("a query named %q already exists in this profile", name)}
	}
	if len(p.Queries) >= MaxQueriesPerProfile {
		return &ValidationError{Field: "queries", Reason: fmt.Sprintf("limit of %d queries per profile reached", MaxQueriesPerProfile)}
	}
	return nil
}

// attach writes q's directory and record, then the profile, then the
// registry. A failure before the profile is saved removes the query
// directory again.
func (m *QueryManager) attach(reg *Registry, p *Profile, q *Query, fill func(*Query) error) error {
	if err := ensureDir(m.layout.QueriesRoot(p.ID)); err != nil {
		return err
	}
	if err := m.queries.newQuery(p.ID, q); err != nil {
		return err
	}
	if fill != nil {
		if err := fill(q); err != nil {
			_ = m.queries.Remove(p.ID, q.ID)
			return err
		}
	}

	p.Queries = append(p.Queries, q.summary())
	if err := m.profiles.Save(p); err != nil {
		_ = m.queries.Remove(p.ID, q.ID)
		return err
	}
	reg.sync(p)
	return m.registry.Save(reg)
}
