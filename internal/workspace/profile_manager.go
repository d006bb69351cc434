package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"

	"github.com/forecastkit/wsctl/internal/filesystem"
)

// RedactedToken replaces credentials in exported profiles.
const RedactedToken = "***"

// ProfileManager runs lifecycle operations on profiles.
type ProfileManager struct {
	*env
	registry     *RegistryStore
	profiles     *ProfileStore
	queries      *QueryStore
	queryManager *QueryManager
}

// DeleteReport describes a cascading profile deletion. Failures holds the
// children that could not be removed; the cascade continues past them.
type DeleteReport struct {
	ProfileID      string
	RemovedQueries []string
	Failures       []error
}

// Err joins the per-child failures, or returns nil.
func (r DeleteReport) Err() error {
	return errors.Join(r.Failures...)
}

// List returns the registry summaries in registry order.
func (m *ProfileManager) List() ([]ProfileSummary, Selection, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, Selection{}, err
	}
	return reg.Profiles, reg.Active(), nil
}

// Get returns the full record of one profile.
func (m *ProfileManager) Get(id string) (*Profile, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	if reg.Find(id) == nil {
		return nil, profileNotFound(id)
	}
	return m.profiles.Load(id)
}

// Active returns the active profile record.
func (m *ProfileManager) Active() (*Profile, Selection, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, Selection{}, err
	}
	p, err := m.profiles.Load(reg.ActiveProfileID)
	if err != nil {
		return nil, Selection{}, err
	}
	return p, reg.Active(), nil
}

// Create adds a profile. With cloneFromActive the active profile's shared
// settings, connection, field mappings and classification are deep-copied;
// queries are never shared, so the new profile starts with its own default
// query either way.
func (m *ProfileManager) Create(name, description string, cloneFromActive bool) (*Profile, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}

	var src *Profile
	if cloneFromActive {
		if src, err = m.profiles.Load(reg.ActiveProfileID); err != nil {
			return nil, err
		}
	}
	return m.create(reg, strings.TrimSpace(name), description, src, nil)
}

// Duplicate creates a new profile from sourceID's configuration. With
// cloneQueries every query and its Cache Bundle is copied under fresh ids
// with reset timestamps.
func (m *ProfileManager) Duplicate(sourceID, newName string, cloneQueries bool) (*Profile, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	if reg.Find(sourceID) == nil {
		return nil, profileNotFound(sourceID)
	}
	src, err := m.profiles.Load(sourceID)
	if err != nil {
		return nil, err
	}

	var srcQueries []*Query
	if cloneQueries {
		for _, qs := range src.Queries {
			q, err := m.queries.Load(sourceID, qs.ID)
			if err != nil {
				return nil, err
			}
			srcQueries = append(srcQueries, q)
		}
	}
	return m.create(reg, strings.TrimSpace(newName), src.Description, src, srcQueries)
}

func (m *ProfileManager) create(reg *Registry, name, description string, src *Profile, srcQueries []*Query) (*Profile, error) {
	if err := ValidateName("profile name", name); err != nil {
		return nil, err
	}
	if reg.NameTaken(name, "") {
		return nil, &ValidationError{Field: "profile name", Reason: fmt.Sprintf("a profile named %q already exists", name)}
	}
	if len(reg.Profiles) >= MaxProfiles {
		return nil, &ValidationError{Field: "profiles", Reason: fmt.Sprintf("limit of %d profiles reached", MaxProfiles)}
	}

	id := uniqueSlug(Slugify(name), func(candidate string) bool {
		return reg.idTaken(candidate) || filesystem.FileExists(m.layout.ProfileDir(candidate))
	})
	p := m.profiles.newProfile(id, name, description)
	if src != nil {
		p.cloneConfig(src)
	}

	now := m.timestamp()
	copies := make([]*Query, 0, len(srcQueries))
	origin := make(map[*Query]string, len(srcQueries))
	taken := map[string]bool{}
	for _, sq := range srcQueries {
		qid := uniqueSlug(Slugify(sq.Name), func(c string) bool { return taken[strings.ToLower(c)] })
		taken[strings.ToLower(qid)] = true
		q := &Query{
			ID:          qid,
			Name:        sq.Name,
			Description: sq.Description,
			QueryString: sq.QueryString,
			CreatedAt:   now,
			LastUsed:    now,
		}
		copies = append(copies, q)
		origin[q] = sq.ID
	}

	var fill func(*Query) error
	if src != nil && len(copies) > 0 {
		fill = func(q *Query) error {
			return m.queries.CopyBundle(
				Selection{ProfileID: src.ID, QueryID: origin[q]},
				Selection{ProfileID: p.ID, QueryID: q.ID},
			)
		}
	}

	if err := ensureDir(m.layout.ProfilesRoot()); err != nil {
		return nil, err
	}
	if err := m.profiles.materialize(p, copies, fill); err != nil {
		return nil, err
	}

	summary := p.summary()
	summary.LastQueryID = p.Queries[0].ID
	reg.Profiles = append(reg.Profiles, summary)
	if err := m.registry.Save(reg); err != nil {
		if rmErr := filesystem.RemoveTree(m.layout.ProfileDir(p.ID)); rmErr != nil {
			m.logger.Warn("failed to clean up profile after registry error", "profile_id", p.ID, "error", rmErr)
		}
		return nil, err
	}

	m.logger.Info("profile created", "profile_id", p.ID, "queries", len(p.Queries), "cloned_from", cloneSource(src))
	return p, nil
}

// Switch makes profileID active together with its last known good query.
// Only the registry and the profile and query timestamps are rewritten; Cache
// Bundles are never touched.
func (m *ProfileManager) Switch(profileID string) (Selection, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return Selection{}, err
	}
	summary := reg.Find(profileID)
	if summary == nil {
		return Selection{}, profileNotFound(profileID)
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return Selection{}, err
	}

	q := lastKnownGood(p, summary.LastQueryID)
	record, err := m.queries.Load(profileID, q.ID)
	if err != nil {
		return Selection{}, err
	}
	now := m.timestamp()
	p.LastUsed = now
	q.LastUsed = now
	record.LastUsed = now
	if err := m.queries.Save(profileID, record); err != nil {
		return Selection{}, err
	}
	if err := m.profiles.Save(p); err != nil {
		return Selection{}, err
	}

	reg.sync(p)
	summary = reg.Find(profileID)
	summary.LastQueryID = q.ID
	reg.ActiveProfileID = profileID
	reg.ActiveQueryID = q.ID
	if err := m.registry.Save(reg); err != nil {
		return Selection{}, err
	}

	m.logger.Debug("profile switched", "profile_id", profileID, "query_id", q.ID)
	return reg.Active(), nil
}

// Delete removes a profile that is neither active nor the last one. Child
// queries and their Cache Bundles go first, best-effort, then the profile
// directory, then the registry entry.
func (m *ProfileManager) Delete(profileID string) (DeleteReport, error) {
	report := DeleteReport{ProfileID: profileID}

	reg, err := m.registry.Load()
	if err != nil {
		return report, err
	}
	if reg.Find(profileID) == nil {
		return report, profileNotFound(profileID)
	}
	if reg.ActiveProfileID == profileID {
		return report, &SafetyError{Reason: fmt.Sprintf("profile %q is active; switch to another profile before deleting it", profileID)}
	}
	if len(reg.Profiles) == 1 {
		return report, &SafetyError{Reason: fmt.Sprintf("profile %q is the only profile", profileID)}
	}

	p, err := m.profiles.Load(profileID)
	if err != nil {
		m.logger.Warn("profile record unreadable, removing directory only", "profile_id", profileID, "error", err)
	} else {
		for _, q := range p.Queries {
			if err := m.queryManager.Delete(profileID, q.ID, true); err != nil {
				m.logger.Warn("failed to delete query during cascade", "profile_id", profileID, "query_id", q.ID, "error", err)
				report.Failures = append(report.Failures, fmt.Errorf("query %s: %w", q.ID, err))
				continue
			}
			report.RemovedQueries = append(report.RemovedQueries, q.ID)
		}
	}

	if err := filesystem.RemoveTree(m.layout.ProfileDir(profileID)); err != nil {
		m.logger.Warn("failed to remove profile directory", "profile_id", profileID, "error", err)
		report.Failures = append(report.Failures, fmt.Errorf("profile directory: %w", err))
	}

	reg.remove(profileID)
	if err := m.registry.Save(reg); err != nil {
		return report, err
	}
	m.logger.Info("profile deleted", "profile_id", profileID, "queries", len(report.RemovedQueries), "failures", len(report.Failures))
	return report, nil
}

// Rename changes a profile's display name. Its id and directory stay.
func (m *ProfileManager) Rename(profileID, newName string) (*Profile, error) {
	newName = strings.TrimSpace(newName)
	if err := ValidateName("profile name", newName); err != nil {
		return nil, err
	}
	return m.update(profileID, func(reg *Registry, p *Profile) error {
		if reg.NameTaken(newName, profileID) {
			return &ValidationError{Field: "profile name", Reason: fmt.Sprintf("a profile named %q already exists", newName)}
		}
		p.Name = newName
		return nil
	})
}

// UpdateSettings replaces the shared settings after bounds checking.
func (m *ProfileManager) UpdateSettings(profileID string, settings SharedSettings) (*Profile, error) {
	if err := m.validate.Struct(settings); err != nil {
		return nil, validationFailure(err)
	}
	return m.update(profileID, func(_ *Registry, p *Profile) error {
		p.SharedSettings = settings
		return nil
	})
}

// UpdateConnection stores the endpoint and credential. Changing the endpoint
// or token invalidates an earlier successful test.
func (m *ProfileManager) UpdateConnection(profileID, baseURL, token string) (*Profile, error) {
	return m.update(profileID, func(_ *Registry, p *Profile) error {
		baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
		c := &p.ConnectionConfig
		if c.BaseURL != baseURL || c.Token != token {
			c.Configured = false
			c.LastTestSuccess = nil
		}
		c.BaseURL = baseURL
		c.Token = token
		return nil
	})
}

// RecordConnectionTest stores the outcome of a connectivity test. Success
// marks the connection configured; a failure is recorded but never clears
// the configured flag, so a momentary network error does not lock the user
// out of query actions.
func (m *ProfileManager) RecordConnectionTest(profileID string, success bool) (*Profile, error) {
	return m.update(profileID, func(_ *Registry, p *Profile) error {
		c := &p.ConnectionConfig
		if success && c.BaseURL == "" {
			return &ValidationError{Field: "base_url", Reason: "set a base URL before recording a successful test"}
		}
		c.LastTestSuccess = &success
		if success {
			c.Configured = true
		}
		return nil
	})
}

// UpdateFieldMappings merges mappings into the profile. An empty value
// removes the mapping.
func (m *ProfileManager) UpdateFieldMappings(profileID string, mappings map[string]string) (*Profile, error) {
	return m.update(profileID, func(_ *Registry, p *Profile) error {
		for k, v := range mappings {
			if strings.TrimSpace(k) == "" {
				return &ValidationError{Field: "field_mappings", Reason: "mapping name must not be empty"}
			}
			if v == "" {
				delete(p.FieldMappings, k)
				continue
			}
			p.FieldMappings[k] = v
		}
		return nil
	})
}

// UpdateClassification replaces the category lists named in config.
func (m *ProfileManager) UpdateClassification(profileID string, config map[string][]string) (*Profile, error) {
	return m.update(profileID, func(_ *Registry, p *Profile) error {
		maps.Copy(p.ClassificationConfig, config)
		return nil
	})
}

// Export returns the profile as indented JSON with the token redacted.
func (m *ProfileManager) Export(profileID string) ([]byte, error) {
	p, err := m.Get(profileID)
	if err != nil {
		return nil, err
	}
	if p.ConnectionConfig.Token != "" {
		p.ConnectionConfig.Token = RedactedToken
	}
	return json.MarshalIndent(p, "", "  ")
}

func (m *ProfileManager) update(profileID string, mutate func(*Registry, *Profile) error) (*Profile, error) {
	reg, err := m.registry.Load()
	if err != nil {
		return nil, err
	}
	if reg.Find(profileID) == nil {
		return nil, profileNotFound(profileID)
	}
	p, err := m.profiles.Load(profileID)
	if err != nil {
		return nil, err
	}
	if err := mutate(reg, p); err != nil {
		return nil, err
	}
	if err := m.profiles.Save(p); err != nil {
		return nil, err
	}
	reg.sync(p)
	if err := m.registry.Save(reg); err != nil {
		return nil, err
	}
	return p, nil
}

func cloneSource(src *Profile) string {
	if src == nil {
		return ""
	}
	return src.ID
}
