package workspace

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// SchemaVersion is written into every persisted record.
const SchemaVersion = 1

const (
	MaxProfiles          = 50
	MaxQueriesPerProfile = 100
	MaxNameLength        = 100
)

// Placeholder shared settings used for bootstrapped profiles.
const (
	DefaultPertFactor      = 1.5
	DefaultDataPointsCount = 12
	DefaultName            = "Default"
)

// Registry is the single top-level pointer file.
type Registry struct {
	SchemaVersion   int              `json:"schema_version"`
	ActiveProfileID string           `json:"active_profile_id" validate:"required"`
	ActiveQueryID   string           `json:"active_query_id" validate:"required"`
	Profiles        []ProfileSummary `json:"profiles" validate:"min=1,dive"`
}

// ProfileSummary is the denormalized view of a profile kept in the registry
// for fast listing.
type ProfileSummary struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	LastUsed    time.Time `json:"last_used"`
	BaseURL     string    `json:"base_url"`
	PertFactor  float64   `json:"pert_factor"`
	QueryCount  int       `json:"query_count"`
	LastQueryID string    `json:"last_query_id,omitempty"`
}

// SharedSettings are read by every query of a profile so that all of them
// are compared on the same basis.
type SharedSettings struct {
	PertFactor      float64 `json:"pert_factor" validate:"gte=1,lte=3"`
	Deadline        string  `json:"deadline" validate:"omitempty,datetime=2006-01-02"`
	DataPointsCount int     `json:"data_points_count" validate:"gte=4,lte=52"`
}

// ConnectionConfig describes the upstream data source. Configured flips to
// true only after a successful connectivity test and is never cleared by a
// later failed test.
type ConnectionConfig struct {
	BaseURL         string `json:"base_url" validate:"omitempty,url"`
	Token           string `json:"token"`
	Configured      bool   `json:"configured"`
	LastTestSuccess *bool  `json:"last_test_success"`
}

// QuerySummary is the per-query entry embedded in a profile.
type QuerySummary struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=100"`
	QueryString string    `json:"query_string"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsed    time.Time `json:"last_used"`
}

// Profile is the full per-profile record.
type Profile struct {
	SchemaVersion        int                 `json:"schema_version"`
	ID                   string              `json:"id" validate:"required"`
	Name                 string              `json:"name" validate:"required,max=100"`
	Description          string              `json:"description"`
	CreatedAt            time.Time           `json:"created_at"`
	LastUsed             time.Time           `json:"last_used"`
	SharedSettings       SharedSettings      `json:"shared_settings"`
	ConnectionConfig     ConnectionConfig    `json:"connection_config"`
	FieldMappings        map[string]string   `json:"field_mappings"`
	ClassificationConfig map[string][]string `json:"classification_config"`
	Queries              []QuerySummary      `json:"queries" validate:"dive"`
}

// Query is the full per-query record. It deliberately carries no settings.
type Query struct {
	SchemaVersion int       `json:"schema_version"`
	ID            string    `json:"id" validate:"required"`
	Name          string    `json:"name" validate:"required,max=100"`
	Description   string    `json:"description"`
	QueryString   string    `json:"query_string"`
	CreatedAt     time.Time `json:"created_at"`
	LastUsed      time.Time `json:"last_used"`
}

// Selection names the active profile/query pair.
type Selection struct {
	ProfileID string `json:"profile_id"`
	QueryID   string `json:"query_id"`
}

// DefaultSharedSettings returns the placeholder settings for a new profile.
func DefaultSharedSettings() SharedSettings {
	return SharedSettings{
		PertFactor:      DefaultPertFactor,
		DataPointsCount: DefaultDataPointsCount,
	}
}

// Active returns the current selection.
func (r *Registry) Active() Selection {
	return Selection{ProfileID: r.ActiveProfileID, QueryID: r.ActiveQueryID}
}

// Find returns the summary for id, or nil.
func (r *Registry) Find(id string) *ProfileSummary {
	for i := range r.Profiles {
		if r.Profiles[i].ID == id {
			return &r.Profiles[i]
		}
	}
	return nil
}

// NameTaken reports whether another profile already uses name, ignoring case.
func (r *Registry) NameTaken(name, exceptID string) bool {
	for _, p := range r.Profiles {
		if p.ID != exceptID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r *Registry) idTaken(id string) bool {
	for _, p := range r.Profiles {
		if strings.EqualFold(p.ID, id) {
			return true
		}
	}
	return false
}

func (r *Registry) remove(id string) {
	r.Profiles = slices.DeleteFunc(r.Profiles, func(p ProfileSummary) bool {
		return p.ID == id
	})
}

// FindQuery returns the summary for a query id, or nil.
func (p *Profile) FindQuery(id string) *QuerySummary {
	for i := range p.Queries {
		if p.Queries[i].ID == id {
			return &p.Queries[i]
		}
	}
	return nil
}

// QueryNameTaken reports whether another query of p already uses name,
// ignoring case.
func (p *Profile) QueryNameTaken(name, exceptID string) bool {
	for _, q := range p.Queries {
		if q.ID != exceptID && strings.EqualFold(q.Name, name) {
			return true
		}
	}
	return false
}

func (p *Profile) queryIDTaken(id string) bool {
	for _, q := range p.Queries {
		if strings.EqualFold(q.ID, id) {
			return true
		}
	}
	return false
}

// MostRecentQuery returns the query with the latest LastUsed, or nil when the
// profile has none.
func (p *Profile) MostRecentQuery() *QuerySummary {
	var best *QuerySummary
	for i := range p.Queries {
		if best == nil || p.Queries[i].LastUsed.After(best.LastUsed) {
			best = &p.Queries[i]
		}
	}
	return best
}

// summary builds the registry view of p.
func (p *Profile) summary() ProfileSummary {
	return ProfileSummary{
		ID:         p.ID,
		Name:       p.Name,
		LastUsed:   p.LastUsed,
		BaseURL:    p.ConnectionConfig.BaseURL,
		PertFactor: p.SharedSettings.PertFactor,
		QueryCount: len(p.Queries),
	}
}

// cloneConfig deep-copies the shareable configuration of src into p.
func (p *Profile) cloneConfig(src *Profile) {
	p.SharedSettings = src.SharedSettings
	p.ConnectionConfig = src.ConnectionConfig
	if src.ConnectionConfig.LastTestSuccess != nil {
		v := *src.ConnectionConfig.LastTestSuccess
		p.ConnectionConfig.LastTestSuccess = &v
	}
	p.FieldMappings = maps.Clone(src.FieldMappings)
	if p.FieldMappings == nil {
		p.FieldMappings = map[string]string{}
	}
	p.ClassificationConfig = make(map[string][]string, len(src.ClassificationConfig))
	for k, v := range src.ClassificationConfig {
		p.ClassificationConfig[k] = slices.Clone(v)
	}
}
