package workspace

import "strings"

// Stage is one step of the setup dependency chain.
type Stage string

const (
	StageProfile       Stage = "profile"
	StageConnection    Stage = "connection"
	StageFieldMappings Stage = "field_mappings"
	StageQuery         Stage = "query"
)

// RequiredFieldMappings are the semantic fields that must be mapped before
// the field-mapping stage counts as complete.
var RequiredFieldMappings = []string{"completed_date", "work_type"}

// StageStatus is the state of one stage. Enabled mirrors the previous stage's
// Complete flag.
type StageStatus struct {
	Stage    Stage `json:"stage"`
	Enabled  bool  `json:"enabled"`
	Complete bool  `json:"complete"`
}

// SetupStatus is the read-only configuration status of a profile. It is
// derived on every read and never persisted.
type SetupStatus struct {
	ProfileReady         bool          `json:"profile_ready"`
	ConnectionConfigured bool          `json:"connection_configured"`
	FieldsMapped         bool          `json:"fields_mapped"`
	QueryReady           bool          `json:"query_ready"`
	MissingMappings      []string      `json:"missing_mappings,omitempty"`
	Stages               []StageStatus `json:"stages"`
}

// Status derives the setup status of p. It performs no I/O; a nil profile
// yields an all-false status.
func Status(p *Profile) SetupStatus {
	var s SetupStatus
	if p != nil {
		s.ProfileReady = true
		s.ConnectionConfigured = p.ConnectionConfig.Configured
		s.MissingMappings = missingMappings(p.FieldMappings)
		s.FieldsMapped = len(s.MissingMappings) == 0
		s.QueryReady = len(p.Queries) > 0
	}

	complete := []bool{s.ProfileReady, s.ConnectionConfigured, s.FieldsMapped, s.QueryReady}
	order := []Stage{StageProfile, StageConnection, StageFieldMappings, StageQuery}
	enabled := true
	for i, stage := range order {
		s.Stages = append(s.Stages, StageStatus{Stage: stage, Enabled: enabled, Complete: complete[i]})
		enabled = complete[i]
	}
	return s
}

// Next returns the first incomplete stage, or "" when setup is done.
func (s SetupStatus) Next() Stage {
	for _, st := range s.Stages {
		if !st.Complete {
			return st.Stage
		}
	}
	return ""
}

// Enabled reports whether stage may be acted on.
func (s SetupStatus) Enabled(stage Stage) bool {
	for _, st := range s.Stages {
		if st.Stage == stage {
			return st.Enabled
		}
	}
	return false
}

// Require returns a DependencyError when stage is not enabled yet, naming
// the stage that has to be completed first.
func (s SetupStatus) Require(stage Stage, action string) error {
	for i, st := range s.Stages {
		if st.Stage != stage {
			continue
		}
		if st.Enabled {
			return nil
		}
		missing := s.Stages[0].Stage
		for _, prev := range s.Stages[:i] {
			if !prev.Complete {
				missing = prev.Stage
				break
			}
		}
		return &DependencyError{Missing: missing, Reason: "cannot " + action}
	}
	return nil
}

func missingMappings(mappings map[string]string) []string {
	var missing []string
	for _, field := range RequiredFieldMappings {
		if strings.TrimSpace(mappings[field]) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}
