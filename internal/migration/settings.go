package migration

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"

	"github.com/forecastkit/wsctl/internal/filesystem"
	"github.com/forecastkit/wsctl/internal/workspace"
)

// SettingsFile is the flat settings file of the legacy layout. It is imported
// into the default profile and left in place.
const SettingsFile = "app_settings.json"

type legacySettings struct {
	PertFactor      float64             `json:"pert_factor"`
	Deadline        string              `json:"deadline"`
	DataPointsCount int                 `json:"data_points_count"`
	JiraURL         string              `json:"jira_url"`
	JiraToken       string              `json:"jira_token"`
	JiraConfigured  bool                `json:"jira_configured"`
	FieldMappings   map[string]string   `json:"field_mappings"`
	Classification  map[string][]string `json:"classification"`
}

// importSettings copies the legacy settings into p and saves it. Values that
// fail the profile's bounds are dropped with a warning instead of failing the
// migration. It reports whether a settings file was found.
func importSettings(ws *workspace.Workspace, p *workspace.Profile, path string, logger *slog.Logger) (bool, error) {
	data, err := filesystem.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var legacy legacySettings
	if err := json.Unmarshal(data, &legacy); err != nil {
		logger.Warn("ignoring unreadable legacy settings", "path", path, "error", err)
		return false, nil
	}

	settings := p.SharedSettings
	if legacy.PertFactor != 0 {
		settings.PertFactor = legacy.PertFactor
	}
	if legacy.DataPointsCount != 0 {
		settings.DataPointsCount = legacy.DataPointsCount
	}
	settings.Deadline = legacy.Deadline

	original := p.SharedSettings
	p.SharedSettings = settings
	p.ConnectionConfig.BaseURL = legacy.JiraURL
	p.ConnectionConfig.Token = legacy.JiraToken
	p.ConnectionConfig.Configured = legacy.JiraConfigured && legacy.JiraURL != ""
	for k, v := range legacy.FieldMappings {
		if v != "" {
			p.FieldMappings[k] = v
		}
	}
	for k, v := range legacy.Classification {
		p.ClassificationConfig[k] = v
	}

	err = ws.Profiles.Save(p)
	var verr *workspace.ValidationError
	if errors.As(err, &verr) {
		logger.Warn("legacy settings out of bounds, keeping defaults", "field", verr.Field, "reason", verr.Reason)
		p.SharedSettings = original
		p.ConnectionConfig = workspace.ConnectionConfig{}
		err = ws.Profiles.Save(p)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
