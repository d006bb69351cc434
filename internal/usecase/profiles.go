package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/forecastkit/wsctl/internal/workspace"
)

type CreateProfileInput struct {
	Name            string
	Description     string
	CloneFromActive bool
}

func (o *Operations) CreateProfile(ctx context.Context, in CreateProfileInput) Result {
	return o.run(ctx, "createProfile", Result{}, func() (Result, error) {
		p, err := o.ws.ProfileManager.Create(in.Name, in.Description, in.CloneFromActive)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Created profile %q", p.Name), p.ID, p.Queries[0].ID), nil
	})
}

func (o *Operations) SwitchProfile(ctx context.Context, profileID string) Result {
	return o.run(ctx, "switchProfile", Result{ProfileID: profileID}, func() (Result, error) {
		sel, err := o.ws.ProfileManager.Switch(profileID)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Switched to profile %s (query %s)", sel.ProfileID, sel.QueryID), sel.ProfileID, sel.QueryID), nil
	})
}

// DeleteProfile deletes a profile and all of its queries. Children that could
// not be removed are listed in Failures of an otherwise successful result.
func (o *Operations) DeleteProfile(ctx context.Context, profileID string) Result {
	return o.run(ctx, "deleteProfile", Result{ProfileID: profileID}, func() (Result, error) {
		report, err := o.ws.ProfileManager.Delete(profileID)
		if err != nil {
			return Result{}, err
		}
		res := success(fmt.Sprintf("Deleted profile %s and %d queries", profileID, len(report.RemovedQueries)), profileID, "")
		for _, f := range report.Failures {
			res.Failures = append(res.Failures, f.Error())
		}
		if len(res.Failures) > 0 {
			res.Message += fmt.Sprintf(" (%d items could not be removed)", len(res.Failures))
		}
		return res, nil
	})
}

type DuplicateProfileInput struct {
	SourceID     string
	NewName      string
	CloneQueries bool
}

func (o *Operations) DuplicateProfile(ctx context.Context, in DuplicateProfileInput) Result {
	return o.run(ctx, "duplicateProfile", Result{ProfileID: in.SourceID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.Duplicate(in.SourceID, in.NewName, in.CloneQueries)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Duplicated profile %s as %q with %d queries", in.SourceID, p.Name, len(p.Queries)), p.ID, p.Queries[0].ID), nil
	})
}

func (o *Operations) RenameProfile(ctx context.Context, profileID, newName string) Result {
	return o.run(ctx, "renameProfile", Result{ProfileID: profileID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.Rename(profileID, newName)
		if err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Renamed profile %s to %q", p.ID, p.Name), p.ID, ""), nil
	})
}

// SettingsInput carries partial shared-settings changes; nil fields keep
// their current value.
type SettingsInput struct {
	PertFactor      *float64
	Deadline        *string
	DataPointsCount *int
}

func (o *Operations) UpdateSettings(ctx context.Context, profileID string, in SettingsInput) Result {
	return o.run(ctx, "updateSettings", Result{ProfileID: profileID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.Get(profileID)
		if err != nil {
			return Result{}, err
		}
		s := p.SharedSettings
		if in.PertFactor != nil {
			s.PertFactor = *in.PertFactor
		}
		if in.Deadline != nil {
			s.Deadline = strings.TrimSpace(*in.Deadline)
		}
		if in.DataPointsCount != nil {
			s.DataPointsCount = *in.DataPointsCount
		}
		if _, err := o.ws.ProfileManager.UpdateSettings(profileID, s); err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Updated settings of %s: pert_factor=%g deadline=%q data_points_count=%d", profileID, s.PertFactor, s.Deadline, s.DataPointsCount), profileID, ""), nil
	})
}

func (o *Operations) UpdateConnection(ctx context.Context, profileID, baseURL, token string) Result {
	return o.run(ctx, "updateConnection", Result{ProfileID: profileID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.UpdateConnection(profileID, baseURL, token)
		if err != nil {
			return Result{}, err
		}
		msg := fmt.Sprintf("Saved connection for %s", profileID)
		if !p.ConnectionConfig.Configured {
			msg += "; record a successful connection test to unlock queries"
		}
		return success(msg, profileID, ""), nil
	})
}

func (o *Operations) RecordConnectionTest(ctx context.Context, profileID string, ok bool) Result {
	return o.run(ctx, "recordConnectionTest", Result{ProfileID: profileID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.RecordConnectionTest(profileID, ok)
		if err != nil {
			return Result{}, err
		}
		outcome := "failed"
		if ok {
			outcome = "succeeded"
		}
		return success(fmt.Sprintf("Connection test %s for %s (configured=%t)", outcome, profileID, p.ConnectionConfig.Configured), profileID, ""), nil
	})
}

func (o *Operations) UpdateFieldMappings(ctx context.Context, profileID string, mappings map[string]string) Result {
	return o.run(ctx, "updateFieldMappings", Result{ProfileID: profileID}, func() (Result, error) {
		p, err := o.ws.ProfileManager.UpdateFieldMappings(profileID, mappings)
		if err != nil {
			return Result{}, err
		}
		status := workspace.Status(p)
		msg := fmt.Sprintf("Updated field mappings of %s", profileID)
		if len(status.MissingMappings) > 0 {
			msg += fmt.Sprintf("; still missing %s", strings.Join(status.MissingMappings, ", "))
		}
		return success(msg, profileID, ""), nil
	})
}

// ExportProfile returns the profile as JSON with its token redacted.
func (o *Operations) ExportProfile(ctx context.Context, profileID string) ([]byte, Result) {
	var data []byte
	res := o.run(ctx, "exportProfile", Result{ProfileID: profileID}, func() (Result, error) {
		var err error
		if data, err = o.ws.ProfileManager.Export(profileID); err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Exported profile %s", profileID), profileID, ""), nil
	})
	return data, res
}

// GetConfigurationStatus derives the setup status of profileID, or of the
// active profile when profileID is empty.
func (o *Operations) GetConfigurationStatus(ctx context.Context, profileID string) (workspace.SetupStatus, Result) {
	var status workspace.SetupStatus
	res := o.run(ctx, "getConfigurationStatus", Result{ProfileID: profileID}, func() (Result, error) {
		var (
			p   *workspace.Profile
			err error
		)
		if profileID == "" {
			p, _, err = o.ws.ProfileManager.Active()
		} else {
			p, err = o.ws.ProfileManager.Get(profileID)
		}
		if err != nil {
			return Result{}, err
		}
		status = workspace.Status(p)
		msg := "Setup complete"
		if next := status.Next(); next != "" {
			msg = fmt.Sprintf("Next setup step: %s", next)
		}
		return success(msg, p.ID, ""), nil
	})
	return status, res
}

func (o *Operations) UpdateClassification(ctx context.Context, profileID string, config map[string][]string) Result {
	return o.run(ctx, "updateClassification", Result{ProfileID: profileID}, func() (Result, error) {
		if _, err := o.ws.ProfileManager.UpdateClassification(profileID, config); err != nil {
			return Result{}, err
		}
		return success(fmt.Sprintf("Updated classification of %s (%d groups)", profileID, len(config)), profileID, ""), nil
	})
}
