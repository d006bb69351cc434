package workspace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusOfNilProfile(t *testing.T) {
	s := Status(nil)
	require.False(t, s.ProfileReady)
	require.Equal(t, StageProfile, s.Next())
	require.True(t, s.Enabled(StageProfile))
	require.False(t, s.Enabled(StageConnection))
}

func TestStatusProgression(t *testing.T) {
	ws := newTestWorkspace(t)

	p, err := ws.ProfileManager.Get("default")
	require.NoError(t, err)
	s := Status(p)
	require.True(t, s.ProfileReady)
	require.False(t, s.ConnectionConfigured)
	require.Equal(t, StageConnection, s.Next())
	require.True(t, s.Enabled(StageConnection))
	require.False(t, s.Enabled(StageFieldMappings))
	require.ElementsMatch(t, RequiredFieldMappings, s.MissingMappings)

	var dep *DependencyError
	require.ErrorAs(t, s.Require(StageQuery, "create a query"), &dep)
	require.Equal(t, StageConnection, dep.Missing)

	configureConnection(t, ws, "default")
	p, err = ws.ProfileManager.UpdateFieldMappings("default", map[string]string{"completed_date": "resolutiondate"})
	require.NoError(t, err)
	s = Status(p)
	require.True(t, s.ConnectionConfigured)
	require.False(t, s.FieldsMapped)
	require.Equal(t, []string{"work_type"}, s.MissingMappings)
	require.ErrorAs(t, s.Require(StageQuery, "create a query"), &dep)
	require.Equal(t, StageFieldMappings, dep.Missing)

	p, err = ws.ProfileManager.UpdateFieldMappings("default", map[string]string{"work_type": "issuetype"})
	require.NoError(t, err)
	s = Status(p)
	require.True(t, s.FieldsMapped)
	require.True(t, s.QueryReady)
	require.Equal(t, Stage(""), s.Next())
	require.NoError(t, s.Require(StageQuery, "create a query"))
	for _, st := range s.Stages {
		require.True(t, st.Enabled, st.Stage)
		require.True(t, st.Complete, st.Stage)
	}
}

func TestFailedConnectionTestKeepsConfigured(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")

	p, err := ws.ProfileManager.RecordConnectionTest("default", false)
	require.NoError(t, err)
	require.True(t, Status(p).ConnectionConfigured)
	require.NotNil(t, p.ConnectionConfig.LastTestSuccess)
	require.False(t, *p.ConnectionConfig.LastTestSuccess)

	p, err = ws.ProfileManager.UpdateConnection("default", "https://other.example.com/", "secret-token")
	require.NoError(t, err)
	require.False(t, Status(p).ConnectionConfigured)
	require.Equal(t, "https://other.example.com", p.ConnectionConfig.BaseURL)
	require.Nil(t, p.ConnectionConfig.LastTestSuccess)
}

func TestSuccessfulTestRequiresBaseURL(t *testing.T) {
	ws := newTestWorkspace(t)

	_, err := ws.ProfileManager.RecordConnectionTest("default", true)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "base_url", verr.Field)
}
