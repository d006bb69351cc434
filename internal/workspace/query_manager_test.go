package workspace

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueryLifecycleAcrossWindows(t *testing.T) {
	ws := newTestWorkspace(t)
	p, err := ws.ProfileManager.Create("Kafka", "", false)
	require.NoError(t, err)
	_, err = ws.ProfileManager.UpdateSettings(p.ID, SharedSettings{PertFactor: 1.5, Deadline: "2025-12-31", DataPointsCount: 12})
	require.NoError(t, err)
	configureConnection(t, ws, p.ID)
	_, err = ws.ProfileManager.Switch(p.ID)
	require.NoError(t, err)

	q12, err := ws.QueryManager.Create(p.ID, "12w", "project = KAFKA AND created >= -12w", "")
	require.NoError(t, err)
	q52, err := ws.QueryManager.Create(p.ID, "52w", "project = KAFKA AND created >= -52w", "")
	require.NoError(t, err)

	raw12 := ws.Layout.Bundle(p.ID, q12.ID).RawDataPath()
	raw52 := ws.Layout.Bundle(p.ID, q52.ID).RawDataPath()
	writeBytes(t, raw12, []byte("twelve"))
	writeBytes(t, raw52, []byte("fifty-two"))
	stat12, err := os.Stat(raw12)
	require.NoError(t, err)
	stat52, err := os.Stat(raw52)
	require.NoError(t, err)

	_, err = ws.QueryManager.Switch(p.ID, q12.ID)
	require.NoError(t, err)
	for _, id := range []string{q52.ID, q12.ID} {
		start := time.Now()
		sel, err := ws.QueryManager.Switch(p.ID, id)
		require.NoError(t, err)
		require.Less(t, time.Since(start), 100*time.Millisecond)
		require.Equal(t, Selection{ProfileID: p.ID, QueryID: id}, sel)
	}

	after12, err := os.Stat(raw12)
	require.NoError(t, err)
	after52, err := os.Stat(raw52)
	require.NoError(t, err)
	require.Equal(t, stat12.ModTime(), after12.ModTime())
	require.Equal(t, stat52.ModTime(), after52.ModTime())
	require.Equal(t, "twelve", string(readBytes(t, raw12)))

	profile, err := ws.ProfileManager.Get(p.ID)
	require.NoError(t, err)
	require.Equal(t, 1.5, profile.SharedSettings.PertFactor)
	require.Equal(t, "2025-12-31", profile.SharedSettings.Deadline)
	assertInvariants(t, ws)
}

func TestCreateQueryWithoutConnection(t *testing.T) {
	ws := newTestWorkspace(t)
	before := readBytes(t, ws.Layout.ProfilePath("default"))

	_, err := ws.QueryManager.Create("default", "12w", "", "")
	var dep *DependencyError
	require.ErrorAs(t, err, &dep)
	require.Equal(t, StageConnection, dep.Missing)
	require.NoDirExists(t, ws.Layout.QueryDir("default", "12w"))
	require.Equal(t, before, readBytes(t, ws.Layout.ProfilePath("default")))
}

func TestCreateQueryValidation(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")

	var verr *ValidationError
	_, err := ws.QueryManager.Create("default", "default", "", "")
	require.ErrorAs(t, err, &verr)
	_, err = ws.QueryManager.Create("default", "a/b", "", "")
	require.ErrorAs(t, err, &verr)
	_, err = ws.QueryManager.Create("missing", "x", "", "")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestQueryLimit(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	p, err := ws.Profiles.Load("default")
	require.NoError(t, err)
	for len(p.Queries) < MaxQueriesPerProfile {
		p.Queries = append(p.Queries, QuerySummary{ID: "default", Name: "filler"})
	}

	err = ws.QueryManager.checkNewName(p, "one more")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Contains(t, verr.Reason, "100")
}

func TestDeleteOnlyQueryIsRefused(t *testing.T) {
	ws := newTestWorkspace(t)
	p, err := ws.ProfileManager.Create("Kafka", "", false)
	require.NoError(t, err)

	err = ws.QueryManager.Delete(p.ID, p.Queries[0].ID, false)
	var serr *SafetyError
	require.ErrorAs(t, err, &serr)
	require.DirExists(t, ws.Layout.QueryDir(p.ID, p.Queries[0].ID))

	qs, err := ws.QueryManager.List(p.ID)
	require.NoError(t, err)
	require.Len(t, qs, 1)
}

func TestDeleteActiveQueryIsRefused(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "12w", "", "")
	require.NoError(t, err)

	err = ws.QueryManager.Delete("default", "default", false)
	var serr *SafetyError
	require.ErrorAs(t, err, &serr)

	require.NoError(t, ws.QueryManager.Delete("default", "12w", false))
	require.NoDirExists(t, ws.Layout.QueryDir("default", "12w"))
	require.Equal(t, 1, loadRegistry(t, ws).Find("default").QueryCount)
	assertInvariants(t, ws)
}

func TestDeleteMissingQuery(t *testing.T) {
	ws := newTestWorkspace(t)
	err := ws.QueryManager.Delete("default", "nope", false)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestDuplicateQuery(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	writeBytes(t, ws.Layout.Bundle("default", "default").MetricsPath(), []byte("metrics"))

	warm, err := ws.QueryManager.Duplicate("default", "default", "Warm copy", true)
	require.NoError(t, err)
	require.Equal(t, "warm-copy", warm.ID)
	require.Equal(t, "metrics", string(readBytes(t, ws.Layout.Bundle("default", warm.ID).MetricsPath())))

	cold, err := ws.QueryManager.Duplicate("default", "default", "Cold copy", false)
	require.NoError(t, err)
	require.NoFileExists(t, ws.Layout.Bundle("default", cold.ID).MetricsPath())
	require.DirExists(t, ws.Layout.Bundle("default", cold.ID).CalcCacheDir())

	_, err = ws.QueryManager.Duplicate("default", "default", "warm COPY", false)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assertInvariants(t, ws)
}

func TestRenameAndEditQuery(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "12w", "", "")
	require.NoError(t, err)

	q, err := ws.QueryManager.Rename("default", "12w", "Twelve weeks")
	require.NoError(t, err)
	require.Equal(t, "12w", q.ID)

	_, err = ws.QueryManager.Rename("default", "12w", "DEFAULT")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	q, err = ws.QueryManager.UpdateQueryString("default", "12w", "project = SPARK", "spark only")
	require.NoError(t, err)
	require.Equal(t, "spark only", q.Description)

	p, err := ws.Profiles.Load("default")
	require.NoError(t, err)
	s := p.FindQuery("12w")
	require.Equal(t, "Twelve weeks", s.Name)
	require.Equal(t, "project = SPARK", s.QueryString)
}
