package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// steppingClock returns a clock that advances one second per call so
// last-used ordering is deterministic.
func steppingClock() func() time.Time {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	ws := Open(NewLayout(t.TempDir(), ""), WithClock(steppingClock()))
	_, err := ws.EnsureInitialized()
	require.NoError(t, err)
	return ws
}

func configureConnection(t *testing.T, ws *Workspace, profileID string) {
	t.Helper()
	_, err := ws.ProfileManager.UpdateConnection(profileID, "https://jira.example.com", "secret-token")
	require.NoError(t, err)
	_, err = ws.ProfileManager.RecordConnectionTest(profileID, true)
	require.NoError(t, err)
}

func loadRegistry(t *testing.T, ws *Workspace) *Registry {
	t.Helper()
	reg, err := ws.Registry.Load()
	require.NoError(t, err)
	return reg
}

func readBytes(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func writeBytes(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

// assertInvariants checks the structural guarantees that must hold after any
// sequence of operations.
func assertInvariants(t *testing.T, ws *Workspace) {
	t.Helper()
	reg := loadRegistry(t, ws)
	require.NotEmpty(t, reg.Profiles)
	require.LessOrEqual(t, len(reg.Profiles), MaxProfiles)

	active := reg.Find(reg.ActiveProfileID)
	require.NotNil(t, active, "active profile must exist")

	names := map[string]bool{}
	for _, s := range reg.Profiles {
		key := strings.ToLower(s.Name)
		require.False(t, names[key], "duplicate profile name %q", s.Name)
		names[key] = true

		p, err := ws.Profiles.Load(s.ID)
		require.NoError(t, err)
		require.NotEmpty(t, p.Queries, "profile %s has no queries", s.ID)
		require.Equal(t, len(p.Queries), s.QueryCount)

		qnames := map[string]bool{}
		for _, q := range p.Queries {
			qkey := strings.ToLower(q.Name)
			require.False(t, qnames[qkey], "duplicate query name %q in %s", q.Name, s.ID)
			qnames[qkey] = true
			require.DirExists(t, ws.Layout.Bundle(s.ID, q.ID).CalcCacheDir())
		}

		entries, err := os.ReadDir(ws.Layout.QueriesRoot(s.ID))
		require.NoError(t, err)
		require.Len(t, entries, len(p.Queries), "orphaned query directories in %s", s.ID)

		if s.ID == reg.ActiveProfileID {
			require.NotNil(t, p.FindQuery(reg.ActiveQueryID), "active query must belong to active profile")
		}
	}

	dirs, err := os.ReadDir(ws.Layout.ProfilesRoot())
	require.NoError(t, err)
	require.Len(t, dirs, len(reg.Profiles), "orphaned profile directories")
}
