package workspace

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolverLegacyMode(t *testing.T) {
	layout := NewLayout("/data/ws", "/data/old")
	r := NewResolver(layout, nil)

	require.True(t, r.LegacyMode())
	require.Equal(t, Selection{}, r.Active())
	require.Equal(t, filepath.Join("/data/old", RawDataCache), r.Resolve(RawDataCache))
	require.Equal(t, filepath.Join("/data/old", "app_settings.json"), r.Resolve("app_settings.json"))
}

func TestResolverProfileMode(t *testing.T) {
	layout := NewLayout("/data/ws", "")
	reg := &Registry{ActiveProfileID: "kafka", ActiveQueryID: "12w"}
	r := NewResolver(layout, reg)

	queryDir := filepath.Join("/data/ws", ProfilesDir, "kafka", QueriesDir, "12w")
	tests := []struct {
		logical string
		want    string
	}{
		{RawDataCache, filepath.Join(queryDir, RawDataCache)},
		{StatisticsCache, filepath.Join(queryDir, StatisticsCache)},
		{MetricsCache, filepath.Join(queryDir, MetricsCache)},
		{CalcCacheDir, filepath.Join(queryDir, CalcCacheDir)},
		{"cache/velocity.json", filepath.Join(queryDir, CalcCacheDir, "velocity.json")},
		{QueryFile, filepath.Join(queryDir, QueryFile)},
		{ProfileFile, filepath.Join("/data/ws", ProfilesDir, "kafka", ProfileFile)},
		{"app_settings.json", filepath.Join("/data/ws", "app_settings.json")},
	}
	for _, tt := range tests {
		t.Run(tt.logical, func(t *testing.T) {
			require.Equal(t, tt.want, r.Resolve(tt.logical))
		})
	}
	require.False(t, r.LegacyMode())
	require.Equal(t, Selection{ProfileID: "kafka", QueryID: "12w"}, r.Active())
}

func TestResolverFollowsSwitch(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "52w", "", "")
	require.NoError(t, err)

	before, err := ws.Resolver()
	require.NoError(t, err)
	_, err = ws.QueryManager.Switch("default", "52w")
	require.NoError(t, err)
	after, err := ws.Resolver()
	require.NoError(t, err)

	require.Equal(t, ws.Layout.Bundle("default", "default").RawDataPath(), before.Resolve(RawDataCache))
	require.Equal(t, ws.Layout.Bundle("default", "52w").RawDataPath(), after.Resolve(RawDataCache))
}

func TestIsQueryScoped(t *testing.T) {
	require.True(t, isQueryScoped("cache/a.json"))
	require.True(t, isQueryScoped("cache/sub/../b.json"))
	require.False(t, isQueryScoped("cache/../profiles.json"))
	require.False(t, isQueryScoped(RegistryFile))
	require.False(t, isQueryScoped("app_settings.json"))
}
