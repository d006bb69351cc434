package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteCacheLandsInActiveBundle(t *testing.T) {
	ws := newTestWorkspace(t)

	target, err := ws.ActiveTarget()
	require.NoError(t, err)
	path, err := ws.WriteCache(target, RawDataCache, []byte(`{"issues":[]}`))
	require.NoError(t, err)
	require.Equal(t, ws.Layout.Bundle("default", "default").RawDataPath(), path)

	path, err = ws.WriteCache(target, "cache/velocity.json", []byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(ws.Layout.Bundle("default", "default").CalcCacheDir(), "velocity.json"), path)
}

func TestWriteCacheDropsStaleTarget(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "52w", "", "")
	require.NoError(t, err)

	target, err := ws.ActiveTarget()
	require.NoError(t, err)
	_, err = ws.QueryManager.Switch("default", "52w")
	require.NoError(t, err)

	_, err = ws.WriteCache(target, RawDataCache, []byte("late"))
	require.ErrorIs(t, err, ErrStaleTarget)
	require.NoFileExists(t, ws.Layout.Bundle("default", "default").RawDataPath())
	require.NoFileExists(t, ws.Layout.Bundle("default", "52w").RawDataPath())
}

func TestWriteCacheRejectsNonBundleNames(t *testing.T) {
	ws := newTestWorkspace(t)
	target, err := ws.ActiveTarget()
	require.NoError(t, err)

	for _, logical := range []string{RegistryFile, ProfileFile, QueryFile, CalcCacheDir, "cache/../profiles.json", "app_settings.json"} {
		_, err := ws.WriteCache(target, logical, []byte("x"))
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, logical)
	}
}

func TestBundlesAreIsolated(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "52w", "", "")
	require.NoError(t, err)

	target, err := ws.ActiveTarget()
	require.NoError(t, err)
	_, err = ws.WriteCache(target, StatisticsCache, []byte("twelve"))
	require.NoError(t, err)

	_, err = ws.QueryManager.Switch("default", "52w")
	require.NoError(t, err)
	target, err = ws.ActiveTarget()
	require.NoError(t, err)
	_, err = ws.WriteCache(target, StatisticsCache, []byte("fifty-two"))
	require.NoError(t, err)

	require.Equal(t, "twelve", string(readBytes(t, ws.Layout.Bundle("default", "default").StatisticsPath())))
	require.Equal(t, "fifty-two", string(readBytes(t, ws.Layout.Bundle("default", "52w").StatisticsPath())))
}

func TestCopyBundleSkipsRecord(t *testing.T) {
	ws := newTestWorkspace(t)
	src := ws.Layout.Bundle("default", "default")
	writeBytes(t, src.RawDataPath(), []byte("raw"))
	writeBytes(t, src.FragmentPath("velocity.json"), []byte("frag"))

	dst := ws.Layout.Bundle("default", "copy")
	require.NoError(t, os.MkdirAll(dst.Dir, 0o750))
	require.NoError(t, ws.Queries.CopyBundle(Selection{ProfileID: "default", QueryID: "default"}, Selection{ProfileID: "default", QueryID: "copy"}))

	require.Equal(t, "raw", string(readBytes(t, dst.RawDataPath())))
	require.Equal(t, "frag", string(readBytes(t, dst.FragmentPath("velocity.json"))))
	require.NoFileExists(t, dst.Path(QueryFile))
	require.NoFileExists(t, dst.MetricsPath())
}
