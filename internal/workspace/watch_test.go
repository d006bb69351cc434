package workspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReportsSelectionChanges(t *testing.T) {
	ws := newTestWorkspace(t)
	configureConnection(t, ws, "default")
	_, err := ws.QueryManager.Create("default", "52w", "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan Selection, 8)
	done := make(chan error, 1)
	go func() {
		done <- ws.Registry.Watch(ctx, func(s Selection) { changes <- s })
	}()

	// The watcher may start after any given switch, so keep toggling until
	// one is observed.
	targets := []string{"52w", "default"}
	n := 0
	require.Eventually(t, func() bool {
		qid := targets[n%2]
		n++
		if _, err := ws.QueryManager.Switch("default", qid); err != nil {
			return false
		}
		select {
		case got := <-changes:
			return got.ProfileID == "default"
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
