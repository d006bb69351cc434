package workspace

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRandomOperationsKeepInvariants drives a seeded mix of operations and
// checks the structural invariants after each one. Refused operations are
// expected; they must simply leave a consistent tree.
func TestRandomOperationsKeepInvariants(t *testing.T) {
	ws := newTestWorkspace(t)
	rng := rand.New(rand.NewPCG(7, 11))

	pickProfile := func() string {
		reg := loadRegistry(t, ws)
		return reg.Profiles[rng.IntN(len(reg.Profiles))].ID
	}
	pickQuery := func(pid string) string {
		p, err := ws.Profiles.Load(pid)
		require.NoError(t, err)
		return p.Queries[rng.IntN(len(p.Queries))].ID
	}

	for i := range 120 {
		var err error
		switch rng.IntN(8) {
		case 0:
			_, err = ws.ProfileManager.Create(fmt.Sprintf("P%d", i), "", rng.IntN(2) == 0)
		case 1:
			_, err = ws.ProfileManager.Switch(pickProfile())
		case 2:
			_, err = ws.ProfileManager.Delete(pickProfile())
		case 3:
			_, err = ws.ProfileManager.Duplicate(pickProfile(), fmt.Sprintf("D%d", i), rng.IntN(2) == 0)
		case 4:
			pid := pickProfile()
			configureConnection(t, ws, pid)
			_, err = ws.QueryManager.Create(pid, fmt.Sprintf("Q%d", i), "", "")
		case 5:
			pid := pickProfile()
			_, err = ws.QueryManager.Switch(pid, pickQuery(pid))
		case 6:
			pid := pickProfile()
			err = ws.QueryManager.Delete(pid, pickQuery(pid), false)
		case 7:
			pid := pickProfile()
			_, err = ws.QueryManager.Duplicate(pid, pickQuery(pid), fmt.Sprintf("C%d", i), rng.IntN(2) == 0)
		}
		if err != nil {
			var serr *SafetyError
			var verr *ValidationError
			require.True(t, errors.As(err, &serr) || errors.As(err, &verr), "op %d: unexpected error %v", i, err)
		}
		assertInvariants(t, ws)
	}
}
