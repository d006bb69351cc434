package usecase

import (
	"context"
	"errors"

	"github.com/forecastkit/wsctl/internal/migration"
	"github.com/forecastkit/wsctl/internal/workspace"
)

// Kind classifies the outcome of an operation.
type Kind string

const (
	KindOK         Kind = "ok"
	KindValidation Kind = "validation"
	KindDependency Kind = "dependency"
	KindSafety     Kind = "safety"
	KindNotFound   Kind = "not_found"
	KindCorruption Kind = "corruption"
	KindStale      Kind = "stale"
	KindMigration  Kind = "migration"
	KindCanceled   Kind = "canceled"
	KindError      Kind = "error"
)

// Result is what every operation returns to a UI layer: success or failure
// with a displayable message. Failures never panic.
type Result struct {
	OK           bool            `json:"ok"`
	Kind         Kind            `json:"kind"`
	Message      string          `json:"message"`
	ProfileID    string          `json:"profile_id,omitempty"`
	QueryID      string          `json:"query_id,omitempty"`
	MissingStage workspace.Stage `json:"missing_stage,omitempty"`
	Failures     []string        `json:"failures,omitempty"`
}

// Err returns nil for a successful result and an error carrying the message
// otherwise.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	return errors.New(r.Message)
}

func success(message, profileID, queryID string) Result {
	return Result{OK: true, Kind: KindOK, Message: message, ProfileID: profileID, QueryID: queryID}
}

// Classify maps an engine error onto a failed Result.
func Classify(err error) Result {
	res := Result{Kind: KindError, Message: err.Error()}

	var (
		verr    *workspace.ValidationError
		derr    *workspace.DependencyError
		serr    *workspace.SafetyError
		nferr   *workspace.NotFoundError
		cerr    *workspace.CorruptionError
		migrErr *migration.Error
	)
	switch {
	case errors.As(err, &migrErr):
		res.Kind = KindMigration
	case errors.As(err, &verr):
		res.Kind = KindValidation
	case errors.As(err, &derr):
		res.Kind = KindDependency
		res.MissingStage = derr.Missing
	case errors.As(err, &serr):
		res.Kind = KindSafety
	case errors.As(err, &nferr):
		res.Kind = KindNotFound
	case errors.As(err, &cerr):
		res.Kind = KindCorruption
	case errors.Is(err, workspace.ErrStaleTarget):
		res.Kind = KindStale
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		res.Kind = KindCanceled
	}
	return res
}
