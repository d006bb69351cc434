package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forecastkit/wsctl/internal/database"
	"github.com/forecastkit/wsctl/internal/migration"
	"github.com/forecastkit/wsctl/internal/workspace"
)

type memoryJournal struct {
	mu   sync.Mutex
	ops  []database.OperationRecord
	runs []database.MigrationRunRecord
	fail bool
}

func (j *memoryJournal) Record(_ context.Context, rec database.OperationRecord) (database.OperationRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return database.OperationRecord{}, errors.New("journal unavailable")
	}
	j.ops = append(j.ops, rec)
	return rec, nil
}

func (j *memoryJournal) last() database.OperationRecord {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.ops[len(j.ops)-1]
}

type runJournal struct{ j *memoryJournal }

func (r runJournal) Record(_ context.Context, rec database.MigrationRunRecord) error {
	r.j.mu.Lock()
	defer r.j.mu.Unlock()
	r.j.runs = append(r.j.runs, rec)
	return nil
}

func newOps(t *testing.T) (*Operations, *memoryJournal) {
	t.Helper()
	ws := workspace.Open(workspace.NewLayout(t.TempDir(), ""))
	_, err := ws.EnsureInitialized()
	require.NoError(t, err)
	j := &memoryJournal{}
	return New(ws, WithJournal(j), WithMigrationJournal(runJournal{j})), j
}

func configure(t *testing.T, ops *Operations, profileID string) {
	t.Helper()
	require.True(t, ops.UpdateConnection(context.Background(), profileID, "https://jira.example.com", "token").OK)
	require.True(t, ops.RecordConnectionTest(context.Background(), profileID, true).OK)
}

func TestProfileOperations(t *testing.T) {
	ctx := context.Background()
	ops, j := newOps(t)

	res := ops.CreateProfile(ctx, CreateProfileInput{Name: "Kafka"})
	require.True(t, res.OK, res.Message)
	require.Equal(t, "kafka", res.ProfileID)
	require.Equal(t, "createProfile", j.last().Name)
	require.Equal(t, "ok", j.last().Outcome)

	res = ops.CreateProfile(ctx, CreateProfileInput{Name: "kafka"})
	require.False(t, res.OK)
	require.Equal(t, KindValidation, res.Kind)
	require.Equal(t, "validation", j.last().Outcome)

	res = ops.SwitchProfile(ctx, "kafka")
	require.True(t, res.OK)
	require.Equal(t, "default", res.QueryID)

	res = ops.DeleteProfile(ctx, "kafka")
	require.Equal(t, KindSafety, res.Kind)

	res = ops.DuplicateProfile(ctx, DuplicateProfileInput{SourceID: "kafka", NewName: "Kafka copy", CloneQueries: true})
	require.True(t, res.OK, res.Message)
	require.Equal(t, "kafka-copy", res.ProfileID)

	res = ops.DeleteProfile(ctx, "kafka-copy")
	require.True(t, res.OK, res.Message)
	require.Empty(t, res.Failures)

	res = ops.SwitchProfile(ctx, "ghost")
	require.Equal(t, KindNotFound, res.Kind)
	require.Equal(t, "ghost", res.ProfileID)

	res = ops.RenameProfile(ctx, "kafka", "Streaming")
	require.True(t, res.OK, res.Message)
}

func TestQueryOperations(t *testing.T) {
	ctx := context.Background()
	ops, j := newOps(t)

	res := ops.CreateQuery(ctx, CreateQueryInput{ProfileID: "default", Name: "12w"})
	require.Equal(t, KindDependency, res.Kind)
	require.Equal(t, workspace.StageConnection, res.MissingStage)
	require.Equal(t, "dependency", j.last().Outcome)

	configure(t, ops, "default")
	res = ops.CreateQuery(ctx, CreateQueryInput{ProfileID: "default", Name: "12w", QueryString: "project = KAFKA"})
	require.True(t, res.OK, res.Message)
	require.Equal(t, "12w", res.QueryID)

	res = ops.SwitchQuery(ctx, "default", "12w")
	require.True(t, res.OK)

	res = ops.DeleteQuery(ctx, "default", "12w")
	require.Equal(t, KindSafety, res.Kind)

	res = ops.DuplicateQuery(ctx, DuplicateQueryInput{ProfileID: "default", SourceQueryID: "12w", NewName: "52w"})
	require.True(t, res.OK, res.Message)

	res = ops.RenameQuery(ctx, "default", "52w", "Fifty-two weeks")
	require.True(t, res.OK, res.Message)
	res = ops.EditQuery(ctx, "default", "52w", "project = KAFKA AND created >= -52w", "")
	require.True(t, res.OK, res.Message)

	res = ops.SwitchQuery(ctx, "default", "default")
	require.True(t, res.OK)
	res = ops.DeleteQuery(ctx, "default", "12w")
	require.True(t, res.OK, res.Message)
}

func TestSettingsAndStatus(t *testing.T) {
	ctx := context.Background()
	ops, _ := newOps(t)

	status, res := ops.GetConfigurationStatus(ctx, "")
	require.True(t, res.OK)
	require.Equal(t, "default", res.ProfileID)
	require.Equal(t, workspace.StageConnection, status.Next())

	pert := 2.5
	deadline := "2025-12-31"
	res = ops.UpdateSettings(ctx, "default", SettingsInput{PertFactor: &pert, Deadline: &deadline})
	require.True(t, res.OK, res.Message)

	tooMany := 60
	res = ops.UpdateSettings(ctx, "default", SettingsInput{DataPointsCount: &tooMany})
	require.Equal(t, KindValidation, res.Kind)

	configure(t, ops, "default")
	res = ops.RecordConnectionTest(ctx, "default", false)
	require.True(t, res.OK)
	require.Contains(t, res.Message, "configured=true")

	res = ops.UpdateFieldMappings(ctx, "default", map[string]string{"completed_date": "resolutiondate"})
	require.True(t, res.OK)
	require.Contains(t, res.Message, "work_type")
	res = ops.UpdateFieldMappings(ctx, "default", map[string]string{"work_type": "issuetype"})
	require.True(t, res.OK)

	status, res = ops.GetConfigurationStatus(ctx, "default")
	require.True(t, res.OK)
	require.Equal(t, workspace.Stage(""), status.Next())
	require.Equal(t, "Setup complete", res.Message)

	data, res := ops.ExportProfile(ctx, "default")
	require.True(t, res.OK)
	require.NotContains(t, string(data), `"token": "token"`)

	_, res = ops.GetConfigurationStatus(ctx, "ghost")
	require.Equal(t, KindNotFound, res.Kind)
}

func TestRunRecoversFromPanic(t *testing.T) {
	ops, j := newOps(t)

	res := ops.run(context.Background(), "explode", Result{ProfileID: "default"}, func() (Result, error) {
		panic("boom")
	})
	require.False(t, res.OK)
	require.Equal(t, KindError, res.Kind)
	require.Contains(t, res.Message, "boom")
	require.Equal(t, "default", res.ProfileID)
	require.Equal(t, "explode", j.last().Name)
}

func TestCanceledContextSkipsOperation(t *testing.T) {
	ops, _ := newOps(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := ops.CreateProfile(ctx, CreateProfileInput{Name: "Never"})
	require.Equal(t, KindCanceled, res.Kind)
	require.False(t, ops.Workspace().Profiles.Exists("never"))
}

func TestJournalFailureDoesNotFailOperation(t *testing.T) {
	ops, j := newOps(t)
	j.fail = true

	res := ops.CreateProfile(context.Background(), CreateProfileInput{Name: "Kafka"})
	require.True(t, res.OK, res.Message)
}

func TestOperationsWithoutJournal(t *testing.T) {
	ws := workspace.Open(workspace.NewLayout(t.TempDir(), ""))
	_, err := ws.EnsureInitialized()
	require.NoError(t, err)

	res := New(ws).SwitchProfile(context.Background(), "default")
	require.True(t, res.OK, res.Message)
}

func TestMigrateRecordsRun(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, workspace.RawDataCache), []byte("raw"), 0o600))
	ws := workspace.Open(workspace.NewLayout(root, ""))
	j := &memoryJournal{}
	ops := New(ws, WithJournal(j), WithMigrationJournal(runJournal{j}))

	report, res := ops.Migrate(context.Background(), migration.New(ws))
	require.True(t, res.OK, res.Message)
	require.Equal(t, migration.Committed, report.State)
	require.Len(t, j.runs, 1)
	require.Equal(t, "committed", j.runs[0].State)
	require.Equal(t, 1, j.runs[0].MovedCount)

	_, res = ops.Migrate(context.Background(), migration.New(ws))
	require.True(t, res.OK)
	require.Contains(t, res.Message, "nothing to migrate")
	require.Len(t, j.runs, 1)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{&workspace.ValidationError{Field: "name", Reason: "empty"}, KindValidation},
		{fmt.Errorf("wrapped: %w", &workspace.SafetyError{Reason: "active"}), KindSafety},
		{&workspace.NotFoundError{Entity: "query", ID: "x"}, KindNotFound},
		{&workspace.CorruptionError{Path: "p", Err: errors.New("bad")}, KindCorruption},
		{&migration.Error{Phase: migration.Verifying, Err: errors.New("mismatch")}, KindMigration},
		{workspace.ErrStaleTarget, KindStale},
		{context.DeadlineExceeded, KindCanceled},
		{errors.New("disk full"), KindError},
	}
	for _, tt := range tests {
		res := Classify(tt.err)
		require.Equal(t, tt.want, res.Kind, tt.err.Error())
		require.False(t, res.OK)
		require.Error(t, res.Err())
	}
	require.NoError(t, success("fine", "", "").Err())
}
