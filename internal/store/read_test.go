package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadVerdicts_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadVerdicts(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadVerdicts_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	for _, v := range []Verdict{
		createTestVerdict("run-a", "sc", "id=3", 3, "violation"),
		createTestVerdict("run-a", "sc", "id=1", 1, "acceptable_success"),
		createTestVerdict("run-a", "sc", "id=2", 2, "acceptable_success"),
	} {
		_, err := s.WriteVerdict(ctx, v)
		require.NoError(t, err)
	}

	got, err := s.ReadVerdicts(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "id=1", got[0].Target)
	assert.Equal(t, "id=2", got[1].Target)
	assert.Equal(t, "id=3", got[2].Target)
}

func TestReadVerdicts_RoundTripsFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	v := Verdict{
		RunID:    "run-a",
		Seq:      1,
		Scenario: "profile_invalid_id",
		Target:   "id=-1",
		Intent:   "invalid_parameter",
		Status:   200,
		Kind:     "acceptable_error",
		Channel:  "body_flag",
		Evidence: map[string]string{"envelope.success": "false", "fixture.ids": "1,2"},
	}
	id, err := s.WriteVerdict(ctx, v)
	require.NoError(t, err)

	got, err := s.ReadVerdicts(ctx, "run-a")
	require.NoError(t, err)
	require.Len(t, got, 1)

	v.ID = id
	assert.Equal(t, v, got[0])
	assert.Equal(t, "acceptable_error(body_flag)", got[0].Outcome())
}

func TestGetRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestRun(t, s, "run-a")

	got, err := s.GetRun(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	runs, err := s.ListRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	createTestRun(t, s, "run-b")
	createTestRun(t, s, "run-a")
	_, err = s.WriteVerdict(ctx, createTestVerdict("run-b", "sc", "id=1", 1, "violation"))
	require.NoError(t, err)
	_, err = s.WriteVerdict(ctx, createTestVerdict("run-b", "sc", "id=2", 2, "acceptable_success"))
	require.NoError(t, err)

	runs, err = s.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-b", runs[0].ID, "ordered by seq, not id")
	assert.Equal(t, 2, runs[0].Verdicts)
	assert.Equal(t, 1, runs[0].Violations)
	assert.Equal(t, []int64{1, 2}, runs[0].FixtureIDs)

	assert.Equal(t, "run-a", runs[1].ID)
	assert.Equal(t, 0, runs[1].Verdicts)
}
