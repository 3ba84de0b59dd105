package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRun_AssignsSeq(t *testing.T) {
	s := createTestStore(t)

	first := createTestRun(t, s, "run-a")
	second := createTestRun(t, s, "run-b")

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Len(t, first.FixtureDigest, 64)
	assert.Equal(t, first.FixtureDigest, second.FixtureDigest)
}

func TestCreateRun_DuplicateID(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "run-a")

	_, err := s.CreateRun(context.Background(), Run{ID: "run-a", FixtureProvenance: "fallback", FixtureIDs: []int64{1}})
	assert.Error(t, err)
}

func TestCreateRun_DigestDependsOnProvenance(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	a, err := s.CreateRun(ctx, Run{ID: "a", FixtureProvenance: "discovered", FixtureIDs: []int64{1, 2, 3}})
	require.NoError(t, err)
	b, err := s.CreateRun(ctx, Run{ID: "b", FixtureProvenance: "fallback", FixtureIDs: []int64{1, 2, 3}})
	require.NoError(t, err)

	assert.NotEqual(t, a.FixtureDigest, b.FixtureDigest)
}

func TestWriteVerdict_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	v := createTestVerdict("run-a", "profile_valid_id", "id=1", 1, "acceptable_success")
	id1, err := s.WriteVerdict(ctx, v)
	require.NoError(t, err)
	id2, err := s.WriteVerdict(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	got, err := s.ReadVerdicts(ctx, "run-a")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteVerdict_ConflictingOutcome(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	_, err := s.WriteVerdict(ctx, createTestVerdict("run-a", "sc", "id=1", 1, "acceptable_success"))
	require.NoError(t, err)

	_, err = s.WriteVerdict(ctx, createTestVerdict("run-a", "sc", "id=1", 1, "violation"))
	assert.Error(t, err, "same (run, scenario, target) with a different outcome must fail")
}

func TestWriteVerdict_RequiresRun(t *testing.T) {
	s := createTestStore(t)

	_, err := s.WriteVerdict(context.Background(), createTestVerdict("missing", "sc", "id=1", 1, "violation"))
	assert.Error(t, err)
}

func TestWriteVerdict_IDDependsOnRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")
	createTestRun(t, s, "run-b")

	a, err := s.WriteVerdict(ctx, createTestVerdict("run-a", "sc", "id=1", 1, "violation"))
	require.NoError(t, err)
	b, err := s.WriteVerdict(ctx, createTestVerdict("run-b", "sc", "id=1", 1, "violation"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWriteVerdicts_Batch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	batch := []Verdict{
		createTestVerdict("run-a", "sc", "id=1", 1, "acceptable_success"),
		createTestVerdict("run-a", "sc", "id=2", 2, "violation"),
	}
	require.NoError(t, s.WriteVerdicts(ctx, batch))
	assert.NotEmpty(t, batch[0].ID)
	assert.NotEqual(t, batch[0].ID, batch[1].ID)
}

func TestWriteVerdicts_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestRun(t, s, "run-a")

	batch := []Verdict{
		createTestVerdict("run-a", "sc", "id=1", 1, "acceptable_success"),
		createTestVerdict("missing-run", "sc", "id=2", 2, "violation"),
	}
	require.Error(t, s.WriteVerdicts(ctx, batch))

	got, err := s.ReadVerdicts(ctx, "run-a")
	require.NoError(t, err)
	assert.Empty(t, got)
}
