package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/catalog"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/gymplan/schedule"
)

var (
	jun10 = datekey.MustParse("2024-06-10")
	jun11 = datekey.MustParse("2024-06-11")
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	c.PutExercises([]domain.Exercise{
		{ID: "E1", Title: "Squat"},
		{ID: "E2", Title: "Lunge"},
	})
	require.NoError(t, c.Create(domain.Activity{ID: "A1", Title: "Legs", UserID: "U1", ExerciseIDs: []string{"E1", "E2"}}))
	require.NoError(t, c.Create(domain.Activity{ID: "A2", Title: "Empty", UserID: "U1"}))
	require.NoError(t, c.Create(domain.Activity{ID: "A3", Title: "Ghosts", UserID: "U1", ExerciseIDs: []string{"E1", "E404"}}))
	return c
}

func TestIndex_AssignUnassignScenario(t *testing.T) {
	c := testCatalog(t)
	ix := schedule.NewIndex()

	require.NoError(t, ix.Assign("U1", jun10, "A1"))
	plan := ix.ExercisesForDay("U1", jun10, c)
	require.NotNil(t, plan.Activity)
	assert.Equal(t, "A1", plan.Activity.ID)
	require.Len(t, plan.Exercises, 2)
	assert.Equal(t, "E1", plan.Exercises[0].ID)
	assert.Equal(t, "E2", plan.Exercises[1].ID)

	require.NoError(t, ix.Unassign("U1", jun10, "A1"))
	plan = ix.ExercisesForDay("U1", jun10, c)
	assert.True(t, plan.IsRestDay())
	assert.Empty(t, plan.Exercises)
}

func TestIndex_AtMostOnePerDay(t *testing.T) {
	ix := schedule.NewIndex()

	require.NoError(t, ix.Assign("U1", jun10, "A1"))
	assert.ErrorIs(t, ix.Assign("U1", jun10, "A2"), domain.ErrAlreadyAssigned)
	assert.ErrorIs(t, ix.Assign("U1", jun10, "A1"), domain.ErrAlreadyAssigned)

	id, ok := ix.Assigned("U1", jun10)
	require.True(t, ok)
	assert.Equal(t, "A1", id)

	// another user or day is independent
	require.NoError(t, ix.Assign("U2", jun10, "A2"))
	require.NoError(t, ix.Assign("U1", jun11, "A2"))
	assert.Len(t, ix.Assignments("U1"), 2)
}

func TestIndex_Unassign_NotAssigned(t *testing.T) {
	ix := schedule.NewIndex()
	assert.ErrorIs(t, ix.Unassign("U1", jun10, "A1"), domain.ErrNotAssigned)

	require.NoError(t, ix.Assign("U1", jun10, "A1"))
	assert.ErrorIs(t, ix.Unassign("U1", jun10, "A2"), domain.ErrNotAssigned)

	assert.ErrorIs(t, ix.Assign("U1", datekey.DateKey{}, "A1"), domain.ErrInvalidDate)
	assert.ErrorIs(t, ix.Assign("U1", jun11, ""), domain.ErrValidationFailed)
}

func TestIndex_ExercisesForDay(t *testing.T) {
	c := testCatalog(t)
	ix := schedule.NewIndex()

	require.NoError(t, ix.Assign("U1", jun10, "A2"))
	plan := ix.ExercisesForDay("U1", jun10, c)
	require.NotNil(t, plan.Activity, "activity without exercises is not a rest day")
	assert.Empty(t, plan.Exercises)

	require.NoError(t, ix.Assign("U1", jun11, "A3"))
	plan = ix.ExercisesForDay("U1", jun11, c)
	require.Len(t, plan.Exercises, 1, "missing exercise records are skipped")
	assert.Equal(t, "E1", plan.Exercises[0].ID)

	require.NoError(t, ix.Assign("U1", jun11.AddDays(1), "DELETED"))
	assert.True(t, ix.ExercisesForDay("U1", jun11.AddDays(1), c).IsRestDay())
}

func TestIndex_AssignmentsSortedAndDatesFor(t *testing.T) {
	ix := schedule.NewIndex()
	require.NoError(t, ix.Assign("U1", jun11, "A1"))
	require.NoError(t, ix.Assign("U1", jun10, "A1"))
	require.NoError(t, ix.Assign("U2", jun10, "A1"))
	require.NoError(t, ix.Assign("U2", jun11, "A2"))

	list := ix.Assignments("U1")
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.Equal(jun10))
	assert.True(t, list[1].Date.Equal(jun11))

	assert.Len(t, ix.DatesFor("A1"), 3)
	assert.Len(t, ix.DatesFor("A2"), 1)
	assert.Empty(t, ix.DatesFor("A9"))
}

func TestIndex_RenameActivity(t *testing.T) {
	ix := schedule.NewIndex()
	require.NoError(t, ix.Assign("U1", jun10, "temp-1"))
	require.NoError(t, ix.Assign("U1", jun11, "A2"))

	assert.Equal(t, 1, ix.RenameActivity("temp-1", "A1"))
	id, _ := ix.Assigned("U1", jun10)
	assert.Equal(t, "A1", id)
}

func TestIndex_SnapshotRestore(t *testing.T) {
	ix := schedule.NewIndex()
	require.NoError(t, ix.Assign("U1", jun10, "A1"))
	before := ix.Assignments("U1")
	snap := ix.Snapshot("U1")

	require.NoError(t, ix.Unassign("U1", jun10, "A1"))
	require.NoError(t, ix.Assign("U1", jun10, "A2"))
	require.NoError(t, ix.Assign("U1", jun11, "A3"))

	ix.Restore(snap)
	assert.Equal(t, before, ix.Assignments("U1"))
	ix.Restore(snap)
	assert.Equal(t, before, ix.Assignments("U1"))
}

func TestIndex_ReplaceUserAndSetDay(t *testing.T) {
	ix := schedule.NewIndex()
	require.NoError(t, ix.Assign("U1", jun10, "A1"))

	ix.ReplaceUser("U1", []domain.Assignment{
		{Date: jun11, ActivityID: "A2"},
		{Date: jun11, ActivityID: "A3"},
		{Date: datekey.DateKey{}, ActivityID: "A4"},
	})
	list := ix.Assignments("U1")
	require.Len(t, list, 1)
	assert.Equal(t, "A2", list[0].ActivityID)

	ix.SetDay("U1", jun10, "A5")
	ix.SetDay("U1", jun11, "")
	list = ix.Assignments("U1")
	require.Len(t, list, 1)
	assert.Equal(t, "A5", list[0].ActivityID)
}
