package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, domain.Classify(nil))

	conflict := domain.NewConflictError("activity a1", "still scheduled")
	assert.Same(t, conflict, domain.Classify(conflict))
	assert.ErrorIs(t, domain.Classify(conflict), domain.ErrConflict)

	wrapped := fmt.Errorf("assign: %w", domain.ErrAlreadyAssigned)
	assert.Equal(t, wrapped, domain.Classify(wrapped))

	assert.ErrorIs(t, domain.Classify(datekey.ErrInvalidDate), domain.ErrInvalidDate)

	unknown := errors.New("connection reset by peer")
	classified := domain.Classify(unknown)
	assert.ErrorIs(t, classified, domain.ErrRemoteUnavailable)
	assert.ErrorIs(t, classified, unknown)
}

func TestValidationError(t *testing.T) {
	err := domain.NewValidationError("title", "must not be empty")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Equal(t, "validation failed: title: must not be empty", err.Error())

	var vErr *domain.ValidationError
	require.ErrorAs(t, fmt.Errorf("create: %w", err), &vErr)
	assert.Equal(t, "title", vErr.Field)
}

func TestActivityDraft_Validate(t *testing.T) {
	assert.NoError(t, domain.ActivityDraft{Title: "Legs", UserID: "u1"}.Validate())
	assert.ErrorIs(t, domain.ActivityDraft{Title: "  ", UserID: "u1"}.Validate(), domain.ErrValidationFailed)
	assert.ErrorIs(t, domain.ActivityDraft{Title: "Legs"}.Validate(), domain.ErrValidationFailed)
	assert.ErrorIs(t, domain.ActivityDraft{Title: "Legs", UserID: "u1", ExerciseIDs: []string{""}}.Validate(), domain.ErrValidationFailed)
}

func TestActivityPatch_Apply(t *testing.T) {
	a := domain.Activity{ID: "a1", Title: "Legs", ExerciseIDs: []string{"e1"}, UserID: "u1"}

	title := "Legs day"
	patched := domain.ActivityPatch{Title: &title}.Apply(a)
	assert.Equal(t, "Legs day", patched.Title)
	assert.Equal(t, []string{"e1"}, patched.ExerciseIDs)

	patched = domain.ActivityPatch{ExerciseIDs: []string{"e2", "e3", "e2"}}.Apply(a)
	assert.Equal(t, "Legs", patched.Title)
	assert.Equal(t, []string{"e2", "e3"}, patched.ExerciseIDs)
}

func TestActivity_Clone(t *testing.T) {
	a := domain.Activity{ID: "a1", ExerciseIDs: []string{"e1", "e2"}}
	c := a.Clone()
	c.ExerciseIDs[0] = "changed"
	assert.Equal(t, "e1", a.ExerciseIDs[0])
	assert.True(t, a.HasExercise("e2"))
	assert.False(t, a.HasExercise("changed"))
}

func TestTempID(t *testing.T) {
	assert.True(t, domain.IsTempID("temp-123"))
	assert.False(t, domain.IsTempID("a1"))
}
