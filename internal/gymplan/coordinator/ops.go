package coordinator

import (
	"context"
	"fmt"
	"math"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

func (c *Coordinator) CreateActivity(ctx context.Context, draft domain.ActivityDraft) (*Mutation, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.ExerciseIDs = domain.Dedupe(draft.ExerciseIDs)

	return c.run(ctx, OpCreateActivity, func() (*opSpec, error) {
		tempID := domain.TempIDPrefix + c.newID()
		activity := domain.Activity{
			ID:          tempID,
			Title:       draft.Title,
			ExerciseIDs: draft.ExerciseIDs,
			UserID:      draft.UserID,
		}
		return &opSpec{
			name:   OpCreateActivity,
			tempID: tempID,
			keys:   []collectionKey{activitiesOf(draft.UserID)},
			apply: func() error {
				// replayed after its commit, the row takes the canonical id
				a := activity
				a.ID = c.resolveLocked(tempID)
				return c.catalog.Create(a)
			},
			call: func(ctx context.Context) (func(), error) {
				created, err := c.remote.CreateActivity(ctx, draft)
				if err != nil {
					return nil, err
				}
				if created == nil || created.ID == "" {
					return nil, fmt.Errorf("%w: create returned no id", domain.ErrRemoteUnavailable)
				}
				return func() { c.commitCreate(tempID, *created) }, nil
			},
		}, nil
	})
}

func (c *Coordinator) UpdateActivity(ctx context.Context, activityID string, patch domain.ActivityPatch) (*Mutation, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	return c.run(ctx, OpUpdateActivity, func() (*opSpec, error) {
		owner, err := c.ownerLocked(activityID)
		if err != nil {
			return nil, err
		}
		return &opSpec{
			name: OpUpdateActivity,
			id:   activityID,
			keys: []collectionKey{activitiesOf(owner)},
			apply: func() error {
				_, err := c.catalog.Update(c.resolveLocked(activityID), patch)
				return err
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				_, err = c.remote.UpdateActivity(ctx, id, patch)
				return nil, err
			},
		}, nil
	})
}

// DeleteActivity refuses activities that are still scheduled; unassign first.
func (c *Coordinator) DeleteActivity(ctx context.Context, activityID string) (*Mutation, error) {
	return c.run(ctx, OpDeleteActivity, func() (*opSpec, error) {
		owner, err := c.ownerLocked(activityID)
		if err != nil {
			return nil, err
		}
		return &opSpec{
			name: OpDeleteActivity,
			id:   activityID,
			keys: []collectionKey{activitiesOf(owner)},
			apply: func() error {
				id := c.resolveLocked(activityID)
				if days := c.schedule.DatesFor(id); len(days) > 0 {
					return domain.NewConflictError(
						"activity "+id,
						fmt.Sprintf("is still scheduled on %d day(s), unassign it first", len(days)),
					)
				}
				_, err := c.catalog.Delete(id)
				return err
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.DeleteActivity(ctx, id)
			},
		}, nil
	})
}

// AddExercise is a settled no-op when the exercise is already included.
func (c *Coordinator) AddExercise(ctx context.Context, activityID, exerciseID string) (*Mutation, error) {
	if exerciseID == "" {
		return nil, domain.NewValidationError("exercise_id", "must not be empty")
	}

	return c.run(ctx, OpAddExercise, func() (*opSpec, error) {
		id := c.resolveLocked(activityID)
		activity, ok := c.catalog.Get(id)
		if !ok {
			return nil, fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
		}
		if activity.HasExercise(exerciseID) {
			return nil, nil
		}
		return &opSpec{
			name: OpAddExercise,
			id:   activityID,
			keys: []collectionKey{activitiesOf(activity.UserID)},
			apply: func() error {
				return c.catalog.AddExercise(c.resolveLocked(activityID), exerciseID)
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.AddExercise(ctx, id, exerciseID)
			},
		}, nil
	})
}

// RemoveExercise is a settled no-op when the exercise is not included.
func (c *Coordinator) RemoveExercise(ctx context.Context, activityID, exerciseID string) (*Mutation, error) {
	if exerciseID == "" {
		return nil, domain.NewValidationError("exercise_id", "must not be empty")
	}

	return c.run(ctx, OpRemoveExercise, func() (*opSpec, error) {
		id := c.resolveLocked(activityID)
		activity, ok := c.catalog.Get(id)
		if !ok {
			return nil, fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
		}
		if !activity.HasExercise(exerciseID) {
			return nil, nil
		}
		return &opSpec{
			name: OpRemoveExercise,
			id:   activityID,
			keys: []collectionKey{activitiesOf(activity.UserID)},
			apply: func() error {
				return c.catalog.RemoveExercise(c.resolveLocked(activityID), exerciseID)
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.RemoveExercise(ctx, id, exerciseID)
			},
		}, nil
	})
}

// AssignActivity schedules the activity and seeds the day's performance of
// its exercises with their latest values.
func (c *Coordinator) AssignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (*Mutation, error) {
	if err := checkDayArgs(userID, activityID, date); err != nil {
		return nil, err
	}

	return c.run(ctx, OpAssignActivity, func() (*opSpec, error) {
		if _, ok := c.catalog.Get(c.resolveLocked(activityID)); !ok {
			return nil, fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
		}
		return &opSpec{
			name: OpAssignActivity,
			id:   activityID,
			keys: []collectionKey{scheduleOf(userID), performanceOf(userID)},
			apply: func() error {
				id := c.resolveLocked(activityID)
				activity, ok := c.catalog.Get(id)
				if !ok {
					return fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
				}
				if err := c.schedule.Assign(userID, date, id); err != nil {
					return err
				}
				c.performance.CarryForward(userID, activity.ExerciseIDs, date)
				return nil
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.AssignActivity(ctx, userID, id, date)
			},
		}, nil
	})
}

// UnassignActivity clears the day and drops the day's performance of the
// activity's exercises.
func (c *Coordinator) UnassignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (*Mutation, error) {
	if err := checkDayArgs(userID, activityID, date); err != nil {
		return nil, err
	}

	return c.run(ctx, OpUnassignActivity, func() (*opSpec, error) {
		return &opSpec{
			name: OpUnassignActivity,
			id:   activityID,
			keys: []collectionKey{scheduleOf(userID), performanceOf(userID)},
			apply: func() error {
				id := c.resolveLocked(activityID)
				if err := c.schedule.Unassign(userID, date, id); err != nil {
					return err
				}
				if activity, ok := c.catalog.Get(id); ok {
					for _, exerciseID := range activity.ExerciseIDs {
						c.performance.Delete(userID, exerciseID, date)
					}
				}
				return nil
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.UnassignActivity(ctx, userID, id, date)
			},
		}, nil
	})
}

// MoveAssignment moves the activity to another day. The old day's values are
// dropped and the new day starts from the latest remaining value, or 0.
func (c *Coordinator) MoveAssignment(ctx context.Context, userID, activityID string, from, to datekey.DateKey) (*Mutation, error) {
	if err := checkDayArgs(userID, activityID, from); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, domain.ErrInvalidDate
	}
	if from.Equal(to) {
		return nil, domain.NewValidationError("new_date", "must differ from the current date")
	}

	return c.run(ctx, OpMoveAssignment, func() (*opSpec, error) {
		return &opSpec{
			name: OpMoveAssignment,
			id:   activityID,
			keys: []collectionKey{scheduleOf(userID), performanceOf(userID)},
			apply: func() error {
				id := c.resolveLocked(activityID)
				if current, ok := c.schedule.Assigned(userID, from); !ok || current != id {
					return fmt.Errorf("%w: %s on %s", domain.ErrNotAssigned, id, from)
				}
				if current, taken := c.schedule.Assigned(userID, to); taken {
					return fmt.Errorf("%w: %s has %s", domain.ErrAlreadyAssigned, to, current)
				}
				if err := c.schedule.Unassign(userID, from, id); err != nil {
					return err
				}
				if err := c.schedule.Assign(userID, to, id); err != nil {
					return err
				}
				if activity, ok := c.catalog.Get(id); ok {
					for _, exerciseID := range activity.ExerciseIDs {
						c.performance.Delete(userID, exerciseID, from)
						seed, _ := c.performance.LatestValue(userID, exerciseID)
						_ = c.performance.Record(userID, exerciseID, to, seed)
					}
				}
				return nil
			},
			call: func(ctx context.Context) (func(), error) {
				id, err := c.awaitCanonical(ctx, activityID)
				if err != nil {
					return nil, err
				}
				return nil, c.remote.MoveAssignment(ctx, userID, id, from, to)
			},
		}, nil
	})
}

// RecordPerformance upserts a value. Days before today are read-only.
func (c *Coordinator) RecordPerformance(ctx context.Context, userID, exerciseID string, date datekey.DateKey, value float64) (*Mutation, error) {
	if userID == "" || exerciseID == "" {
		return nil, domain.NewValidationError("exercise_id", "user and exercise ids are required")
	}
	if !date.Valid() {
		return nil, domain.ErrInvalidDate
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidValue, value)
	}
	if !date.IsFutureOrTodayAt(c.now()) {
		return nil, domain.NewValidationError("date", fmt.Sprintf("performance of %s is read-only", date))
	}

	entry := domain.PerformanceEntry{UserID: userID, ExerciseID: exerciseID, Date: date, Value: value}
	return c.run(ctx, OpRecordPerformance, func() (*opSpec, error) {
		return &opSpec{
			name: OpRecordPerformance,
			id:   exerciseID,
			keys: []collectionKey{performanceOf(userID)},
			apply: func() error {
				return c.performance.Record(userID, exerciseID, date, value)
			},
			call: func(ctx context.Context) (func(), error) {
				return nil, c.remote.RecordPerformance(ctx, entry)
			},
		}, nil
	})
}

func (c *Coordinator) ownerLocked(activityID string) (string, error) {
	activity, ok := c.catalog.Get(c.resolveLocked(activityID))
	if !ok {
		return "", fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
	}
	return activity.UserID, nil
}

func checkDayArgs(userID, activityID string, date datekey.DateKey) error {
	if userID == "" || activityID == "" {
		return domain.NewValidationError("activity_id", "user and activity ids are required")
	}
	if !date.Valid() {
		return domain.ErrInvalidDate
	}
	return nil
}
