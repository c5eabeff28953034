package coordinator

import (
	"context"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

//go:generate mockgen -source=$GOFILE -destination=remote_mocks_test.go -package=coordinator_test

// Remote is the source of truth the cache reconciles with.
type Remote interface {
	ListActivities(ctx context.Context, userID string) ([]domain.Activity, error)
	CreateActivity(ctx context.Context, draft domain.ActivityDraft) (*domain.Activity, error)
	UpdateActivity(ctx context.Context, activityID string, patch domain.ActivityPatch) (*domain.Activity, error)
	DeleteActivity(ctx context.Context, activityID string) error
	AddExercise(ctx context.Context, activityID, exerciseID string) error
	RemoveExercise(ctx context.Context, activityID, exerciseID string) error
	AssignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) error
	UnassignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) error
	MoveAssignment(ctx context.Context, userID, activityID string, from, to datekey.DateKey) error
	RecordPerformance(ctx context.Context, entry domain.PerformanceEntry) error
	ExercisesForDay(ctx context.Context, userID string, date datekey.DateKey) (*domain.DayPlan, error)
	UserSchedule(ctx context.Context, userID string) (*domain.UserSchedule, error)
	ListExercises(ctx context.Context) ([]domain.Exercise, error)
}
