package domain

import (
	"slices"
	"strings"

	"github.com/2beens/gymplanner/internal/datekey"
)

// TempIDPrefix marks ids issued locally before the backend confirms a create.
const TempIDPrefix = "temp-"

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

type Exercise struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	MuscleGroup string  `json:"muscle_group,omitempty"`
	Equipment   string  `json:"equipment,omitempty"`
	Difficulty  string  `json:"difficulty,omitempty"`
	Duration    int     `json:"duration,omitempty"`
	Sets        int     `json:"sets,omitempty"`
	Reps        int     `json:"reps,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	VideoURL    string  `json:"video_url,omitempty"`
	OwnerID     string  `json:"owner_id,omitempty"`
	IsActive    bool    `json:"is_active"`
}

// Activity is a reusable bundle of exercises. It has no date until assigned.
type Activity struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	ExerciseIDs []string `json:"exercises"`
	UserID      string   `json:"user_id"`
}

func (a Activity) Clone() Activity {
	a.ExerciseIDs = slices.Clone(a.ExerciseIDs)
	return a
}

func (a Activity) HasExercise(exerciseID string) bool {
	return slices.Contains(a.ExerciseIDs, exerciseID)
}

// ActivityDraft is the payload of a create.
type ActivityDraft struct {
	Title       string   `json:"title"`
	ExerciseIDs []string `json:"exercises"`
	UserID      string   `json:"user_id"`
}

func (d ActivityDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if d.UserID == "" {
		return NewValidationError("user_id", "must not be empty")
	}
	for _, id := range d.ExerciseIDs {
		if id == "" {
			return NewValidationError("exercises", "must not contain empty ids")
		}
	}
	return nil
}

// ActivityPatch holds the fields of an update. Nil fields are left untouched;
// a non-nil empty ExerciseIDs removes every exercise.
type ActivityPatch struct {
	Title       *string  `json:"title,omitempty"`
	ExerciseIDs []string `json:"exercises"`
}

func (p ActivityPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	for _, id := range p.ExerciseIDs {
		if id == "" {
			return NewValidationError("exercises", "must not contain empty ids")
		}
	}
	return nil
}

func (p ActivityPatch) Apply(a Activity) Activity {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.ExerciseIDs != nil {
		a.ExerciseIDs = Dedupe(p.ExerciseIDs)
	}
	return a
}

type Assignment struct {
	UserID     string          `json:"user_id"`
	Date       datekey.DateKey `json:"date"`
	ActivityID string          `json:"activity_id"`
}

type PerformanceEntry struct {
	UserID     string          `json:"user_id"`
	ExerciseID string          `json:"exercise_id"`
	Date       datekey.DateKey `json:"date"`
	Value      float64         `json:"value"`
}

// DayPlan is what is scheduled for one user on one day.
// A nil Activity is a rest day, which differs from an activity without exercises.
type DayPlan struct {
	Date      datekey.DateKey `json:"date"`
	Activity  *Activity       `json:"activity"`
	Exercises []Exercise      `json:"exercises"`
}

func (p DayPlan) IsRestDay() bool {
	return p.Activity == nil
}

// UserSchedule is the authoritative per-user state returned by the backend.
type UserSchedule struct {
	UserID      string
	Assignments []Assignment
	Performance []PerformanceEntry
}

// Dedupe drops repeated ids, keeping the first occurrence.
func Dedupe(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
