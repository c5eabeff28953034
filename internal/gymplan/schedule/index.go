package schedule

import (
	"fmt"
	"maps"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

// activitySource resolves activity templates and exercise records.
type activitySource interface {
	Get(id string) (domain.Activity, bool)
	Exercise(id string) (domain.Exercise, bool)
}

// Index maps (user, day) to at most one activity.
type Index struct {
	days map[string]map[datekey.DateKey]string
}

func NewIndex() *Index {
	return &Index{
		days: make(map[string]map[datekey.DateKey]string),
	}
}

func (ix *Index) Assign(userID string, date datekey.DateKey, activityID string) error {
	if err := checkKey(userID, date, activityID); err != nil {
		return err
	}
	byDay, ok := ix.days[userID]
	if !ok {
		byDay = make(map[datekey.DateKey]string)
		ix.days[userID] = byDay
	}
	if current, taken := byDay[date]; taken {
		return fmt.Errorf("%w: %s has %s", domain.ErrAlreadyAssigned, date, current)
	}
	byDay[date] = activityID
	return nil
}

func (ix *Index) Unassign(userID string, date datekey.DateKey, activityID string) error {
	if err := checkKey(userID, date, activityID); err != nil {
		return err
	}
	current, ok := ix.days[userID][date]
	if !ok || current != activityID {
		return fmt.Errorf("%w: %s on %s", domain.ErrNotAssigned, activityID, date)
	}
	delete(ix.days[userID], date)
	return nil
}

// Assigned returns the activity scheduled on date, if any.
func (ix *Index) Assigned(userID string, date datekey.DateKey) (string, bool) {
	id, ok := ix.days[userID][date]
	return id, ok
}

// Assignments returns the assignments of a user ordered by day.
func (ix *Index) Assignments(userID string) []domain.Assignment {
	byDay := ix.days[userID]
	days := slices.SortedFunc(maps.Keys(byDay), datekey.DateKey.Compare)
	list := make([]domain.Assignment, 0, len(days))
	for _, d := range days {
		list = append(list, domain.Assignment{UserID: userID, Date: d, ActivityID: byDay[d]})
	}
	return list
}

// DatesFor returns every day activityID is scheduled on, for any user.
func (ix *Index) DatesFor(activityID string) []domain.Assignment {
	var list []domain.Assignment
	for _, userID := range slices.Sorted(maps.Keys(ix.days)) {
		for _, a := range ix.Assignments(userID) {
			if a.ActivityID == activityID {
				list = append(list, a)
			}
		}
	}
	return list
}

// ExercisesForDay joins the scheduled activity with its exercise records.
// Exercise ids without a record are skipped.
func (ix *Index) ExercisesForDay(userID string, date datekey.DateKey, src activitySource) domain.DayPlan {
	plan := domain.DayPlan{Date: date, Exercises: []domain.Exercise{}}

	activityID, ok := ix.Assigned(userID, date)
	if !ok {
		return plan
	}
	activity, ok := src.Get(activityID)
	if !ok {
		log.Debugf("schedule: %s on %s points to unknown activity %s", userID, date, activityID)
		return plan
	}

	plan.Activity = &activity
	for _, exerciseID := range activity.ExerciseIDs {
		if e, found := src.Exercise(exerciseID); found {
			plan.Exercises = append(plan.Exercises, e)
		}
	}
	return plan
}

// RenameActivity rewrites every assignment of oldID to newID.
func (ix *Index) RenameActivity(oldID, newID string) int {
	renamed := 0
	for _, byDay := range ix.days {
		for d, id := range byDay {
			if id == oldID {
				byDay[d] = newID
				renamed++
			}
		}
	}
	return renamed
}

// SetDay places or clears the assignment of a single day without the
// assign/unassign transition checks. Used when the authority reports a day.
func (ix *Index) SetDay(userID string, date datekey.DateKey, activityID string) {
	if activityID == "" {
		delete(ix.days[userID], date)
		return
	}
	if _, ok := ix.days[userID]; !ok {
		ix.days[userID] = make(map[datekey.DateKey]string)
	}
	ix.days[userID][date] = activityID
}

// ReplaceUser discards the user's assignments in favour of the authoritative
// set. A day listed twice keeps its first activity.
func (ix *Index) ReplaceUser(userID string, assignments []domain.Assignment) {
	fresh := make(map[datekey.DateKey]string, len(assignments))
	for _, a := range assignments {
		if !a.Date.Valid() || a.ActivityID == "" {
			continue
		}
		if current, dup := fresh[a.Date]; dup {
			log.Warnf("schedule: %s has %s and %s on %s, keeping the first", userID, current, a.ActivityID, a.Date)
			continue
		}
		fresh[a.Date] = a.ActivityID
	}
	ix.days[userID] = fresh
}

// Snapshot is an immutable copy of one user's schedule.
type Snapshot struct {
	userID string
	days   map[datekey.DateKey]string
}

func (ix *Index) Snapshot(userID string) Snapshot {
	return Snapshot{userID: userID, days: maps.Clone(ix.days[userID])}
}

func (ix *Index) Restore(snap Snapshot) {
	if snap.days == nil {
		delete(ix.days, snap.userID)
		return
	}
	ix.days[snap.userID] = maps.Clone(snap.days)
}

func checkKey(userID string, date datekey.DateKey, activityID string) error {
	if userID == "" || activityID == "" {
		return domain.NewValidationError("activity_id", "user and activity ids are required")
	}
	if !date.Valid() {
		return domain.ErrInvalidDate
	}
	return nil
}
