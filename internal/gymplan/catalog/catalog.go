package catalog

import (
	"fmt"
	"slices"
	"sort"

	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

// Catalog holds the activities of every user in display order (newest created
// first) together with the exercise records they reference. Deleting an
// activity does not touch the schedule.
type Catalog struct {
	order      map[string][]string // user id -> activity ids
	activities map[string]*domain.Activity
	exercises  map[string]domain.Exercise
}

func New() *Catalog {
	return &Catalog{
		order:      make(map[string][]string),
		activities: make(map[string]*domain.Activity),
		exercises:  make(map[string]domain.Exercise),
	}
}

func (c *Catalog) Create(a domain.Activity) error {
	if a.ID == "" {
		return domain.NewValidationError("id", "must not be empty")
	}
	if a.UserID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	if _, ok := c.activities[a.ID]; ok {
		return domain.NewConflictError("activity "+a.ID, "already exists")
	}
	a = normalize(a)
	c.activities[a.ID] = &a
	c.order[a.UserID] = slices.Insert(c.order[a.UserID], 0, a.ID)
	return nil
}

func (c *Catalog) Update(id string, patch domain.ActivityPatch) (domain.Activity, error) {
	a, ok := c.activities[id]
	if !ok {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}
	*a = patch.Apply(*a)
	return a.Clone(), nil
}

func (c *Catalog) Delete(id string) (domain.Activity, error) {
	a, ok := c.activities[id]
	if !ok {
		return domain.Activity{}, fmt.Errorf("activity %s: %w", id, domain.ErrNotFound)
	}
	delete(c.activities, id)
	c.order[a.UserID] = slices.DeleteFunc(c.order[a.UserID], func(o string) bool { return o == id })
	return *a, nil
}

// AddExercise is idempotent.
func (c *Catalog) AddExercise(activityID, exerciseID string) error {
	a, ok := c.activities[activityID]
	if !ok {
		return fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
	}
	if !a.HasExercise(exerciseID) {
		a.ExerciseIDs = append(a.ExerciseIDs, exerciseID)
	}
	return nil
}

// RemoveExercise is a no-op when the exercise is not part of the activity.
func (c *Catalog) RemoveExercise(activityID, exerciseID string) error {
	a, ok := c.activities[activityID]
	if !ok {
		return fmt.Errorf("activity %s: %w", activityID, domain.ErrNotFound)
	}
	a.ExerciseIDs = slices.DeleteFunc(a.ExerciseIDs, func(id string) bool { return id == exerciseID })
	return nil
}

func (c *Catalog) Get(id string) (domain.Activity, bool) {
	a, ok := c.activities[id]
	if !ok {
		return domain.Activity{}, false
	}
	return a.Clone(), true
}

// List returns the activities owned by userID in catalog order.
func (c *Catalog) List(userID string) []domain.Activity {
	ids := c.order[userID]
	list := make([]domain.Activity, 0, len(ids))
	for _, id := range ids {
		list = append(list, c.activities[id].Clone())
	}
	return list
}

// ReplaceID swaps a temporary id for the canonical one, keeping position.
func (c *Catalog) ReplaceID(oldID, newID string) error {
	if oldID == newID {
		return nil
	}
	a, ok := c.activities[oldID]
	if !ok {
		return fmt.Errorf("activity %s: %w", oldID, domain.ErrNotFound)
	}
	if _, taken := c.activities[newID]; taken {
		return domain.NewConflictError("activity "+newID, "id already in use")
	}
	a.ID = newID
	delete(c.activities, oldID)
	c.activities[newID] = a
	if i := slices.Index(c.order[a.UserID], oldID); i >= 0 {
		c.order[a.UserID][i] = newID
	}
	return nil
}

// ReplaceUser replaces the activities of userID with the authoritative list,
// kept in the order given.
func (c *Catalog) ReplaceUser(userID string, activities []domain.Activity) {
	c.dropUser(userID)

	ids := make([]string, 0, len(activities))
	for _, a := range activities {
		if _, dup := c.activities[a.ID]; dup || a.ID == "" {
			continue
		}
		a.UserID = userID
		a = normalize(a)
		c.activities[a.ID] = &a
		ids = append(ids, a.ID)
	}
	c.order[userID] = ids
}

func (c *Catalog) PutExercises(exercises []domain.Exercise) {
	for _, e := range exercises {
		if e.ID == "" {
			continue
		}
		c.exercises[e.ID] = e
	}
}

// ReplaceExercises discards every exercise record in favour of the given set.
func (c *Catalog) ReplaceExercises(exercises []domain.Exercise) {
	c.exercises = make(map[string]domain.Exercise, len(exercises))
	c.PutExercises(exercises)
}

func (c *Catalog) Exercise(id string) (domain.Exercise, bool) {
	e, ok := c.exercises[id]
	return e, ok
}

// Exercises returns every known exercise record sorted by title.
func (c *Catalog) Exercises() []domain.Exercise {
	list := make([]domain.Exercise, 0, len(c.exercises))
	for _, e := range c.exercises {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Title == list[j].Title {
			return list[i].ID < list[j].ID
		}
		return list[i].Title < list[j].Title
	})
	return list
}

// Snapshot is an immutable copy of one user's activities.
type Snapshot struct {
	userID     string
	activities []domain.Activity
}

func (c *Catalog) Snapshot(userID string) Snapshot {
	return Snapshot{userID: userID, activities: c.List(userID)}
}

// Restore puts back the activities of the snapshot's user. Exercise records
// are not part of a snapshot.
func (c *Catalog) Restore(snap Snapshot) {
	c.dropUser(snap.userID)
	ids := make([]string, 0, len(snap.activities))
	for _, a := range snap.activities {
		a = a.Clone()
		c.activities[a.ID] = &a
		ids = append(ids, a.ID)
	}
	c.order[snap.userID] = ids
}

func (c *Catalog) dropUser(userID string) {
	for _, id := range c.order[userID] {
		delete(c.activities, id)
	}
	delete(c.order, userID)
}

func normalize(a domain.Activity) domain.Activity {
	a = a.Clone()
	a.ExerciseIDs = domain.Dedupe(a.ExerciseIDs)
	if a.ExerciseIDs == nil {
		a.ExerciseIDs = []string{}
	}
	return a
}
