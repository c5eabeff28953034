package performance

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

type series map[datekey.DateKey]float64

// Store keeps one value per (user, exercise, day). It holds no locks; the
// coordinator serialises access.
type Store struct {
	users map[string]map[string]series
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]map[string]series),
	}
}

func (s *Store) Record(userID, exerciseID string, date datekey.DateKey, value float64) error {
	if err := checkEntry(userID, exerciseID, date, value); err != nil {
		return err
	}
	s.seriesFor(userID, exerciseID, true)[date] = value
	return nil
}

func (s *Store) ValueOn(userID, exerciseID string, date datekey.DateKey) (float64, bool) {
	sr := s.seriesFor(userID, exerciseID, false)
	if sr == nil {
		return 0, false
	}
	v, ok := sr[date]
	return v, ok
}

// Latest returns the entry with the greatest day.
func (s *Store) Latest(userID, exerciseID string) (domain.PerformanceEntry, bool) {
	sr := s.seriesFor(userID, exerciseID, false)
	if len(sr) == 0 {
		return domain.PerformanceEntry{}, false
	}

	var latest datekey.DateKey
	for d := range sr {
		if !latest.Valid() || d.After(latest) {
			latest = d
		}
	}
	return domain.PerformanceEntry{
		UserID:     userID,
		ExerciseID: exerciseID,
		Date:       latest,
		Value:      sr[latest],
	}, true
}

func (s *Store) LatestValue(userID, exerciseID string) (float64, bool) {
	e, ok := s.Latest(userID, exerciseID)
	return e.Value, ok
}

// History returns the entries of one exercise ordered by day.
func (s *Store) History(userID, exerciseID string) []domain.PerformanceEntry {
	sr := s.seriesFor(userID, exerciseID, false)
	days := slices.SortedFunc(maps.Keys(sr), datekey.DateKey.Compare)

	entries := make([]domain.PerformanceEntry, 0, len(days))
	for _, d := range days {
		entries = append(entries, domain.PerformanceEntry{
			UserID:     userID,
			ExerciseID: exerciseID,
			Date:       d,
			Value:      sr[d],
		})
	}
	return entries
}

// Entries returns every entry of a user ordered by exercise, then day.
func (s *Store) Entries(userID string) []domain.PerformanceEntry {
	var entries []domain.PerformanceEntry
	for _, exerciseID := range slices.Sorted(maps.Keys(s.users[userID])) {
		entries = append(entries, s.History(userID, exerciseID)...)
	}
	return entries
}

func (s *Store) Delete(userID, exerciseID string, date datekey.DateKey) bool {
	sr := s.seriesFor(userID, exerciseID, false)
	if _, ok := sr[date]; !ok {
		return false
	}
	delete(sr, date)
	if len(sr) == 0 {
		delete(s.users[userID], exerciseID)
	}
	return true
}

// CarryForward seeds date with each exercise's latest value, or 0 when the
// exercise has no history. Days that already hold a value are kept.
func (s *Store) CarryForward(userID string, exerciseIDs []string, date datekey.DateKey) {
	for _, exerciseID := range exerciseIDs {
		if _, ok := s.ValueOn(userID, exerciseID, date); ok {
			continue
		}
		seed, _ := s.LatestValue(userID, exerciseID)
		s.seriesFor(userID, exerciseID, true)[date] = seed
	}
}

// ReplaceUser swaps every entry of a user for the authoritative set.
func (s *Store) ReplaceUser(userID string, entries []domain.PerformanceEntry) error {
	fresh := make(map[string]series)
	for _, e := range entries {
		if err := checkEntry(userID, e.ExerciseID, e.Date, e.Value); err != nil {
			return fmt.Errorf("replace performance of %s: %w", userID, err)
		}
		sr, ok := fresh[e.ExerciseID]
		if !ok {
			sr = make(series)
			fresh[e.ExerciseID] = sr
		}
		sr[e.Date] = e.Value
	}
	s.users[userID] = fresh
	return nil
}

// Snapshot is an immutable copy of one user's performance data.
type Snapshot struct {
	userID string
	data   map[string]series
}

func (s *Store) Snapshot(userID string) Snapshot {
	return Snapshot{userID: userID, data: cloneUser(s.users[userID])}
}

func (s *Store) Restore(snap Snapshot) {
	if snap.data == nil {
		delete(s.users, snap.userID)
		return
	}
	s.users[snap.userID] = cloneUser(snap.data)
}

func (s *Store) seriesFor(userID, exerciseID string, create bool) series {
	byExercise, ok := s.users[userID]
	if !ok {
		if !create {
			return nil
		}
		byExercise = make(map[string]series)
		s.users[userID] = byExercise
	}
	sr, ok := byExercise[exerciseID]
	if !ok && create {
		sr = make(series)
		byExercise[exerciseID] = sr
	}
	return sr
}

func cloneUser(src map[string]series) map[string]series {
	if src == nil {
		return nil
	}
	dst := make(map[string]series, len(src))
	for exerciseID, sr := range src {
		dst[exerciseID] = maps.Clone(sr)
	}
	return dst
}

func checkEntry(userID, exerciseID string, date datekey.DateKey, value float64) error {
	if userID == "" || exerciseID == "" {
		return domain.NewValidationError("exercise_id", "user and exercise ids are required")
	}
	if !date.Valid() {
		return domain.ErrInvalidDate
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %v", domain.ErrInvalidValue, value)
	}
	return nil
}
