package testinternals

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

// FakeBackend serves the scheduling REST API from memory, with the same
// assign, unassign and move side effects on performance as the real one.
type FakeBackend struct {
	Server *httptest.Server
	// CurrentUser is who /users/me resolves to.
	CurrentUser string

	mu          sync.Mutex
	order       []string
	activities  map[string]domain.Activity
	assignments map[string][]assignmentDoc
	performance map[string]map[string]map[datekey.DateKey]float64
	exercises   []domain.Exercise
	nextID      int
	failNext    *failure
	requests    int
}

type assignmentDoc struct {
	ID   string `json:"id"`
	Date string `json:"date"`
}

type failure struct {
	status int
	detail string
}

func NewFakeBackend(t *testing.T, currentUser string) *FakeBackend {
	t.Helper()
	fb := &FakeBackend{
		CurrentUser: currentUser,
		activities:  make(map[string]domain.Activity),
		assignments: make(map[string][]assignmentDoc),
		performance: make(map[string]map[string]map[datekey.DateKey]float64),
		nextID:      100,
	}

	root := mux.NewRouter()
	api := root.PathPrefix("/api/v1").Subrouter()
	api.Use(fb.countAndFail)
	api.HandleFunc("/activities/", fb.handleListActivities).Methods(http.MethodGet)
	api.HandleFunc("/activities/", fb.handleCreateActivity).Methods(http.MethodPost)
	api.HandleFunc("/activities/assign/{id}", fb.handleAssign).Methods(http.MethodPost)
	api.HandleFunc("/activities/assign/{id}", fb.handleMove).Methods(http.MethodPut)
	api.HandleFunc("/activities/unassign/{id}", fb.handleUnassign).Methods(http.MethodDelete)
	api.HandleFunc("/activities/exercises/{user}/{date}", fb.handleExercisesForDay).Methods(http.MethodGet)
	api.HandleFunc("/activities/{id}", fb.handleUpdateActivity).Methods(http.MethodPut)
	api.HandleFunc("/activities/{id}", fb.handleDeleteActivity).Methods(http.MethodDelete)
	api.HandleFunc("/activities/{id}/exercises/{exercise}", fb.handleAddExercise).Methods(http.MethodPost)
	api.HandleFunc("/activities/{id}/exercises/{exercise}", fb.handleRemoveExercise).Methods(http.MethodDelete)
	api.HandleFunc("/users/me/exercise-performance", fb.handleRecordPerformance).Methods(http.MethodPatch)
	api.HandleFunc("/users/{id}", fb.handleUser).Methods(http.MethodGet)
	api.HandleFunc("/exercises/", fb.handleListExercises).Methods(http.MethodGet)

	fb.Server = httptest.NewServer(root)
	t.Cleanup(fb.Server.Close)
	return fb
}

func (fb *FakeBackend) URL() string {
	return fb.Server.URL
}

// SeedActivity stores a; activities are listed newest first.
func (fb *FakeBackend) SeedActivity(a domain.Activity) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if a.ExerciseIDs == nil {
		a.ExerciseIDs = []string{}
	}
	fb.activities[a.ID] = a
	fb.order = append(fb.order, a.ID)
}

func (fb *FakeBackend) SeedExercises(exercises ...domain.Exercise) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.exercises = append(fb.exercises, exercises...)
}

// FailNext makes the next request answer with status and detail.
func (fb *FakeBackend) FailNext(status int, detail string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.failNext = &failure{status: status, detail: detail}
}

func (fb *FakeBackend) Requests() int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.requests
}

func (fb *FakeBackend) Activity(id string) (domain.Activity, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	a, ok := fb.activities[id]
	return a, ok
}

func (fb *FakeBackend) AssignedOn(userID string, date datekey.DateKey) (string, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	for _, doc := range fb.assignments[userID] {
		if doc.Date == date.Wire() {
			return doc.ID, true
		}
	}
	return "", false
}

func (fb *FakeBackend) Performance(userID, exerciseID string, date datekey.DateKey) (float64, bool) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	v, ok := fb.performance[userID][exerciseID][date]
	return v, ok
}

func (fb *FakeBackend) countAndFail(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		fb.requests++
		f := fb.failNext
		fb.failNext = nil
		fb.mu.Unlock()

		if f != nil {
			writeDetail(w, f.status, f.detail)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (fb *FakeBackend) handleListActivities(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	fb.mu.Lock()
	defer fb.mu.Unlock()

	list := make([]domain.Activity, 0, len(fb.order))
	for i := len(fb.order) - 1; i >= 0; i-- {
		if a := fb.activities[fb.order[i]]; a.UserID == userID {
			list = append(list, a)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": list, "count": len(list)})
}

func (fb *FakeBackend) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var draft domain.ActivityDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil || draft.Title == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "title required")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	fb.nextID++
	a := domain.Activity{
		ID:          "A" + strconv.Itoa(fb.nextID),
		Title:       draft.Title,
		ExerciseIDs: domain.Dedupe(draft.ExerciseIDs),
		UserID:      draft.UserID,
	}
	if a.ExerciseIDs == nil {
		a.ExerciseIDs = []string{}
	}
	fb.activities[a.ID] = a
	fb.order = append(fb.order, a.ID)
	writeJSON(w, http.StatusOK, a)
}

func (fb *FakeBackend) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var patch domain.ActivityPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	a, ok := fb.activities[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	a = patch.Apply(a)
	fb.activities[id] = a
	writeJSON(w, http.StatusOK, a)
}

func (fb *FakeBackend) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if _, ok := fb.activities[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	delete(fb.activities, id)
	fb.order = slices.DeleteFunc(fb.order, func(o string) bool { return o == id })
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity deleted successfully"})
}

func (fb *FakeBackend) handleAddExercise(w http.ResponseWriter, r *http.Request) {
	fb.editExercises(w, mux.Vars(r)["id"], func(ids []string) []string {
		if exercise := mux.Vars(r)["exercise"]; !slices.Contains(ids, exercise) {
			return append(ids, exercise)
		}
		return ids
	})
}

func (fb *FakeBackend) handleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	fb.editExercises(w, mux.Vars(r)["id"], func(ids []string) []string {
		exercise := mux.Vars(r)["exercise"]
		return slices.DeleteFunc(ids, func(id string) bool { return id == exercise })
	})
}

func (fb *FakeBackend) editExercises(w http.ResponseWriter, id string, edit func([]string) []string) {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	a, ok := fb.activities[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	a.ExerciseIDs = edit(slices.Clone(a.ExerciseIDs))
	fb.activities[id] = a
	writeJSON(w, http.StatusOK, a)
}

func (fb *FakeBackend) handleAssign(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")
	date, err := datekey.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	a, ok := fb.activities[id]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Activity not found")
		return
	}
	for _, doc := range fb.assignments[userID] {
		if doc.Date == date.Wire() {
			writeDetail(w, http.StatusBadRequest, "Activity already assigned for this date")
			return
		}
	}
	fb.assignments[userID] = append(fb.assignments[userID], assignmentDoc{ID: id, Date: date.Wire()})
	for _, exerciseID := range a.ExerciseIDs {
		fb.setPerformance(userID, exerciseID, date, fb.latest(userID, exerciseID))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Activity assigned to %s successfully", date.Wire())})
}

func (fb *FakeBackend) handleUnassign(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	userID := r.URL.Query().Get("user_id")
	date, err := datekey.Parse(r.URL.Query().Get("date"))
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	idx := fb.assignmentIndex(userID, id, date)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Activity assignment not found")
		return
	}
	fb.assignments[userID] = slices.Delete(fb.assignments[userID], idx, idx+1)
	for _, exerciseID := range fb.activities[id].ExerciseIDs {
		delete(fb.performance[userID][exerciseID], date)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity unassigned"})
}

func (fb *FakeBackend) handleMove(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()
	userID := q.Get("user_id")
	from, fromErr := datekey.Parse(q.Get("old_date"))
	to, toErr := datekey.Parse(q.Get("new_date"))
	if fromErr != nil || toErr != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	if fb.assignmentIndex(userID, id, to) >= 0 {
		writeDetail(w, http.StatusBadRequest, "Activity already assigned for the new date")
		return
	}
	idx := fb.assignmentIndex(userID, id, from)
	if idx < 0 {
		writeDetail(w, http.StatusNotFound, "Activity assignment not found for the old date")
		return
	}
	fb.assignments[userID][idx].Date = to.Wire()
	for _, exerciseID := range fb.activities[id].ExerciseIDs {
		delete(fb.performance[userID][exerciseID], from)
		fb.setPerformance(userID, exerciseID, to, fb.latest(userID, exerciseID))
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity assignment updated"})
}

func (fb *FakeBackend) handleExercisesForDay(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["user"]
	date, err := datekey.Parse(vars["date"])
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	for _, doc := range fb.assignments[userID] {
		if doc.Date != date.Wire() {
			continue
		}
		a, ok := fb.activities[doc.ID]
		if !ok {
			writeDetail(w, http.StatusNotFound, "Assigned activity not found")
			return
		}
		exercises := make([]domain.Exercise, 0, len(a.ExerciseIDs))
		for _, exerciseID := range a.ExerciseIDs {
			if i := slices.IndexFunc(fb.exercises, func(e domain.Exercise) bool { return e.ID == exerciseID }); i >= 0 {
				exercises = append(exercises, fb.exercises[i])
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"date":            date.Wire(),
			"activity":        map[string]string{"id": a.ID, "title": a.Title, "user_id": a.UserID},
			"exercises":       exercises,
			"exercises_count": len(exercises),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date.Wire(),
		"activity":  nil,
		"exercises": []any{},
		"message":   "No activity assigned for this date",
	})
}

func (fb *FakeBackend) handleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID  string  `json:"exercise_id"`
		Date        string  `json:"date"`
		Performance float64 `json:"performance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := datekey.Parse(req.Date)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()
	fb.setPerformance(fb.CurrentUser, req.ExerciseID, date, req.Performance)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Exercise performance updated successfully"})
}

func (fb *FakeBackend) handleUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if userID == "me" {
		userID = fb.CurrentUser
	}

	type exerciseDoc struct {
		ID          string             `json:"id"`
		Performance map[string]float64 `json:"performance"`
	}
	exercises := make([]exerciseDoc, 0, len(fb.performance[userID]))
	for exerciseID, series := range fb.performance[userID] {
		doc := exerciseDoc{ID: exerciseID, Performance: make(map[string]float64, len(series))}
		for date, v := range series {
			doc.Performance[date.Wire()] = v
		}
		exercises = append(exercises, doc)
	}
	activities := slices.Clone(fb.assignments[userID])
	if activities == nil {
		activities = []assignmentDoc{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":         userID,
		"activities": activities,
		"exercises":  exercises,
	})
}

func (fb *FakeBackend) handleListExercises(w http.ResponseWriter, r *http.Request) {
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	fb.mu.Lock()
	defer fb.mu.Unlock()

	start := min(skip, len(fb.exercises))
	end := min(start+limit, len(fb.exercises))
	writeJSON(w, http.StatusOK, map[string]any{"data": fb.exercises[start:end], "count": len(fb.exercises)})
}

func (fb *FakeBackend) assignmentIndex(userID, activityID string, date datekey.DateKey) int {
	return slices.IndexFunc(fb.assignments[userID], func(doc assignmentDoc) bool {
		return doc.ID == activityID && doc.Date == date.Wire()
	})
}

func (fb *FakeBackend) latest(userID, exerciseID string) float64 {
	var (
		latest datekey.DateKey
		value  float64
	)
	for date, v := range fb.performance[userID][exerciseID] {
		if !latest.Valid() || date.After(latest) {
			latest, value = date, v
		}
	}
	return value
}

func (fb *FakeBackend) setPerformance(userID, exerciseID string, date datekey.DateKey, value float64) {
	if fb.performance[userID] == nil {
		fb.performance[userID] = make(map[string]map[datekey.DateKey]float64)
	}
	if fb.performance[userID][exerciseID] == nil {
		fb.performance[userID][exerciseID] = make(map[datekey.DateKey]float64)
	}
	fb.performance[userID][exerciseID][date] = value
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
