package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/coordinator"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
	"github.com/2beens/gymplanner/pkg"
)

const (
	defaultWaitTimeout = 10 * time.Second
	maxWindowDays      = 31
)

type planner interface {
	Activities(userID string) []domain.Activity
	Activity(id string) (domain.Activity, bool)
	Exercises() []domain.Exercise
	ExercisesForDay(userID string, date datekey.DateKey) domain.DayPlan
	LatestValue(userID, exerciseID string) (float64, bool)
	History(userID, exerciseID string) []domain.PerformanceEntry
	Pending() int

	CreateActivity(ctx context.Context, draft domain.ActivityDraft) (*coordinator.Mutation, error)
	UpdateActivity(ctx context.Context, activityID string, patch domain.ActivityPatch) (*coordinator.Mutation, error)
	DeleteActivity(ctx context.Context, activityID string) (*coordinator.Mutation, error)
	AddExercise(ctx context.Context, activityID, exerciseID string) (*coordinator.Mutation, error)
	RemoveExercise(ctx context.Context, activityID, exerciseID string) (*coordinator.Mutation, error)
	AssignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (*coordinator.Mutation, error)
	UnassignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (*coordinator.Mutation, error)
	MoveAssignment(ctx context.Context, userID, activityID string, from, to datekey.DateKey) (*coordinator.Mutation, error)
	RecordPerformance(ctx context.Context, userID, exerciseID string, date datekey.DateKey, value float64) (*coordinator.Mutation, error)

	Reconcile(ctx context.Context, userID string) error
	RefreshDay(ctx context.Context, userID string, date datekey.DateKey) (*domain.DayPlan, error)
}

type exerciseCache interface {
	InvalidateExercises(ctx context.Context) error
}

type MutationResponse struct {
	Op      string `json:"op"`
	ID      string `json:"id"`
	Pending int    `json:"pending"`
	// set only when the request asked to wait for the remote result
	Settled   bool   `json:"settled"`
	Canonical string `json:"canonical_id,omitempty"`
}

type ActivitiesResponse struct {
	Activities []domain.Activity `json:"activities"`
	Total      int               `json:"total"`
}

type PerformanceResponse struct {
	ExerciseID string                    `json:"exercise_id"`
	Latest     *float64                  `json:"latest"`
	History    []domain.PerformanceEntry `json:"history"`
}

type Handler struct {
	planner     planner
	exercises   exerciseCache
	waitTimeout time.Duration
}

// NewHandler creates the bridge handler. exercises may be nil.
func NewHandler(p planner, exercises exerciseCache) *Handler {
	return &Handler{
		planner:     p,
		exercises:   exercises,
		waitTimeout: defaultWaitTimeout,
	}
}

func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/exercises", h.HandleListExercises).Methods("GET").Name("list-exercises")

	r.HandleFunc("/users/{userId}/days", h.HandleDayWindow).Methods("GET").Name("day-window")
	r.HandleFunc("/users/{userId}/days/{date}", h.HandleDay).Methods("GET").Name("get-day")
	r.HandleFunc("/users/{userId}/days/{date}/activity/{activityId}", h.HandleAssign).Methods("POST").Name("assign-activity")
	r.HandleFunc("/users/{userId}/days/{date}/activity/{activityId}", h.HandleUnassign).Methods("DELETE").Name("unassign-activity")
	r.HandleFunc("/users/{userId}/days/{date}/activity/{activityId}", h.HandleMove).Methods("PUT").Name("move-activity")

	r.HandleFunc("/users/{userId}/activities", h.HandleListActivities).Methods("GET").Name("list-activities")
	r.HandleFunc("/users/{userId}/activities", h.HandleCreateActivity).Methods("POST").Name("create-activity")
	r.HandleFunc("/activities/{id}", h.HandleUpdateActivity).Methods("PATCH").Name("update-activity")
	r.HandleFunc("/activities/{id}", h.HandleDeleteActivity).Methods("DELETE").Name("delete-activity")
	r.HandleFunc("/activities/{id}/exercises/{exerciseId}", h.HandleAddExercise).Methods("POST").Name("add-exercise")
	r.HandleFunc("/activities/{id}/exercises/{exerciseId}", h.HandleRemoveExercise).Methods("DELETE").Name("remove-exercise")

	r.HandleFunc("/users/{userId}/exercises/{exerciseId}/performance/{date}", h.HandleRecordPerformance).Methods("PUT").Name("record-performance")
	r.HandleFunc("/users/{userId}/exercises/{exerciseId}/performance", h.HandlePerformance).Methods("GET").Name("get-performance")

	r.HandleFunc("/users/{userId}/reconcile", h.HandleReconcile).Methods("POST").Name("reconcile")
}

func (h *Handler) HandleListExercises(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, h.planner.Exercises(), http.StatusOK)
}

func (h *Handler) HandleDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.day.get")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	date, ok := dateVar(w, r, "date")
	if !ok {
		return
	}

	if r.URL.Query().Get("refresh") == "true" {
		if _, err := h.planner.RefreshDay(ctx, userID, date); err != nil {
			// the cached plan is still served
			log.Warnf("refresh day %s of %s: %s", date, userID, err)
		}
	}
	pkg.WriteJSON(w, h.planner.ExercisesForDay(userID, date), http.StatusOK)
}

// HandleDayWindow returns the plans of the days around center, the calendar
// strip of the planner screen.
func (h *Handler) HandleDayWindow(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	q := r.URL.Query()

	center := datekey.Today()
	if raw := q.Get("center"); raw != "" {
		parsed, err := datekey.Parse(raw)
		if err != nil {
			pkg.WriteJSONError(w, "invalid center date", http.StatusBadRequest)
			return
		}
		center = parsed
	}
	before, errBefore := intParam(q.Get("before"), 3)
	after, errAfter := intParam(q.Get("after"), 3)
	if errBefore != nil || errAfter != nil || before < 0 || after < 0 || before+after+1 > maxWindowDays {
		pkg.WriteJSONError(w, "invalid window", http.StatusBadRequest)
		return
	}

	days := datekey.Window(center, before, after)
	plans := make([]domain.DayPlan, 0, len(days))
	for _, d := range days {
		plans = append(plans, h.planner.ExercisesForDay(userID, d))
	}
	pkg.WriteJSON(w, plans, http.StatusOK)
}

func (h *Handler) HandleListActivities(w http.ResponseWriter, r *http.Request) {
	list := h.planner.Activities(mux.Vars(r)["userId"])
	pkg.WriteJSON(w, ActivitiesResponse{Activities: list, Total: len(list)}, http.StatusOK)
}

func (h *Handler) HandleCreateActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.create")
	defer span.End()

	var draft domain.ActivityDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.UserID = mux.Vars(r)["userId"]

	m, err := h.planner.CreateActivity(ctx, draft)
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.update")
	defer span.End()

	var patch domain.ActivityPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	m, err := h.planner.UpdateActivity(ctx, mux.Vars(r)["id"], patch)
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.delete")
	defer span.End()

	m, err := h.planner.DeleteActivity(ctx, mux.Vars(r)["id"])
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleAddExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.addExercise")
	defer span.End()

	vars := mux.Vars(r)
	m, err := h.planner.AddExercise(ctx, vars["id"], vars["exerciseId"])
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleRemoveExercise(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activity.removeExercise")
	defer span.End()

	vars := mux.Vars(r)
	m, err := h.planner.RemoveExercise(ctx, vars["id"], vars["exerciseId"])
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.day.assign")
	defer span.End()

	date, ok := dateVar(w, r, "date")
	if !ok {
		return
	}
	vars := mux.Vars(r)
	m, err := h.planner.AssignActivity(ctx, vars["userId"], vars["activityId"], date)
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.day.unassign")
	defer span.End()

	date, ok := dateVar(w, r, "date")
	if !ok {
		return
	}
	vars := mux.Vars(r)
	m, err := h.planner.UnassignActivity(ctx, vars["userId"], vars["activityId"], date)
	h.respondMutation(ctx, w, r, m, err)
}

// HandleMove moves the assignment of {date} to the day given by ?to=.
func (h *Handler) HandleMove(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.day.move")
	defer span.End()

	from, ok := dateVar(w, r, "date")
	if !ok {
		return
	}
	to, err := datekey.Parse(r.URL.Query().Get("to"))
	if err != nil {
		pkg.WriteJSONError(w, "invalid target date", http.StatusBadRequest)
		return
	}
	vars := mux.Vars(r)
	m, err := h.planner.MoveAssignment(ctx, vars["userId"], vars["activityId"], from, to)
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandleRecordPerformance(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.performance.record")
	defer span.End()

	date, ok := dateVar(w, r, "date")
	if !ok {
		return
	}
	var body struct {
		Value *float64 `json:"value"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Value == nil {
		pkg.WriteJSONError(w, "value is required", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	m, err := h.planner.RecordPerformance(ctx, vars["userId"], vars["exerciseId"], date, *body.Value)
	h.respondMutation(ctx, w, r, m, err)
}

func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID, exerciseID := vars["userId"], vars["exerciseId"]

	resp := PerformanceResponse{
		ExerciseID: exerciseID,
		History:    h.planner.History(userID, exerciseID),
	}
	if latest, ok := h.planner.LatestValue(userID, exerciseID); ok {
		resp.Latest = &latest
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.reconcile")
	defer span.End()

	if h.exercises != nil && r.URL.Query().Get("exercises") == "refresh" {
		if err := h.exercises.InvalidateExercises(ctx); err != nil {
			log.Errorf("invalidate exercise cache: %s", err)
		}
	}

	userID := mux.Vars(r)["userId"]
	if err := h.planner.Reconcile(ctx, userID); err != nil {
		log.Errorf("reconcile %s: %s", userID, err)
		writeError(w, err)
		return
	}
	list := h.planner.Activities(userID)
	pkg.WriteJSON(w, ActivitiesResponse{Activities: list, Total: len(list)}, http.StatusOK)
}

// respondMutation answers 202 once the change is applied locally. With
// ?wait=true it answers after the remote settled instead.
func (h *Handler) respondMutation(ctx context.Context, w http.ResponseWriter, r *http.Request, m *coordinator.Mutation, err error) {
	if err != nil {
		log.Debugf("%s %s rejected: %s", r.Method, r.URL.Path, err)
		writeError(w, err)
		return
	}

	resp := MutationResponse{Op: m.Op(), ID: m.ID()}
	if r.URL.Query().Get("wait") != "true" {
		resp.Pending = h.planner.Pending()
		pkg.WriteJSON(w, resp, http.StatusAccepted)
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, h.waitTimeout)
	defer cancel()
	if err := m.Wait(waitCtx); err != nil {
		writeError(w, err)
		return
	}
	resp.Settled = true
	resp.Pending = h.planner.Pending()
	if domain.IsTempID(resp.ID) {
		if a, ok := h.planner.Activity(resp.ID); ok {
			resp.Canonical = a.ID
		}
	}
	pkg.WriteJSON(w, resp, http.StatusOK)
}

func writeError(w http.ResponseWriter, err error) {
	message := err.Error()
	var mErr *coordinator.MutationError
	if errors.As(err, &mErr) {
		message = mErr.UserMessage()
	}
	pkg.WriteJSONError(w, message, statusFor(err))
}

// statusFor maps local rejections to 4xx and failures of the remote to 502.
func statusFor(err error) int {
	var mErr *coordinator.MutationError
	remote := errors.As(err, &mErr)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, coordinator.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyAssigned),
		errors.Is(err, domain.ErrNotAssigned),
		errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case remote && errors.Is(err, domain.ErrValidationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrValidationFailed),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidValue):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func dateVar(w http.ResponseWriter, r *http.Request, name string) (datekey.DateKey, bool) {
	date, err := datekey.Parse(mux.Vars(r)[name])
	if err != nil {
		pkg.WriteJSONError(w, "invalid date", http.StatusBadRequest)
		return datekey.DateKey{}, false
	}
	return date, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Tracef("decode %s %s body: %s", r.Method, r.URL.Path, err)
		pkg.WriteJSONError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
