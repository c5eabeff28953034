package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymplanner/internal/cache"
	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

const testToken = "test-token"

var jun10 = datekey.MustParse("2024-06-10")

func newTestClient(t *testing.T, r *mux.Router, c cache.Cache) *Client {
	t.Helper()
	api := mux.NewRouter()
	api.PathPrefix(apiPrefix).Handler(http.StripPrefix(apiPrefix, r))
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(Params{
		BaseURL:    srv.URL + "/",
		Token:      testToken,
		HTTPClient: srv.Client(),
		Cache:      c,
		CacheTTL:   time.Minute,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(Params{BaseURL: "not a url"})
	assert.Error(t, err)
	_, err = NewClient(Params{BaseURL: "/api"})
	assert.Error(t, err)
}

func TestClient_ListActivities(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/activities/", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Bearer "+testToken, req.Header.Get("Authorization"))
		assert.Equal(t, "U1", req.URL.Query().Get("user_id"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"data": []map[string]any{
				{"id": "A1", "title": "Legs", "exercises": []string{"E1", "E2"}, "user_id": "U1"},
			},
			"count": 1,
		})
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, nil)

	list, err := client.ListActivities(context.Background(), "U1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.Activity{ID: "A1", Title: "Legs", ExerciseIDs: []string{"E1", "E2"}, UserID: "U1"}, list[0])
}

func TestClient_CreateActivity(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/activities/", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, "Core", body["title"])
		assert.Equal(t, "U1", body["user_id"])
		assert.Equal(t, []any{}, body["exercises"])
		writeJSON(t, w, http.StatusOK, map[string]any{
			"id": "A9", "title": "Core", "exercises": []string{}, "user_id": "U1",
		})
	}).Methods(http.MethodPost)
	client := newTestClient(t, r, nil)

	created, err := client.CreateActivity(context.Background(), domain.ActivityDraft{Title: "Core", UserID: "U1"})
	require.NoError(t, err)
	assert.Equal(t, "A9", created.ID)
}

func TestClient_UpdateActivity_RequestBody(t *testing.T) {
	title := "Legs"
	testCases := []struct {
		name     string
		patch    domain.ActivityPatch
		wantBody string
	}{
		{
			name:     "title only",
			patch:    domain.ActivityPatch{Title: &title},
			wantBody: `{"title":"Legs"}`,
		},
		{
			name:     "clear exercises",
			patch:    domain.ActivityPatch{ExerciseIDs: []string{}},
			wantBody: `{"exercises":[]}`,
		},
		{
			name:     "replace exercises",
			patch:    domain.ActivityPatch{Title: &title, ExerciseIDs: []string{"E1", "E2", "E1"}},
			wantBody: `{"title":"Legs","exercises":["E1","E2"]}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := mux.NewRouter()
			r.HandleFunc("/activities/{id}", func(w http.ResponseWriter, req *http.Request) {
				assert.Equal(t, "A1", mux.Vars(req)["id"])
				body, err := io.ReadAll(req.Body)
				require.NoError(t, err)
				assert.JSONEq(t, tc.wantBody, string(body))
				writeJSON(t, w, http.StatusOK, map[string]any{
					"id": "A1", "title": "Legs", "exercises": []string{}, "user_id": "U1",
				})
			}).Methods(http.MethodPut)
			client := newTestClient(t, r, nil)

			updated, err := client.UpdateActivity(context.Background(), "A1", tc.patch)
			require.NoError(t, err)
			assert.Equal(t, "A1", updated.ID)
		})
	}
}

func TestClient_AssignUsesWireDates(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/activities/assign/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "A1", mux.Vars(req)["id"])
		assert.Equal(t, "Mon Jun 10 2024", req.URL.Query().Get("date"))
		assert.Equal(t, "U1", req.URL.Query().Get("user_id"))
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/activities/assign/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "Mon Jun 10 2024", req.URL.Query().Get("old_date"))
		assert.Equal(t, "Wed Jun 12 2024", req.URL.Query().Get("new_date"))
		writeJSON(t, w, http.StatusBadRequest, map[string]string{"detail": "Activity already assigned for the new date"})
	}).Methods(http.MethodPut)
	client := newTestClient(t, r, nil)

	require.NoError(t, client.AssignActivity(context.Background(), "U1", "A1", jun10))

	err := client.MoveAssignment(context.Background(), "U1", "A1", jun10, jun10.AddDays(2))
	require.ErrorIs(t, err, domain.ErrConflict)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "activity already assigned for the new date", conflict.Reason)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"detail":"Not enough permissions"}`, domain.ErrConflict},
		{"not found", http.StatusNotFound, `{"detail":"Activity not found"}`, domain.ErrConflict},
		{"conflict", http.StatusConflict, ``, domain.ErrConflict},
		{"forbidden", http.StatusForbidden, `{"detail":"forbidden"}`, domain.ErrConflict},
		{"unprocessable", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","title"],"msg":"field required"}]}`, domain.ErrValidationFailed},
		{"server error", http.StatusInternalServerError, `{"detail":"Database not available"}`, domain.ErrRemoteUnavailable},
		{"bad gateway", http.StatusBadGateway, `<html>oops</html>`, domain.ErrRemoteUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mux.NewRouter()
			r.HandleFunc("/activities/{id}", func(w http.ResponseWriter, req *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}).Methods(http.MethodDelete)
			client := newTestClient(t, r, nil)

			err := client.DeleteActivity(context.Background(), "A2")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestClient_TransportAndDecodeErrors(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		_, _ = io.WriteString(w, `{"activities": [`)
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, nil)

	_, err := client.UserSchedule(context.Background(), "U1")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	deadClient, err := NewClient(Params{BaseURL: closed.URL})
	require.NoError(t, err)
	_, err = deadClient.ListActivities(context.Background(), "U1")
	assert.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestClient_UserSchedule(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/users/{id}", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "U1", mux.Vars(req)["id"])
		_, _ = io.WriteString(w, `{
			"id": "U1",
			"activities": [
				{"id": "A1", "date": "Mon Jun 10 2024"},
				{"id": "A2", "date": "someday"}
			],
			"exercises": [
				{"id": "E1", "performance": {"Wed Jun 12 2024": 15, "Mon Jun 10 2024": 12}},
				{"id": "E2", "performance": {}}
			]
		}`)
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, nil)

	sched, err := client.UserSchedule(context.Background(), "U1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Assignment{{UserID: "U1", Date: jun10, ActivityID: "A1"}}, sched.Assignments)
	assert.Equal(t, []domain.PerformanceEntry{
		{UserID: "U1", ExerciseID: "E1", Date: jun10, Value: 12},
		{UserID: "U1", ExerciseID: "E1", Date: jun10.AddDays(2), Value: 15},
	}, sched.Performance)
}

func TestClient_ExercisesForDay(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/activities/exercises/{user}/{date}", func(w http.ResponseWriter, req *http.Request) {
		if mux.Vars(req)["date"] != "Mon Jun 10 2024" {
			writeJSON(t, w, http.StatusOK, map[string]any{
				"date": mux.Vars(req)["date"], "activity": nil, "exercises": []any{},
				"message": "No activity assigned for this date",
			})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"date":      "Mon Jun 10 2024",
			"activity":  map[string]string{"id": "A1", "title": "Legs", "user_id": "U1"},
			"exercises": []map[string]any{{"id": "E1", "title": "Squat"}, {"id": "E2", "title": "Lunge"}},
		})
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, nil)

	plan, err := client.ExercisesForDay(context.Background(), "U1", jun10)
	require.NoError(t, err)
	require.NotNil(t, plan.Activity)
	assert.Equal(t, []string{"E1", "E2"}, plan.Activity.ExerciseIDs)
	assert.Len(t, plan.Exercises, 2)

	rest, err := client.ExercisesForDay(context.Background(), "U1", jun10.AddDays(1))
	require.NoError(t, err)
	assert.True(t, rest.IsRestDay())
	assert.NotNil(t, rest.Exercises)
	assert.Empty(t, rest.Exercises)
}

func TestClient_RecordPerformance(t *testing.T) {
	var lookups, patches atomic.Int32
	r := mux.NewRouter()
	r.HandleFunc("/users/me/exercise-performance", func(w http.ResponseWriter, req *http.Request) {
		patches.Add(1)
		var body performanceRequest
		require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
		assert.Equal(t, performanceRequest{ExerciseID: "E1", Date: "Mon Jun 10 2024", Performance: 42.5}, body)
		writeJSON(t, w, http.StatusOK, map[string]string{"message": "ok"})
	}).Methods(http.MethodPatch)
	r.HandleFunc("/users/me", func(w http.ResponseWriter, req *http.Request) {
		lookups.Add(1)
		writeJSON(t, w, http.StatusOK, map[string]any{"id": "U1", "activities": []any{}, "exercises": []any{}})
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, nil)

	require.NoError(t, client.RecordPerformance(context.Background(), domain.PerformanceEntry{
		UserID: "U1", ExerciseID: "E1", Date: jun10, Value: 42.5,
	}))
	assert.Equal(t, int32(1), patches.Load())

	// another user's entry is refused without reaching the backend
	err := client.RecordPerformance(context.Background(), domain.PerformanceEntry{
		UserID: "U2", ExerciseID: "E1", Date: jun10, Value: 42.5,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "user U2", conflict.Resource)
	assert.Equal(t, int32(1), patches.Load())
	assert.Equal(t, int32(1), lookups.Load(), "the owner is looked up once")
}

func TestClient_RecordPerformance_ConfiguredOwner(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/users/me/exercise-performance", func(w http.ResponseWriter, req *http.Request) {
		t.Error("nothing is sent for another user")
	}).Methods(http.MethodPatch)
	srv := httptest.NewServer(http.StripPrefix(apiPrefix, r))
	t.Cleanup(srv.Close)

	client, err := NewClient(Params{BaseURL: srv.URL, UserID: "U1", HTTPClient: srv.Client()})
	require.NoError(t, err)

	err = client.RecordPerformance(context.Background(), domain.PerformanceEntry{
		UserID: "U2", ExerciseID: "E1", Date: jun10, Value: 1,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestClient_ListExercises_PagedAndCached(t *testing.T) {
	all := make([]domain.Exercise, 0, 130)
	for i := range 130 {
		all = append(all, domain.Exercise{
			ID:       fmt.Sprintf("E%d", i),
			Title:    gofakeit.HipsterWord(),
			Category: gofakeit.RandomString([]string{"strength", "cardio", "mobility"}),
			Sets:     gofakeit.Number(1, 5),
			IsActive: true,
		})
	}

	var hits atomic.Int32
	r := mux.NewRouter()
	r.HandleFunc("/exercises/", func(w http.ResponseWriter, req *http.Request) {
		hits.Add(1)
		skip, _ := strconv.Atoi(req.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
		end := min(skip+limit, len(all))
		writeJSON(t, w, http.StatusOK, map[string]any{"data": all[skip:end], "count": len(all)})
	}).Methods(http.MethodGet)
	client := newTestClient(t, r, cache.NewFreeCache(1))

	list, err := client.ListExercises(context.Background())
	require.NoError(t, err)
	assert.Equal(t, all, list)
	assert.Equal(t, int32(2), hits.Load())

	list, err = client.ListExercises(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 130)
	assert.Equal(t, int32(2), hits.Load(), "second call served from cache")

	require.NoError(t, client.InvalidateExercises(context.Background()))
	_, err = client.ListExercises(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(4), hits.Load())
}
