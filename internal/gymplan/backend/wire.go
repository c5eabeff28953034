package backend

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
)

type listResponse[T any] struct {
	Data  []T `json:"data"`
	Count int `json:"count"`
}

type errorResponse struct {
	// a plain string for HTTPException, a list of field errors for 422s
	Detail json.RawMessage `json:"detail"`
}

func (e errorResponse) message() string {
	if len(e.Detail) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(e.Detail, &text); err == nil {
		return text
	}
	var fields []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(e.Detail, &fields); err == nil && len(fields) > 0 {
		return fmt.Sprintf("%v: %s", fields[0].Loc, fields[0].Msg)
	}
	return string(e.Detail)
}

// activityUpdateRequest omits only the fields the patch leaves untouched; an
// empty exercise list is sent as [] and clears the activity.
type activityUpdateRequest struct {
	Title     *string   `json:"title,omitempty"`
	Exercises *[]string `json:"exercises,omitempty"`
}

func newActivityUpdateRequest(patch domain.ActivityPatch) activityUpdateRequest {
	req := activityUpdateRequest{Title: patch.Title}
	if patch.ExerciseIDs != nil {
		ids := domain.Dedupe(patch.ExerciseIDs)
		req.Exercises = &ids
	}
	return req
}

type performanceRequest struct {
	ExerciseID  string  `json:"exercise_id"`
	Date        string  `json:"date"`
	Performance float64 `json:"performance"`
}

type dayPlanResponse struct {
	Date     string `json:"date"`
	Activity *struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		UserID string `json:"user_id"`
	} `json:"activity"`
	Exercises []domain.Exercise `json:"exercises"`
}

func (r dayPlanResponse) toDomain(date datekey.DateKey) *domain.DayPlan {
	plan := &domain.DayPlan{
		Date:      date,
		Exercises: append([]domain.Exercise{}, r.Exercises...),
	}
	if r.Activity != nil {
		ids := make([]string, 0, len(r.Exercises))
		for _, e := range r.Exercises {
			ids = append(ids, e.ID)
		}
		plan.Activity = &domain.Activity{
			ID:          r.Activity.ID,
			Title:       r.Activity.Title,
			UserID:      r.Activity.UserID,
			ExerciseIDs: ids,
		}
	}
	return plan
}

// userResponse is the user document; only the scheduling parts are decoded.
type userResponse struct {
	ID         string `json:"id"`
	Activities []struct {
		ID   string `json:"id"`
		Date string `json:"date"`
	} `json:"activities"`
	Exercises []struct {
		ID          string             `json:"id"`
		Performance map[string]float64 `json:"performance"`
	} `json:"exercises"`
}

// toDomain drops entries whose dates do not parse; the rest of the document
// is still usable.
func (r userResponse) toDomain(userID string) (*domain.UserSchedule, int) {
	skipped := 0
	sched := &domain.UserSchedule{UserID: userID}
	for _, a := range r.Activities {
		date, err := datekey.Parse(a.Date)
		if err != nil || a.ID == "" {
			skipped++
			continue
		}
		sched.Assignments = append(sched.Assignments, domain.Assignment{UserID: userID, Date: date, ActivityID: a.ID})
	}
	for _, e := range r.Exercises {
		for rawDate, value := range e.Performance {
			date, err := datekey.Parse(rawDate)
			if err != nil {
				skipped++
				continue
			}
			sched.Performance = append(sched.Performance, domain.PerformanceEntry{
				UserID:     userID,
				ExerciseID: e.ID,
				Date:       date,
				Value:      value,
			})
		}
	}
	sort.Slice(sched.Performance, func(i, j int) bool {
		a, b := sched.Performance[i], sched.Performance[j]
		if a.ExerciseID != b.ExerciseID {
			return a.ExerciseID < b.ExerciseID
		}
		return a.Date.Before(b.Date)
	})
	return sched, skipped
}
