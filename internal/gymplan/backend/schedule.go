package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

func (c *Client) AssignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.assignActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("activity_id", activityID),
		attribute.String("date", date.String()),
	)

	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/activities/assign/" + url.PathEscape(activityID),
		query:    url.Values{"date": {date.Wire()}, "user_id": {userID}},
		resource: fmt.Sprintf("assignment of %s on %s", activityID, date),
	})
}

func (c *Client) UnassignActivity(ctx context.Context, userID, activityID string, date datekey.DateKey) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.unassignActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("activity_id", activityID),
		attribute.String("date", date.String()),
	)

	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/activities/unassign/" + url.PathEscape(activityID),
		query:    url.Values{"date": {date.Wire()}, "user_id": {userID}},
		resource: fmt.Sprintf("assignment of %s on %s", activityID, date),
	})
}

func (c *Client) MoveAssignment(ctx context.Context, userID, activityID string, from, to datekey.DateKey) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.moveAssignment")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("user_id", userID),
		attribute.String("activity_id", activityID),
	)

	return c.do(ctx, request{
		method: http.MethodPut,
		path:   "/activities/assign/" + url.PathEscape(activityID),
		query: url.Values{
			"old_date": {from.Wire()},
			"new_date": {to.Wire()},
			"user_id":  {userID},
		},
		resource: fmt.Sprintf("assignment of %s on %s", activityID, from),
	})
}

func (c *Client) RecordPerformance(ctx context.Context, entry domain.PerformanceEntry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.recordPerformance")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("exercise_id", entry.ExerciseID))

	// the backend records for the authenticated user only
	owner, err := c.currentUser(ctx)
	if err != nil {
		return err
	}
	if entry.UserID != "" && entry.UserID != owner {
		return domain.NewConflictError("user "+entry.UserID, "is not the signed in user")
	}

	return c.do(ctx, request{
		method: http.MethodPatch,
		path:   "/users/me/exercise-performance",
		body: performanceRequest{
			ExerciseID:  entry.ExerciseID,
			Date:        entry.Date.Wire(),
			Performance: entry.Value,
		},
		resource: fmt.Sprintf("performance of %s on %s", entry.ExerciseID, entry.Date),
	})
}

// currentUser returns the owner of the token, asking the backend once when
// it was not configured.
func (c *Client) currentUser(ctx context.Context) (string, error) {
	c.userMu.Lock()
	defer c.userMu.Unlock()
	if c.userID != "" {
		return c.userID, nil
	}

	var resp userResponse
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/users/me",
		out:      &resp,
		resource: "current user",
	}); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("%w: /users/me returned no id", domain.ErrRemoteUnavailable)
	}
	c.userID = resp.ID
	return c.userID, nil
}

func (c *Client) ExercisesForDay(ctx context.Context, userID string, date datekey.DateKey) (_ *domain.DayPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.exercisesForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID), attribute.String("date", date.String()))

	var resp dayPlanResponse
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     fmt.Sprintf("/activities/exercises/%s/%s", url.PathEscape(userID), url.PathEscape(date.Wire())),
		out:      &resp,
		resource: fmt.Sprintf("day %s of user %s", date, userID),
	}); err != nil {
		return nil, err
	}
	return resp.toDomain(date), nil
}

func (c *Client) UserSchedule(ctx context.Context, userID string) (_ *domain.UserSchedule, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.userSchedule")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	var resp userResponse
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/users/" + url.PathEscape(userID),
		out:      &resp,
		resource: "user " + userID,
	}); err != nil {
		return nil, err
	}

	sched, skipped := resp.toDomain(userID)
	if skipped > 0 {
		log.Warnf("backend: user %s document has %d entries with unreadable dates", userID, skipped)
	}
	return sched, nil
}
