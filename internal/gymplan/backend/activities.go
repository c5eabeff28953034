package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

func (c *Client) ListActivities(ctx context.Context, userID string) (_ []domain.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.listActivities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	var resp listResponse[domain.Activity]
	if err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/activities/",
		query:    url.Values{"user_id": {userID}},
		out:      &resp,
		resource: "activities of user " + userID,
	}); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		resp.Data = []domain.Activity{}
	}
	return resp.Data, nil
}

func (c *Client) CreateActivity(ctx context.Context, draft domain.ActivityDraft) (_ *domain.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.createActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if draft.ExerciseIDs == nil {
		draft.ExerciseIDs = []string{}
	}
	created := &domain.Activity{}
	if err := c.do(ctx, request{
		method:   http.MethodPost,
		path:     "/activities/",
		body:     draft,
		out:      created,
		resource: fmt.Sprintf("activity %q", draft.Title),
	}); err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Client) UpdateActivity(ctx context.Context, activityID string, patch domain.ActivityPatch) (_ *domain.Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.updateActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("activity_id", activityID))

	updated := &domain.Activity{}
	if err := c.do(ctx, request{
		method:   http.MethodPut,
		path:     "/activities/" + url.PathEscape(activityID),
		body:     newActivityUpdateRequest(patch),
		out:      updated,
		resource: "activity " + activityID,
	}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) DeleteActivity(ctx context.Context, activityID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.deleteActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("activity_id", activityID))

	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     "/activities/" + url.PathEscape(activityID),
		resource: "activity " + activityID,
	})
}

func (c *Client) AddExercise(ctx context.Context, activityID, exerciseID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.addExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.do(ctx, request{
		method:   http.MethodPost,
		path:     exercisePath(activityID, exerciseID),
		resource: "activity " + activityID,
	})
}

func (c *Client) RemoveExercise(ctx context.Context, activityID, exerciseID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.removeExercise")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.do(ctx, request{
		method:   http.MethodDelete,
		path:     exercisePath(activityID, exerciseID),
		resource: "activity " + activityID,
	})
}

func exercisePath(activityID, exerciseID string) string {
	return fmt.Sprintf("/activities/%s/exercises/%s", url.PathEscape(activityID), url.PathEscape(exerciseID))
}
