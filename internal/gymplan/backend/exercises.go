package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/cache"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

const (
	exercisesCacheKey = "exercises::all"
	exercisesPageSize = 100
	// guards against a backend whose count never matches
	exercisesMaxPages = 100
)

// ListExercises returns every exercise record, paging through the backend.
// The list is served from the cache while it is fresh.
func (c *Client) ListExercises(ctx context.Context) (_ []domain.Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.cache != nil {
		cached, cacheErr := c.cache.Get(ctx, exercisesCacheKey)
		switch {
		case cacheErr == nil:
			var list []domain.Exercise
			if err := json.Unmarshal(cached, &list); err != nil {
				log.Errorf("backend: unmarshal cached exercises: %s", err)
				break
			}
			log.Tracef("backend: %d exercises served from cache", len(list))
			return list, nil
		case errors.Is(cacheErr, cache.ErrCacheMiss):
			log.Debugf("backend: exercises not cached, fetching")
		default:
			log.Errorf("backend: get cached exercises: %s", cacheErr)
		}
	}

	list := make([]domain.Exercise, 0, exercisesPageSize)
	for page := 0; page < exercisesMaxPages; page++ {
		var resp listResponse[domain.Exercise]
		if err := c.do(ctx, request{
			method: http.MethodGet,
			path:   "/exercises/",
			query: url.Values{
				"skip":  {strconv.Itoa(len(list))},
				"limit": {strconv.Itoa(exercisesPageSize)},
			},
			out:      &resp,
			resource: "exercises",
		}); err != nil {
			return nil, err
		}
		list = append(list, resp.Data...)
		if len(resp.Data) < exercisesPageSize || len(list) >= resp.Count {
			break
		}
	}

	if c.cache != nil {
		if payload, err := json.Marshal(list); err != nil {
			log.Errorf("backend: marshal exercises for cache: %s", err)
		} else if err := c.cache.Set(ctx, exercisesCacheKey, payload, c.cacheTTL); err != nil {
			log.Errorf("backend: cache exercises: %s", err)
		}
	}

	return list, nil
}

// InvalidateExercises drops the cached exercise list.
func (c *Client) InvalidateExercises(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Delete(ctx, exercisesCacheKey)
}
