package coordinator

import (
	"context"
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

// Reconcile replaces every collection of userID, and the exercise records,
// with the remote state. Used for the initial load and manual refreshes.
func (c *Coordinator) Reconcile(ctx context.Context, userID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coordinator.reconcile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	if userID == "" {
		return domain.NewValidationError("user_id", "must not be empty")
	}
	return c.refetch(ctx, []collectionKey{
		activitiesOf(userID),
		scheduleOf(userID),
		performanceOf(userID),
		exercisesKey,
	})
}

// RefreshDay asks the remote for a single day. The local schedule takes the
// answer unless a mutation of that schedule is still in flight or a newer
// refetch of it was issued meanwhile.
func (c *Coordinator) RefreshDay(ctx context.Context, userID string, date datekey.DateKey) (_ *domain.DayPlan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coordinator.refreshDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID == "" {
		return nil, domain.NewValidationError("user_id", "must not be empty")
	}
	if !date.Valid() {
		return nil, domain.ErrInvalidDate
	}

	key := scheduleOf(userID)
	c.mu.Lock()
	seq := c.refetchSeq[key]
	c.mu.Unlock()

	plan, err := c.remote.ExercisesForDay(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("exercises for day %s: %w", date, domain.Classify(err))
	}
	if plan == nil {
		return nil, fmt.Errorf("exercises for day %s: %w: empty answer", date, domain.ErrRemoteUnavailable)
	}

	unknownActivity := false
	c.mu.Lock()
	switch {
	case c.refetchSeq[key] != seq:
		c.metrics.CounterStaleRefetches.WithLabelValues(string(CollectionSchedule)).Inc()
		log.Debugf("coordinator: dropping stale day %s of [%s]", date, userID)
	case c.scheduleBusyLocked(key):
		log.Debugf("coordinator: %s has schedule mutations in flight, day %s not applied", userID, date)
	default:
		activityID := ""
		if plan.Activity != nil {
			activityID = plan.Activity.ID
			if _, ok := c.catalog.Get(activityID); !ok {
				unknownActivity = true
				a := plan.Activity.Clone()
				if a.UserID == "" {
					a.UserID = userID
				}
				if err := c.catalog.Create(a); err != nil {
					log.Warnf("coordinator: keep activity %s of day %s: %s", activityID, date, err)
				}
				c.notifyLocked(Change{Collection: CollectionActivities, UserID: userID, Cause: CauseReconcile})
			}
		}
		c.schedule.SetDay(userID, date, activityID)
		c.catalog.PutExercises(plan.Exercises)
		c.notifyLocked(Change{Collection: CollectionSchedule, UserID: userID, Cause: CauseReconcile})
	}
	c.mu.Unlock()
	c.flush()

	if unknownActivity {
		// the day points at an activity this cache never listed
		if rErr := c.refetch(ctx, []collectionKey{activitiesOf(userID)}); rErr != nil {
			log.Warnf("coordinator: activities of %s after day %s: %s", userID, date, rErr)
		}
	}
	return plan, nil
}

func (c *Coordinator) scheduleBusyLocked(key collectionKey) bool {
	for _, op := range c.pending {
		if op.touches(map[collectionKey]bool{key: true}) {
			return true
		}
	}
	return false
}

// refetch pulls the given collections in parallel. A result is applied only
// if no newer refetch of the same collection was issued in the meantime.
func (c *Coordinator) refetch(ctx context.Context, keys []collectionKey) error {
	keys = expandKeys(keys)
	c.mu.Lock()
	seqs := make(map[collectionKey]uint64, len(keys))
	for _, k := range keys {
		if _, dup := seqs[k]; dup {
			continue
		}
		c.refetchSeq[k]++
		seqs[k] = c.refetchSeq[k]
	}
	c.mu.Unlock()

	activityUsers := make(map[string]bool)
	scheduleUsers := make(map[string]bool)
	fetchExercises := false
	for k := range seqs {
		switch k.collection {
		case CollectionActivities:
			activityUsers[k.userID] = true
		case CollectionSchedule, CollectionPerformance:
			scheduleUsers[k.userID] = true
		case CollectionExercises:
			fetchExercises = true
		}
	}

	var tasks []func() error
	for userID := range activityUsers {
		tasks = append(tasks, func() error {
			return c.refetchActivities(ctx, userID, seqs)
		})
	}
	for userID := range scheduleUsers {
		tasks = append(tasks, func() error {
			return c.refetchSchedule(ctx, userID, seqs)
		})
	}
	if fetchExercises {
		tasks = append(tasks, func() error {
			return c.refetchExercises(ctx, seqs)
		})
	}

	var g errgroup.Group
	errs := make([]error, len(tasks))
	for i, task := range tasks {
		g.Go(func() error {
			errs[i] = task()
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

func (c *Coordinator) refetchActivities(ctx context.Context, userID string, seqs map[collectionKey]uint64) error {
	key := activitiesOf(userID)
	list, err := c.remote.ListActivities(ctx, userID)
	if err != nil {
		c.metrics.CounterRefetches.WithLabelValues(string(key.collection), "error").Inc()
		return fmt.Errorf("list activities of %s: %w", userID, domain.Classify(err))
	}
	c.applyRefetch(
		map[collectionKey]uint64{key: seqs[key]},
		map[collectionKey]func(){key: func() { c.catalog.ReplaceUser(userID, list) }},
	)
	return nil
}

func (c *Coordinator) refetchSchedule(ctx context.Context, userID string, seqs map[collectionKey]uint64) error {
	sched, err := c.remote.UserSchedule(ctx, userID)
	if err == nil && sched == nil {
		err = fmt.Errorf("%w: empty answer", domain.ErrRemoteUnavailable)
	}
	if err != nil {
		for _, k := range []collectionKey{scheduleOf(userID), performanceOf(userID)} {
			if _, ok := seqs[k]; ok {
				c.metrics.CounterRefetches.WithLabelValues(string(k.collection), "error").Inc()
			}
		}
		return fmt.Errorf("schedule of %s: %w", userID, domain.Classify(err))
	}

	wanted := make(map[collectionKey]uint64)
	replace := make(map[collectionKey]func())
	if seq, ok := seqs[scheduleOf(userID)]; ok {
		wanted[scheduleOf(userID)] = seq
		replace[scheduleOf(userID)] = func() { c.schedule.ReplaceUser(userID, sched.Assignments) }
	}
	if seq, ok := seqs[performanceOf(userID)]; ok {
		entries := validEntries(userID, sched.Performance)
		wanted[performanceOf(userID)] = seq
		replace[performanceOf(userID)] = func() {
			if err := c.performance.ReplaceUser(userID, entries); err != nil {
				log.Errorf("coordinator: replace performance of %s: %s", userID, err)
			}
		}
	}
	c.applyRefetch(wanted, replace)
	return nil
}

func (c *Coordinator) refetchExercises(ctx context.Context, seqs map[collectionKey]uint64) error {
	list, err := c.remote.ListExercises(ctx)
	if err != nil {
		c.metrics.CounterRefetches.WithLabelValues(string(CollectionExercises), "error").Inc()
		return fmt.Errorf("list exercises: %w", domain.Classify(err))
	}
	c.applyRefetch(
		map[collectionKey]uint64{exercisesKey: seqs[exercisesKey]},
		map[collectionKey]func(){exercisesKey: func() { c.catalog.ReplaceExercises(list) }},
	)
	return nil
}

func (c *Coordinator) applyRefetch(seqs map[collectionKey]uint64, replace map[collectionKey]func()) {
	c.mu.Lock()
	seed := make(map[collectionKey]func(), len(seqs))
	for k, seq := range seqs {
		if c.refetchSeq[k] != seq {
			c.metrics.CounterStaleRefetches.WithLabelValues(string(k.collection)).Inc()
			log.Debugf("coordinator: dropping stale %s refetch of [%s]", k.collection, k.userID)
			continue
		}
		seed[k] = replace[k]
	}
	replaced := make(map[collectionKey]bool, len(seed))
	for k := range seed {
		replaced[k] = true
	}
	c.dropCoveredLocked(replaced)

	if fn, ok := seed[exercisesKey]; ok {
		// exercise records are never touched by mutations, nothing to replay
		fn()
		delete(seed, exercisesKey)
		c.notifyLocked(Change{Collection: CollectionExercises, Cause: CauseReconcile})
		c.metrics.CounterRefetches.WithLabelValues(string(CollectionExercises), "applied").Inc()
	}
	if len(seed) > 0 {
		c.rebuild(seed, c.pending)
	}
	for k := range seed {
		c.notifyLocked(Change{Collection: k.collection, UserID: k.userID, Cause: CauseReconcile})
		c.metrics.CounterRefetches.WithLabelValues(string(k.collection), "applied").Inc()
	}
	c.mu.Unlock()
	c.flush()
}

func validEntries(userID string, entries []domain.PerformanceEntry) []domain.PerformanceEntry {
	valid := make([]domain.PerformanceEntry, 0, len(entries))
	for _, e := range entries {
		if e.ExerciseID == "" || !e.Date.Valid() || math.IsNaN(e.Value) || math.IsInf(e.Value, 0) {
			log.Warnf("coordinator: skipping bad performance entry of %s: %+v", userID, e)
			continue
		}
		e.UserID = userID
		valid = append(valid, e)
	}
	return valid
}
