package coordinator

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/telemetry/tracing"
)

type collectionKey struct {
	collection Collection
	userID     string
}

func activitiesOf(userID string) collectionKey {
	return collectionKey{collection: CollectionActivities, userID: userID}
}

func scheduleOf(userID string) collectionKey {
	return collectionKey{collection: CollectionSchedule, userID: userID}
}

func performanceOf(userID string) collectionKey {
	return collectionKey{collection: CollectionPerformance, userID: userID}
}

var exercisesKey = collectionKey{collection: CollectionExercises}

// relatedKeys widens k to the keys read from the same remote document. The
// schedule and performance of a user are refetched and invalidated together.
func relatedKeys(k collectionKey) []collectionKey {
	switch k.collection {
	case CollectionSchedule, CollectionPerformance:
		return []collectionKey{scheduleOf(k.userID), performanceOf(k.userID)}
	default:
		return []collectionKey{k}
	}
}

func expandKeys(keys []collectionKey) []collectionKey {
	seen := make(map[collectionKey]bool, len(keys)*2)
	out := make([]collectionKey, 0, len(keys)*2)
	for _, k := range keys {
		for _, rk := range relatedKeys(k) {
			if !seen[rk] {
				seen[rk] = true
				out = append(out, rk)
			}
		}
	}
	return out
}

func keySet(keys []collectionKey) map[collectionKey]bool {
	set := make(map[collectionKey]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// opSpec describes a guarded operation. apply checks the state it needs
// before changing anything and may run again when the op is replayed on
// top of restored or refetched collections. call runs without the lock; the
// commit it returns runs under it.
type opSpec struct {
	name   string
	id     string
	tempID string
	keys   []collectionKey
	apply  func() error
	call   func(ctx context.Context) (commit func(), err error)
}

type pendingOp struct {
	seq      uint64
	name     string
	keys     []collectionKey
	apply    func() error
	restore  map[collectionKey]func()
	mutation *Mutation
}

func (op *pendingOp) touches(keys map[collectionKey]bool) bool {
	for _, k := range op.keys {
		if keys[k] {
			return true
		}
	}
	return false
}

// run applies the op prepared under the lock and starts its remote call.
// A nil opSpec from prepare is a local no-op.
func (c *Coordinator) run(ctx context.Context, name string, prepare func() (*opSpec, error)) (*Mutation, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	desc, err := prepare()
	if err == nil && desc == nil {
		c.mu.Unlock()
		c.metrics.CounterMutations.WithLabelValues(name, "noop").Inc()
		return settledMutation(name, ""), nil
	}
	if err != nil {
		c.mu.Unlock()
		c.metrics.CounterMutations.WithLabelValues(name, "rejected").Inc()
		return nil, err
	}

	c.opSeq++
	op := &pendingOp{
		seq:     c.opSeq,
		name:    desc.name,
		keys:    desc.keys,
		apply:   desc.apply,
		restore: c.captureAll(desc.keys),
	}
	if err := op.apply(); err != nil {
		c.restoreAll(op.restore)
		c.mu.Unlock()
		c.metrics.CounterMutations.WithLabelValues(name, "rejected").Inc()
		return nil, err
	}

	id := desc.id
	if desc.tempID != "" {
		id = desc.tempID
	}
	op.mutation = newMutation(desc.name, id)
	if desc.tempID != "" {
		c.creates[desc.tempID] = op.mutation
	}
	c.pending = append(c.pending, op)
	for _, k := range op.keys {
		c.notifyLocked(Change{Collection: k.collection, UserID: k.userID, Cause: CauseOptimistic, Op: op.name})
	}
	c.metrics.GaugeInflightMutations.Inc()
	c.wg.Add(1)
	c.mu.Unlock()

	log.Debugf("coordinator: %s #%d applied optimistically", op.name, op.seq)
	c.flush()

	go c.settle(context.WithoutCancel(ctx), op, desc)
	return op.mutation, nil
}

func (c *Coordinator) settle(ctx context.Context, op *pendingOp, desc *opSpec) {
	defer c.wg.Done()

	begin := time.Now()
	commit, err := c.callRemote(ctx, desc)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.HistogramRemoteCallDuration.WithLabelValues(op.name, outcome).Observe(time.Since(begin).Seconds())

	var mErr error
	c.mu.Lock()
	idx := slices.Index(c.pending, op)
	if idx >= 0 {
		c.pending = slices.Delete(c.pending, idx, idx+1)
	}
	if err == nil {
		if commit != nil {
			commit()
		}
		// refetches issued before the commit may not carry it
		c.invalidateRefetchesLocked(op.keys)
		c.committed = append(c.committed, op)
		for _, k := range op.keys {
			c.notifyLocked(Change{Collection: k.collection, UserID: k.userID, Cause: CauseCommit, Op: op.name})
		}
		c.metrics.CounterMutations.WithLabelValues(op.name, "committed").Inc()
		log.Debugf("coordinator: %s #%d committed", op.name, op.seq)
	} else {
		mutationErr := &MutationError{Op: op.name, Err: domain.Classify(err)}
		mErr = mutationErr
		c.rebuild(op.restore, c.replayAfterLocked(op.seq))
		for _, k := range op.keys {
			c.notifyLocked(Change{
				Collection: k.collection,
				UserID:     k.userID,
				Cause:      CauseRollback,
				Op:         op.name,
				Err:        mutationErr,
				Message:    mutationErr.UserMessage(),
			})
		}
		c.metrics.CounterMutations.WithLabelValues(op.name, "rolled_back").Inc()
		c.metrics.CounterRollbacks.WithLabelValues(op.name).Inc()
		log.Warnf("coordinator: %s #%d rolled back: %s", op.name, op.seq, err)
	}
	if desc.tempID != "" {
		delete(c.creates, desc.tempID)
	}
	c.pruneCommittedLocked()
	close(op.mutation.resolved)
	c.metrics.GaugeInflightMutations.Dec()
	c.mu.Unlock()
	c.flush()

	// the refetch is authoritative whatever the outcome
	if rErr := c.refetch(ctx, op.keys); rErr != nil {
		log.Errorf("coordinator: refetch after %s #%d: %s", op.name, op.seq, rErr)
	}

	op.mutation.err = mErr
	close(op.mutation.done)
}

func (c *Coordinator) callRemote(ctx context.Context, desc *opSpec) (commit func(), err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "coordinator."+desc.name)
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	return desc.call(ctx)
}

func (c *Coordinator) capture(k collectionKey) func() {
	switch k.collection {
	case CollectionActivities:
		snap := c.catalog.Snapshot(k.userID)
		return func() { c.catalog.Restore(snap) }
	case CollectionSchedule:
		snap := c.schedule.Snapshot(k.userID)
		return func() { c.schedule.Restore(snap) }
	case CollectionPerformance:
		snap := c.performance.Snapshot(k.userID)
		return func() { c.performance.Restore(snap) }
	default:
		return func() {}
	}
}

func (c *Coordinator) captureAll(keys []collectionKey) map[collectionKey]func() {
	restore := make(map[collectionKey]func(), len(keys))
	for _, k := range keys {
		restore[k] = c.capture(k)
	}
	return restore
}

func (c *Coordinator) restoreAll(restore map[collectionKey]func()) {
	for _, fn := range restore {
		fn()
	}
}

// replayAfterLocked lists in issue order the ops issued after seq that a
// rollback must put back: the pending ones and the committed ones no refetch
// has covered yet.
func (c *Coordinator) replayAfterLocked(seq uint64) []*pendingOp {
	var ops []*pendingOp
	for _, op := range c.pending {
		if op.seq > seq {
			ops = append(ops, op)
		}
	}
	for _, op := range c.committed {
		if op.seq > seq {
			ops = append(ops, op)
		}
	}
	slices.SortFunc(ops, func(a, b *pendingOp) int {
		return cmp.Compare(a.seq, b.seq)
	})
	return ops
}

// pruneCommittedLocked forgets committed ops that no earlier pending op can
// roll back over anymore.
func (c *Coordinator) pruneCommittedLocked() {
	c.committed = slices.DeleteFunc(c.committed, func(done *pendingOp) bool {
		related := keySet(expandKeys(done.keys))
		for _, op := range c.pending {
			if op.seq < done.seq && op.touches(related) {
				return false
			}
		}
		return true
	})
}

// dropCoveredLocked forgets committed ops whose collections were just
// replaced by a refetch, which always carries them.
func (c *Coordinator) dropCoveredLocked(replaced map[collectionKey]bool) {
	c.committed = slices.DeleteFunc(c.committed, func(done *pendingOp) bool {
		return done.touches(replaced)
	})
}

func (c *Coordinator) invalidateRefetchesLocked(keys []collectionKey) {
	for _, k := range expandKeys(keys) {
		c.refetchSeq[k]++
	}
}

// rebuild resets the seeded collections, then replays the pending ops that
// touch them in issue order. Any other collection such an op touches is reset
// to the op's own snapshot first, so no effect is applied twice.
func (c *Coordinator) rebuild(seed map[collectionKey]func(), ops []*pendingOp) {
	affected := make(map[collectionKey]bool, len(seed))
	resets := make(map[collectionKey]func(), len(seed))
	for k, fn := range seed {
		affected[k] = true
		resets[k] = fn
	}

	var replay []*pendingOp
	for _, op := range ops {
		if !op.touches(affected) {
			continue
		}
		replay = append(replay, op)
		for _, k := range op.keys {
			if !affected[k] {
				affected[k] = true
				resets[k] = op.restore[k]
			}
		}
	}

	c.restoreAll(resets)
	c.applyAliasesLocked()

	for _, op := range replay {
		op.restore = c.captureAll(op.keys)
		if err := op.apply(); err != nil {
			log.Warnf("coordinator: replay of %s #%d skipped: %s", op.name, op.seq, err)
		}
	}
}

// applyAliasesLocked rewrites temporary ids a restored snapshot may still
// carry to the canonical ids their creates committed with.
func (c *Coordinator) applyAliasesLocked() {
	for tempID, canonical := range c.aliases {
		if _, ok := c.catalog.Get(tempID); ok {
			if err := c.catalog.ReplaceID(tempID, canonical); err != nil {
				// canonical row already present, drop the stale temporary one
				_, _ = c.catalog.Delete(tempID)
			}
		}
		c.schedule.RenameActivity(tempID, canonical)
	}
}

func (c *Coordinator) resolveLocked(id string) string {
	if canonical, ok := c.aliases[id]; ok {
		return canonical
	}
	return id
}

// awaitCanonical blocks until id no longer refers to an uncommitted create.
func (c *Coordinator) awaitCanonical(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	id = c.resolveLocked(id)
	create := c.creates[id]
	c.mu.Unlock()

	if !domain.IsTempID(id) {
		return id, nil
	}
	if create != nil {
		select {
		case <-create.resolved:
		case <-ctx.Done():
			return "", fmt.Errorf("wait for create of %s: %w", id, ctx.Err())
		}
	}

	c.mu.Lock()
	resolved := c.resolveLocked(id)
	c.mu.Unlock()
	if domain.IsTempID(resolved) {
		return "", domain.NewConflictError("activity "+id, "was never created")
	}
	return resolved, nil
}

// commitCreate swaps the temporary id for the canonical one in place.
func (c *Coordinator) commitCreate(tempID string, created domain.Activity) {
	c.aliases[tempID] = created.ID
	if err := c.catalog.ReplaceID(tempID, created.ID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			_, _ = c.catalog.Delete(tempID)
		}
		log.Debugf("coordinator: commit of %s as %s: %s", tempID, created.ID, err)
	}
	c.schedule.RenameActivity(tempID, created.ID)
}
