package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/2beens/gymplanner/internal/datekey"
	"github.com/2beens/gymplanner/internal/gymplan/catalog"
	"github.com/2beens/gymplanner/internal/gymplan/domain"
	"github.com/2beens/gymplanner/internal/gymplan/performance"
	"github.com/2beens/gymplanner/internal/gymplan/schedule"
	"github.com/2beens/gymplanner/internal/telemetry/metrics"
)

var ErrClosed = errors.New("coordinator closed")

type Collection string

const (
	CollectionActivities  Collection = "activities"
	CollectionSchedule    Collection = "schedule"
	CollectionPerformance Collection = "performance"
	CollectionExercises   Collection = "exercises"
)

type Cause string

const (
	CauseOptimistic Cause = "optimistic"
	CauseCommit     Cause = "commit"
	CauseRollback   Cause = "rollback"
	CauseReconcile  Cause = "reconcile"
)

// Change tells subscribers that a collection was modified.
type Change struct {
	Collection Collection
	UserID     string
	Cause      Cause
	Op         string
	// Err and Message are set for rollbacks.
	Err     error
	Message string
}

type Option func(*Coordinator)

// WithClock sets the clock used for the performance editing window.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithIDGenerator sets how the suffix of temporary ids is generated.
func WithIDGenerator(gen func() string) Option {
	return func(c *Coordinator) {
		c.newID = gen
	}
}

// Coordinator owns the cache collections and applies every mutation
// optimistically. A single mutex stands in for the single logical thread:
// all apply, commit, rollback and replace steps run under it, remote calls
// never do.
type Coordinator struct {
	remote  Remote
	metrics *metrics.Manager
	now     func() time.Time
	newID   func() string

	mu          sync.Mutex
	catalog     *catalog.Catalog
	schedule    *schedule.Index
	performance *performance.Store
	pending     []*pendingOp
	committed   []*pendingOp // committed while an earlier op is pending
	opSeq       uint64
	creates     map[string]*Mutation // temp id -> create in flight
	aliases     map[string]string    // temp id -> canonical id
	refetchSeq  map[collectionKey]uint64
	subscribers map[int]func(Change)
	nextSubID   int
	outbox      []Change
	closed      bool

	notifyMu sync.Mutex
	wg       sync.WaitGroup
}

func New(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:      remote,
		now:         time.Now,
		newID:       uuid.NewString,
		catalog:     catalog.New(),
		schedule:    schedule.NewIndex(),
		performance: performance.NewStore(),
		creates:     make(map[string]*Mutation),
		aliases:     make(map[string]string),
		refetchSeq:  make(map[collectionKey]uint64),
		subscribers: make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = metrics.NewManager("gymplanner", "coordinator", prometheus.NewRegistry())
	}
	return c
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Notifications are delivered in order, outside the cache
// lock, so fn may call the read accessors.
func (c *Coordinator) Subscribe(fn func(Change)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subscribers, id)
	}
}

// Close stops accepting mutations and waits for the in-flight ones to settle.
func (c *Coordinator) Close(ctx context.Context) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve returns the canonical id for a temporary one once its create has
// committed, and id itself otherwise.
func (c *Coordinator) Resolve(id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(id)
}

func (c *Coordinator) Activities(userID string) []domain.Activity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.List(userID)
}

func (c *Coordinator) Activity(id string) (domain.Activity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Get(c.resolveLocked(id))
}

func (c *Coordinator) Exercise(id string) (domain.Exercise, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Exercise(id)
}

func (c *Coordinator) Exercises() []domain.Exercise {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.Exercises()
}

func (c *Coordinator) ExercisesForDay(userID string, date datekey.DateKey) domain.DayPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.ExercisesForDay(userID, date, c.catalog)
}

func (c *Coordinator) Assignments(userID string) []domain.Assignment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.schedule.Assignments(userID)
}

func (c *Coordinator) ValueOn(userID, exerciseID string, date datekey.DateKey) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.performance.ValueOn(userID, exerciseID, date)
}

func (c *Coordinator) LatestValue(userID, exerciseID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.performance.LatestValue(userID, exerciseID)
}

func (c *Coordinator) History(userID, exerciseID string) []domain.PerformanceEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.performance.History(userID, exerciseID)
}

// Pending returns the number of mutations applied locally but not settled.
func (c *Coordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// notifyLocked queues a change; c.mu must be held.
func (c *Coordinator) notifyLocked(ch Change) {
	c.outbox = append(c.outbox, ch)
}

// flush delivers queued changes. Only one goroutine delivers at a time; a
// caller that finds delivery in progress leaves its changes to that goroutine.
func (c *Coordinator) flush() {
	for {
		if !c.notifyMu.TryLock() {
			return
		}
		for {
			c.mu.Lock()
			batch := c.outbox
			c.outbox = nil
			subs := make([]func(Change), 0, len(c.subscribers))
			for id := 0; id < c.nextSubID; id++ {
				if fn, ok := c.subscribers[id]; ok {
					subs = append(subs, fn)
				}
			}
			c.mu.Unlock()

			if len(batch) == 0 {
				break
			}
			for _, ch := range batch {
				for _, fn := range subs {
					fn(ch)
				}
			}
		}
		c.notifyMu.Unlock()

		c.mu.Lock()
		empty := len(c.outbox) == 0
		c.mu.Unlock()
		if empty {
			return
		}
	}
}
