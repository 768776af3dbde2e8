// Package live keeps an always-current materialization of the record store.
// A Query re-reads the store whenever the store reports a mutation, when the
// database file changes underneath it, or when a registered trigger fires.
package live

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/metrics"
	"github.com/Joseda-hg/lazyjournal/internal/model"
)

// Source is the part of the record store a Query needs.
type Source interface {
	List(ctx context.Context) ([]model.Task, error)
	Subscribe() (<-chan struct{}, func())
}

type Query struct {
	source  Source
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	current   []model.Task
	loaded    bool
	listeners map[int]func([]model.Task)
	nextID    int
	triggers  []<-chan struct{}

	// reads are numbered when they start; an older read never replaces a
	// newer one that finished first.
	readSeq   uint64
	storedSeq uint64
}

func New(source Source, logger *zap.Logger) *Query {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Query{
		source:    source,
		logger:    logger,
		metrics:   metrics.Default(),
		current:   []model.Task{},
		listeners: make(map[int]func([]model.Task)),
	}
}

// Current returns the latest materialization. Before the first successful
// read it is an empty, non-nil slice.
func (q *Query) Current() []model.Task {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.current
}

func (q *Query) Loaded() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.loaded
}

// Subscribe registers fn for every new materialization. fn runs on the
// refreshing goroutine and must not block.
func (q *Query) Subscribe(fn func([]model.Task)) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.nextID
	q.nextID++
	q.listeners[id] = fn
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.listeners, id)
	}
}

// Watch adds an extra re-read trigger. Must be called before Run.
func (q *Query) Watch(trigger <-chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.triggers = append(q.triggers, trigger)
}

// Refresh re-reads the store and pushes the result to every listener. On
// failure the previous materialization stays in place, as it does when a
// read that started later has already been stored.
func (q *Query) Refresh(ctx context.Context) error {
	q.mu.Lock()
	q.readSeq++
	seq := q.readSeq
	q.mu.Unlock()

	tasks, err := q.source.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh live query: %w", err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}

	q.mu.Lock()
	if seq < q.storedSeq {
		q.mu.Unlock()
		return nil
	}
	q.storedSeq = seq
	q.current = tasks
	q.loaded = true
	listeners := make([]func([]model.Task), 0, len(q.listeners))
	for _, fn := range q.listeners {
		listeners = append(listeners, fn)
	}
	q.mu.Unlock()

	q.metrics.LiveRefreshes.Inc()
	for _, fn := range listeners {
		fn(tasks)
	}
	return nil
}

// Run performs the initial read and then re-reads on every change signal
// until ctx is cancelled.
func (q *Query) Run(ctx context.Context) error {
	changes, unsubscribe := q.source.Subscribe()
	defer unsubscribe()

	signals := make(chan struct{}, 1)
	forward := func(ch <-chan struct{}) {
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case signals <- struct{}{}:
				default:
				}
			}
		}
	}

	q.mu.RLock()
	triggers := append([]<-chan struct{}{changes}, q.triggers...)
	q.mu.RUnlock()
	for _, trigger := range triggers {
		go forward(trigger)
	}

	if err := q.Refresh(ctx); err != nil {
		q.logger.Error("initial live query read failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-signals:
			if err := q.Refresh(ctx); err != nil && ctx.Err() == nil {
				q.logger.Warn("live query refresh failed", zap.Error(err))
			}
		}
	}
}
