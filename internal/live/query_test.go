package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyjournal/internal/model"
)

type fakeSource struct {
	mu      sync.Mutex
	tasks   []model.Task
	err     error
	changes chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{changes: make(chan struct{}, 1)}
}

func (s *fakeSource) List(context.Context) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Task{}, s.tasks...), nil
}

func (s *fakeSource) Subscribe() (<-chan struct{}, func()) {
	return s.changes, func() {}
}

func (s *fakeSource) set(tasks []model.Task, err error) {
	s.mu.Lock()
	s.tasks = tasks
	s.err = err
	s.mu.Unlock()
}

func (s *fakeSource) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func TestQueryInitialStateIsEmptyNotNil(t *testing.T) {
	q := New(newFakeSource(), nil)

	current := q.Current()
	require.NotNil(t, current)
	assert.Empty(t, current)
	assert.False(t, q.Loaded())
}

func TestQueryRefreshPushesToListeners(t *testing.T) {
	source := newFakeSource()
	source.set([]model.Task{{ID: 1, Title: "a"}}, nil)
	q := New(source, nil)

	var pushed [][]model.Task
	unsubscribe := q.Subscribe(func(tasks []model.Task) {
		pushed = append(pushed, tasks)
	})

	require.NoError(t, q.Refresh(context.Background()))
	assert.True(t, q.Loaded())
	assert.Len(t, q.Current(), 1)
	require.Len(t, pushed, 1)

	unsubscribe()
	require.NoError(t, q.Refresh(context.Background()))
	assert.Len(t, pushed, 1)
}

func TestQueryFailedRefreshKeepsPrevious(t *testing.T) {
	source := newFakeSource()
	source.set([]model.Task{{ID: 7}}, nil)
	q := New(source, nil)
	require.NoError(t, q.Refresh(context.Background()))

	source.set(nil, errors.New("disk gone"))
	err := q.Refresh(context.Background())
	require.Error(t, err)
	assert.Equal(t, int64(7), q.Current()[0].ID)
}

func TestQueryRunReactsToStoreChanges(t *testing.T) {
	source := newFakeSource()
	q := New(source, nil)

	updates := make(chan []model.Task, 8)
	q.Subscribe(func(tasks []model.Task) { updates <- tasks })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(ctx) }()

	first := waitForUpdate(t, updates)
	assert.Empty(t, first)

	source.set([]model.Task{{ID: 2}, {ID: 1}}, nil)
	source.notify()
	second := waitForUpdate(t, updates)
	assert.Len(t, second, 2)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestQueryRunReactsToExtraTrigger(t *testing.T) {
	source := newFakeSource()
	q := New(source, nil)
	trigger := make(chan struct{}, 1)
	q.Watch(trigger)

	updates := make(chan []model.Task, 8)
	q.Subscribe(func(tasks []model.Task) { updates <- tasks })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = q.Run(ctx) }()

	waitForUpdate(t, updates)
	source.set([]model.Task{{ID: 5}}, nil)
	trigger <- struct{}{}
	got := waitForUpdate(t, updates)
	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].ID)
}

func waitForUpdate(t *testing.T, updates <-chan []model.Task) []model.Task {
	t.Helper()
	select {
	case tasks := <-updates:
		return tasks
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for live query update")
		return nil
	}
}

func TestDayTickerSchedulesMidnight(t *testing.T) {
	loc := time.FixedZone("KST", 9*60*60)
	ticker, err := NewDayTicker(loc)
	require.NoError(t, err)
	ticker.Start()
	defer ticker.Stop()

	next := ticker.Next()
	require.False(t, next.IsZero())
	next = next.In(loc)
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.Equal(t, 0, next.Second())
}

func TestFileWatcherRejectsMemoryDatabase(t *testing.T) {
	_, err := NewFileWatcher(":memory:", nil)
	assert.ErrorIs(t, err, ErrWatcherFailed)
}

// gatedSource holds its first List call until release is closed and then
// answers with the data it saw when the call started.
type gatedSource struct {
	*fakeSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) List(ctx context.Context) ([]model.Task, error) {
	first := false
	s.once.Do(func() { first = true })
	tasks, err := s.fakeSource.List(ctx)
	if first {
		close(s.entered)
		<-s.release
	}
	return tasks, err
}

func TestQueryStaleReadDoesNotOverwriteNewer(t *testing.T) {
	source := &gatedSource{
		fakeSource: newFakeSource(),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	source.set([]model.Task{{ID: 1}}, nil)
	q := New(source, nil)

	stale := make(chan error, 1)
	go func() { stale <- q.Refresh(context.Background()) }()
	<-source.entered

	source.set([]model.Task{{ID: 2}, {ID: 1}}, nil)
	require.NoError(t, q.Refresh(context.Background()))
	require.Len(t, q.Current(), 2)

	close(source.release)
	require.NoError(t, <-stale)
	assert.Len(t, q.Current(), 2)
}
