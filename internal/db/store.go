package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	sqlc "github.com/Joseda-hg/lazyjournal/internal/db/sqlc"
	"github.com/Joseda-hg/lazyjournal/internal/metrics"
	"github.com/Joseda-hg/lazyjournal/internal/model"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrEmptyTitle  = errors.New("title is required")
	ErrInvalidType = errors.New("invalid record type")
)

type Store struct {
	DB      *sql.DB
	Queries *sqlc.Queries

	metrics *metrics.Metrics

	mu          sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

type TaskInput struct {
	Title       string
	Description string
	Completed   bool
	Type        model.Type
	Images      []model.Image
	CreatedAt   time.Time
}

// TaskPatch carries a partial update; nil fields are left untouched.
// A non-nil Images replaces every attachment, legacy image included.
type TaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
	Images      *[]model.Image
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:          db,
		Queries:     sqlc.New(db),
		metrics:     metrics.Default(),
		subscribers: make(map[int]chan struct{}),
	}
}

func (s *Store) Add(ctx context.Context, input TaskInput) (int64, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, ErrEmptyTitle
	}
	if !input.Type.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidType, input.Type)
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var id int64
	err := s.inTx(ctx, func(q *sqlc.Queries) error {
		created, err := q.CreateTask(ctx, sqlc.CreateTaskParams{
			Title:       title,
			Description: input.Description,
			Completed:   input.Completed,
			Type:        string(input.Type),
			CreatedAt:   createdAt.UnixMilli(),
		})
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id = created
		return addImages(ctx, q, id, input.Images)
	})
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("add").Inc()
		return 0, err
	}

	s.metrics.StoreMutations.WithLabelValues("add").Inc()
	s.notify()
	return id, nil
}

func (s *Store) Update(ctx context.Context, taskID int64, patch TaskPatch) (model.Task, error) {
	err := s.inTx(ctx, func(q *sqlc.Queries) error {
		row, err := q.GetTask(ctx, taskID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load task %d: %w", taskID, err)
		}

		params := sqlc.UpdateTaskParams{
			ID:          taskID,
			Title:       row.Title,
			Description: row.Description,
			Completed:   row.Completed,
		}
		if patch.Title != nil {
			params.Title = strings.TrimSpace(*patch.Title)
			if params.Title == "" {
				return ErrEmptyTitle
			}
		}
		if patch.Description != nil {
			params.Description = *patch.Description
		}
		if patch.Completed != nil {
			params.Completed = *patch.Completed
		}

		if _, err := q.UpdateTask(ctx, params); err != nil {
			return fmt.Errorf("update task %d: %w", taskID, err)
		}

		if patch.Images == nil {
			return nil
		}
		if err := q.DeleteImagesForTask(ctx, taskID); err != nil {
			return fmt.Errorf("clear images for task %d: %w", taskID, err)
		}
		if err := q.ClearLegacyImage(ctx, taskID); err != nil {
			return fmt.Errorf("clear legacy image for task %d: %w", taskID, err)
		}
		return addImages(ctx, q, taskID, *patch.Images)
	})
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("update").Inc()
		return model.Task{}, err
	}

	s.metrics.StoreMutations.WithLabelValues("update").Inc()
	s.notify()
	return s.Get(ctx, taskID)
}

// Delete removes the task and its images. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, taskID int64) error {
	var removed int64
	err := s.inTx(ctx, func(q *sqlc.Queries) error {
		if err := q.DeleteImagesForTask(ctx, taskID); err != nil {
			return fmt.Errorf("delete images for task %d: %w", taskID, err)
		}
		rows, err := q.DeleteTask(ctx, taskID)
		if err != nil {
			return fmt.Errorf("delete task %d: %w", taskID, err)
		}
		removed = rows
		return nil
	})
	if err != nil {
		s.metrics.StoreErrors.WithLabelValues("delete").Inc()
		return err
	}

	if removed > 0 {
		s.metrics.StoreMutations.WithLabelValues("delete").Inc()
		s.notify()
	}
	return nil
}

func (s *Store) Get(ctx context.Context, taskID int64) (model.Task, error) {
	row, err := s.Queries.GetTask(ctx, taskID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("get task %d: %w", taskID, err)
	}

	images, err := s.Queries.ListImagesForTask(ctx, taskID)
	if err != nil {
		return model.Task{}, fmt.Errorf("list images for task %d: %w", taskID, err)
	}

	return mapTask(row, images), nil
}

// List returns every record, most recently added first.
func (s *Store) List(ctx context.Context) ([]model.Task, error) {
	rows, err := s.Queries.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	images, err := s.Queries.ListAllImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	imagesByTask := make(map[int64][]sqlc.TaskImage)
	for _, image := range images {
		imagesByTask[image.TaskID] = append(imagesByTask[image.TaskID], image)
	}

	result := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		result = append(result, mapTask(row, imagesByTask[row.ID]))
	}
	return result, nil
}

// Subscribe registers a change listener. The channel receives a signal after
// every successful mutation; signals coalesce while the listener is busy.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) inTx(ctx context.Context, fn func(q *sqlc.Queries) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(s.Queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func addImages(ctx context.Context, q *sqlc.Queries, taskID int64, images []model.Image) error {
	for position, image := range images {
		if len(image.Data) == 0 {
			continue
		}
		if err := q.AddTaskImage(ctx, sqlc.AddTaskImageParams{
			TaskID:   taskID,
			Position: int64(position),
			Mime:     image.MIME,
			Data:     image.Data,
		}); err != nil {
			return fmt.Errorf("insert image %d for task %d: %w", position, taskID, err)
		}
	}
	return nil
}

func mapTask(row sqlc.Task, images []sqlc.TaskImage) model.Task {
	result := model.Task{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Completed:   row.Completed,
		Type:        model.Type(row.Type),
		CreatedAt:   time.UnixMilli(row.CreatedAt),
	}

	if len(row.Image) > 0 {
		result.LegacyImage = &model.Image{MIME: http.DetectContentType(row.Image), Data: row.Image}
	}

	if len(images) > 0 {
		result.Images = make([]model.Image, 0, len(images))
		for _, image := range images {
			result.Images = append(result.Images, model.Image{MIME: image.Mime, Data: image.Data})
		}
	}

	return result
}
