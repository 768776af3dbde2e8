package db

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlc "github.com/Joseda-hg/lazyjournal/internal/db/sqlc"
	"github.com/Joseda-hg/lazyjournal/internal/model"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestAddThenListReturnsNewRecord(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	filedAt := time.Date(2024, time.March, 10, 9, 30, 0, 0, time.Local)
	id, err := store.Add(context.Background(), TaskInput{
		Title:       "  Water the plants ",
		Description: "balcony",
		Type:        model.TypeDay,
		CreatedAt:   filedAt,
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected task ID to be set")
	}

	tasks, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	got := tasks[0]
	if got.ID != id {
		t.Fatalf("expected id %d, got %d", id, got.ID)
	}
	if got.Title != "Water the plants" {
		t.Fatalf("expected trimmed title, got %q", got.Title)
	}
	if got.Description != "balcony" || got.Type != model.TypeDay || got.Completed {
		t.Fatalf("unexpected fields: %+v", got)
	}
	if !got.CreatedAt.Equal(filedAt) {
		t.Fatalf("expected created_at %v, got %v", filedAt, got.CreatedAt)
	}
	if got.Attachments() != nil {
		t.Fatalf("expected no attachments, got %d", len(got.Attachments()))
	}
}

func TestAddAssignsUniqueIDsAndListsNewestFirst(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	var ids []int64
	for _, title := range []string{"first", "second", "third"} {
		id, err := store.Add(context.Background(), TaskInput{Title: title, Type: model.TypeMonth})
		if err != nil {
			t.Fatalf("add %s: %v", title, err)
		}
		ids = append(ids, id)
	}
	if ids[0] == ids[1] || ids[1] == ids[2] || ids[0] == ids[2] {
		t.Fatalf("expected unique ids, got %v", ids)
	}

	tasks, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, task := range tasks {
		if task.Title != want[i] {
			t.Fatalf("position %d: expected %q, got %q", i, want[i], task.Title)
		}
	}
}

func TestAddRejectsEmptyTitleAndBadType(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	if _, err := store.Add(context.Background(), TaskInput{Title: "   ", Type: model.TypeDay}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := store.Add(context.Background(), TaskInput{Title: "x", Type: "overdue"}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}

	tasks, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}

func TestUpdateMergesPartialFields(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	id, err := store.Add(context.Background(), TaskInput{Title: "Read", Description: "chapter 1", Type: model.TypeDay})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	description := "chapter 2"
	updated, err := store.Update(context.Background(), id, TaskPatch{Description: &description})
	if err != nil {
		t.Fatalf("update task: %v", err)
	}
	if updated.Title != "Read" {
		t.Fatalf("expected title to survive partial update, got %q", updated.Title)
	}
	if updated.Description != "chapter 2" {
		t.Fatalf("expected description 'chapter 2', got %q", updated.Description)
	}

	empty := " "
	if _, err := store.Update(context.Background(), id, TaskPatch{Title: &empty}); !errors.Is(err, ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestUpdateMissingRecordIsNotFound(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	done := true
	if _, err := store.Update(context.Background(), 42, TaskPatch{Completed: &done}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleTwiceRestoresCompletedAndKeepsCreatedAt(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	filedAt := time.Date(2023, time.December, 31, 22, 0, 0, 0, time.Local)
	id, err := store.Add(context.Background(), TaskInput{Title: "Plan", Type: model.TypeYear, CreatedAt: filedAt})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	for _, want := range []bool{true, false} {
		value := want
		task, err := store.Update(context.Background(), id, TaskPatch{Completed: &value})
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
		if task.Completed != want {
			t.Fatalf("expected completed=%v, got %v", want, task.Completed)
		}
		if !task.CreatedAt.Equal(filedAt) {
			t.Fatalf("expected created_at to stay %v, got %v", filedAt, task.CreatedAt)
		}
	}
}

func TestDeleteRemovesRecordAndIsIdempotent(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	keep, err := store.Add(context.Background(), TaskInput{Title: "keep", Type: model.TypeDay})
	if err != nil {
		t.Fatalf("add keep: %v", err)
	}
	drop, err := store.Add(context.Background(), TaskInput{
		Title:  "drop",
		Type:   model.TypeDay,
		Images: []model.Image{{MIME: "image/png", Data: pngHeader}},
	})
	if err != nil {
		t.Fatalf("add drop: %v", err)
	}

	if err := store.Delete(context.Background(), drop); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(context.Background(), drop); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if err := store.Delete(context.Background(), drop); err != nil {
		t.Fatalf("second delete should be a no-op, got %v", err)
	}
	if err := store.Delete(context.Background(), 9999); err != nil {
		t.Fatalf("deleting a missing id should be a no-op, got %v", err)
	}

	tasks, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != keep {
		t.Fatalf("expected only task %d to remain, got %+v", keep, tasks)
	}
	images, err := store.Queries.ListAllImages(context.Background())
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected images of the deleted task to be removed, got %d", len(images))
	}
}

func TestImagesRoundTripInOrder(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	first := append([]byte(nil), pngHeader...)
	second := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	id, err := store.Add(context.Background(), TaskInput{
		Title:  "Receipt",
		Type:   model.TypeDay,
		Images: []model.Image{{MIME: "image/png", Data: first}, {MIME: "image/jpeg", Data: second}},
	})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	task, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	attachments := task.Attachments()
	if len(attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(attachments))
	}
	if attachments[0].MIME != "image/png" || attachments[1].MIME != "image/jpeg" {
		t.Fatalf("unexpected attachment order: %s, %s", attachments[0].MIME, attachments[1].MIME)
	}

	remaining := attachments[1:]
	updated, err := store.Update(context.Background(), id, TaskPatch{Images: &remaining})
	if err != nil {
		t.Fatalf("remove attachment: %v", err)
	}
	if len(updated.Attachments()) != 1 || updated.Attachments()[0].MIME != "image/jpeg" {
		t.Fatalf("expected only the jpeg to remain, got %+v", updated.Attachments())
	}
}

func TestLegacySingleImageReadsAsOneAttachment(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	id, err := store.Add(context.Background(), TaskInput{Title: "Old note", Type: model.TypeDay})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if err := store.Queries.SetLegacyImage(context.Background(), sqlc.SetLegacyImageParams{ID: id, Image: pngHeader}); err != nil {
		t.Fatalf("write legacy image: %v", err)
	}

	task, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if len(task.Images) != 0 {
		t.Fatalf("expected no current-schema images, got %d", len(task.Images))
	}
	attachments := task.Attachments()
	if len(attachments) != 1 {
		t.Fatalf("expected exactly one attachment, got %d", len(attachments))
	}
	if attachments[0].MIME != "image/png" {
		t.Fatalf("expected sniffed mime image/png, got %q", attachments[0].MIME)
	}

	none := []model.Image{}
	cleared, err := store.Update(context.Background(), id, TaskPatch{Images: &none})
	if err != nil {
		t.Fatalf("clear attachments: %v", err)
	}
	if cleared.Attachments() != nil {
		t.Fatalf("expected legacy image to be cleared, got %d attachments", len(cleared.Attachments()))
	}
}

func TestSubscribeSignalsOnMutation(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	changes, unsubscribe := store.Subscribe()
	defer unsubscribe()

	id, err := store.Add(context.Background(), TaskInput{Title: "ping", Type: model.TypeDay})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	expectSignal(t, changes)

	if err := store.Delete(context.Background(), 12345); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	select {
	case <-changes:
		t.Fatalf("deleting a missing id should not notify")
	default:
	}

	if err := store.Delete(context.Background(), id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	expectSignal(t, changes)
}

func expectSignal(t *testing.T, changes <-chan struct{}) {
	t.Helper()
	select {
	case <-changes:
	case <-time.After(time.Second):
		t.Fatalf("expected a change notification")
	}
}

func newTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewStore(db), func() {
		_ = db.Close()
	}
}
