// Package app owns the ephemeral UI state (active tab, selected date, drafts,
// edit buffers, pending attachments, capture status) and the validated record
// operations every surface goes through.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/attachment"
	"github.com/Joseda-hg/lazyjournal/internal/db"
	"github.com/Joseda-hg/lazyjournal/internal/model"
	"github.com/Joseda-hg/lazyjournal/internal/ocr"
	"github.com/Joseda-hg/lazyjournal/internal/view"
	"github.com/Joseda-hg/lazyjournal/internal/voice"
)

var (
	ErrEmptyTitle  = errors.New("title is required")
	ErrNotEditing  = errors.New("no record is being edited")
	ErrNoImage     = errors.New("no image to scan")
	ErrNoSuchImage = errors.New("attachment index out of range")
)

// Store is the subset of the record store the application mutates.
type Store interface {
	Add(ctx context.Context, input db.TaskInput) (int64, error)
	Update(ctx context.Context, taskID int64, patch db.TaskPatch) (model.Task, error)
	Delete(ctx context.Context, taskID int64) error
	Get(ctx context.Context, taskID int64) (model.Task, error)
}

// Records yields the latest materialized record list.
type Records interface {
	Current() []model.Task
}

type Buffer struct {
	Title       string
	Description string
}

// State is a copy of the application state safe to read without locking.
type State struct {
	Tab               view.Tab
	Selected          time.Time
	RecentlyCompleted map[int64]struct{}

	Draft     Buffer
	EditingID int64
	Edit      Buffer

	PendingPreviews []string

	Listening    voice.Target
	Scanning     bool
	ScanProgress int

	FormOpen bool
	HelpOpen bool
	JumpOpen bool

	Status string
}

func (s State) Editing() bool {
	return s.EditingID != 0
}

type App struct {
	store   Store
	records Records
	voice   *voice.Capture
	scanner *ocr.Scanner
	logger  *zap.Logger
	clock   func() time.Time

	mu                sync.Mutex
	tab               view.Tab
	selected          time.Time
	recentlyCompleted map[int64]struct{}
	draft             Buffer
	editingID         int64
	edit              Buffer
	pending           attachment.Pending
	scanProgress      int
	formOpen          bool
	helpOpen          bool
	jumpOpen          bool
	status            string
	onChange          func()
}

type Option func(*App)

func WithVoice(capture *voice.Capture) Option {
	return func(a *App) { a.voice = capture }
}

func WithScanner(scanner *ocr.Scanner) Option {
	return func(a *App) { a.scanner = scanner }
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(a *App) { a.clock = clock }
}

func New(store Store, records Records, opts ...Option) *App {
	a := &App{
		store:             store,
		records:           records,
		logger:            zap.NewNop(),
		clock:             time.Now,
		tab:               view.TabDay,
		recentlyCompleted: make(map[int64]struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.selected = a.clock()
	if a.voice != nil {
		a.voice.OnResult(a.applyTranscript)
	}
	return a
}

// OnChange registers fn to run after every state transition. It may be
// called from capture goroutines.
func (a *App) OnChange(fn func()) {
	a.mu.Lock()
	a.onChange = fn
	a.mu.Unlock()
}

func (a *App) changed() {
	a.mu.Lock()
	fn := a.onChange
	a.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (a *App) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	recent := make(map[int64]struct{}, len(a.recentlyCompleted))
	for id := range a.recentlyCompleted {
		recent[id] = struct{}{}
	}
	state := State{
		Tab:               a.tab,
		Selected:          a.selected,
		RecentlyCompleted: recent,
		Draft:             a.draft,
		EditingID:         a.editingID,
		Edit:              a.edit,
		PendingPreviews:   a.pending.Previews(),
		ScanProgress:      a.scanProgress,
		FormOpen:          a.formOpen,
		HelpOpen:          a.helpOpen,
		JumpOpen:          a.jumpOpen,
		Status:            a.status,
	}
	if a.voice != nil {
		state.Listening = a.voice.Listening()
	}
	if a.scanner != nil {
		state.Scanning, state.ScanProgress = a.scanner.Status()
	}
	return state
}

// SetTab switches the active tab. Leaving the incomplete tab forgets which
// records were completed there.
func (a *App) SetTab(tab view.Tab) {
	a.mu.Lock()
	if a.tab == view.TabIncomplete && tab != view.TabIncomplete {
		a.recentlyCompleted = make(map[int64]struct{})
	}
	a.tab = tab
	a.mu.Unlock()
	a.changed()
}

func (a *App) SelectDate(date time.Time) {
	a.mu.Lock()
	a.selected = date
	a.jumpOpen = false
	a.mu.Unlock()
	a.changed()
}

// ShiftDate moves the selected date by delta units of the active tab.
func (a *App) ShiftDate(delta int) {
	a.mu.Lock()
	a.selected = view.Shift(a.tab, a.selected, delta)
	a.mu.Unlock()
	a.changed()
}

func (a *App) Today() {
	a.SelectDate(a.clock())
}

// Visible is the record list of the active tab at now.
func (a *App) Visible(now time.Time) []model.Task {
	a.mu.Lock()
	tab, selected := a.tab, a.selected
	recent := make(map[int64]struct{}, len(a.recentlyCompleted))
	for id := range a.recentlyCompleted {
		recent[id] = struct{}{}
	}
	a.mu.Unlock()
	return view.Visible(a.records.Current(), tab, selected, recent, now)
}

func (a *App) Badges(now time.Time) view.Badges {
	return view.CountBadges(a.records.Current(), now)
}

func (a *App) SetDraft(buffer Buffer) {
	a.mu.Lock()
	a.draft = buffer
	a.mu.Unlock()
}

func (a *App) SetEditBuffer(buffer Buffer) {
	a.mu.Lock()
	a.edit = buffer
	a.mu.Unlock()
}

// Submit files the draft under the active tab's type on the selected date.
func (a *App) Submit(ctx context.Context) (int64, error) {
	a.mu.Lock()
	title := strings.TrimSpace(a.draft.Title)
	if title == "" {
		a.status = ErrEmptyTitle.Error()
		a.mu.Unlock()
		a.changed()
		return 0, ErrEmptyTitle
	}
	submitted := a.draft
	input := db.TaskInput{
		Title:       title,
		Description: submitted.Description,
		Type:        view.TypeForTab(a.tab),
		Images:      a.pending.Images(),
		CreatedAt:   a.selected,
	}
	a.mu.Unlock()

	id, err := a.store.Add(ctx, input)
	if err != nil {
		a.report("add record", err)
		return 0, fmt.Errorf("add record: %w", err)
	}

	a.mu.Lock()
	a.draft = Buffer{
		Title:       unsubmitted(a.draft.Title, submitted.Title),
		Description: unsubmitted(a.draft.Description, submitted.Description),
	}
	a.pending.Reset()
	a.formOpen = false
	a.status = fmt.Sprintf("added #%d", id)
	a.mu.Unlock()
	a.changed()
	return id, nil
}

// unsubmitted is the text appended to a draft field while it was being
// saved, e.g. a transcript that arrived during the write.
func unsubmitted(current, submitted string) string {
	if rest, ok := strings.CutPrefix(current, submitted); ok {
		return strings.TrimSpace(rest)
	}
	return current
}

// ToggleComplete flips the completed flag. Missing records are ignored.
func (a *App) ToggleComplete(ctx context.Context, taskID int64) error {
	task, err := a.store.Get(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		a.report("load record", err)
		return err
	}

	completed := !task.Completed
	if _, err := a.store.Update(ctx, taskID, db.TaskPatch{Completed: &completed}); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		a.report("toggle record", err)
		return err
	}

	a.mu.Lock()
	if completed && a.tab == view.TabIncomplete {
		a.recentlyCompleted[taskID] = struct{}{}
	}
	a.mu.Unlock()
	a.changed()
	return nil
}

// StartEdit loads the record into the edit buffer and opens the form.
func (a *App) StartEdit(ctx context.Context, taskID int64) error {
	task, err := a.store.Get(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		a.report("load record", err)
		return err
	}

	a.mu.Lock()
	a.editingID = task.ID
	a.edit = Buffer{Title: task.Title, Description: task.Description}
	a.pending.Reset()
	a.formOpen = true
	a.mu.Unlock()
	a.changed()
	return nil
}

// SaveEdit writes the edit buffer back. Attachments picked while editing are
// appended to the record's existing ones. An empty title keeps the buffer.
func (a *App) SaveEdit(ctx context.Context) error {
	a.mu.Lock()
	if a.editingID == 0 {
		a.mu.Unlock()
		return ErrNotEditing
	}
	taskID := a.editingID
	title := strings.TrimSpace(a.edit.Title)
	description := a.edit.Description
	added := a.pending.Images()
	if title == "" {
		a.status = ErrEmptyTitle.Error()
		a.mu.Unlock()
		a.changed()
		return ErrEmptyTitle
	}
	a.mu.Unlock()

	patch := db.TaskPatch{Title: &title, Description: &description}
	if len(added) > 0 {
		current, err := a.store.Get(ctx, taskID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			a.report("load record", err)
			return err
		}
		images := append(append([]model.Image{}, current.Attachments()...), added...)
		patch.Images = &images
	}

	if _, err := a.store.Update(ctx, taskID, patch); err != nil && !errors.Is(err, db.ErrNotFound) {
		a.report("save record", err)
		return err
	}
	a.CancelEdit()
	return nil
}

func (a *App) CancelEdit() {
	a.mu.Lock()
	a.editingID = 0
	a.edit = Buffer{}
	a.pending.Reset()
	a.formOpen = false
	a.mu.Unlock()
	if a.voice != nil {
		a.voice.Stop()
	}
	a.changed()
}

func (a *App) Delete(ctx context.Context, taskID int64) error {
	if err := a.store.Delete(ctx, taskID); err != nil {
		a.report("delete record", err)
		return err
	}
	a.mu.Lock()
	delete(a.recentlyCompleted, taskID)
	editing := a.editingID == taskID
	a.status = fmt.Sprintf("deleted #%d", taskID)
	a.mu.Unlock()
	if editing {
		a.CancelEdit()
		return nil
	}
	a.changed()
	return nil
}

// RemoveAttachment drops the attachment at index from a stored record.
func (a *App) RemoveAttachment(ctx context.Context, taskID int64, index int) error {
	task, err := a.store.Get(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		a.report("load record", err)
		return err
	}

	current := task.Attachments()
	if index < 0 || index >= len(current) {
		return ErrNoSuchImage
	}
	remaining := make([]model.Image, 0, len(current)-1)
	remaining = append(remaining, current[:index]...)
	remaining = append(remaining, current[index+1:]...)

	if _, err := a.store.Update(ctx, taskID, db.TaskPatch{Images: &remaining}); err != nil && !errors.Is(err, db.ErrNotFound) {
		a.report("remove attachment", err)
		return err
	}
	a.changed()
	return nil
}

// AttachFile adds an image file to the pending list of the open form.
func (a *App) AttachFile(path string) error {
	img, err := attachment.Load(strings.TrimSpace(path))
	if err != nil {
		a.report("attach file", err)
		return err
	}
	a.AttachImage(img)
	return nil
}

func (a *App) AttachImage(img model.Image) {
	a.mu.Lock()
	a.pending.Add(img)
	a.status = fmt.Sprintf("%d attachment(s) pending", a.pending.Len())
	a.mu.Unlock()
	a.changed()
}

func (a *App) RemovePending(index int) bool {
	a.mu.Lock()
	removed := a.pending.Remove(index)
	a.mu.Unlock()
	if removed {
		a.changed()
	}
	return removed
}

// LastPending is the most recently attached pending image.
func (a *App) LastPending() (model.Image, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending.Last()
}

// ToggleVoice starts or stops dictation into target.
func (a *App) ToggleVoice(ctx context.Context, target voice.Target) error {
	if a.voice == nil {
		a.report("voice capture", voice.ErrUnavailable)
		return voice.ErrUnavailable
	}
	err := a.voice.Toggle(ctx, target)
	if err != nil {
		a.report("voice capture", err)
	}
	a.changed()
	return err
}

func (a *App) applyTranscript(target voice.Target, transcript string) {
	a.appendText(target, transcript)
	a.changed()
}

// Scan runs OCR on img and appends any text to target in the active buffer.
func (a *App) Scan(ctx context.Context, img model.Image, target voice.Target) (string, error) {
	if a.scanner == nil {
		return "", nil
	}
	if img.Size() == 0 {
		return "", ErrNoImage
	}
	text, err := a.scanner.Scan(ctx, img, func(progress int) {
		a.mu.Lock()
		a.scanProgress = progress
		a.mu.Unlock()
		a.changed()
	})
	if err != nil {
		a.report("scan text", err)
		return "", err
	}
	if text != "" {
		a.appendText(target, text)
	}
	a.changed()
	return text, nil
}

func (a *App) appendText(target voice.Target, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	buffer := &a.draft
	if a.editingID != 0 {
		buffer = &a.edit
	}
	switch target {
	case voice.TargetDescription:
		buffer.Description = voice.Append(buffer.Description, text)
	default:
		buffer.Title = voice.Append(buffer.Title, text)
	}
}

func (a *App) OpenForm() {
	a.mu.Lock()
	a.formOpen = true
	a.mu.Unlock()
	a.changed()
}

// CloseForm discards the draft and any pending attachments.
func (a *App) CloseForm() {
	a.mu.Lock()
	editing := a.editingID != 0
	a.mu.Unlock()
	if editing {
		a.CancelEdit()
		return
	}
	a.mu.Lock()
	a.formOpen = false
	a.draft = Buffer{}
	a.pending.Reset()
	a.mu.Unlock()
	if a.voice != nil {
		a.voice.Stop()
	}
	a.changed()
}

func (a *App) SetHelp(open bool) {
	a.mu.Lock()
	a.helpOpen = open
	a.mu.Unlock()
	a.changed()
}

func (a *App) SetJump(open bool) {
	a.mu.Lock()
	a.jumpOpen = open
	a.mu.Unlock()
	a.changed()
}

func (a *App) SetStatus(status string) {
	a.mu.Lock()
	a.status = status
	a.mu.Unlock()
	a.changed()
}

func (a *App) report(action string, err error) {
	a.logger.Warn(action+" failed", zap.Error(err))
	a.SetStatus(fmt.Sprintf("%s: %v", action, err))
}
