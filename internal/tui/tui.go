package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"

	"github.com/Joseda-hg/lazyjournal/internal/app"
	"github.com/Joseda-hg/lazyjournal/internal/live"
	"github.com/Joseda-hg/lazyjournal/internal/model"
	"github.com/Joseda-hg/lazyjournal/internal/ocr"
	"github.com/Joseda-hg/lazyjournal/internal/view"
	"github.com/Joseda-hg/lazyjournal/internal/voice"
)

const (
	viewHeader = "header"
	viewFooter = "footer"
	viewList   = "list"
	viewDetail = "detail"
	viewForm   = "form"
	viewHelp   = "help"
	viewJump   = "jump"
)

type UI struct {
	app    *app.App
	query  *live.Query
	logger *zap.Logger
	gui    *gocui.Gui
	ctx    context.Context
	now    func() time.Time

	visible          []model.Task
	selected         int
	attachmentCursor int

	form       *formState
	formEditor *formEditor
}

type formState struct {
	index  int
	attach string
}

type formEditor struct {
	ui *UI
}

func newUI(ctx context.Context, application *app.App, query *live.Query, logger *zap.Logger) *UI {
	if logger == nil {
		logger = zap.NewNop()
	}
	ui := &UI{
		app:    application,
		query:  query,
		logger: logger,
		ctx:    ctx,
		now:    time.Now,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

// Run blocks on the gocui main loop. The caller owns query.Run; the UI only
// re-renders on its pushes.
func Run(ctx context.Context, application *app.App, query *live.Query, logger *zap.Logger) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := newUI(ctx, application, query, logger)
	ui.gui = gui
	gui.Mouse = true

	redraw := func() {
		gui.Update(func(*gocui.Gui) error { return nil })
	}
	unsubscribe := query.Subscribe(func([]model.Task) { redraw() })
	defer unsubscribe()
	application.OnChange(redraw)
	defer application.OnChange(nil)

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	for i, tab := range view.Tabs {
		if err := gui.SetKeybinding("", rune('1'+i), gocui.ModNone, u.selectTab(tab)); err != nil {
			return err
		}
	}
	if err := gui.SetKeybinding("", 'h', gocui.ModNone, u.prevDate); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyArrowLeft, gocui.ModNone, u.prevDate); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'l', gocui.ModNone, u.nextDate); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", gocui.KeyArrowRight, gocui.ModNone, u.nextDate); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 't', gocui.ModNone, u.today); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'g', gocui.ModNone, u.openJump); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addRecord); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'e', gocui.ModNone, u.editRecord); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleComplete); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteRecord); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '[', gocui.ModNone, u.prevAttachment); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", ']', gocui.ModNone, u.nextAttachment); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'r', gocui.ModNone, u.removeAttachment); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewList, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewList, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewList, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewList, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewList, gocui.KeyEnter, gocui.ModNone, u.editRecord); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlR, gocui.ModNone, u.toggleVoice); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlO, gocui.ModNone, u.scanPending); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlA, gocui.ModNone, u.attachFromField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyCtrlX, gocui.ModNone, u.dropPending); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewJump, gocui.KeyEnter, gocui.ModNone, u.submitJump); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewJump, gocui.KeyEsc, gocui.ModNone, u.cancelJump); err != nil {
		return err
	}
	if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewList, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
		return u.onListClick(gui, opts)
	}}); err != nil {
		return err
	}
	return u.bindMouseScroll(gui)
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	u.refresh()
	state := u.app.Snapshot()
	if !state.FormOpen && u.form != nil {
		// closed from elsewhere, e.g. a successful submit
		u.form = nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = false
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView, state)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView, state)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	leftWidth := computeLeftWidth(maxX)
	leftX1 := leftWidth - 1
	rightX0 := min(leftX1+1, maxX-1)

	listView, err := gui.SetView(viewList, 0, bodyTop, leftX1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	listView.Title = tabTitle(state.Tab)
	applyViewStyle(listView, !u.inputActive(), true)
	u.renderList(listView, state)

	detailView, err := gui.SetView(viewDetail, rightX0, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		detailView.Title = "Record"
		detailView.Wrap = true
	}
	applyViewStyle(detailView, false, false)
	u.renderDetail(detailView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.form != nil {
		if err := u.showForm(gui, state); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if state.JumpOpen {
		if err := u.showJump(gui, state); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewJump)
	}

	if state.HelpOpen {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if !u.inputActive() {
		_, _ = gui.SetCurrentView(viewList)
	}
	gui.Cursor = u.form != nil || state.JumpOpen
	return nil
}

// computeLeftWidth sizes the record list; the detail pane takes the rest.
func computeLeftWidth(width int) int {
	safeWidth := max(width-2, 20)
	leftWidth := safeWidth * 3 / 5
	if leftWidth < 30 {
		leftWidth = 30
	}
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}
	return leftWidth
}

// refresh recomputes the visible list from the latest live query result.
func (u *UI) refresh() {
	u.visible = u.app.Visible(u.now())
	if u.selected >= len(u.visible) {
		u.selected = max(len(u.visible)-1, 0)
	}
	if task := u.selectedTask(); task != nil {
		if count := len(task.Attachments()); u.attachmentCursor >= count {
			u.attachmentCursor = max(count-1, 0)
		}
	} else {
		u.attachmentCursor = 0
	}
}

// reload waits for the store to be re-read so the list reflects the write
// that was just made.
func (u *UI) reload() error {
	if err := u.query.Refresh(u.ctx); err != nil {
		u.logger.Warn("reload failed", zap.Error(err))
		u.app.SetStatus(err.Error())
	}
	u.refresh()
	return nil
}

func (u *UI) renderHeader(v *gocui.View, state app.State) {
	v.Clear()
	badges := u.app.Badges(u.now())
	parts := make([]string, 0, len(view.Tabs))
	for i, tab := range view.Tabs {
		parts = append(parts, formatTabLabel(i+1, tab, badges.For(tab), tab == state.Tab))
	}
	fmt.Fprintf(v, "%s  ◀ %s ▶", strings.Join(parts, " "), view.Label(state.Tab, state.Selected))
}

func (u *UI) renderFooter(v *gocui.View, state app.State) {
	v.Clear()
	v.SetOrigin(0, 0)
	v.SetCursor(0, 0)

	fmt.Fprintln(v, "1-4 tabs | h/l date | t today | g jump | a add | e edit | x done | d delete | [ ] r attachments | ? help | q quit")
	line := captureStatus(state)
	if state.Status != "" {
		if line != "" {
			line += " | "
		}
		line += state.Status
	}
	fmt.Fprint(v, line)
}

func (u *UI) renderList(v *gocui.View, state app.State) {
	v.Clear()
	if len(u.visible) == 0 {
		fmt.Fprint(v, "  nothing here")
		return
	}
	for i, task := range u.visible {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		_, recent := state.RecentlyCompleted[task.ID]
		fmt.Fprintf(v, "%s %s\n", prefix, formatTaskSummary(task, state.Tab, recent))
	}
	v.SetCursor(0, min(u.selected, len(u.visible)-1))
}

func (u *UI) renderDetail(v *gocui.View) {
	v.Clear()
	task := u.selectedTask()
	if task == nil {
		fmt.Fprint(v, "No record selected")
		return
	}
	fmt.Fprint(v, strings.Join(formatDetail(*task, u.attachmentCursor), "\n"))
}

func (u *UI) onListClick(gui *gocui.Gui, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	v, err := gui.View(viewList)
	if err != nil {
		return nil
	}
	_, y0, _, _ := v.Dimensions()
	_, oy := v.Origin()
	row := max(opts.Y-y0-1+oy, 0)
	u.selected = max(min(row, len(u.visible)-1), 0)
	u.attachmentCursor = 0
	return nil
}

func (u *UI) bindMouseScroll(gui *gocui.Gui) error {
	for _, name := range []string{viewList, viewDetail} {
		if err := gui.SetKeybinding(name, gocui.MouseWheelUp, gocui.ModNone, u.scrollUp); err != nil {
			return err
		}
		if err := gui.SetKeybinding(name, gocui.MouseWheelDown, gocui.ModNone, u.scrollDown); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) scrollUp(gui *gocui.Gui, v *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if v == nil && gui != nil {
		v = gui.CurrentView()
	}
	if v != nil {
		v.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, v *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if v == nil && gui != nil {
		v = gui.CurrentView()
	}
	if v != nil {
		v.ScrollDown(1)
	}
	return nil
}

func (u *UI) selectedTask() *model.Task {
	if u.selected >= 0 && u.selected < len(u.visible) {
		return &u.visible[u.selected]
	}
	return nil
}

func (u *UI) selectTab(tab view.Tab) func(*gocui.Gui, *gocui.View) error {
	return func(_ *gocui.Gui, _ *gocui.View) error {
		if u.inputActive() {
			return nil
		}
		u.app.SetTab(tab)
		u.selected = 0
		u.attachmentCursor = 0
		u.refresh()
		return nil
	}
}

func (u *UI) prevDate(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftDate(-1)
}

func (u *UI) nextDate(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftDate(1)
}

func (u *UI) shiftDate(delta int) error {
	if u.inputActive() {
		return nil
	}
	u.app.ShiftDate(delta)
	u.selected = 0
	u.refresh()
	return nil
}

func (u *UI) today(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.app.Today()
	u.selected = 0
	u.refresh()
	return nil
}

func (u *UI) openJump(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.app.SetJump(true)
	return nil
}

func (u *UI) submitJump(gui *gocui.Gui, v *gocui.View) error {
	value := ""
	if v != nil {
		value = v.Buffer()
	}
	return u.jumpTo(gui, value)
}

func (u *UI) jumpTo(gui *gocui.Gui, value string) error {
	date, err := parseJumpDate(value, u.now())
	if err != nil {
		u.app.SetStatus(err.Error())
		return nil
	}
	u.app.SelectDate(date)
	u.selected = 0
	u.closeModal(gui, viewJump)
	u.refresh()
	return nil
}

func (u *UI) cancelJump(gui *gocui.Gui, _ *gocui.View) error {
	u.app.SetJump(false)
	u.closeModal(gui, viewJump)
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.visible)-1 {
		u.selected++
		u.attachmentCursor = 0
	}
	return nil
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
		u.attachmentCursor = 0
	}
	return nil
}

func (u *UI) prevAttachment(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.attachmentCursor > 0 {
		u.attachmentCursor--
	}
	return nil
}

func (u *UI) nextAttachment(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task := u.selectedTask()
	if task == nil {
		return nil
	}
	if u.attachmentCursor < len(task.Attachments())-1 {
		u.attachmentCursor++
	}
	return nil
}

func (u *UI) removeAttachment(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task := u.selectedTask()
	if task == nil || len(task.Attachments()) == 0 {
		return nil
	}
	if err := u.app.RemoveAttachment(u.ctx, task.ID, u.attachmentCursor); err != nil {
		u.app.SetStatus(err.Error())
		return nil
	}
	u.app.SetStatus("attachment removed")
	return u.reload()
}

func (u *UI) toggleComplete(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task := u.selectedTask()
	if task == nil {
		return nil
	}
	if err := u.app.ToggleComplete(u.ctx, task.ID); err != nil {
		return nil
	}
	u.app.SetStatus("")
	return u.reload()
}

func (u *UI) deleteRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task := u.selectedTask()
	if task == nil {
		return nil
	}
	if err := u.app.Delete(u.ctx, task.ID); err != nil {
		return nil
	}
	return u.reload()
}

func (u *UI) addRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.app.OpenForm()
	u.form = &formState{}
	return nil
}

func (u *UI) editRecord(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	task := u.selectedTask()
	if task == nil {
		return nil
	}
	if err := u.app.StartEdit(u.ctx, task.ID); err != nil {
		return nil
	}
	if u.app.Snapshot().Editing() {
		u.form = &formState{}
	}
	return nil
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index == fieldAttach && strings.TrimSpace(u.form.attach) != "" {
		return u.attachFromField(gui, nil)
	}

	var err error
	if u.app.Snapshot().Editing() {
		err = u.app.SaveEdit(u.ctx)
	} else {
		_, err = u.app.Submit(u.ctx)
	}
	if err != nil {
		// status already set; keep the form open with its contents
		return nil
	}

	u.form = nil
	u.closeModal(gui, viewForm)
	return u.reload()
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.app.CloseForm()
	u.closeModal(gui, viewForm)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, v *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(formLabels)-1 {
		u.form.index++
	}
	u.renderForm(v, u.app.Snapshot())
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, v *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(v, u.app.Snapshot())
	return nil
}

// toggleVoice dictates into the focused text field; the attach field
// dictates into the description.
func (u *UI) toggleVoice(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	_ = u.app.ToggleVoice(u.ctx, u.captureTarget())
	return nil
}

func (u *UI) scanPending(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if scanning := u.app.Snapshot().Scanning; scanning {
		return nil
	}
	img, ok := u.app.LastPending()
	if !ok {
		u.app.SetStatus("attach an image first (ctrl-a)")
		return nil
	}
	target := u.captureTarget()
	go func() {
		text, err := u.app.Scan(u.ctx, img, target)
		switch {
		case errors.Is(err, ocr.ErrBusy):
			u.app.SetStatus("a scan is already running")
		case err != nil:
		case text == "":
			u.app.SetStatus("no text found")
		default:
			u.app.SetStatus("text added")
		}
	}()
	return nil
}

func (u *UI) attachFromField(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	path := strings.TrimSpace(u.form.attach)
	if path == "" {
		u.form.index = fieldAttach
		return nil
	}
	if err := u.app.AttachFile(path); err != nil {
		return nil
	}
	u.form.attach = ""
	return nil
}

func (u *UI) dropPending(_ *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if previews := u.app.Snapshot().PendingPreviews; len(previews) > 0 {
		u.app.RemovePending(len(previews) - 1)
	}
	return nil
}

func (u *UI) captureTarget() voice.Target {
	if u.form != nil {
		if target := fieldTarget(u.form.index); target != voice.TargetNone {
			return target
		}
	}
	return voice.TargetDescription
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	state := u.app.Snapshot()
	if u.inputActive() && !state.HelpOpen {
		return nil
	}
	u.app.SetHelp(!state.HelpOpen)
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.app.SetHelp(false)
	u.closeModal(gui, viewHelp)
	return nil
}

func (u *UI) closeModal(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
	_, _ = gui.SetCurrentView(viewList)
}

func (u *UI) showForm(gui *gocui.Gui, state app.State) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(14, max(9, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	v, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		v.Wrap = true
	}
	if state.Editing() {
		v.Title = fmt.Sprintf("Edit #%d", state.EditingID)
	} else {
		v.Title = fmt.Sprintf("New %s record · %s", view.TypeForTab(state.Tab), view.Label(view.TabDay, state.Selected))
	}
	v.Editable = true
	v.KeybindOnEdit = true
	v.Editor = u.formEditor
	u.renderForm(v, state)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) renderForm(v *gocui.View, state app.State) {
	if u.form == nil || v == nil {
		return
	}
	v.Clear()
	values := u.formValues(state)
	for index, label := range formLabels {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(v, "%s%s%s: %s\n", prefix, label, listeningMarker(state, index), values[index])
	}
	fmt.Fprintln(v)
	for _, line := range formatPending(state.PendingPreviews) {
		fmt.Fprintln(v, line)
	}
	label := formLabels[u.form.index] + listeningMarker(state, u.form.index) + ": "
	cursorX := len([]rune(label)) + len([]rune(values[u.form.index])) + 2
	v.SetCursor(cursorX, u.form.index)
}

func (u *UI) formValues(state app.State) [3]string {
	buffer := state.Draft
	if state.Editing() {
		buffer = state.Edit
	}
	return [3]string{buffer.Title, buffer.Description, u.form.attach}
}

// Edit writes keystrokes into the app's active buffer so voice and OCR
// results land in the same place.
func (e *formEditor) Edit(v *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil {
		return false
	}
	state := ui.app.Snapshot()
	values := ui.formValues(state)
	value := values[ui.form.index]

	switch {
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		runes := []rune(value)
		if len(runes) > 0 {
			value = string(runes[:len(runes)-1])
		}
	case key == gocui.KeySpace:
		value += " "
	case key == gocui.KeyCtrlU:
		value = ""
	case ch != 0 && ch != '\n' && ch != '\r' && mod == 0:
		value += string(ch)
	default:
		return false
	}

	ui.setFormValue(state, value)
	ui.renderForm(v, ui.app.Snapshot())
	return true
}

func (u *UI) setFormValue(state app.State, value string) {
	if u.form.index == fieldAttach {
		u.form.attach = value
		return
	}
	buffer := state.Draft
	if state.Editing() {
		buffer = state.Edit
	}
	if u.form.index == fieldTitle {
		buffer.Title = value
	} else {
		buffer.Description = value
	}
	if state.Editing() {
		u.app.SetEditBuffer(buffer)
	} else {
		u.app.SetDraft(buffer)
	}
}

func (u *UI) showJump(gui *gocui.Gui, state app.State) error {
	maxX, maxY := gui.Size()
	width := max(36, maxX/3)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	v, err := gui.SetView(viewJump, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		v.Title = "Go to date (YYYY-MM-DD, YYYY-MM, YYYY)"
		v.Clear()
		fmt.Fprint(v, state.Selected.Format("2006-01-02"))
		v.SetCursor(len("2006-01-02"), 0)
	}
	v.Editable = true
	v.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewJump)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 20
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	v, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		v.Title = "Help"
		v.Wrap = true
	}
	v.Clear()
	fmt.Fprint(v, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) inputActive() bool {
	state := u.app.Snapshot()
	return u.form != nil || state.HelpOpen || state.JumpOpen
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return strings.Join([]string{
		"Tabs:",
		"  1 Day | 2 Month | 3 Year | 4 Incomplete",
		"  h/l or arrows move the date | t today | g go to date",
		"",
		"Records:",
		"  j/k move | a add | e or enter edit | x toggle done | d delete",
		"  [ ] pick attachment | r remove attachment",
		"",
		"Form:",
		"  tab/arrows next field | enter save | esc cancel",
		"  ctrl-r dictate into field | ctrl-o read text from last image",
		"  ctrl-a attach path in Attach field | ctrl-x drop last pending image",
		"",
		"Other:",
		"  ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(v *gocui.View, focused bool, highlight bool) {
	v.Frame = true
	v.Highlight = focused && highlight
	v.HighlightInactive = false
	v.SelBgColor = gocui.ColorBlue
	v.SelFgColor = gocui.ColorBlack
	v.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		v.FrameColor = gocui.ColorCyan
		v.TitleColor = gocui.ColorCyan
	} else {
		v.FrameColor = gocui.ColorDefault
		v.TitleColor = gocui.ColorDefault
	}
}
