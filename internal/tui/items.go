package tui

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Joseda-hg/lazyjournal/internal/app"
	"github.com/Joseda-hg/lazyjournal/internal/model"
	"github.com/Joseda-hg/lazyjournal/internal/view"
	"github.com/Joseda-hg/lazyjournal/internal/voice"
)

func tabTitle(tab view.Tab) string {
	switch tab {
	case view.TabMonth:
		return "Month"
	case view.TabYear:
		return "Year (upcoming)"
	case view.TabIncomplete:
		return "Incomplete"
	}
	return "Day"
}

func formatTabLabel(index int, tab view.Tab, badge int, active bool) string {
	label := fmt.Sprintf("%d %s", index, tabTitle(tab))
	if tab == view.TabYear {
		label = fmt.Sprintf("%d Year", index)
	}
	if badge > 0 {
		label = fmt.Sprintf("%s (%d)", label, badge)
	}
	if active {
		return "[" + label + "]"
	}
	return " " + label + " "
}

func formatTaskSummary(task model.Task, tab view.Tab, recentlyCompleted bool) string {
	check := "[ ]"
	if task.Completed {
		check = "[x]"
	}

	var when string
	switch tab {
	case view.TabDay:
		when = task.CreatedAt.Format("15:04")
	case view.TabMonth:
		when = task.CreatedAt.Format("01-02")
	default:
		when = task.CreatedAt.Format("2006-01-02")
	}

	summary := fmt.Sprintf("%s %s %s", check, when, task.Title)
	if tab == view.TabIncomplete || tab == view.TabYear {
		summary += " · " + string(task.Type)
	}
	if count := len(task.Attachments()); count > 0 {
		summary += fmt.Sprintf(" +%d img", count)
	}
	if recentlyCompleted {
		summary += " (done just now)"
	}
	return summary
}

func formatDetail(task model.Task, cursor int) []string {
	status := "open"
	if task.Completed {
		status = "completed"
	}
	lines := []string{
		task.Title,
		fmt.Sprintf("#%d · %s · %s", task.ID, task.Type, status),
		fmt.Sprintf("Filed: %s", task.CreatedAt.Format("2006-01-02 15:04")),
		"",
	}
	if description := strings.TrimSpace(task.Description); description != "" {
		lines = append(lines, description, "")
	}

	attachments := task.Attachments()
	if len(attachments) == 0 {
		return append(lines, "No attachments")
	}
	lines = append(lines, fmt.Sprintf("Attachments (%d):", len(attachments)))
	for i, img := range attachments {
		prefix := "  "
		if i == cursor {
			prefix = "> "
		}
		lines = append(lines, fmt.Sprintf("%s[%d] %s %s", prefix, i, mimeLabel(img.MIME), formatSize(img.Size())))
	}
	return lines
}

func formatPending(previews []string) []string {
	if len(previews) == 0 {
		return []string{"No pending images"}
	}
	lines := []string{fmt.Sprintf("Pending images (%d):", len(previews))}
	for i, preview := range previews {
		mime, size := describePreview(preview)
		lines = append(lines, fmt.Sprintf("  [%d] %s %s", i, mimeLabel(mime), formatSize(size)))
	}
	return lines
}

// describePreview reads the MIME type and decoded size back out of a
// base64 data URL.
func describePreview(url string) (string, int) {
	rest, ok := strings.CutPrefix(url, "data:")
	if !ok {
		return "", 0
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return mime, 0
	}
	return mime, base64.StdEncoding.DecodedLen(len(payload)) - strings.Count(payload, "=")
}

func mimeLabel(mime string) string {
	if mime == "" {
		return "image"
	}
	return mime
}

func formatSize(bytes int) string {
	switch {
	case bytes >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1<<20))
	case bytes >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(bytes)/(1<<10))
	}
	return fmt.Sprintf("%d B", bytes)
}

func captureStatus(state app.State) string {
	var parts []string
	if state.Listening != voice.TargetNone {
		parts = append(parts, fmt.Sprintf("● listening: %s", state.Listening))
	}
	if state.Scanning {
		parts = append(parts, fmt.Sprintf("reading text %d%%", state.ScanProgress))
	}
	return strings.Join(parts, " | ")
}
