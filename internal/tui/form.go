package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyjournal/internal/app"
	"github.com/Joseda-hg/lazyjournal/internal/voice"
)

const (
	fieldTitle = iota
	fieldDescription
	fieldAttach
)

var formLabels = []string{
	"Title",
	"Description",
	"Attach (image path, ctrl-a)",
}

func fieldTarget(index int) voice.Target {
	switch index {
	case fieldTitle:
		return voice.TargetTitle
	case fieldDescription:
		return voice.TargetDescription
	}
	return voice.TargetNone
}

func listeningMarker(state app.State, index int) string {
	target := fieldTarget(index)
	if target != voice.TargetNone && state.Listening == target {
		return " (listening)"
	}
	return ""
}

// parseJumpDate accepts a day, a month or a year. Partial dates keep
// today's day and time where they fit.
func parseJumpDate(value string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	offset := now.Sub(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()))

	if parsed, err := time.ParseInLocation("2006-01-02", trimmed, now.Location()); err == nil {
		return parsed.Add(offset), nil
	}
	if parsed, err := time.ParseInLocation("2006-01", trimmed, now.Location()); err == nil {
		day := min(now.Day(), daysIn(parsed.Year(), parsed.Month(), now.Location()))
		return parsed.AddDate(0, 0, day-1).Add(offset), nil
	}
	if parsed, err := time.ParseInLocation("2006", trimmed, now.Location()); err == nil {
		day := min(now.Day(), daysIn(parsed.Year(), now.Month(), now.Location()))
		return time.Date(parsed.Year(), now.Month(), day, 0, 0, 0, 0, now.Location()).Add(offset), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", trimmed)
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
