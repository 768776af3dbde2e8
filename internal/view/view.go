// Package view computes which records a tab shows and in what order, plus the
// per-tab badge counts. Everything here is a pure function of its arguments.
package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Joseda-hg/lazyjournal/internal/model"
)

type Tab string

const (
	TabDay        Tab = "day"
	TabMonth      Tab = "month"
	TabYear       Tab = "year"
	TabIncomplete Tab = "incomplete"
)

var Tabs = []Tab{TabDay, TabMonth, TabYear, TabIncomplete}

func ParseTab(value string) (Tab, error) {
	trimmed := Tab(strings.TrimSpace(strings.ToLower(value)))
	switch trimmed {
	case "":
		return TabDay, nil
	case TabDay, TabMonth, TabYear, TabIncomplete:
		return trimmed, nil
	case "overdue":
		return TabIncomplete, nil
	}
	return "", fmt.Errorf("unknown tab %q", value)
}

// TypeForTab is the record type a new entry gets when filed from tab.
func TypeForTab(tab Tab) model.Type {
	switch tab {
	case TabMonth:
		return model.TypeMonth
	case TabYear:
		return model.TypeYear
	default:
		return model.TypeDay
	}
}

// Visible returns the records tab shows for the selected date. Records in
// recentlyCompleted stay in the incomplete tab even though they are done.
func Visible(all []model.Task, tab Tab, selected time.Time, recentlyCompleted map[int64]struct{}, now time.Time) []model.Task {
	today := StartOfDay(now)
	result := make([]model.Task, 0, len(all))

	for _, task := range all {
		created := task.CreatedAt.In(selected.Location())
		switch tab {
		case TabDay:
			if task.Type == model.TypeDay && SameDay(created, selected) {
				result = append(result, task)
			}
		case TabMonth:
			if task.Type == model.TypeMonth && SameMonth(created, selected) {
				result = append(result, task)
			}
		case TabYear:
			if SameYear(created, selected) && task.CreatedAt.After(today) {
				result = append(result, task)
			}
		case TabIncomplete:
			_, recent := recentlyCompleted[task.ID]
			if (!task.Completed || recent) && task.CreatedAt.Before(today) {
				result = append(result, task)
			}
		}
	}

	if tab == TabYear {
		sort.SliceStable(result, func(i, j int) bool {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		})
	}
	return result
}

type Badges struct {
	Day        int `json:"day"`
	Incomplete int `json:"incomplete"`
	Year       int `json:"year"`
}

// CountBadges deliberately uses its own predicates: the day badge always
// counts today, the incomplete badge ignores session state, and the year
// badge ignores dates entirely.
func CountBadges(all []model.Task, now time.Time) Badges {
	today := StartOfDay(now)
	var badges Badges
	for _, task := range all {
		if task.Completed {
			continue
		}
		if SameDay(task.CreatedAt.In(now.Location()), now) {
			badges.Day++
		}
		if task.CreatedAt.Before(today) {
			badges.Incomplete++
		}
		if task.Type == model.TypeYear {
			badges.Year++
		}
	}
	return badges
}

func (b Badges) For(tab Tab) int {
	switch tab {
	case TabDay:
		return b.Day
	case TabIncomplete:
		return b.Incomplete
	case TabYear:
		return b.Year
	}
	return 0
}

func StartOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func SameYear(a, b time.Time) bool {
	return a.Year() == b.Year()
}

// Shift moves date by delta units of the tab's granularity.
func Shift(tab Tab, date time.Time, delta int) time.Time {
	switch tab {
	case TabMonth:
		year, month, _ := date.Date()
		first := time.Date(year, month+time.Month(delta), 1, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
		day := min(date.Day(), daysIn(first.Year(), first.Month(), date.Location()))
		return first.AddDate(0, 0, day-1)
	case TabYear:
		year, month, day := date.Date()
		target := time.Date(year+delta, month, 1, date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
		day = min(day, daysIn(target.Year(), target.Month(), date.Location()))
		return target.AddDate(0, 0, day-1)
	default:
		return date.AddDate(0, 0, delta)
	}
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

// Label renders date at the tab's granularity.
func Label(tab Tab, date time.Time) string {
	switch tab {
	case TabMonth:
		return date.Format("2006-01")
	case TabYear:
		return date.Format("2006")
	default:
		return date.Format("2006-01-02 Mon")
	}
}
