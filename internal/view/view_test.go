package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Joseda-hg/lazyjournal/internal/model"
)

var seoul = time.FixedZone("KST", 9*60*60)

func at(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, seoul)
}

func ids(tasks []model.Task) []int64 {
	result := make([]int64, 0, len(tasks))
	for _, task := range tasks {
		result = append(result, task.ID)
	}
	return result
}

func TestVisibleDayUsesCalendarDay(t *testing.T) {
	all := []model.Task{
		{ID: 2, Type: model.TypeDay, CreatedAt: at(2024, time.March, 11, 0, 5)},
		{ID: 1, Type: model.TypeDay, CreatedAt: at(2024, time.March, 10, 23, 50)},
	}
	now := at(2024, time.March, 12, 8, 0)

	got := Visible(all, TabDay, at(2024, time.March, 10, 12, 0), nil, now)
	assert.Equal(t, []int64{1}, ids(got))
}

func TestVisibleDayIgnoresOtherTypes(t *testing.T) {
	day := at(2024, time.May, 1, 9, 0)
	all := []model.Task{
		{ID: 3, Type: model.TypeMonth, CreatedAt: day},
		{ID: 2, Type: model.TypeDay, CreatedAt: day},
		{ID: 1, Type: model.TypeYear, CreatedAt: day},
	}

	got := Visible(all, TabDay, day, nil, day)
	assert.Equal(t, []int64{2}, ids(got))
}

func TestVisibleMonthKeepsStoreOrder(t *testing.T) {
	all := []model.Task{
		{ID: 4, Type: model.TypeMonth, CreatedAt: at(2024, time.April, 1, 0, 0)},
		{ID: 3, Type: model.TypeMonth, CreatedAt: at(2024, time.March, 2, 0, 0)},
		{ID: 2, Type: model.TypeMonth, CreatedAt: at(2023, time.March, 20, 0, 0)},
		{ID: 1, Type: model.TypeMonth, CreatedAt: at(2024, time.March, 28, 0, 0)},
	}

	got := Visible(all, TabMonth, at(2024, time.March, 15, 0, 0), nil, at(2024, time.March, 15, 0, 0))
	assert.Equal(t, []int64{3, 1}, ids(got))
}

func TestVisibleYearIsFutureOnlyAndAscending(t *testing.T) {
	now := at(2024, time.June, 1, 10, 0)
	t1 := at(2024, time.June, 1, 11, 0)
	t2 := at(2024, time.August, 3, 9, 0)
	t3 := at(2024, time.December, 24, 18, 0)
	all := []model.Task{
		{ID: 3, Type: model.TypeYear, CreatedAt: t3},
		{ID: 2, Type: model.TypeYear, CreatedAt: t2},
		{ID: 1, Type: model.TypeYear, CreatedAt: t1},
		{ID: 0, Type: model.TypeYear, CreatedAt: at(2024, time.May, 31, 23, 0)},
		{ID: 9, Type: model.TypeYear, CreatedAt: at(2025, time.January, 2, 0, 0)},
	}

	got := Visible(all, TabYear, now, nil, now)
	assert.Equal(t, []int64{1, 2, 3}, ids(got))
}

func TestVisibleIncompleteKeepsRecentlyCompleted(t *testing.T) {
	now := at(2024, time.March, 11, 9, 0)
	yesterday := at(2024, time.March, 10, 9, 0)
	all := []model.Task{
		{ID: 4, Type: model.TypeDay, CreatedAt: now},
		{ID: 3, Type: model.TypeMonth, CreatedAt: yesterday, Completed: true},
		{ID: 2, Type: model.TypeDay, CreatedAt: yesterday, Completed: true},
		{ID: 1, Type: model.TypeYear, CreatedAt: yesterday},
	}

	got := Visible(all, TabIncomplete, now, nil, now)
	assert.Equal(t, []int64{1}, ids(got))

	recent := map[int64]struct{}{2: {}}
	got = Visible(all, TabIncomplete, now, recent, now)
	assert.Equal(t, []int64{2, 1}, ids(got))
}

func TestVisibleIsIdempotentAndDoesNotMutateInput(t *testing.T) {
	now := at(2024, time.June, 1, 10, 0)
	all := []model.Task{
		{ID: 2, Type: model.TypeYear, CreatedAt: at(2024, time.December, 1, 0, 0)},
		{ID: 1, Type: model.TypeYear, CreatedAt: at(2024, time.July, 1, 0, 0)},
	}
	snapshot := append([]model.Task(nil), all...)

	first := Visible(all, TabYear, now, nil, now)
	second := Visible(all, TabYear, now, nil, now)

	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, all)
}

func TestCountBadges(t *testing.T) {
	now := at(2024, time.March, 11, 15, 0)
	all := []model.Task{
		{ID: 1, Type: model.TypeDay, CreatedAt: at(2024, time.March, 11, 0, 1)},
		{ID: 2, Type: model.TypeMonth, CreatedAt: at(2024, time.March, 11, 23, 59)},
		{ID: 3, Type: model.TypeDay, CreatedAt: at(2024, time.March, 11, 8, 0), Completed: true},
		{ID: 4, Type: model.TypeDay, CreatedAt: at(2024, time.March, 9, 8, 0)},
		{ID: 5, Type: model.TypeYear, CreatedAt: at(2024, time.March, 1, 8, 0)},
		{ID: 6, Type: model.TypeYear, CreatedAt: at(2025, time.March, 1, 8, 0)},
		{ID: 7, Type: model.TypeYear, CreatedAt: at(2024, time.March, 2, 8, 0), Completed: true},
	}

	badges := CountBadges(all, now)
	assert.Equal(t, Badges{Day: 2, Incomplete: 2, Year: 2}, badges)
	assert.Equal(t, 2, badges.For(TabDay))
	assert.Equal(t, 0, badges.For(TabMonth))
}

func TestShift(t *testing.T) {
	jan31 := at(2024, time.January, 31, 10, 0)

	assert.Equal(t, at(2024, time.February, 1, 10, 0), Shift(TabDay, jan31, 1))
	assert.Equal(t, at(2024, time.February, 29, 10, 0), Shift(TabMonth, jan31, 1))
	assert.Equal(t, at(2023, time.December, 31, 10, 0), Shift(TabMonth, jan31, -1))

	leap := at(2024, time.February, 29, 10, 0)
	assert.Equal(t, at(2025, time.February, 28, 10, 0), Shift(TabYear, leap, 1))
	assert.Equal(t, at(2024, time.January, 30, 10, 0), Shift(TabIncomplete, jan31, -1))
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("")
	require.NoError(t, err)
	assert.Equal(t, TabDay, tab)

	tab, err = ParseTab("Overdue")
	require.NoError(t, err)
	assert.Equal(t, TabIncomplete, tab)

	_, err = ParseTab("week")
	assert.Error(t, err)
}

func TestTypeForTab(t *testing.T) {
	assert.Equal(t, model.TypeDay, TypeForTab(TabDay))
	assert.Equal(t, model.TypeMonth, TypeForTab(TabMonth))
	assert.Equal(t, model.TypeYear, TypeForTab(TabYear))
	assert.Equal(t, model.TypeDay, TypeForTab(TabIncomplete))
}
