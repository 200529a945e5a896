package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
)

func newCalendarFixture(cfg CalendarConfig) *CalendarService {
	schedules := newScheduleRepoFake(
		weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00"),
		weeklySchedule("s2", "Physics", "r2", "p2", time.Monday, "09:00", "11:00"),
		weeklySchedule("s3", "Biology", "r1", "p3", time.Monday, "10:00", "11:00"),
		weeklySchedule("s4", "History", "r1", "p4", time.Friday, "13:00", "14:30"),
	)
	broken := weeklySchedule("s5", "Broken", "r1", "p5", time.Monday, "bad", "11:00")
	schedules.items["s5"] = &broken
	cache := NewCacheService(newCacheRepoFake(), nil, time.Minute, zap.NewNop(), true)
	return NewCalendarService(schedules, cache, cfg, zap.NewNop())
}

func TestCalendarServiceWeek(t *testing.T) {
	svc := newCalendarFixture(CalendarConfig{DayStart: "07:00", DayEnd: "22:00", Location: time.UTC})

	// 2024-03-06 is a Wednesday; the week runs Sunday 03-03 to Saturday 03-09.
	view, hit, err := svc.Week(context.Background(), "2024-03-06", "")
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2024-03-03", view.Start.String())
	assert.Equal(t, "2024-03-09", view.End.String())
	require.Len(t, view.Days, 7)

	monday := view.Days[1]
	assert.Equal(t, 1, monday.Weekday)
	require.Len(t, monday.Entries, 3)
	algebra, physics, biology := monday.Entries[0], monday.Entries[1], monday.Entries[2]
	assert.Equal(t, "s1", algebra.ScheduleID)
	assert.Equal(t, 0, algebra.Column)
	assert.Equal(t, 2, algebra.TotalColumns)
	assert.Equal(t, 60, algebra.OffsetMinutes)
	assert.Equal(t, 120, algebra.DurationMinutes)
	assert.InDelta(t, 50.0, algebra.WidthPercent, 0.001)

	assert.Equal(t, "s2", physics.ScheduleID)
	assert.Equal(t, 1, physics.Column)
	assert.InDelta(t, 50.0, physics.LeftPercent, 0.001)

	assert.Equal(t, "s3", biology.ScheduleID)
	assert.Equal(t, 0, biology.Column)
	assert.Equal(t, 2, biology.TotalColumns)

	require.Len(t, view.Days[5].Entries, 1)
	assert.Equal(t, 90, view.Days[5].Entries[0].DurationMinutes)

	_, hit, err = svc.Week(context.Background(), "2024-03-04", "")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCalendarServiceDayForRoom(t *testing.T) {
	svc := newCalendarFixture(CalendarConfig{})

	view, _, err := svc.Day(context.Background(), "2024-03-04", "r1")
	require.NoError(t, err)
	require.Len(t, view.Days, 1)
	entries := view.Days[0].Entries
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, 1, e.TotalColumns)
		assert.Equal(t, []string{"Room r1"}, e.RoomNames)
	}
	assert.Equal(t, "07:00", view.DayStart)
	assert.Equal(t, "23:00", view.DayEnd)
}

func TestCalendarServiceOutsidePeriodIsEmpty(t *testing.T) {
	svc := newCalendarFixture(CalendarConfig{})
	view, _, err := svc.Day(context.Background(), "2024-09-02", "")
	require.NoError(t, err)
	assert.Empty(t, view.Days[0].Entries)

	_, _, err = svc.Day(context.Background(), "not-a-date", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestCalendarServiceDefaultsToToday(t *testing.T) {
	svc := newCalendarFixture(CalendarConfig{})
	svc.clock = func() time.Time { return time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC) }
	view, _, err := svc.Day(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-07", view.Start.String())
}
