package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
)

// CalendarConfig sets the visible hour range of calendar views.
type CalendarConfig struct {
	DayStart string
	DayEnd   string
	Location *time.Location
}

// CalendarService lays out schedules into day and week views.
type CalendarService struct {
	schedules activeScheduleReader
	cache     *CacheService
	clock     Clock
	location  *time.Location
	dayStart  int
	dayEnd    int
	logger    *zap.Logger
}

// NewCalendarService constructs the service. Invalid day bounds fall back to 07:00-23:00.
func NewCalendarService(schedules activeScheduleReader, cache *CacheService, cfg CalendarConfig, logger *zap.Logger) *CalendarService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	window, err := scheduling.ParseWindow(cfg.DayStart, cfg.DayEnd)
	if err != nil || !window.Valid() {
		window = scheduling.Window{Start: 7 * 60, End: 23 * 60}
	}
	return &CalendarService{
		schedules: schedules,
		cache:     cache,
		clock:     NewClock(cfg.Location),
		location:  cfg.Location,
		dayStart:  window.Start,
		dayEnd:    window.End,
		logger:    logger,
	}
}

// Week returns Sunday through Saturday of the week containing date (today when empty).
func (s *CalendarService) Week(ctx context.Context, date, roomID string) (*dto.CalendarView, bool, error) {
	day, err := parseDay(date, s.clock(), s.location)
	if err != nil {
		return nil, false, err
	}
	first := day.AddDate(0, 0, -int(day.Weekday()))
	return s.view(ctx, "week", first, 7, roomID)
}

// Day returns the layout of a single date (today when empty).
func (s *CalendarService) Day(ctx context.Context, date, roomID string) (*dto.CalendarView, bool, error) {
	day, err := parseDay(date, s.clock(), s.location)
	if err != nil {
		return nil, false, err
	}
	return s.view(ctx, "day", day, 1, roomID)
}

func (s *CalendarService) view(ctx context.Context, kind string, first time.Time, days int, roomID string) (*dto.CalendarView, bool, error) {
	key := cacheKey(cacheNamespaceCalendar, []string{kind, models.NewDate(first).String(), roomID,
		scheduling.FormatClock(s.dayStart), scheduling.FormatClock(s.dayEnd)})
	var cached dto.CalendarView
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, true, nil
	}

	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to load schedules")
	}

	view := &dto.CalendarView{
		Start:    models.NewDate(first),
		End:      models.NewDate(first.AddDate(0, 0, days-1)),
		RoomID:   roomID,
		DayStart: scheduling.FormatClock(s.dayStart),
		DayEnd:   scheduling.FormatClock(s.dayEnd),
		Days:     make([]dto.CalendarDay, 0, days),
	}
	for i := 0; i < days; i++ {
		day := first.AddDate(0, 0, i)
		view.Days = append(view.Days, s.layoutDay(schedules, day, roomID))
	}

	_ = s.cache.Set(ctx, key, view, 0)
	return view, false, nil
}

func (s *CalendarService) layoutDay(schedules []models.Schedule, day time.Time, roomID string) dto.CalendarDay {
	occurrences := scheduling.OccurrencesForWeekday(schedules, day.Weekday(), roomID, &day)
	positioned := scheduling.Layout(occurrences)
	out := dto.CalendarDay{
		Date:        models.NewDate(day),
		Weekday:     int(day.Weekday()),
		WeekdayName: scheduling.WeekdayName(day.Weekday()),
		Entries:     make([]dto.CalendarEntry, 0, len(positioned)),
	}
	for _, p := range positioned {
		window, err := scheduling.ParseWindow(p.Slot.StartTime, p.Slot.EndTime)
		if err != nil || !window.Valid() {
			s.logger.Debug("skipping occurrence with malformed times",
				zap.String("schedule_id", p.Schedule.ID),
				zap.String("start", p.Slot.StartTime),
				zap.String("end", p.Slot.EndTime))
			continue
		}
		out.Entries = append(out.Entries, s.entry(p, window, roomID))
	}
	return out
}

func (s *CalendarService) entry(p scheduling.PositionedOccurrence, window scheduling.Window, roomID string) dto.CalendarEntry {
	total := p.TotalColumns
	if total < 1 {
		total = 1
	}
	rooms := p.Schedule.RoomIDs()
	if roomID != "" {
		rooms = []string{roomID}
	}
	names := make([]string, 0, len(rooms))
	for _, id := range rooms {
		names = append(names, p.Schedule.RoomNameFor(id))
	}
	return dto.CalendarEntry{
		ScheduleID:      p.Schedule.ID,
		Discipline:      p.Schedule.Discipline,
		Color:           p.Schedule.Color,
		Status:          p.Schedule.Status,
		Professors:      p.Schedule.Professors,
		RoomNames:       names,
		StartTime:       p.Slot.StartTime,
		EndTime:         p.Slot.EndTime,
		Column:          p.Column,
		TotalColumns:    total,
		OffsetMinutes:   window.Start - s.dayStart,
		DurationMinutes: window.Duration(),
		LeftPercent:     float64(p.Column) * 100 / float64(total),
		WidthPercent:    100 / float64(total),
	}
}
