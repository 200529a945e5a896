package dto

import "github.com/noah-isme/room-scheduling-api/internal/models"

// CalendarEntry is a positioned occurrence with rendering geometry relative to the
// configured day start.
type CalendarEntry struct {
	ScheduleID      string                `json:"schedule_id"`
	Discipline      string                `json:"discipline"`
	Color           string                `json:"color"`
	Status          models.ScheduleStatus `json:"status"`
	Professors      []models.Professor    `json:"professors"`
	RoomNames       []string              `json:"room_names"`
	StartTime       string                `json:"start_time"`
	EndTime         string                `json:"end_time"`
	Column          int                   `json:"column"`
	TotalColumns    int                   `json:"total_columns"`
	OffsetMinutes   int                   `json:"offset_minutes"`
	DurationMinutes int                   `json:"duration_minutes"`
	LeftPercent     float64               `json:"left_percent"`
	WidthPercent    float64               `json:"width_percent"`
}

// CalendarDay is the laid-out column for a single date.
type CalendarDay struct {
	Date        models.Date     `json:"date"`
	Weekday     int             `json:"weekday"`
	WeekdayName string          `json:"weekday_name"`
	Entries     []CalendarEntry `json:"entries"`
}

// CalendarView wraps one or seven days plus the visible hour range.
type CalendarView struct {
	Start    models.Date   `json:"start"`
	End      models.Date   `json:"end"`
	RoomID   string        `json:"room_id,omitempty"`
	DayStart string        `json:"day_start"`
	DayEnd   string        `json:"day_end"`
	Days     []CalendarDay `json:"days"`
}
