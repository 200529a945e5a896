package scheduling

import (
	"sort"
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

// CurrentWindowMinutes is the look-ahead used by CurrentStatus.
const CurrentWindowMinutes = 60

// Occurrence is one (schedule, slot) pair considered for a specific day.
type Occurrence struct {
	Schedule models.Schedule       `json:"schedule"`
	Slot     models.WeeklyTimeSlot `json:"slot"`
}

// CalculatedStatus derives a room's status at the calendar day of at.
// A nil window means any slot on that weekday occupies the room.
func CalculatedStatus(room models.Room, schedules []models.Schedule, at time.Time, window *Window) models.RoomStatus {
	switch room.ManualStatus {
	case models.RoomManualMaintenance:
		return models.RoomStatusMaintenance
	case models.RoomManualUnavailable:
		return models.RoomStatusUnavailable
	}
	if schedule, _ := OccupyingSchedule(room, schedules, at, window); schedule != nil {
		return models.RoomStatusOccupied
	}
	return models.RoomStatusAvailable
}

// CurrentStatus evaluates the room over [now, now+1h) on now's calendar day.
func CurrentStatus(room models.Room, schedules []models.Schedule, now time.Time) models.RoomStatus {
	window := CurrentWindow(now)
	return CalculatedStatus(room, schedules, now, &window)
}

// CurrentWindow returns the [now, now+1h) window used for live status.
func CurrentWindow(now time.Time) Window {
	start := now.Hour()*60 + now.Minute()
	return Window{Start: start, End: start + CurrentWindowMinutes}
}

// OccupyingSchedule returns the first non-cancelled schedule bound to room that occupies it
// at the given day and optional window.
func OccupyingSchedule(room models.Room, schedules []models.Schedule, at time.Time, window *Window) (*models.Schedule, *models.WeeklyTimeSlot) {
	weekday := at.Weekday()
	for i := range schedules {
		schedule := schedules[i]
		if !occupiesRoomOn(schedule, room.ID, at) {
			continue
		}
		for _, slot := range schedule.SlotsOn(weekday) {
			if window != nil {
				slotWindow, err := ParseWindow(slot.StartTime, slot.EndTime)
				if err != nil || !window.Overlaps(slotWindow) {
					continue
				}
			}
			matched := slot
			return &schedules[i], &matched
		}
	}
	return nil, nil
}

// OccurrencesOnDay lists the room's occurrences on date's weekday, sorted by start time.
func OccurrencesOnDay(room models.Room, schedules []models.Schedule, date time.Time) []Occurrence {
	weekday := date.Weekday()
	var out []Occurrence
	for _, schedule := range schedules {
		if !occupiesRoomOn(schedule, room.ID, date) {
			continue
		}
		for _, slot := range schedule.SlotsOn(weekday) {
			out = append(out, Occurrence{Schedule: schedule, Slot: slot})
		}
	}
	sortOccurrences(out)
	return out
}

func occupiesRoomOn(schedule models.Schedule, roomID string, day time.Time) bool {
	if schedule.IsCancelled() || !schedule.ActiveOn(day) {
		return false
	}
	return containsString(schedule.RoomIDs(), roomID)
}

// sortOccurrences orders by start time; malformed clocks sort last.
func sortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		return startKey(occurrences[i]) < startKey(occurrences[j])
	})
}

func startKey(o Occurrence) int {
	start, err := ToMinutes(o.Slot.StartTime)
	if err != nil {
		return MinutesPerDay + 1
	}
	return start
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
