package scheduling

import (
	"sort"
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

// Next-free-slot probing: two-hour windows starting on every whole hour from 07:00 to 21:00.
const (
	ProbeFirstHour       = 7
	ProbeLastHour        = 21
	ProbeDurationMinutes = 120
)

// EquipmentAny disables the equipment filter.
const EquipmentAny = "any"

// SearchFilters describes a room availability query.
type SearchFilters struct {
	Weekdays          []time.Weekday `json:"weekdays"`
	StartTime         string         `json:"start_time"`
	EndTime           string         `json:"end_time"`
	MinCapacity       int            `json:"min_capacity"`
	Equipment         string         `json:"equipment"`
	PeriodStart       *models.Date   `json:"period_start,omitempty"`
	PeriodEnd         *models.Date   `json:"period_end,omitempty"`
	ExcludeScheduleID string         `json:"exclude_schedule_id,omitempty"`
}

// RoomConflict is an occupied weekday reported by the search.
type RoomConflict struct {
	Weekday     time.Weekday `json:"weekday"`
	WeekdayName string       `json:"weekday_name"`
	ScheduleID  string       `json:"schedule_id"`
	Discipline  string       `json:"discipline"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
}

// FreeSlot is the next two-hour window without conflicts on a weekday.
type FreeSlot struct {
	Weekday     time.Weekday `json:"weekday"`
	WeekdayName string       `json:"weekday_name"`
	StartTime   string       `json:"start_time"`
}

// RoomSearchResult is the evaluation of one room against the filters.
type RoomSearchResult struct {
	Room          models.Room    `json:"room"`
	Available     bool           `json:"available"`
	Partial       bool           `json:"partial"`
	Blocked       bool           `json:"blocked"`
	Conflicts     []RoomConflict `json:"conflicts"`
	NextFreeSlots []FreeSlot     `json:"next_free_slots"`
}

// MatchesStatic applies the capacity and equipment filters.
func (f SearchFilters) MatchesStatic(room models.Room) bool {
	if room.Capacity < f.MinCapacity {
		return false
	}
	if f.Equipment == "" || f.Equipment == EquipmentAny {
		return true
	}
	return room.HasEquipment(f.Equipment)
}

func (f SearchFilters) periodAllows(schedule models.Schedule) bool {
	if f.PeriodStart == nil || f.PeriodEnd == nil {
		return true
	}
	return schedule.PeriodIntersects(*f.PeriodStart, *f.PeriodEnd)
}

// CheckRoom returns the first schedule occupying room on weekday within window.
func CheckRoom(room models.Room, schedules []models.Schedule, weekday time.Weekday, window Window, filters SearchFilters) (*models.Schedule, *models.WeeklyTimeSlot) {
	for i := range schedules {
		schedule := schedules[i]
		if schedule.IsCancelled() {
			continue
		}
		if filters.ExcludeScheduleID != "" && schedule.ID == filters.ExcludeScheduleID {
			continue
		}
		if !filters.periodAllows(schedule) || !containsString(schedule.RoomIDs(), room.ID) {
			continue
		}
		for _, slot := range schedule.SlotsOn(weekday) {
			slotWindow, err := ParseWindow(slot.StartTime, slot.EndTime)
			if err != nil || !window.Overlaps(slotWindow) {
				continue
			}
			matched := slot
			return &schedules[i], &matched
		}
	}
	return nil, nil
}

// NextFreeSlot probes hour-aligned two-hour windows and returns the first free start time.
func NextFreeSlot(room models.Room, schedules []models.Schedule, weekday time.Weekday, filters SearchFilters) (string, bool) {
	if room.ManualStatus.Blocks() {
		return "", false
	}
	for hour := ProbeFirstHour; hour <= ProbeLastHour; hour++ {
		window := Window{Start: hour * 60, End: hour*60 + ProbeDurationMinutes}
		if schedule, _ := CheckRoom(room, schedules, weekday, window, filters); schedule == nil {
			return FormatClock(window.Start), true
		}
	}
	return "", false
}

// SearchRooms evaluates each room passing the static filters. Available rooms come first,
// then the remaining schedulable rooms by ascending conflict count, then blocked rooms.
// A malformed time window yields no results.
func SearchRooms(rooms []models.Room, schedules []models.Schedule, filters SearchFilters) []RoomSearchResult {
	window, err := ParseWindow(filters.StartTime, filters.EndTime)
	if err != nil || len(filters.Weekdays) == 0 {
		return nil
	}

	results := make([]RoomSearchResult, 0, len(rooms))
	for _, room := range rooms {
		if !filters.MatchesStatic(room) {
			continue
		}
		result := RoomSearchResult{
			Room:          room,
			Blocked:       room.ManualStatus.Blocks(),
			Conflicts:     []RoomConflict{},
			NextFreeSlots: []FreeSlot{},
		}
		for _, weekday := range filters.Weekdays {
			schedule, slot := CheckRoom(room, schedules, weekday, window, filters)
			if schedule == nil {
				continue
			}
			result.Conflicts = append(result.Conflicts, RoomConflict{
				Weekday:     weekday,
				WeekdayName: WeekdayName(weekday),
				ScheduleID:  schedule.ID,
				Discipline:  schedule.Discipline,
				StartTime:   slot.StartTime,
				EndTime:     slot.EndTime,
			})
			if next, ok := NextFreeSlot(room, schedules, weekday, filters); ok {
				result.NextFreeSlots = append(result.NextFreeSlots, FreeSlot{
					Weekday:     weekday,
					WeekdayName: WeekdayName(weekday),
					StartTime:   next,
				})
			}
		}
		result.Available = !result.Blocked && len(result.Conflicts) == 0
		result.Partial = !result.Blocked && len(result.Conflicts) > 0 && len(result.Conflicts) < len(filters.Weekdays)
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		ri, rj := rank(results[i]), rank(results[j])
		if ri != rj {
			return ri < rj
		}
		return len(results[i].Conflicts) < len(results[j].Conflicts)
	})
	return results
}

func rank(r RoomSearchResult) int {
	switch {
	case r.Available:
		return 0
	case r.Blocked:
		return 2
	default:
		return 1
	}
}
