package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

// ConflictKind classifies a detected conflict.
type ConflictKind string

const (
	ConflictRoom      ConflictKind = "room"
	ConflictProfessor ConflictKind = "professor"
	ConflictDuplicate ConflictKind = "duplicate"
)

// Candidate is a recurring schedule proposal with a single time range.
type Candidate struct {
	RoomIDs      []string       `json:"room_ids"`
	ProfessorIDs []string       `json:"professor_ids"`
	Weekdays     []time.Weekday `json:"weekdays"`
	StartTime    string         `json:"start_time"`
	EndTime      string         `json:"end_time"`
	PeriodStart  models.Date    `json:"period_start"`
	PeriodEnd    models.Date    `json:"period_end"`
}

// Conflict describes one collision between a candidate and an existing schedule.
type Conflict struct {
	Kind           ConflictKind `json:"kind"`
	ScheduleID     string       `json:"schedule_id"`
	Discipline     string       `json:"discipline"`
	Weekday        time.Weekday `json:"weekday"`
	WeekdayName    string       `json:"weekday_name"`
	StartTime      string       `json:"start_time"`
	EndTime        string       `json:"end_time"`
	RoomIDs        []string     `json:"room_ids,omitempty"`
	RoomNames      []string     `json:"room_names,omitempty"`
	ProfessorIDs   []string     `json:"professor_ids,omitempty"`
	ProfessorNames []string     `json:"professor_names,omitempty"`
}

// Message renders the conflict for end users.
func (c Conflict) Message() string {
	when := fmt.Sprintf("on %s from %s to %s", WeekdayName(c.Weekday), c.StartTime, c.EndTime)
	switch c.Kind {
	case ConflictRoom:
		return fmt.Sprintf("room conflict: %s is already scheduled in %s %s", c.Discipline, strings.Join(c.RoomNames, ", "), when)
	case ConflictProfessor:
		return fmt.Sprintf("professor conflict: %s already teaches %s %s", strings.Join(c.ProfessorNames, ", "), c.Discipline, when)
	case ConflictDuplicate:
		return fmt.Sprintf("duplicate schedule: %s already uses the same professors and rooms %s", c.Discipline, when)
	default:
		return fmt.Sprintf("conflict with %s %s", c.Discipline, when)
	}
}

var weekdayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// WeekdayName returns the English name of a weekday; out-of-range values render as a number.
func WeekdayName(day time.Weekday) string {
	if day < 0 || int(day) >= len(weekdayNames) {
		return fmt.Sprintf("weekday(%d)", int(day))
	}
	return weekdayNames[day]
}

// CandidatesFromSchedule splits a schedule into one candidate per distinct time range,
// keeping first-seen order of ranges and weekdays.
func CandidatesFromSchedule(schedule models.Schedule) []Candidate {
	var out []Candidate
	index := make(map[string]int)
	for _, slot := range schedule.TimeSlots {
		key := slot.StartTime + "|" + slot.EndTime
		pos, ok := index[key]
		if !ok {
			out = append(out, Candidate{
				RoomIDs:      schedule.RoomIDs(),
				ProfessorIDs: schedule.ProfessorIDs(),
				StartTime:    slot.StartTime,
				EndTime:      slot.EndTime,
				PeriodStart:  schedule.PeriodStart,
				PeriodEnd:    schedule.PeriodEnd,
			})
			pos = len(out) - 1
			index[key] = pos
		}
		if !containsWeekday(out[pos].Weekdays, slot.Weekday) {
			out[pos].Weekdays = append(out[pos].Weekdays, slot.Weekday)
		}
	}
	return out
}

// DetectConflicts returns every conflict between candidate and existing schedules.
// Order: existing schedules as given, then candidate weekdays, then matching slots, then
// room, professor and duplicate kinds. Cancelled schedules and excludeScheduleID are skipped.
func DetectConflicts(candidate Candidate, existing []models.Schedule, excludeScheduleID string) []Conflict {
	var conflicts []Conflict
	scan(candidate, existing, excludeScheduleID, func(c Conflict) bool {
		conflicts = append(conflicts, c)
		return true
	})
	return conflicts
}

// FirstConflict returns the first conflict in DetectConflicts order.
func FirstConflict(candidate Candidate, existing []models.Schedule, excludeScheduleID string) (Conflict, bool) {
	var (
		first Conflict
		found bool
	)
	scan(candidate, existing, excludeScheduleID, func(c Conflict) bool {
		first, found = c, true
		return false
	})
	return first, found
}

// DetectScheduleConflicts checks every time range of schedule, excluding the schedule itself.
func DetectScheduleConflicts(schedule models.Schedule, existing []models.Schedule) []Conflict {
	var conflicts []Conflict
	for _, candidate := range CandidatesFromSchedule(schedule) {
		conflicts = append(conflicts, DetectConflicts(candidate, existing, schedule.ID)...)
	}
	return conflicts
}

// FirstScheduleConflict is the single-message variant of DetectScheduleConflicts.
func FirstScheduleConflict(schedule models.Schedule, existing []models.Schedule) (Conflict, bool) {
	for _, candidate := range CandidatesFromSchedule(schedule) {
		if c, ok := FirstConflict(candidate, existing, schedule.ID); ok {
			return c, true
		}
	}
	return Conflict{}, false
}

func scan(candidate Candidate, existing []models.Schedule, excludeScheduleID string, emit func(Conflict) bool) {
	window, err := ParseWindow(candidate.StartTime, candidate.EndTime)
	if err != nil {
		return
	}
	for _, other := range existing {
		if other.IsCancelled() {
			continue
		}
		if excludeScheduleID != "" && other.ID == excludeScheduleID {
			continue
		}
		if !other.PeriodIntersects(candidate.PeriodStart, candidate.PeriodEnd) {
			continue
		}
		otherRooms := other.RoomIDs()
		otherProfessors := other.ProfessorIDs()
		sharedRooms := intersect(candidate.RoomIDs, otherRooms)
		sharedProfessors := intersect(candidate.ProfessorIDs, otherProfessors)
		duplicate := len(candidate.RoomIDs) > 0 &&
			sameSet(candidate.RoomIDs, otherRooms) &&
			sameSet(candidate.ProfessorIDs, otherProfessors)

		for _, weekday := range candidate.Weekdays {
			for _, slot := range other.SlotsOn(weekday) {
				slotWindow, err := ParseWindow(slot.StartTime, slot.EndTime)
				if err != nil || !window.Overlaps(slotWindow) {
					continue
				}
				base := Conflict{
					ScheduleID:  other.ID,
					Discipline:  other.Discipline,
					Weekday:     weekday,
					WeekdayName: WeekdayName(weekday),
					StartTime:   slot.StartTime,
					EndTime:     slot.EndTime,
				}
				if len(sharedRooms) > 0 {
					c := base
					c.Kind = ConflictRoom
					c.RoomIDs = sharedRooms
					c.RoomNames = roomNames(other, sharedRooms)
					if !emit(c) {
						return
					}
				}
				if len(sharedProfessors) > 0 {
					c := base
					c.Kind = ConflictProfessor
					c.ProfessorIDs = sharedProfessors
					c.ProfessorNames = professorNames(other, sharedProfessors)
					if !emit(c) {
						return
					}
				}
				if duplicate {
					c := base
					c.Kind = ConflictDuplicate
					c.RoomIDs = otherRooms
					c.RoomNames = roomNames(other, otherRooms)
					c.ProfessorIDs = otherProfessors
					c.ProfessorNames = professorNames(other, otherProfessors)
					if !emit(c) {
						return
					}
				}
			}
		}
	}
}

func roomNames(schedule models.Schedule, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, schedule.RoomNameFor(id))
	}
	return names
}

func professorNames(schedule models.Schedule, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, schedule.ProfessorName(id))
	}
	return names
}

// intersect returns elements of a also present in b, in a's order, without duplicates.
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	inB := make(map[string]struct{}, len(b))
	for _, v := range b {
		inB[v] = struct{}{}
	}
	var out []string
	seen := make(map[string]struct{})
	for _, v := range a {
		if _, ok := inB[v]; !ok {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func sameSet(a, b []string) bool {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) != len(setB) {
		return false
	}
	for v := range setA {
		if _, ok := setB[v]; !ok {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func containsWeekday(days []time.Weekday, day time.Weekday) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
