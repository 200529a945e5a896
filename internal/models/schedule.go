package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ScheduleStatus captures the lifecycle of a recurring class.
type ScheduleStatus string

const (
	ScheduleStatusScheduled  ScheduleStatus = "scheduled"
	ScheduleStatusInProgress ScheduleStatus = "in_progress"
	ScheduleStatusCompleted  ScheduleStatus = "completed"
	ScheduleStatusCancelled  ScheduleStatus = "cancelled"
)

// Professor is a denormalized snapshot of a professor at assignment time.
type Professor struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// WeeklyTimeSlot is one weekday and time-range pair of a recurring schedule.
type WeeklyTimeSlot struct {
	Weekday   time.Weekday `json:"weekday"`
	StartTime string       `json:"start_time"`
	EndTime   string       `json:"end_time"`
}

// ProfessorRoomAssignment binds one professor to one room inside a schedule.
// Names are snapshots kept as history even if the professor or room is renamed later.
type ProfessorRoomAssignment struct {
	ProfessorID   string `json:"professor_id"`
	ProfessorName string `json:"professor_name"`
	RoomID        string `json:"room_id"`
	RoomName      string `json:"room_name"`
}

// Professors persists as JSONB.
type Professors []Professor

// WeeklyTimeSlots persists as JSONB.
type WeeklyTimeSlots []WeeklyTimeSlot

// ProfessorRoomAssignments persists as JSONB.
type ProfessorRoomAssignments []ProfessorRoomAssignment

// Schedule is a recurring weekly class bounded by an academic period.
type Schedule struct {
	ID          string                   `db:"id" json:"id"`
	Discipline  string                   `db:"discipline" json:"discipline"`
	Professors  Professors               `db:"professors" json:"professors"`
	TimeSlots   WeeklyTimeSlots          `db:"time_slots" json:"time_slots"`
	RoomID      string                   `db:"room_id" json:"room_id,omitempty"`
	RoomName    string                   `db:"room_name" json:"room_name,omitempty"`
	Assignments ProfessorRoomAssignments `db:"assignments" json:"assignments"`
	Status      ScheduleStatus           `db:"status" json:"status"`
	Color       string                   `db:"color" json:"color"`
	PeriodStart Date                     `db:"period_start" json:"period_start"`
	PeriodEnd   Date                     `db:"period_end" json:"period_end"`
	CreatedAt   time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time                `db:"updated_at" json:"updated_at"`
}

// IsCancelled reports whether the schedule is excluded from conflict and occupancy checks.
func (s Schedule) IsCancelled() bool {
	return s.Status == ScheduleStatusCancelled
}

// ActiveOn reports whether day falls inside the inclusive academic period.
func (s Schedule) ActiveOn(day time.Time) bool {
	d := NewDate(day)
	return !d.Before(s.PeriodStart) && !d.After(s.PeriodEnd)
}

// PeriodIntersects reports whether [start, end] intersects the schedule's academic period.
func (s Schedule) PeriodIntersects(start, end Date) bool {
	return !start.After(s.PeriodEnd) && !end.Before(s.PeriodStart)
}

// ProfessorIDs returns the professor ids in declaration order.
func (s Schedule) ProfessorIDs() []string {
	ids := make([]string, 0, len(s.Professors))
	for _, p := range s.Professors {
		ids = append(ids, p.ID)
	}
	return ids
}

// ProfessorName resolves the snapshot name for a professor id.
func (s Schedule) ProfessorName(id string) string {
	for _, p := range s.Professors {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

// RoomNameFor resolves the snapshot name for a room id bound to this schedule.
func (s Schedule) RoomNameFor(id string) string {
	for _, a := range s.Assignments {
		if a.RoomID == id && a.RoomName != "" {
			return a.RoomName
		}
	}
	if s.RoomID == id && s.RoomName != "" {
		return s.RoomName
	}
	return id
}

// SlotsOn returns the time slots scheduled on weekday, in declaration order.
func (s Schedule) SlotsOn(weekday time.Weekday) []WeeklyTimeSlot {
	var out []WeeklyTimeSlot
	for _, slot := range s.TimeSlots {
		if slot.Weekday == weekday {
			out = append(out, slot)
		}
	}
	return out
}

// Binding normalizes the legacy single-room and multi-room shapes into one variant.
func (s Schedule) Binding() RoomBinding {
	if len(s.Assignments) > 0 {
		return AssignedRooms(s.Assignments)
	}
	return LegacyRoom{RoomID: s.RoomID, RoomName: s.RoomName}
}

// RoomIDs is shorthand for Binding().RoomIDs().
func (s Schedule) RoomIDs() []string {
	return s.Binding().RoomIDs()
}

// RoomBinding is the set of rooms a schedule occupies.
type RoomBinding interface {
	RoomIDs() []string
	isRoomBinding()
}

// LegacyRoom binds a schedule to a single primary room.
type LegacyRoom struct {
	RoomID   string
	RoomName string
}

// RoomIDs returns the primary room, or nothing when unset.
func (l LegacyRoom) RoomIDs() []string {
	if l.RoomID == "" {
		return nil
	}
	return []string{l.RoomID}
}

func (LegacyRoom) isRoomBinding() {}

// AssignedRooms binds a schedule through professor/room assignments.
type AssignedRooms []ProfessorRoomAssignment

// RoomIDs returns the distinct assigned rooms in first-seen order.
func (a AssignedRooms) RoomIDs() []string {
	seen := make(map[string]struct{}, len(a))
	ids := make([]string, 0, len(a))
	for _, assignment := range a {
		if assignment.RoomID == "" {
			continue
		}
		if _, ok := seen[assignment.RoomID]; ok {
			continue
		}
		seen[assignment.RoomID] = struct{}{}
		ids = append(ids, assignment.RoomID)
	}
	return ids
}

func (AssignedRooms) isRoomBinding() {}

// ScheduleFilter describes query params for listing schedules.
type ScheduleFilter struct {
	RoomID      string
	ProfessorID string
	Status      ScheduleStatus
	Weekday     *time.Weekday
	Search      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// ScheduleConflictError is returned when a schedule collides with existing ones.
type ScheduleConflictError struct {
	Type      string      `json:"type"`
	Message   string      `json:"message"`
	Conflicts interface{} `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// Details exposes the conflict payload to response rendering.
func (e *ScheduleConflictError) Details() interface{} {
	return e
}

// Value marshals professors to JSON for persistence.
func (p Professors) Value() (driver.Value, error) {
	if p == nil {
		p = Professors{}
	}
	return marshalJSONB(p)
}

// Scan unmarshals JSONB into professors.
func (p *Professors) Scan(value interface{}) error {
	return scanJSONB(value, p, "Professors")
}

// Value marshals time slots to JSON for persistence.
func (w WeeklyTimeSlots) Value() (driver.Value, error) {
	if w == nil {
		w = WeeklyTimeSlots{}
	}
	return marshalJSONB(w)
}

// Scan unmarshals JSONB into time slots.
func (w *WeeklyTimeSlots) Scan(value interface{}) error {
	return scanJSONB(value, w, "WeeklyTimeSlots")
}

// Value marshals assignments to JSON for persistence.
func (a ProfessorRoomAssignments) Value() (driver.Value, error) {
	if a == nil {
		a = ProfessorRoomAssignments{}
	}
	return marshalJSONB(a)
}

// Scan unmarshals JSONB into assignments.
func (a *ProfessorRoomAssignments) Scan(value interface{}) error {
	return scanJSONB(value, a, "ProfessorRoomAssignments")
}

func marshalJSONB(v interface{}) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal jsonb: %w", err)
	}
	return data, nil
}

func scanJSONB(value interface{}, dest interface{}, name string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, name)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", name, err)
	}
	return nil
}
