package dto

import "github.com/noah-isme/room-scheduling-api/internal/models"

// OccupyingSchedule identifies the schedule holding a room.
type OccupyingSchedule struct {
	ScheduleID string `json:"schedule_id"`
	Discipline string `json:"discipline"`
	Weekday    int    `json:"weekday"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

// RoomStatusResponse is returned by the room status endpoints.
type RoomStatusResponse struct {
	RoomID       string                  `json:"room_id"`
	RoomName     string                  `json:"room_name"`
	Status       models.RoomStatus       `json:"status"`
	ManualStatus models.RoomManualStatus `json:"manual_status"`
	Date         models.Date             `json:"date"`
	StartTime    string                  `json:"start_time,omitempty"`
	EndTime      string                  `json:"end_time,omitempty"`
	OccupiedBy   *OccupyingSchedule      `json:"occupied_by,omitempty"`
}

// RoomOccurrence is one class held in a room on a given day.
type RoomOccurrence struct {
	ScheduleID string             `json:"schedule_id"`
	Discipline string             `json:"discipline"`
	Professors []models.Professor `json:"professors"`
	StartTime  string             `json:"start_time"`
	EndTime    string             `json:"end_time"`
	Status     string             `json:"status"`
	Color      string             `json:"color"`
}
