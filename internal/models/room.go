package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomManualStatus is the administrator-set override on a room.
type RoomManualStatus string

const (
	RoomManualAvailable   RoomManualStatus = "available"
	RoomManualUnavailable RoomManualStatus = "unavailable"
	RoomManualMaintenance RoomManualStatus = "maintenance"
)

// Blocks reports whether the override makes the room unschedulable regardless of schedule data.
func (s RoomManualStatus) Blocks() bool {
	return s == RoomManualUnavailable || s == RoomManualMaintenance
}

// RoomStatus is the derived, point-in-time status of a room.
type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusUnavailable RoomStatus = "unavailable"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Room represents a physical teaching space.
type Room struct {
	ID           string           `db:"id" json:"id"`
	Name         string           `db:"name" json:"name"`
	Capacity     int              `db:"capacity" json:"capacity"`
	Equipment    pq.StringArray   `db:"equipment" json:"equipment"`
	Location     string           `db:"location" json:"location"`
	ManualStatus RoomManualStatus `db:"manual_status" json:"manual_status"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// HasEquipment reports whether the room lists the given item.
func (r Room) HasEquipment(item string) bool {
	for _, eq := range r.Equipment {
		if eq == item {
			return true
		}
	}
	return false
}

// RoomFilter captures filters for listing rooms.
type RoomFilter struct {
	Search       string
	ManualStatus RoomManualStatus
	MinCapacity  int
	Equipment    string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
