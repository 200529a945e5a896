package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/events"
)

func newRoomServiceForTest(rooms *roomRepoFake, schedules *scheduleRepoFake, publisher *publisherFake) *RoomService {
	svc := NewRoomService(rooms, schedules, NewValidator(), nil, publisher, time.UTC, zap.NewNop())
	// 2024-03-04 09:30 is a Monday.
	svc.clock = func() time.Time { return time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC) }
	return svc
}

func TestRoomServiceCreate(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	publisher := &publisherFake{}
	svc := newRoomServiceForTest(rooms, newScheduleRepoFake(), publisher)

	created, err := svc.Create(context.Background(), CreateRoomRequest{
		Name:      "  Lab 2 ",
		Capacity:  25,
		Equipment: []string{"projector", " projector", "", "computers"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Lab 2", created.Name)
	assert.Equal(t, []string{"projector", "computers"}, []string(created.Equipment))
	assert.Equal(t, models.RoomManualAvailable, created.ManualStatus)
	assert.Equal(t, []string{events.RoomCreated}, publisher.subjects)

	_, err = svc.Create(context.Background(), CreateRoomRequest{Name: "r101", Capacity: 10})
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	_, err = svc.Create(context.Background(), CreateRoomRequest{Name: "Empty", Capacity: 0})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRoomServiceUpdateKeepsOwnName(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	svc := newRoomServiceForTest(rooms, newScheduleRepoFake(), &publisherFake{})

	updated, err := svc.Update(context.Background(), "r1", UpdateRoomRequest{Name: "R101", Capacity: 60})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.Capacity)
	assert.Equal(t, models.RoomManualAvailable, updated.ManualStatus)

	_, err = svc.Update(context.Background(), "missing", UpdateRoomRequest{Name: "X", Capacity: 1})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRoomServiceDeleteRejectsRoomInUse(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40), newRoom("r2", "R102", 20))
	schedules := newScheduleRepoFake(weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00"))
	svc := newRoomServiceForTest(rooms, schedules, &publisherFake{})

	err := svc.Delete(context.Background(), "r1")
	assert.True(t, appErrors.Is(err, appErrors.ErrRoomInUse))
	assert.Contains(t, rooms.rooms, "r1")

	require.NoError(t, svc.Delete(context.Background(), "r2"))
	assert.NotContains(t, rooms.rooms, "r2")
}

func TestRoomServiceStatus(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	schedules := newScheduleRepoFake(weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00"))
	svc := newRoomServiceForTest(rooms, schedules, &publisherFake{})
	ctx := context.Background()

	current, err := svc.Status(ctx, "r1", RoomStatusQuery{})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusOccupied, current.Status)
	assert.Equal(t, "09:30", current.StartTime)
	assert.Equal(t, "10:30", current.EndTime)
	require.NotNil(t, current.OccupiedBy)
	assert.Equal(t, "s1", current.OccupiedBy.ScheduleID)

	later, err := svc.Status(ctx, "r1", RoomStatusQuery{Date: "2024-03-04", StartTime: "10:00", EndTime: "11:00"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, later.Status)
	assert.Nil(t, later.OccupiedBy)

	wholeDay, err := svc.Status(ctx, "r1", RoomStatusQuery{Date: "2024-03-11"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusOccupied, wholeDay.Status)

	outsidePeriod, err := svc.Status(ctx, "r1", RoomStatusQuery{Date: "2024-09-02"})
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusAvailable, outsidePeriod.Status)

	_, err = svc.Status(ctx, "r1", RoomStatusQuery{StartTime: "10:00", EndTime: "11:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.Status(ctx, "r1", RoomStatusQuery{Date: "2024-03-04", StartTime: "11:00", EndTime: "10:00"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRoomServiceManualStatusOverridesSchedules(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	schedules := newScheduleRepoFake(weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00"))
	publisher := &publisherFake{}
	svc := newRoomServiceForTest(rooms, schedules, publisher)
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "r1", UpdateRoomStatusRequest{Status: models.RoomManualMaintenance})
	require.NoError(t, err)
	assert.Equal(t, []string{events.RoomStatus}, publisher.subjects)

	statuses, err := svc.Statuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, models.RoomStatusMaintenance, statuses[0].Status)
	assert.Nil(t, statuses[0].OccupiedBy)

	_, err = svc.UpdateStatus(ctx, "r1", UpdateRoomStatusRequest{Status: "closed"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRoomServiceOccurrences(t *testing.T) {
	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	late := weeklySchedule("s2", "Physics", "r1", "p2", time.Monday, "14:00", "16:00")
	early := weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00")
	other := weeklySchedule("s3", "Chemistry", "r1", "p3", time.Tuesday, "08:00", "10:00")
	svc := newRoomServiceForTest(rooms, newScheduleRepoFake(late, early, other), &publisherFake{})

	occurrences, err := svc.Occurrences(context.Background(), "r1", "")
	require.NoError(t, err)
	require.Len(t, occurrences, 2)
	assert.Equal(t, "s1", occurrences[0].ScheduleID)
	assert.Equal(t, "s2", occurrences[1].ScheduleID)

	_, err = svc.Occurrences(context.Background(), "r1", "04/03/2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
