package scheduling

import (
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

func slot(day time.Weekday, start, end string) models.WeeklyTimeSlot {
	return models.WeeklyTimeSlot{Weekday: day, StartTime: start, EndTime: end}
}

func legacySchedule(id, discipline, roomID, professorID string, slots ...models.WeeklyTimeSlot) models.Schedule {
	return models.Schedule{
		ID:          id,
		Discipline:  discipline,
		Professors:  models.Professors{{ID: professorID, Name: "Prof " + professorID}},
		TimeSlots:   slots,
		RoomID:      roomID,
		RoomName:    roomID,
		Status:      models.ScheduleStatusScheduled,
		PeriodStart: models.MustDate("2024-02-01"),
		PeriodEnd:   models.MustDate("2024-06-30"),
	}
}

func candidateFor(rooms, professors []string, days []time.Weekday, start, end string) Candidate {
	return Candidate{
		RoomIDs:      rooms,
		ProfessorIDs: professors,
		Weekdays:     days,
		StartTime:    start,
		EndTime:      end,
		PeriodStart:  models.MustDate("2024-03-01"),
		PeriodEnd:    models.MustDate("2024-07-31"),
	}
}

// 2024-03-04 is a Monday.
func at(clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2024-03-04 "+clock)
	if err != nil {
		panic(err)
	}
	return t
}
