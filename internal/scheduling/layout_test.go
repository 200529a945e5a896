package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

func occurrence(id, start, end string) Occurrence {
	return Occurrence{
		Schedule: models.Schedule{ID: id},
		Slot:     slot(time.Monday, start, end),
	}
}

func positions(placed []PositionedOccurrence) map[string][2]int {
	out := make(map[string][2]int, len(placed))
	for _, p := range placed {
		out[p.Schedule.ID] = [2]int{p.Column, p.TotalColumns}
	}
	return out
}

func TestLayoutSeparateClusters(t *testing.T) {
	placed := Layout([]Occurrence{
		occurrence("c", "11:00", "11:30"),
		occurrence("a", "08:00", "10:00"),
		occurrence("b", "09:00", "11:00"),
	})
	require.Len(t, placed, 3)
	assert.Equal(t, "a", placed[0].Schedule.ID)

	got := positions(placed)
	assert.Equal(t, [2]int{0, 2}, got["a"])
	assert.Equal(t, [2]int{1, 2}, got["b"])
	assert.Equal(t, [2]int{0, 1}, got["c"])
}

func TestLayoutLateOverlapJoinsCluster(t *testing.T) {
	// 10:30-11:30 overlaps 09:00-11:00, so all three share one two-column cluster.
	placed := Layout([]Occurrence{
		occurrence("a", "08:00", "10:00"),
		occurrence("b", "09:00", "11:00"),
		occurrence("c", "10:30", "11:30"),
	})
	got := positions(placed)
	assert.Equal(t, [2]int{0, 2}, got["a"])
	assert.Equal(t, [2]int{1, 2}, got["b"])
	assert.Equal(t, [2]int{0, 2}, got["c"])
}

func TestLayoutTransitiveMerge(t *testing.T) {
	placed := Layout([]Occurrence{
		occurrence("x", "08:00", "12:00"),
		occurrence("y", "08:00", "09:00"),
		occurrence("z", "11:00", "12:00"),
	})
	got := positions(placed)
	assert.Equal(t, [2]int{0, 2}, got["x"])
	assert.Equal(t, [2]int{1, 2}, got["y"])
	assert.Equal(t, [2]int{1, 2}, got["z"])
}

func TestLayoutChainReusesColumns(t *testing.T) {
	placed := Layout([]Occurrence{
		occurrence("a", "08:00", "10:00"),
		occurrence("b", "09:00", "11:00"),
		occurrence("c", "10:00", "12:00"),
		occurrence("d", "11:00", "13:00"),
	})
	got := positions(placed)
	assert.Equal(t, [2]int{0, 2}, got["a"])
	assert.Equal(t, [2]int{1, 2}, got["b"])
	assert.Equal(t, [2]int{0, 2}, got["c"])
	assert.Equal(t, [2]int{1, 2}, got["d"])
}

func TestLayoutNoSharedColumnOverlap(t *testing.T) {
	input := []Occurrence{
		occurrence("1", "07:00", "09:00"),
		occurrence("2", "07:30", "08:00"),
		occurrence("3", "08:00", "10:00"),
		occurrence("4", "08:15", "08:45"),
		occurrence("5", "09:30", "11:00"),
		occurrence("6", "13:00", "14:00"),
	}
	placed := Layout(input)
	require.Len(t, placed, len(input))
	for i := range placed {
		for j := i + 1; j < len(placed); j++ {
			if placed[i].Column != placed[j].Column {
				continue
			}
			assert.False(t, Overlaps(placed[i].Slot.StartTime, placed[i].Slot.EndTime, placed[j].Slot.StartTime, placed[j].Slot.EndTime),
				"%s and %s share column %d", placed[i].Schedule.ID, placed[j].Schedule.ID, placed[i].Column)
		}
	}
}

func TestLayoutMalformedIsolated(t *testing.T) {
	placed := Layout([]Occurrence{
		occurrence("ok", "08:00", "09:00"),
		occurrence("bad", "8am", "09:00"),
	})
	got := positions(placed)
	assert.Equal(t, [2]int{0, 1}, got["ok"])
	assert.Equal(t, [2]int{0, 1}, got["bad"])
	assert.Equal(t, "bad", placed[1].Schedule.ID)
}

func TestLayoutReversedSlotIsolated(t *testing.T) {
	placed := Layout([]Occurrence{
		occurrence("ok", "08:00", "09:00"),
		occurrence("reversed", "08:30", "08:15"),
	})
	got := positions(placed)
	assert.Equal(t, [2]int{0, 1}, got["ok"])
	assert.Equal(t, [2]int{0, 1}, got["reversed"])
}

func TestLayoutEmpty(t *testing.T) {
	assert.Empty(t, Layout(nil))
}

func TestOccurrencesForWeekday(t *testing.T) {
	cancelled := legacySchedule("c", "Cancelled", "R1", "p", slot(time.Monday, "08:00", "09:00"))
	cancelled.Status = models.ScheduleStatusCancelled
	schedules := []models.Schedule{
		legacySchedule("a", "A", "R1", "p", slot(time.Monday, "08:00", "09:00"), slot(time.Monday, "10:00", "11:00")),
		legacySchedule("b", "B", "R2", "p", slot(time.Monday, "08:00", "09:00")),
		cancelled,
	}

	assert.Len(t, OccurrencesForWeekday(schedules, time.Monday, "", nil), 3)
	assert.Len(t, OccurrencesForWeekday(schedules, time.Monday, "R1", nil), 2)

	outside := at("09:00").AddDate(1, 0, 0)
	assert.Empty(t, OccurrencesForWeekday(schedules, time.Monday, "", &outside))
}
