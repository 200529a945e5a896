package scheduling

import (
	"time"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

// PositionedOccurrence is an occurrence placed in a side-by-side column of its overlap cluster.
type PositionedOccurrence struct {
	Occurrence
	Column       int `json:"column"`
	TotalColumns int `json:"total_columns"`
}

// OccurrencesForWeekday gathers non-cancelled occurrences on weekday. An empty roomID keeps
// every room; a non-nil date also requires the academic period to contain it.
func OccurrencesForWeekday(schedules []models.Schedule, weekday time.Weekday, roomID string, date *time.Time) []Occurrence {
	var out []Occurrence
	for _, schedule := range schedules {
		if schedule.IsCancelled() {
			continue
		}
		if roomID != "" && !containsString(schedule.RoomIDs(), roomID) {
			continue
		}
		if date != nil && !schedule.ActiveOn(*date) {
			continue
		}
		for _, slot := range schedule.SlotsOn(weekday) {
			out = append(out, Occurrence{Schedule: schedule, Slot: slot})
		}
	}
	return out
}

// Layout packs one weekday's occurrences into columns. Transitively overlapping occurrences
// share a cluster; within a cluster each occurrence takes the first column that ended at or
// before its start, and every member reports the cluster's final column count.
func Layout(occurrences []Occurrence) []PositionedOccurrence {
	if len(occurrences) == 0 {
		return []PositionedOccurrence{}
	}
	sorted := make([]Occurrence, len(occurrences))
	copy(sorted, occurrences)
	sortOccurrences(sorted)

	windows := make([]Window, len(sorted))
	valid := make([]bool, len(sorted))
	for i, o := range sorted {
		w, err := ParseWindow(o.Slot.StartTime, o.Slot.EndTime)
		windows[i], valid[i] = w, err == nil && w.Valid()
	}

	sets := newDisjointSet(len(sorted))
	for i := range sorted {
		if !valid[i] {
			continue
		}
		for j := i + 1; j < len(sorted); j++ {
			if !valid[j] {
				continue
			}
			// sorted by start: once j starts at or after i ends, no later j overlaps i
			if windows[j].Start >= windows[i].End {
				break
			}
			if windows[i].Overlaps(windows[j]) {
				sets.union(i, j)
			}
		}
	}

	columns := make([]int, len(sorted))
	columnEnds := make(map[int][]int)
	for i := range sorted {
		root := sets.find(i)
		ends := columnEnds[root]
		column := -1
		for c, end := range ends {
			if valid[i] && end <= windows[i].Start {
				column = c
				break
			}
		}
		if column == -1 {
			ends = append(ends, 0)
			column = len(ends) - 1
		}
		ends[column] = windows[i].End
		columnEnds[root] = ends
		columns[i] = column
	}

	out := make([]PositionedOccurrence, len(sorted))
	for i, o := range sorted {
		out[i] = PositionedOccurrence{
			Occurrence:   o,
			Column:       columns[i],
			TotalColumns: len(columnEnds[sets.find(i)]),
		}
	}
	return out
}

type disjointSet struct {
	parent []int
	rank   []int
}

func newDisjointSet(n int) *disjointSet {
	d := &disjointSet{parent: make([]int, n), rank: make([]int, n)}
	for i := range d.parent {
		d.parent[i] = i
	}
	return d
}

func (d *disjointSet) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}
	return x
}

func (d *disjointSet) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}
	switch {
	case d.rank[ra] < d.rank[rb]:
		d.parent[ra] = rb
	case d.rank[ra] > d.rank[rb]:
		d.parent[rb] = ra
	default:
		d.parent[rb] = ra
		d.rank[ra]++
	}
}
