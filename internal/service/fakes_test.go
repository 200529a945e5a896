package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/repository"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/jobs"
)

type roomRepoFake struct {
	rooms map[string]*models.Room
	err   error
}

func newRoomRepoFake(rooms ...models.Room) *roomRepoFake {
	r := &roomRepoFake{rooms: map[string]*models.Room{}}
	for i := range rooms {
		room := rooms[i]
		r.rooms[room.ID] = &room
	}
	return r
}

func (r *roomRepoFake) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	all, err := r.ListAll(ctx)
	return all, len(all), err
}

func (r *roomRepoFake) ListAll(ctx context.Context) ([]models.Room, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		out = append(out, *room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *roomRepoFake) FindByID(ctx context.Context, id string) (*models.Room, error) {
	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("find room: %w", sql.ErrNoRows)
	}
	clone := *room
	return &clone, nil
}

func (r *roomRepoFake) FindByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	var out []models.Room
	for _, id := range ids {
		if room, ok := r.rooms[id]; ok {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *roomRepoFake) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for _, room := range r.rooms {
		if room.ID != excludeID && strings.EqualFold(room.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (r *roomRepoFake) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.ManualStatus == "" {
		room.ManualStatus = models.RoomManualAvailable
	}
	clone := *room
	r.rooms[room.ID] = &clone
	return nil
}

func (r *roomRepoFake) Update(ctx context.Context, room *models.Room) error {
	clone := *room
	r.rooms[room.ID] = &clone
	return nil
}

func (r *roomRepoFake) UpdateStatus(ctx context.Context, id string, status models.RoomManualStatus) error {
	room, ok := r.rooms[id]
	if !ok {
		return sql.ErrNoRows
	}
	room.ManualStatus = status
	return nil
}

func (r *roomRepoFake) Delete(ctx context.Context, id string) error {
	delete(r.rooms, id)
	return nil
}

type scheduleRepoFake struct {
	items map[string]*models.Schedule
	err   error
}

func newScheduleRepoFake(items ...models.Schedule) *scheduleRepoFake {
	r := &scheduleRepoFake{items: map[string]*models.Schedule{}}
	for i := range items {
		item := items[i]
		r.items[item.ID] = &item
	}
	return r
}

func (r *scheduleRepoFake) sorted(keep func(models.Schedule) bool) []models.Schedule {
	out := make([]models.Schedule, 0, len(r.items))
	for _, s := range r.items {
		if keep(*s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *scheduleRepoFake) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	out := r.sorted(func(s models.Schedule) bool {
		return filter.Status == "" || s.Status == filter.Status
	})
	return out, len(out), r.err
}

func (r *scheduleRepoFake) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	s, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("find schedule: %w", sql.ErrNoRows)
	}
	clone := *s
	return &clone, nil
}

func (r *scheduleRepoFake) ListActive(ctx context.Context) ([]models.Schedule, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.sorted(func(s models.Schedule) bool { return !s.IsCancelled() }), nil
}

func (r *scheduleRepoFake) ListByRoom(ctx context.Context, roomID string) ([]models.Schedule, error) {
	return r.sorted(func(s models.Schedule) bool {
		for _, id := range s.RoomIDs() {
			if id == roomID {
				return true
			}
		}
		return false
	}), r.err
}

func (r *scheduleRepoFake) ListByProfessor(ctx context.Context, professorID string) ([]models.Schedule, error) {
	return r.sorted(func(s models.Schedule) bool {
		for _, id := range s.ProfessorIDs() {
			if id == professorID {
				return true
			}
		}
		return false
	}), r.err
}

func (r *scheduleRepoFake) CountByRoom(ctx context.Context, roomID string) (int, error) {
	active, err := r.ListByRoom(ctx, roomID)
	count := 0
	for _, s := range active {
		if !s.IsCancelled() {
			count++
		}
	}
	return count, err
}

func (r *scheduleRepoFake) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	clone := *schedule
	r.items[schedule.ID] = &clone
	return nil
}

func (r *scheduleRepoFake) BulkCreate(ctx context.Context, schedules []models.Schedule) error {
	for i := range schedules {
		if err := r.Create(ctx, &schedules[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *scheduleRepoFake) Update(ctx context.Context, schedule *models.Schedule) error {
	clone := *schedule
	r.items[schedule.ID] = &clone
	return nil
}

func (r *scheduleRepoFake) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	s, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	s.Status = status
	return nil
}

func (r *scheduleRepoFake) Delete(ctx context.Context, id string) error {
	delete(r.items, id)
	return nil
}

// cacheRepoFake keeps JSON payloads in memory, like the redis repository does.
type cacheRepoFake struct {
	mu       sync.Mutex
	values   map[string][]byte
	patterns []string
}

func newCacheRepoFake() *cacheRepoFake {
	return &cacheRepoFake{values: map[string][]byte{}}
}

func (c *cacheRepoFake) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(value, dest)
}

func (c *cacheRepoFake) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = raw
	return nil
}

func (c *cacheRepoFake) DeleteByPattern(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

type exportJobRepoFake struct {
	mu      sync.Mutex
	jobs    map[string]*models.ExportJob
	deleted []string
}

func newExportJobRepoFake(jobs ...models.ExportJob) *exportJobRepoFake {
	r := &exportJobRepoFake{jobs: map[string]*models.ExportJob{}}
	for i := range jobs {
		job := jobs[i]
		r.jobs[job.ID] = &job
	}
	return r
}

func (r *exportJobRepoFake) Create(ctx context.Context, job *models.ExportJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *exportJobRepoFake) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get export job: %w", sql.ErrNoRows)
	}
	clone := *job
	return &clone, nil
}

func (r *exportJobRepoFake) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultPath != nil {
		path := *params.ResultPath
		job.ResultPath = &path
	}
	if params.ErrorMessage != nil {
		msg := *params.ErrorMessage
		job.ErrorMessage = &msg
	}
	if params.FinishedAt != nil {
		at := *params.FinishedAt
		job.FinishedAt = &at
	}
	return nil
}

func (r *exportJobRepoFake) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusQueued {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *exportJobRepoFake) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ExportJob
	for _, job := range r.jobs {
		if job.Status == models.ExportStatusFinished && job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (r *exportJobRepoFake) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	r.deleted = append(r.deleted, id)
	return nil
}

type queueFake struct {
	jobs []jobs.Job
	err  error
}

func (q *queueFake) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type storageFake struct {
	files map[string][]byte
	dir   string
}

func (s *storageFake) Save(filename string, data []byte) (string, error) {
	s.files[filename] = data
	return filename, nil
}

func (s *storageFake) Open(filename string) (*os.File, error) {
	return nil, os.ErrNotExist
}

func (s *storageFake) Delete(filename string) error {
	delete(s.files, filename)
	return nil
}

func (s *storageFake) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type publisherFake struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (p *publisherFake) Publish(ctx context.Context, subject string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return p.err
}

func newRoom(id, name string, capacity int, equipment ...string) models.Room {
	return models.Room{
		ID:           id,
		Name:         name,
		Capacity:     capacity,
		Equipment:    equipment,
		ManualStatus: models.RoomManualAvailable,
	}
}

func weeklySchedule(id, discipline, roomID, professorID string, day time.Weekday, start, end string) models.Schedule {
	return models.Schedule{
		ID:          id,
		Discipline:  discipline,
		Professors:  models.Professors{{ID: professorID, Name: "Prof " + professorID}},
		TimeSlots:   models.WeeklyTimeSlots{{Weekday: day, StartTime: start, EndTime: end}},
		RoomID:      roomID,
		RoomName:    "Room " + roomID,
		Status:      models.ScheduleStatusScheduled,
		Color:       "#3b82f6",
		PeriodStart: models.MustDate("2024-02-01"),
		PeriodEnd:   models.MustDate("2024-06-30"),
	}
}
