package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/room-scheduling-api/internal/models"
)

const scheduleColumns = "id, discipline, professors, time_slots, room_id, room_name, assignments, status, color, period_start, period_end, created_at, updated_at"

const insertScheduleQuery = `INSERT INTO schedules (id, discipline, professors, time_slots, room_id, room_name, assignments, status, color, period_start, period_end, created_at, updated_at) VALUES (:id, :discipline, :professors, :time_slots, :room_id, :room_name, :assignments, :status, :color, :period_start, :period_end, :created_at, :updated_at)`

// roomMatch matches the legacy room column or any assignment bound to the room.
const roomMatch = "(room_id = $%[1]d OR assignments @> jsonb_build_array(jsonb_build_object('room_id', $%[1]d::text)))"

// ScheduleRepository provides persistence for schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedules with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	base := "FROM schedules WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf(roomMatch, len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.ProfessorID != "" {
		conditions = append(conditions, fmt.Sprintf("professors @> jsonb_build_array(jsonb_build_object('id', $%d::text))", len(args)+1))
		args = append(args, filter.ProfessorID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Weekday != nil {
		conditions = append(conditions, fmt.Sprintf("time_slots @> jsonb_build_array(jsonb_build_object('weekday', $%d::int))", len(args)+1))
		args = append(args, int(*filter.Weekday))
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("discipline ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{
		"discipline":   true,
		"period_start": true,
		"status":       true,
		"created_at":   true,
	}
	if !allowedSorts[sortBy] {
		sortBy = "discipline"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	size, offset := paginate(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", scheduleColumns, base, sortBy, order, size, offset)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	return schedules, total, nil
}

// FindByID loads a schedule by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE id = $1", scheduleColumns)
	var sched models.Schedule
	if err := r.db.GetContext(ctx, &sched, query, id); err != nil {
		return nil, err
	}
	return &sched, nil
}

// ListActive returns every non-cancelled schedule in creation order. This is the snapshot
// conflict detection and occupancy run against.
func (r *ScheduleRepository) ListActive(ctx context.Context) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE status <> 'cancelled' ORDER BY created_at ASC, id ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query); err != nil {
		return nil, fmt.Errorf("list active schedules: %w", err)
	}
	return schedules, nil
}

// ListByRoom returns schedules occupying a room through either binding shape.
func (r *ScheduleRepository) ListByRoom(ctx context.Context, roomID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE %s ORDER BY discipline ASC", scheduleColumns, fmt.Sprintf(roomMatch, 1))
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, roomID); err != nil {
		return nil, fmt.Errorf("list schedules by room: %w", err)
	}
	return schedules, nil
}

// ListByProfessor returns schedules taught by a professor.
func (r *ScheduleRepository) ListByProfessor(ctx context.Context, professorID string) ([]models.Schedule, error) {
	query := fmt.Sprintf("SELECT %s FROM schedules WHERE professors @> jsonb_build_array(jsonb_build_object('id', $1::text)) ORDER BY discipline ASC", scheduleColumns)
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, professorID); err != nil {
		return nil, fmt.Errorf("list schedules by professor: %w", err)
	}
	return schedules, nil
}

// CountByRoom counts non-cancelled schedules still bound to a room.
func (r *ScheduleRepository) CountByRoom(ctx context.Context, roomID string) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM schedules WHERE status <> 'cancelled' AND %s", fmt.Sprintf(roomMatch, 1))
	var total int
	if err := r.db.GetContext(ctx, &total, query, roomID); err != nil {
		return 0, fmt.Errorf("count schedules by room: %w", err)
	}
	return total, nil
}

// Create stores a new schedule record.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.Schedule) error {
	prepareInsert(schedule, time.Now().UTC())
	if _, err := r.db.NamedExecContext(ctx, insertScheduleQuery, schedule); err != nil {
		return fmt.Errorf("create schedule: %w", err)
	}
	return nil
}

// BulkCreate inserts many schedules within a transaction.
func (r *ScheduleRepository) BulkCreate(ctx context.Context, schedules []models.Schedule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create schedules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range schedules {
		prepareInsert(&schedules[i], now)
		if _, err = sqlx.NamedExecContext(ctx, tx, insertScheduleQuery, &schedules[i]); err != nil {
			return fmt.Errorf("bulk insert schedule: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create schedules: %w", err)
	}
	return nil
}

// Update modifies a schedule record in place; identity and created_at are preserved.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE schedules SET discipline = :discipline, professors = :professors, time_slots = :time_slots, room_id = :room_id, room_name = :room_name, assignments = :assignments, status = :status, color = :color, period_start = :period_start, period_end = :period_end, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	return nil
}

// UpdateStatus changes only the lifecycle status.
func (r *ScheduleRepository) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE schedules SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update schedule status: %w", err)
	}
	return nil
}

// Delete removes a schedule by id.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	return nil
}

func prepareInsert(schedule *models.Schedule, now time.Time) {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusScheduled
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
}
