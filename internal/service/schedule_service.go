package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/events"
)

// schedulePalette supplies default colours, picked by the number of stored schedules.
var schedulePalette = []string{
	"#3b82f6", "#10b981", "#f59e0b", "#8b5cf6", "#ec4899",
	"#06b6d4", "#f97316", "#14b8a6", "#ef4444", "#84cc16",
}

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ListActive(ctx context.Context) ([]models.Schedule, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Schedule, error)
	ListByProfessor(ctx context.Context, professorID string) ([]models.Schedule, error)
	Create(ctx context.Context, schedule *models.Schedule) error
	BulkCreate(ctx context.Context, schedules []models.Schedule) error
	Update(ctx context.Context, schedule *models.Schedule) error
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error
	Delete(ctx context.Context, id string) error
}

type roomLookup interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Room, error)
}

// AssignmentRequest binds one professor of the schedule to one of its rooms.
type AssignmentRequest struct {
	ProfessorID string `json:"professor_id" validate:"required"`
	RoomID      string `json:"room_id" validate:"required"`
}

// ScheduleRequest describes payload for creating or replacing a schedule. Every weekday
// shares the same start and end time.
type ScheduleRequest struct {
	Discipline  string                `json:"discipline" validate:"required,max=200"`
	Professors  []models.Professor    `json:"professors" validate:"required,min=1,dive"`
	RoomIDs     []string              `json:"room_ids" validate:"required,min=1,dive,required"`
	Weekdays    []int                 `json:"weekdays" validate:"required,min=1"`
	StartTime   string                `json:"start_time" validate:"required,clock"`
	EndTime     string                `json:"end_time" validate:"required,clock"`
	PeriodStart models.Date           `json:"period_start"`
	PeriodEnd   models.Date           `json:"period_end"`
	Color       string                `json:"color" validate:"omitempty,hexcolor,len=7"`
	Status      models.ScheduleStatus `json:"status" validate:"omitempty,oneof=scheduled in_progress completed cancelled"`
	Assignments []AssignmentRequest   `json:"assignments" validate:"omitempty,dive"`
}

// ConflictCheckRequest asks for every conflict of a candidate without writing it.
type ConflictCheckRequest struct {
	ScheduleRequest
	ExcludeScheduleID string `json:"exclude_schedule_id"`
}

// UpdateScheduleStatusRequest changes only the lifecycle status.
type UpdateScheduleStatusRequest struct {
	Status models.ScheduleStatus `json:"status" validate:"required,oneof=scheduled in_progress completed cancelled"`
}

// BulkCreateSchedulesRequest holds multiple schedules for creation.
type BulkCreateSchedulesRequest struct {
	Items          []ScheduleRequest `json:"items" validate:"required,min=1"`
	PartialOnError bool              `json:"partial_on_error"`
}

// BulkRejection explains why one bulk item was skipped.
type BulkRejection struct {
	Index    int                  `json:"index"`
	Message  string               `json:"message"`
	Conflict *scheduling.Conflict `json:"conflict,omitempty"`
}

// BulkCreateSchedulesResult summarises bulk creation results.
type BulkCreateSchedulesResult struct {
	Created  []models.Schedule `json:"created"`
	Rejected []BulkRejection   `json:"rejected,omitempty"`
}

// ScheduleService coordinates scheduling logic.
type ScheduleService struct {
	repo      scheduleRepository
	rooms     roomLookup
	validator *validator.Validate
	notifier  changeNotifier
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(repo scheduleRepository, rooms roomLookup, validate *validator.Validate, cache *CacheService, publisher events.Publisher, metrics *MetricsService, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		repo:      repo,
		rooms:     rooms,
		validator: ensureValidator(validate),
		notifier:  newChangeNotifier(publisher, cache, logger),
		metrics:   metrics,
		logger:    logger,
	}
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list schedules")
	}
	return schedules, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a schedule by id.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, internalError(err, "failed to load schedule")
	}
	return schedule, nil
}

// ListByRoom returns schedules bound to a room.
func (s *ScheduleService) ListByRoom(ctx context.Context, roomID string) ([]models.Schedule, error) {
	schedules, err := s.repo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, internalError(err, "failed to list room schedules")
	}
	return schedules, nil
}

// ListByProfessor returns schedules taught by a professor.
func (s *ScheduleService) ListByProfessor(ctx context.Context, professorID string) ([]models.Schedule, error) {
	schedules, err := s.repo.ListByProfessor(ctx, professorID)
	if err != nil {
		return nil, internalError(err, "failed to list professor schedules")
	}
	return schedules, nil
}

// Create inserts a new schedule after conflict detection.
func (s *ScheduleService) Create(ctx context.Context, req ScheduleRequest) (*models.Schedule, error) {
	existing, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}
	schedule, err := s.build(ctx, req, len(existing))
	if err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(schedule, existing); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &schedule); err != nil {
		return nil, internalError(err, "failed to create schedule")
	}
	s.notifier.changed(ctx, events.ScheduleCreated, schedule)
	return &schedule, nil
}

// Update replaces a schedule, checking conflicts against every other schedule.
func (s *ScheduleService) Update(ctx context.Context, id string, req ScheduleRequest) (*models.Schedule, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}
	if req.Color == "" {
		req.Color = current.Color
	}
	if req.Status == "" {
		req.Status = current.Status
	}
	if err := checkStatusTransition(current.Status, req.Status); err != nil {
		return nil, err
	}
	updated, err := s.build(ctx, req, len(existing))
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	if err := s.ensureNoConflict(updated, existing); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, internalError(err, "failed to update schedule")
	}
	s.notifier.changed(ctx, events.ScheduleUpdated, updated)
	return &updated, nil
}

// UpdateStatus moves a schedule through its lifecycle. Any schedule may be cancelled; a
// cancelled schedule can only return to scheduled, and only if it no longer conflicts.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id string, req UpdateScheduleStatusRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid schedule status payload")
	}
	schedule, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.Status == req.Status {
		return schedule, nil
	}
	if err := checkStatusTransition(schedule.Status, req.Status); err != nil {
		return nil, err
	}
	if schedule.IsCancelled() {
		existing, err := s.activeSchedules(ctx)
		if err != nil {
			return nil, err
		}
		restored := *schedule
		restored.Status = req.Status
		if err := s.ensureNoConflict(restored, existing); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, internalError(err, "failed to update schedule status")
	}
	schedule.Status = req.Status
	s.notifier.changed(ctx, events.ScheduleStatus, schedule)
	return schedule, nil
}

func checkStatusTransition(from, to models.ScheduleStatus) error {
	if from == models.ScheduleStatusCancelled && to != from && to != models.ScheduleStatusScheduled {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "a cancelled schedule can only be restored to scheduled")
	}
	return nil
}

// Delete removes a schedule entry.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete schedule")
	}
	s.notifier.changed(ctx, events.ScheduleDeleted, map[string]string{"id": id})
	return nil
}

// CheckConflicts returns every conflict the candidate would raise, without writing.
func (s *ScheduleService) CheckConflicts(ctx context.Context, req ConflictCheckRequest) ([]scheduling.Conflict, error) {
	existing, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}
	candidate, err := s.build(ctx, req.ScheduleRequest, len(existing))
	if err != nil {
		return nil, err
	}
	candidate.ID = req.ExcludeScheduleID
	conflicts := scheduling.DetectScheduleConflicts(candidate, existing)
	if conflicts == nil {
		conflicts = []scheduling.Conflict{}
	}
	return conflicts, nil
}

// BulkCreate inserts multiple schedules. Each item is checked against stored schedules and
// the items accepted before it; without PartialOnError the first rejection aborts the batch.
func (s *ScheduleService) BulkCreate(ctx context.Context, req BulkCreateSchedulesRequest) (*BulkCreateSchedulesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk schedule payload")
	}
	existing, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}

	pool := append([]models.Schedule(nil), existing...)
	result := &BulkCreateSchedulesResult{Created: []models.Schedule{}}
	for i, item := range req.Items {
		schedule, err := s.build(ctx, item, len(pool))
		if err == nil {
			err = s.ensureNoConflict(schedule, pool)
		}
		if err != nil {
			if !req.PartialOnError || !isRejection(err) {
				return nil, err
			}
			rejection := BulkRejection{Index: i, Message: appErrors.FromError(err).Message}
			var conflictErr *models.ScheduleConflictError
			if errors.As(err, &conflictErr) {
				if list, ok := conflictErr.Conflicts.([]scheduling.Conflict); ok && len(list) > 0 {
					rejection.Conflict = &list[0]
				}
			}
			result.Rejected = append(result.Rejected, rejection)
			continue
		}
		result.Created = append(result.Created, schedule)
		pool = append(pool, schedule)
	}

	if len(result.Created) > 0 {
		if err := s.repo.BulkCreate(ctx, result.Created); err != nil {
			return nil, internalError(err, "failed to bulk create schedules")
		}
		for _, schedule := range result.Created {
			s.notifier.changed(ctx, events.ScheduleCreated, schedule)
		}
	}
	return result, nil
}

func isRejection(err error) bool {
	return appErrors.Is(err, appErrors.ErrConflict) || appErrors.Is(err, appErrors.ErrValidation)
}

func (s *ScheduleService) activeSchedules(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load schedules")
	}
	return schedules, nil
}

func (s *ScheduleService) ensureNoConflict(schedule models.Schedule, existing []models.Schedule) error {
	if schedule.IsCancelled() {
		return nil
	}
	conflict, found := scheduling.FirstScheduleConflict(schedule, existing)
	if !found {
		return nil
	}
	s.metrics.RecordScheduleConflict(string(conflict.Kind))
	s.logger.Info("schedule rejected by conflict",
		zap.String("kind", string(conflict.Kind)),
		zap.String("conflicting_schedule_id", conflict.ScheduleID),
		zap.String("discipline", schedule.Discipline))
	return wrapConflict(conflict)
}

func wrapConflict(conflict scheduling.Conflict) error {
	message := conflict.Message()
	domainErr := &models.ScheduleConflictError{
		Type:      string(conflict.Kind),
		Message:   message,
		Conflicts: []scheduling.Conflict{conflict},
	}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, message)
}

// build validates req and resolves room snapshots into a schedule ready for persistence.
func (s *ScheduleService) build(ctx context.Context, req ScheduleRequest, existingCount int) (models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.Schedule{}, validationError(err, "invalid schedule payload")
	}
	discipline := strings.TrimSpace(req.Discipline)
	if discipline == "" {
		return models.Schedule{}, validationFailed("discipline is required")
	}
	weekdays, err := toWeekdays(req.Weekdays)
	if err != nil {
		return models.Schedule{}, err
	}
	if _, err := parseTimeRange(req.StartTime, req.EndTime); err != nil {
		return models.Schedule{}, err
	}
	if req.PeriodStart.IsZero() || req.PeriodEnd.IsZero() {
		return models.Schedule{}, validationFailed("period_start and period_end are required")
	}
	if req.PeriodStart.After(req.PeriodEnd) {
		return models.Schedule{}, validationFailed("period_start must not be after period_end")
	}
	professors, err := uniqueProfessors(req.Professors)
	if err != nil {
		return models.Schedule{}, err
	}
	roomIDs, err := uniqueStrings(req.RoomIDs, "room")
	if err != nil {
		return models.Schedule{}, err
	}
	if len(roomIDs) > 1 && len(req.Assignments) == 0 {
		return models.Schedule{}, validationFailed("assignments are required when more than one room is selected")
	}

	rooms, err := s.resolveRooms(ctx, roomIDs)
	if err != nil {
		return models.Schedule{}, err
	}

	schedule := models.Schedule{
		Discipline:  discipline,
		Professors:  professors,
		Status:      req.Status,
		Color:       strings.ToLower(req.Color),
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
		RoomID:      roomIDs[0],
		RoomName:    rooms[roomIDs[0]].Name,
	}
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusScheduled
	}
	if schedule.Color == "" {
		schedule.Color = schedulePalette[existingCount%len(schedulePalette)]
	}
	for _, day := range weekdays {
		schedule.TimeSlots = append(schedule.TimeSlots, models.WeeklyTimeSlot{
			Weekday:   day,
			StartTime: req.StartTime,
			EndTime:   req.EndTime,
		})
	}
	if len(req.Assignments) > 0 {
		assignments, err := buildAssignments(req.Assignments, professors, roomIDs, rooms)
		if err != nil {
			return models.Schedule{}, err
		}
		schedule.Assignments = assignments
	}
	return schedule, nil
}

func (s *ScheduleService) resolveRooms(ctx context.Context, ids []string) (map[string]models.Room, error) {
	found, err := s.rooms.FindByIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err, "failed to load rooms")
	}
	rooms := make(map[string]models.Room, len(found))
	for _, room := range found {
		rooms[room.ID] = room
	}
	for _, id := range ids {
		if _, ok := rooms[id]; !ok {
			return nil, validationFailed("room %s does not exist", id)
		}
	}
	return rooms, nil
}

func uniqueProfessors(in []models.Professor) (models.Professors, error) {
	seen := make(map[string]struct{}, len(in))
	out := make(models.Professors, 0, len(in))
	for _, p := range in {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, validationFailed("every professor needs an id and a name")
		}
		if _, dup := seen[p.ID]; dup {
			return nil, validationFailed("professor %s listed more than once", p.ID)
		}
		seen[p.ID] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func uniqueStrings(in []string, label string) ([]string, error) {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if _, dup := seen[v]; dup {
			return nil, validationFailed("%s %s listed more than once", label, v)
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

// buildAssignments checks that each professor is assigned exactly once to a selected room
// and that every selected room is covered, then snapshots names.
func buildAssignments(reqs []AssignmentRequest, professors models.Professors, roomIDs []string, rooms map[string]models.Room) (models.ProfessorRoomAssignments, error) {
	profNames := make(map[string]string, len(professors))
	for _, p := range professors {
		profNames[p.ID] = p.Name
	}
	selectedRooms := make(map[string]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		selectedRooms[id] = struct{}{}
	}

	assigned := make(map[string]struct{}, len(reqs))
	covered := make(map[string]struct{}, len(roomIDs))
	out := make(models.ProfessorRoomAssignments, 0, len(reqs))
	for _, a := range reqs {
		name, ok := profNames[a.ProfessorID]
		if !ok {
			return nil, validationFailed("assignment references professor %s outside the schedule", a.ProfessorID)
		}
		if _, ok := selectedRooms[a.RoomID]; !ok {
			return nil, validationFailed("assignment references room %s outside the schedule", a.RoomID)
		}
		if _, dup := assigned[a.ProfessorID]; dup {
			return nil, validationFailed("professor %s assigned more than once", a.ProfessorID)
		}
		assigned[a.ProfessorID] = struct{}{}
		covered[a.RoomID] = struct{}{}
		out = append(out, models.ProfessorRoomAssignment{
			ProfessorID:   a.ProfessorID,
			ProfessorName: name,
			RoomID:        a.RoomID,
			RoomName:      rooms[a.RoomID].Name,
		})
	}
	for _, p := range professors {
		if _, ok := assigned[p.ID]; !ok {
			return nil, validationFailed("professor %s has no room assignment", p.ID)
		}
	}
	for _, id := range roomIDs {
		if _, ok := covered[id]; !ok {
			return nil, validationFailed("room %s has no professor assigned", id)
		}
	}
	return out, nil
}
