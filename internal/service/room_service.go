package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/events"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	ListAll(ctx context.Context) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	ExistsByName(ctx context.Context, name, excludeID string) (bool, error)
	Create(ctx context.Context, room *models.Room) error
	Update(ctx context.Context, room *models.Room) error
	UpdateStatus(ctx context.Context, id string, status models.RoomManualStatus) error
	Delete(ctx context.Context, id string) error
}

// activeScheduleReader exposes the snapshot of non-cancelled schedules.
type activeScheduleReader interface {
	ListActive(ctx context.Context) ([]models.Schedule, error)
}

type roomScheduleReader interface {
	activeScheduleReader
	CountByRoom(ctx context.Context, roomID string) (int, error)
}

// CreateRoomRequest describes payload for creating a room.
type CreateRoomRequest struct {
	Name         string                  `json:"name" validate:"required,max=100"`
	Capacity     int                     `json:"capacity" validate:"required,gt=0"`
	Equipment    []string                `json:"equipment" validate:"omitempty,dive,max=50"`
	Location     string                  `json:"location" validate:"max=200"`
	ManualStatus models.RoomManualStatus `json:"manual_status" validate:"omitempty,oneof=available unavailable maintenance"`
}

// UpdateRoomRequest replaces the editable fields of a room.
type UpdateRoomRequest = CreateRoomRequest

// UpdateRoomStatusRequest sets the manual override only.
type UpdateRoomStatusRequest struct {
	Status models.RoomManualStatus `json:"status" validate:"required,oneof=available unavailable maintenance"`
}

// RoomStatusQuery selects the instant or window for a status lookup. Without a date the
// current status at the service clock is returned.
type RoomStatusQuery struct {
	Date      string
	StartTime string
	EndTime   string
}

// RoomService manages rooms and resolves their occupancy.
type RoomService struct {
	repo      roomRepository
	schedules roomScheduleReader
	validator *validator.Validate
	notifier  changeNotifier
	clock     Clock
	location  *time.Location
	logger    *zap.Logger
}

// NewRoomService instantiates RoomService.
func NewRoomService(repo roomRepository, schedules roomScheduleReader, validate *validator.Validate, cache *CacheService, publisher events.Publisher, loc *time.Location, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &RoomService{
		repo:      repo,
		schedules: schedules,
		validator: ensureValidator(validate),
		notifier:  newChangeNotifier(publisher, cache, logger),
		clock:     NewClock(loc),
		location:  loc,
		logger:    logger,
	}
}

// List returns rooms with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list rooms")
	}
	return rooms, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a room by id.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, internalError(err, "failed to load room")
	}
	return room, nil
}

// Create inserts a room after enforcing case-insensitive name uniqueness.
func (s *RoomService) Create(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, ""); err != nil {
		return nil, err
	}
	room := models.Room{
		Name:         name,
		Capacity:     req.Capacity,
		Equipment:    normalizeEquipment(req.Equipment),
		Location:     strings.TrimSpace(req.Location),
		ManualStatus: req.ManualStatus,
	}
	if err := s.repo.Create(ctx, &room); err != nil {
		return nil, internalError(err, "failed to create room")
	}
	s.notifier.changed(ctx, events.RoomCreated, room)
	return &room, nil
}

// Update replaces the editable fields of a room.
func (s *RoomService) Update(ctx context.Context, id string, req UpdateRoomRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room payload")
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if err := s.ensureUniqueName(ctx, name, existing.ID); err != nil {
		return nil, err
	}
	existing.Name = name
	existing.Capacity = req.Capacity
	existing.Equipment = normalizeEquipment(req.Equipment)
	existing.Location = strings.TrimSpace(req.Location)
	if req.ManualStatus != "" {
		existing.ManualStatus = req.ManualStatus
	}
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, internalError(err, "failed to update room")
	}
	s.notifier.changed(ctx, events.RoomUpdated, existing)
	return existing, nil
}

// UpdateStatus sets the manual override of a room.
func (s *RoomService) UpdateStatus(ctx context.Context, id string, req UpdateRoomStatusRequest) (*models.Room, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid room status payload")
	}
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, id, req.Status); err != nil {
		return nil, internalError(err, "failed to update room status")
	}
	room.ManualStatus = req.Status
	s.notifier.changed(ctx, events.RoomStatus, room)
	return room, nil
}

// Delete removes a room that no active schedule references.
func (s *RoomService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.schedules.CountByRoom(ctx, id)
	if err != nil {
		return internalError(err, "failed to check room usage")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrRoomInUse, "room is still bound to active schedules")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return internalError(err, "failed to delete room")
	}
	s.notifier.changed(ctx, events.RoomDeleted, map[string]string{"id": id})
	return nil
}

// Status resolves a room's status for a date and optional time window, or its current
// status when no date is given.
func (s *RoomService) Status(ctx context.Context, id string, query RoomStatusQuery) (*dto.RoomStatusResponse, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	schedules, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}

	if query.Date == "" {
		if query.StartTime != "" || query.EndTime != "" {
			return nil, validationFailed("start and end require a date")
		}
		now := s.clock()
		window := scheduling.CurrentWindow(now)
		resp := buildStatus(*room, schedules, now, &window)
		return &resp, nil
	}

	day, err := parseDay(query.Date, s.clock(), s.location)
	if err != nil {
		return nil, err
	}
	var window *scheduling.Window
	if query.StartTime != "" || query.EndTime != "" {
		w, err := parseTimeRange(query.StartTime, query.EndTime)
		if err != nil {
			return nil, err
		}
		window = &w
	}
	resp := buildStatus(*room, schedules, day, window)
	return &resp, nil
}

// Statuses returns the current status of every room.
func (s *RoomService) Statuses(ctx context.Context) ([]dto.RoomStatusResponse, error) {
	rooms, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list rooms")
	}
	schedules, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	window := scheduling.CurrentWindow(now)
	out := make([]dto.RoomStatusResponse, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, buildStatus(room, schedules, now, &window))
	}
	return out, nil
}

// Occurrences lists the classes held in a room on date (today when empty), by start time.
func (s *RoomService) Occurrences(ctx context.Context, id, date string) ([]dto.RoomOccurrence, error) {
	room, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	day, err := parseDay(date, s.clock(), s.location)
	if err != nil {
		return nil, err
	}
	schedules, err := s.activeSchedules(ctx)
	if err != nil {
		return nil, err
	}
	occurrences := scheduling.OccurrencesOnDay(*room, schedules, day)
	out := make([]dto.RoomOccurrence, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, dto.RoomOccurrence{
			ScheduleID: o.Schedule.ID,
			Discipline: o.Schedule.Discipline,
			Professors: o.Schedule.Professors,
			StartTime:  o.Slot.StartTime,
			EndTime:    o.Slot.EndTime,
			Status:     string(o.Schedule.Status),
			Color:      o.Schedule.Color,
		})
	}
	return out, nil
}

func (s *RoomService) activeSchedules(ctx context.Context) ([]models.Schedule, error) {
	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		return nil, internalError(err, "failed to load schedules")
	}
	return schedules, nil
}

func (s *RoomService) ensureUniqueName(ctx context.Context, name, excludeID string) error {
	exists, err := s.repo.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return internalError(err, "failed to check room name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "a room with this name already exists")
	}
	return nil
}

func buildStatus(room models.Room, schedules []models.Schedule, at time.Time, window *scheduling.Window) dto.RoomStatusResponse {
	resp := dto.RoomStatusResponse{
		RoomID:       room.ID,
		RoomName:     room.Name,
		Status:       scheduling.CalculatedStatus(room, schedules, at, window),
		ManualStatus: room.ManualStatus,
		Date:         models.NewDate(at),
	}
	if window != nil {
		resp.StartTime = scheduling.FormatClock(window.Start)
		resp.EndTime = scheduling.FormatClock(window.End)
	}
	if resp.Status == models.RoomStatusOccupied {
		if schedule, slot := scheduling.OccupyingSchedule(room, schedules, at, window); schedule != nil {
			resp.OccupiedBy = &dto.OccupyingSchedule{
				ScheduleID: schedule.ID,
				Discipline: schedule.Discipline,
				Weekday:    int(slot.Weekday),
				StartTime:  slot.StartTime,
				EndTime:    slot.EndTime,
			}
		}
	}
	return resp
}

func normalizeEquipment(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
