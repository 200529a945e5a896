package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
)

type roomLister interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

// SearchRoomsRequest is the body of POST /rooms/search.
type SearchRoomsRequest struct {
	Weekdays          []int        `json:"weekdays" validate:"required,min=1"`
	StartTime         string       `json:"start_time" validate:"required,clock"`
	EndTime           string       `json:"end_time" validate:"required,clock"`
	MinCapacity       int          `json:"min_capacity" validate:"gte=0"`
	Equipment         string       `json:"equipment"`
	PeriodStart       *models.Date `json:"period_start"`
	PeriodEnd         *models.Date `json:"period_end"`
	ExcludeScheduleID string       `json:"exclude_schedule_id"`
}

// AvailabilityService answers room availability searches.
type AvailabilityService struct {
	rooms     roomLister
	schedules activeScheduleReader
	validator *validator.Validate
	cache     *CacheService
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAvailabilityService constructs the service.
func NewAvailabilityService(rooms roomLister, schedules activeScheduleReader, validate *validator.Validate, cache *CacheService, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		rooms:     rooms,
		schedules: schedules,
		validator: ensureValidator(validate),
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// Search evaluates every room against the filters. The boolean reports a cache hit.
func (s *AvailabilityService) Search(ctx context.Context, req SearchRoomsRequest) ([]scheduling.RoomSearchResult, bool, error) {
	filters, err := s.normalize(req)
	if err != nil {
		return nil, false, err
	}

	key := cacheKey(cacheNamespaceSearch, filters)
	var cached []scheduling.RoomSearchResult
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		s.metrics.ObserveRoomSearch(0)
		return cached, true, nil
	}

	start := time.Now()
	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to load rooms")
	}
	schedules, err := s.schedules.ListActive(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to load schedules")
	}
	results := scheduling.SearchRooms(rooms, schedules, filters)
	if results == nil {
		results = []scheduling.RoomSearchResult{}
	}
	s.metrics.ObserveRoomSearch(time.Since(start))

	_ = s.cache.Set(ctx, key, results, 0)
	return results, false, nil
}

func (s *AvailabilityService) normalize(req SearchRoomsRequest) (scheduling.SearchFilters, error) {
	if err := s.validator.Struct(req); err != nil {
		return scheduling.SearchFilters{}, validationError(err, "invalid search payload")
	}
	weekdays, err := toWeekdays(req.Weekdays)
	if err != nil {
		return scheduling.SearchFilters{}, err
	}
	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i] < weekdays[j] })
	if _, err := parseTimeRange(req.StartTime, req.EndTime); err != nil {
		return scheduling.SearchFilters{}, err
	}
	if (req.PeriodStart == nil) != (req.PeriodEnd == nil) {
		return scheduling.SearchFilters{}, validationFailed("period_start and period_end must be given together")
	}
	if req.PeriodStart != nil && req.PeriodStart.After(*req.PeriodEnd) {
		return scheduling.SearchFilters{}, validationFailed("period_start must not be after period_end")
	}
	equipment := strings.TrimSpace(req.Equipment)
	if strings.EqualFold(equipment, scheduling.EquipmentAny) {
		equipment = ""
	}
	return scheduling.SearchFilters{
		Weekdays:          weekdays,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		MinCapacity:       req.MinCapacity,
		Equipment:         equipment,
		PeriodStart:       req.PeriodStart,
		PeriodEnd:         req.PeriodEnd,
		ExcludeScheduleID: req.ExcludeScheduleID,
	}, nil
}
