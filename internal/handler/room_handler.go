package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/response"
)

type roomService interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, req service.CreateRoomRequest) (*models.Room, error)
	Update(ctx context.Context, id string, req service.UpdateRoomRequest) (*models.Room, error)
	UpdateStatus(ctx context.Context, id string, req service.UpdateRoomStatusRequest) (*models.Room, error)
	Delete(ctx context.Context, id string) error
	Status(ctx context.Context, id string, query service.RoomStatusQuery) (*dto.RoomStatusResponse, error)
	Statuses(ctx context.Context) ([]dto.RoomStatusResponse, error)
	Occurrences(ctx context.Context, id, date string) ([]dto.RoomOccurrence, error)
}

// RoomHandler manages room endpoints.
type RoomHandler struct {
	service roomService
}

// NewRoomHandler constructs handler.
func NewRoomHandler(svc roomService) *RoomHandler {
	return &RoomHandler{service: svc}
}

// List godoc
// @Summary List rooms
// @Tags Rooms
// @Produce json
// @Param search query string false "Name or location contains"
// @Param status query string false "Manual status"
// @Param min_capacity query int false "Minimum capacity"
// @Param equipment query string false "Required equipment item"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field"
// @Param order query string false "asc or desc"
// @Success 200 {object} response.Envelope
// @Router /rooms [get]
func (h *RoomHandler) List(c *gin.Context) {
	var filter models.RoomFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.ManualStatus = models.RoomManualStatus(c.Query("status"))
	filter.Equipment = strings.TrimSpace(c.Query("equipment"))
	if raw := c.Query("min_capacity"); raw != "" {
		capacity, err := strconv.Atoi(raw)
		if err != nil || capacity < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "min_capacity must be a non-negative integer"))
			return
		}
		filter.MinCapacity = capacity
	}
	filter.Page, filter.PageSize = pageParams(c)
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	rooms, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rooms, pagination)
}

// Get godoc
// @Summary Get room
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /rooms/{id} [get]
func (h *RoomHandler) Get(c *gin.Context) {
	room, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Create godoc
// @Summary Create room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.CreateRoomRequest true "Room payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rooms [post]
func (h *RoomHandler) Create(c *gin.Context) {
	var req service.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, room)
}

// Update godoc
// @Summary Update room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body service.UpdateRoomRequest true "Room payload"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id} [put]
func (h *RoomHandler) Update(c *gin.Context) {
	var req service.UpdateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// UpdateStatus godoc
// @Summary Set the manual status of a room
// @Tags Rooms
// @Accept json
// @Produce json
// @Param id path string true "Room ID"
// @Param payload body service.UpdateRoomStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/status [patch]
func (h *RoomHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateRoomStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	room, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, room, nil)
}

// Delete godoc
// @Summary Delete room
// @Tags Rooms
// @Param id path string true "Room ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /rooms/{id} [delete]
func (h *RoomHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Status godoc
// @Summary Room status for a date and optional window, or right now
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string false "YYYY-MM-DD"
// @Param start query string false "HH:MM"
// @Param end query string false "HH:MM"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/status [get]
func (h *RoomHandler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("id"), service.RoomStatusQuery{
		Date:      strings.TrimSpace(c.Query("date")),
		StartTime: strings.TrimSpace(c.Query("start")),
		EndTime:   strings.TrimSpace(c.Query("end")),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Statuses godoc
// @Summary Current status of every room
// @Tags Rooms
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /rooms/statuses [get]
func (h *RoomHandler) Statuses(c *gin.Context) {
	statuses, err := h.service.Statuses(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, statuses, nil)
}

// Occurrences godoc
// @Summary Classes held in a room on a date
// @Tags Rooms
// @Produce json
// @Param id path string true "Room ID"
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /rooms/{id}/occurrences [get]
func (h *RoomHandler) Occurrences(c *gin.Context) {
	occurrences, err := h.service.Occurrences(c.Request.Context(), c.Param("id"), strings.TrimSpace(c.Query("date")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occurrences, nil)
}

func pageParams(c *gin.Context) (int, int) {
	page, size := 1, 20
	if v, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		size = v
	}
	return page, size
}
