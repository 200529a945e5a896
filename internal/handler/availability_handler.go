package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-scheduling-api/internal/middleware"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
	"github.com/noah-isme/room-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/response"
)

type availabilityService interface {
	Search(ctx context.Context, req service.SearchRoomsRequest) ([]scheduling.RoomSearchResult, bool, error)
}

// AvailabilityHandler serves room availability searches.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Search godoc
// @Summary Search rooms free on weekdays and a time range
// @Description Rooms are ranked available first, then partially free, then blocked by a manual status.
// @Tags Rooms
// @Accept json
// @Produce json
// @Param payload body service.SearchRoomsRequest true "Search filters"
// @Success 200 {object} response.Envelope
// @Router /rooms/search [post]
func (h *AvailabilityHandler) Search(c *gin.Context) {
	var req service.SearchRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	results, cacheHit, err := h.service.Search(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	available := 0
	for _, r := range results {
		if r.Available {
			available++
		}
	}
	meta := middleware.ExtractMeta(c)
	meta["total"] = len(results)
	meta["available"] = available
	response.JSON(c, http.StatusOK, results, nil, meta)
}
