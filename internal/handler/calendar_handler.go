package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/middleware"
	"github.com/noah-isme/room-scheduling-api/pkg/response"
)

type calendarService interface {
	Week(ctx context.Context, date, roomID string) (*dto.CalendarView, bool, error)
	Day(ctx context.Context, date, roomID string) (*dto.CalendarView, bool, error)
}

// CalendarHandler exposes week and day layouts.
type CalendarHandler struct {
	service calendarService
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(svc calendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Week godoc
// @Summary Week calendar (Sunday to Saturday) containing a date
// @Tags Calendar
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param room_id query string false "Restrict to one room"
// @Success 200 {object} response.Envelope
// @Router /calendar/week [get]
func (h *CalendarHandler) Week(c *gin.Context) {
	h.render(c, h.service.Week)
}

// Day godoc
// @Summary Day calendar
// @Tags Calendar
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param room_id query string false "Restrict to one room"
// @Success 200 {object} response.Envelope
// @Router /calendar/day [get]
func (h *CalendarHandler) Day(c *gin.Context) {
	h.render(c, h.service.Day)
}

func (h *CalendarHandler) render(c *gin.Context, load func(context.Context, string, string) (*dto.CalendarView, bool, error)) {
	view, cacheHit, err := load(c.Request.Context(), strings.TrimSpace(c.Query("date")), strings.TrimSpace(c.Query("room_id")))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}
