package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/service"
)

func newTestRouter(exports *ExportHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, "/api/v1", Handlers{
		Rooms: NewRoomHandler(&fakeRoomSrv{
			rooms:  []models.Room{{ID: "r1"}},
			status: &dto.RoomStatusResponse{RoomID: "r1", Status: models.RoomStatusAvailable},
		}),
		Schedules:    NewScheduleHandler(&fakeScheduleSrv{}),
		Availability: NewAvailabilityHandler(&fakeAvailabilitySrv{}),
		Calendar:     NewCalendarHandler(&fakeCalendarSrv{view: &dto.CalendarView{}}),
		Exports:      exports,
		Metrics:      NewMetricsHandler(service.NewMetricsService(), nil),
	})
	return r
}

func TestRegisterRoutes(t *testing.T) {
	r := newTestRouter(NewExportHandler(&fakeExportSrv{}))

	cases := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/metrics/summary", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms/statuses", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms/r1", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms/r1/status", http.StatusOK},
		{http.MethodGet, "/api/v1/rooms/r1/schedules", http.StatusOK},
		{http.MethodGet, "/api/v1/professors/p1/schedules", http.StatusOK},
		{http.MethodGet, "/api/v1/schedules/s1", http.StatusOK},
		{http.MethodGet, "/api/v1/calendar/week", http.StatusOK},
		{http.MethodGet, "/api/v1/calendar/day", http.StatusOK},
		{http.MethodGet, "/api/v1/exports/job-1", http.StatusOK},
		{http.MethodGet, "/api/v1/exports/download", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegisterRoutesWithoutExports(t *testing.T) {
	r := newTestRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/job-1", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
