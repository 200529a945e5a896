package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/service"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *bytes.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = bytes.NewReader([]byte(v))
		default:
			raw, _ := json.Marshal(v)
			reader = bytes.NewReader(raw)
		}
	} else {
		reader = bytes.NewReader(nil)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

type fakeRoomSrv struct {
	rooms        []models.Room
	err          error
	lastFilter   models.RoomFilter
	lastCreate   service.CreateRoomRequest
	lastStatusQ  service.RoomStatusQuery
	deletedID    string
	status       *dto.RoomStatusResponse
	occurrences  []dto.RoomOccurrence
	lastOccurDay string
}

func (f *fakeRoomSrv) List(_ context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	f.lastFilter = filter
	return f.rooms, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(f.rooms)}, f.err
}

func (f *fakeRoomSrv) Get(_ context.Context, id string) (*models.Room, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Room{ID: id, Name: "R101"}, nil
}

func (f *fakeRoomSrv) Create(_ context.Context, req service.CreateRoomRequest) (*models.Room, error) {
	f.lastCreate = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.Room{ID: "r-new", Name: req.Name, Capacity: req.Capacity}, nil
}

func (f *fakeRoomSrv) Update(_ context.Context, id string, req service.UpdateRoomRequest) (*models.Room, error) {
	return &models.Room{ID: id, Name: req.Name, Capacity: req.Capacity}, f.err
}

func (f *fakeRoomSrv) UpdateStatus(_ context.Context, id string, req service.UpdateRoomStatusRequest) (*models.Room, error) {
	return &models.Room{ID: id, ManualStatus: req.Status}, f.err
}

func (f *fakeRoomSrv) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeRoomSrv) Status(_ context.Context, _ string, query service.RoomStatusQuery) (*dto.RoomStatusResponse, error) {
	f.lastStatusQ = query
	return f.status, f.err
}

func (f *fakeRoomSrv) Statuses(context.Context) ([]dto.RoomStatusResponse, error) {
	if f.status == nil {
		return nil, f.err
	}
	return []dto.RoomStatusResponse{*f.status}, f.err
}

func (f *fakeRoomSrv) Occurrences(_ context.Context, _ string, date string) ([]dto.RoomOccurrence, error) {
	f.lastOccurDay = date
	return f.occurrences, f.err
}

func TestRoomHandlerListParsesFilters(t *testing.T) {
	srv := &fakeRoomSrv{rooms: []models.Room{{ID: "r1", Name: "R101"}}}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/rooms?search=lab&min_capacity=30&equipment=projector&page=2&limit=5", nil)
	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "lab", srv.lastFilter.Search)
	assert.Equal(t, 30, srv.lastFilter.MinCapacity)
	assert.Equal(t, "projector", srv.lastFilter.Equipment)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)

	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestRoomHandlerListRejectsBadCapacity(t *testing.T) {
	srv := &fakeRoomSrv{}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/rooms?min_capacity=-1", nil)
	h.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, envelope.Error.Code)
}

func TestRoomHandlerCreate(t *testing.T) {
	srv := &fakeRoomSrv{}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/rooms", map[string]interface{}{
		"name":      "R205",
		"capacity":  40,
		"equipment": []string{"projector"},
	})
	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "R205", srv.lastCreate.Name)
	assert.Equal(t, []string{"projector"}, srv.lastCreate.Equipment)

	var room models.Room
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &room))
	assert.Equal(t, "r-new", room.ID)
}

func TestRoomHandlerCreateInvalidJSON(t *testing.T) {
	h := NewRoomHandler(&fakeRoomSrv{})

	c, rec := newTestContext(http.MethodPost, "/rooms", "{")
	h.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoomHandlerDeleteInUse(t *testing.T) {
	srv := &fakeRoomSrv{err: appErrors.Clone(appErrors.ErrRoomInUse, "room R101 has 2 active schedules")}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodDelete, "/rooms/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Delete(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "r1", srv.deletedID)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "ROOM_IN_USE", envelope.Error.Code)
}

func TestRoomHandlerDeleteNoContent(t *testing.T) {
	h := NewRoomHandler(&fakeRoomSrv{})

	c, rec := newTestContext(http.MethodDelete, "/rooms/r1", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Delete(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRoomHandlerStatusPassesWindow(t *testing.T) {
	srv := &fakeRoomSrv{status: &dto.RoomStatusResponse{RoomID: "r1", Status: models.RoomStatusOccupied}}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/rooms/r1/status?date=2024-03-04&start=08:00&end=09:00", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Status(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.RoomStatusQuery{Date: "2024-03-04", StartTime: "08:00", EndTime: "09:00"}, srv.lastStatusQ)

	var status dto.RoomStatusResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &status))
	assert.Equal(t, models.RoomStatusOccupied, status.Status)
}

func TestRoomHandlerGetNotFound(t *testing.T) {
	h := NewRoomHandler(&fakeRoomSrv{err: appErrors.Clone(appErrors.ErrNotFound, "room not found")})

	c, rec := newTestContext(http.MethodGet, "/rooms/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomHandlerOccurrences(t *testing.T) {
	srv := &fakeRoomSrv{occurrences: []dto.RoomOccurrence{{ScheduleID: "s1", Discipline: "Calculus"}}}
	h := NewRoomHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/rooms/r1/occurrences?date=2024-03-04", nil)
	c.Params = gin.Params{{Key: "id", Value: "r1"}}
	h.Occurrences(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-03-04", srv.lastOccurDay)

	var occurrences []dto.RoomOccurrence
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &occurrences))
	require.Len(t, occurrences, 1)
	assert.Equal(t, "Calculus", occurrences[0].Discipline)
}
