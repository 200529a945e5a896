package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/models"
	"github.com/noah-isme/room-scheduling-api/internal/repository"
	"github.com/noah-isme/room-scheduling-api/internal/scheduling"
	"github.com/noah-isme/room-scheduling-api/pkg/export"
	"github.com/noah-isme/room-scheduling-api/pkg/jobs"
)

var timetableHeaders = []string{"Discipline", "Professors", "Rooms", "Weekday", "Start", "End", "Period start", "Period end", "Status"}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

type exportScheduleSource interface {
	ListActive(ctx context.Context) ([]models.Schedule, error)
	ListByRoom(ctx context.Context, roomID string) ([]models.Schedule, error)
	ListByProfessor(ctx context.Context, professorID string) ([]models.Schedule, error)
}

type exportMetrics interface {
	RecordExportJob(format models.ExportFormat, status models.ExportStatus)
}

// ExportWorker renders timetable exports for queued jobs.
type ExportWorker struct {
	repo      exportJobStore
	rooms     roomFinder
	schedules exportScheduleSource
	storage   fileStorage
	metrics   exportMetrics
	logger    *zap.Logger
	loc       *time.Location
	now       func() time.Time
}

// NewExportWorker wires the worker dependencies. loc is the zone recurring
// class times are expressed in.
func NewExportWorker(repo exportJobStore, rooms roomFinder, schedules exportScheduleSource, storage fileStorage, metrics exportMetrics, loc *time.Location, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &ExportWorker{
		repo:      repo,
		rooms:     rooms,
		schedules: schedules,
		storage:   storage,
		metrics:   metrics,
		logger:    logger,
		loc:       loc,
		now:       time.Now,
	}
}

// Handle implements jobs.Handler.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	record, err := w.repo.GetByID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Permanent(fmt.Errorf("export job %s not found", job.ID))
		}
		return err
	}
	if record.Status == models.ExportStatusFinished {
		return nil
	}

	processing := models.ExportStatusProcessing
	progress := 10
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{Status: &processing, Progress: &progress}); err != nil {
		return err
	}

	content, ext, err := w.render(ctx, record.Params)
	if err != nil {
		if !jobs.IsPermanent(err) {
			w.requeue(ctx, job.ID, err)
		}
		return err
	}

	relPath, err := w.storage.Save(w.filename(record.Params, ext), content)
	if err != nil {
		w.requeue(ctx, job.ID, err)
		return err
	}

	finished := models.ExportStatusFinished
	done := 100
	finishedAt := w.now().UTC()
	empty := ""
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &finished,
		Progress:     &done,
		ResultPath:   &relPath,
		ErrorMessage: &empty,
		FinishedAt:   &finishedAt,
	}); err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.RecordExportJob(record.Params.Format, finished)
	}
	w.logger.Info("export finished",
		zap.String("job_id", job.ID),
		zap.String("format", string(record.Params.Format)),
		zap.String("path", relPath),
	)
	return nil
}

// MarkFailed is the queue failure callback: it records the terminal error on the job.
func (w *ExportWorker) MarkFailed(ctx context.Context, job jobs.Job, cause error) {
	status := models.ExportStatusFailed
	progress := 100
	msg := cause.Error()
	finishedAt := w.now().UTC()
	if err := w.repo.Update(ctx, job.ID, repository.UpdateExportJobParams{
		Status:       &status,
		Progress:     &progress,
		ErrorMessage: &msg,
		FinishedAt:   &finishedAt,
	}); err != nil {
		w.logger.Warn("failed to mark export job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
	if w.metrics == nil {
		return
	}
	format := models.ExportFormat("unknown")
	if record, err := w.repo.GetByID(ctx, job.ID); err == nil {
		format = record.Params.Format
	}
	w.metrics.RecordExportJob(format, status)
}

func (w *ExportWorker) requeue(ctx context.Context, id string, cause error) {
	queued := models.ExportStatusQueued
	msg := cause.Error()
	if err := w.repo.Update(ctx, id, repository.UpdateExportJobParams{Status: &queued, ErrorMessage: &msg}); err != nil {
		w.logger.Warn("failed to reset export job", zap.String("job_id", id), zap.Error(err))
	}
}

func (w *ExportWorker) render(ctx context.Context, params models.ExportJobParams) ([]byte, string, error) {
	title, schedules, err := w.collect(ctx, params)
	if err != nil {
		return nil, "", err
	}
	if params.Format == models.ExportFormatICS {
		ics := export.NewICSExporter()
		content, err := ics.Render(title, w.events(schedules))
		if err != nil {
			return nil, "", jobs.Permanent(err)
		}
		return content, ics.Extension(), nil
	}
	renderer, err := export.RendererFor(string(params.Format))
	if err != nil {
		return nil, "", jobs.Permanent(err)
	}
	content, err := renderer.Render(export.Dataset{
		Title:   title,
		Headers: timetableHeaders,
		Rows:    timetableRows(schedules),
	})
	if err != nil {
		return nil, "", jobs.Permanent(err)
	}
	return content, renderer.Extension(), nil
}

func (w *ExportWorker) collect(ctx context.Context, params models.ExportJobParams) (string, []models.Schedule, error) {
	switch params.Scope {
	case models.ExportScopeRoom:
		room, err := w.rooms.FindByID(ctx, params.TargetID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return "", nil, jobs.Permanent(fmt.Errorf("room %s not found", params.TargetID))
			}
			return "", nil, err
		}
		items, err := w.schedules.ListByRoom(ctx, params.TargetID)
		return "Room " + room.Name, items, err
	case models.ExportScopeProfessor:
		items, err := w.schedules.ListByProfessor(ctx, params.TargetID)
		if err != nil {
			return "", nil, err
		}
		name := params.TargetID
		for _, s := range items {
			if n := s.ProfessorName(params.TargetID); n != params.TargetID {
				name = n
				break
			}
		}
		return "Professor " + name, items, nil
	case models.ExportScopeAll:
		items, err := w.schedules.ListActive(ctx)
		return "Timetable", items, err
	default:
		return "", nil, jobs.Permanent(fmt.Errorf("unsupported export scope %q", params.Scope))
	}
}

type timetableRow struct {
	schedule models.Schedule
	slot     models.WeeklyTimeSlot
	start    int
}

func flatten(schedules []models.Schedule) []timetableRow {
	rows := make([]timetableRow, 0, len(schedules))
	for _, s := range schedules {
		if s.IsCancelled() {
			continue
		}
		for _, slot := range s.TimeSlots {
			start, err := scheduling.ToMinutes(slot.StartTime)
			if err != nil {
				continue
			}
			rows = append(rows, timetableRow{schedule: s, slot: slot, start: start})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].slot.Weekday != rows[j].slot.Weekday {
			return rows[i].slot.Weekday < rows[j].slot.Weekday
		}
		if rows[i].start != rows[j].start {
			return rows[i].start < rows[j].start
		}
		return rows[i].schedule.Discipline < rows[j].schedule.Discipline
	})
	return rows
}

func timetableRows(schedules []models.Schedule) [][]string {
	flat := flatten(schedules)
	out := make([][]string, 0, len(flat))
	for _, r := range flat {
		out = append(out, []string{
			r.schedule.Discipline,
			professorNames(r.schedule),
			roomNames(r.schedule),
			r.slot.Weekday.String(),
			r.slot.StartTime,
			r.slot.EndTime,
			r.schedule.PeriodStart.String(),
			r.schedule.PeriodEnd.String(),
			string(r.schedule.Status),
		})
	}
	return out
}

// events expands each slot into a weekly recurring event starting on the
// first matching weekday of the academic period.
func (w *ExportWorker) events(schedules []models.Schedule) []export.Event {
	flat := flatten(schedules)
	out := make([]export.Event, 0, len(flat))
	for _, r := range flat {
		end, err := scheduling.ToMinutes(r.slot.EndTime)
		if err != nil || end <= r.start {
			continue
		}
		first := firstOccurrence(r.schedule.PeriodStart, r.slot.Weekday, w.loc)
		lastDay := r.schedule.PeriodEnd.Time
		until := time.Date(lastDay.Year(), lastDay.Month(), lastDay.Day(), 23, 59, 59, 0, w.loc)
		if first.After(until) {
			continue
		}
		out = append(out, export.Event{
			UID:         fmt.Sprintf("%s-%d-%s@room-scheduling", r.schedule.ID, int(r.slot.Weekday), strings.ReplaceAll(r.slot.StartTime, ":", "")),
			Summary:     r.schedule.Discipline,
			Location:    roomNames(r.schedule),
			Description: professorNames(r.schedule),
			Start:       first.Add(time.Duration(r.start) * time.Minute),
			End:         first.Add(time.Duration(end) * time.Minute),
			Until:       until,
		})
	}
	return out
}

func firstOccurrence(start models.Date, weekday time.Weekday, loc *time.Location) time.Time {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	shift := (int(weekday) - int(day.Weekday()) + 7) % 7
	return day.AddDate(0, 0, shift)
}

func professorNames(s models.Schedule) string {
	names := make([]string, 0, len(s.Professors))
	for _, p := range s.Professors {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}

func roomNames(s models.Schedule) string {
	ids := s.RoomIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, s.RoomNameFor(id))
	}
	return strings.Join(names, ", ")
}

func (w *ExportWorker) filename(params models.ExportJobParams, ext string) string {
	target := params.TargetID
	if target == "" {
		target = "all"
	}
	base := fmt.Sprintf("%s_%s_%s", params.Scope, target, w.now().UTC().Format("20060102T150405"))
	return unsafeFilename.ReplaceAllString(base, "-") + "." + ext
}

func contentTypeFor(format models.ExportFormat) string {
	if format == models.ExportFormatICS {
		return export.NewICSExporter().ContentType()
	}
	renderer, err := export.RendererFor(string(format))
	if err != nil {
		return "application/octet-stream"
	}
	return renderer.ContentType()
}
