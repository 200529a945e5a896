package service

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/room-scheduling-api/internal/dto"
	"github.com/noah-isme/room-scheduling-api/internal/models"
	appErrors "github.com/noah-isme/room-scheduling-api/pkg/errors"
	"github.com/noah-isme/room-scheduling-api/pkg/jobs"
	"github.com/noah-isme/room-scheduling-api/pkg/storage"
)

type exportFixture struct {
	svc       *ExportService
	worker    *ExportWorker
	jobs      *exportJobRepoFake
	queue     *queueFake
	store     *storage.LocalStorage
	schedules *scheduleRepoFake
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)

	rooms := newRoomRepoFake(newRoom("r1", "R101", 40))
	schedules := newScheduleRepoFake(
		weeklySchedule("s1", "Algebra", "r1", "p1", time.Monday, "08:00", "10:00"),
		weeklySchedule("s2", "Physics", "r1", "p2", time.Tuesday, "10:00", "12:00"),
	)
	cancelled := weeklySchedule("s3", "Chemistry", "r1", "p1", time.Monday, "14:00", "16:00")
	cancelled.Status = models.ScheduleStatusCancelled
	schedules.items["s3"] = &cancelled

	repo := newExportJobRepoFake()
	queue := &queueFake{}
	svc := NewExportService(repo, rooms, queue, store, signer, nil, ExportServiceConfig{
		APIPrefix:       "/api/v1/",
		ResultTTL:       time.Hour,
		CleanupInterval: time.Hour,
	}, zap.NewNop())
	worker := NewExportWorker(repo, rooms, schedules, store, NewMetricsService(), time.UTC, zap.NewNop())
	return &exportFixture{svc: svc, worker: worker, jobs: repo, queue: queue, store: store, schedules: schedules}
}

func TestExportServiceCreateJob(t *testing.T) {
	f := newExportFixture(t)
	resp, err := f.svc.CreateJob(context.Background(), dto.ExportRequest{
		Scope:    models.ExportScopeRoom,
		TargetID: "r1",
		Format:   models.ExportFormatCSV,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	assert.Nil(t, resp.DownloadURL)
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, resp.ID, f.queue.jobs[0].ID)
	assert.Contains(t, f.jobs.jobs, resp.ID)
}

func TestExportServiceCreateJobValidation(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateJob(ctx, dto.ExportRequest{Scope: "building", Format: models.ExportFormatCSV})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.CreateJob(ctx, dto.ExportRequest{Scope: models.ExportScopeProfessor, Format: models.ExportFormatPDF})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = f.svc.CreateJob(ctx, dto.ExportRequest{Scope: models.ExportScopeRoom, TargetID: "missing", Format: models.ExportFormatPDF})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	assert.Empty(t, f.queue.jobs)
}

func TestExportServiceCreateJobEnqueueFailure(t *testing.T) {
	f := newExportFixture(t)
	f.queue.err = jobs.ErrQueueStopped

	_, err := f.svc.CreateJob(context.Background(), dto.ExportRequest{Scope: models.ExportScopeAll, Format: models.ExportFormatXLSX})
	require.Error(t, err)
	require.Len(t, f.jobs.jobs, 1)
	for _, job := range f.jobs.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
		assert.Empty(t, job.Params.TargetID)
	}
}

func TestExportEndToEndDownload(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateJob(ctx, dto.ExportRequest{Scope: models.ExportScopeRoom, TargetID: "r1", Format: models.ExportFormatCSV})
	require.NoError(t, err)
	require.NoError(t, f.worker.Handle(ctx, f.queue.jobs[0]))

	status, err := f.svc.GetStatus(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusFinished, status.Status)
	assert.Equal(t, 100, status.Progress)
	require.NotNil(t, status.DownloadURL)
	require.True(t, strings.HasPrefix(*status.DownloadURL, "/api/v1/exports/download?token="))

	parsed, err := url.Parse(*status.DownloadURL)
	require.NoError(t, err)
	download, err := f.svc.ResolveDownload(ctx, parsed.Query().Get("token"))
	require.NoError(t, err)
	defer download.File.Close()

	assert.Equal(t, "text/csv", download.ContentType)
	assert.True(t, strings.HasPrefix(download.Filename, "room_r1_"))
	assert.True(t, strings.HasSuffix(download.Filename, ".csv"))

	body, err := io.ReadAll(download.File)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Discipline,Professors,Rooms,Weekday,Start,End,Period start,Period end,Status", lines[0])
	assert.Equal(t, "Algebra,Prof p1,Room r1,Monday,08:00,10:00,2024-02-01,2024-06-30,scheduled", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "Physics,"))
}

func TestExportServiceResolveDownloadRejectsBadTokens(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.svc.ResolveDownload(context.Background(), "not-a-token")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	signer := storage.NewSignedURLSigner("secret", time.Hour)
	path := "other.csv"
	f.jobs.jobs["job-1"] = &models.ExportJob{
		ID:         "job-1",
		Status:     models.ExportStatusFinished,
		ResultPath: &path,
		Params:     models.ExportJobParams{Scope: models.ExportScopeAll, Format: models.ExportFormatCSV},
	}
	token, _, err := signer.Generate("job-1", "mismatch.csv")
	require.NoError(t, err)
	_, err = f.svc.ResolveDownload(context.Background(), token)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportServiceGetStatusNotFound(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.svc.GetStatus(context.Background(), "nope")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestExportWorkerRendersICS(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	require.NoError(t, f.jobs.Create(ctx, &models.ExportJob{
		ID:     "job-ics",
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Scope: models.ExportScopeProfessor, TargetID: "p1", Format: models.ExportFormatICS},
	}))

	require.NoError(t, f.worker.Handle(ctx, jobs.Job{ID: "job-ics"}))

	job := f.jobs.jobs["job-ics"]
	require.NotNil(t, job.ResultPath)
	assert.True(t, strings.HasSuffix(*job.ResultPath, ".ics"))
	file, err := f.store.Open(*job.ResultPath)
	require.NoError(t, err)
	defer file.Close()
	body, err := io.ReadAll(file)
	require.NoError(t, err)

	content := string(body)
	assert.Contains(t, content, "SUMMARY:Algebra")
	assert.NotContains(t, content, "Chemistry")
	// 2024-02-01 is a Thursday, so the first Monday is 2024-02-05.
	assert.Contains(t, content, "20240205T080000Z")
	assert.Contains(t, content, "RRULE:FREQ=WEEKLY;UNTIL=20240630T235959Z")
	assert.Contains(t, content, "s1-1-0800@room-scheduling")
}

func TestExportWorkerMissingJobIsPermanent(t *testing.T) {
	f := newExportFixture(t)
	err := f.worker.Handle(context.Background(), jobs.Job{ID: "ghost"})
	require.Error(t, err)
	assert.True(t, jobs.IsPermanent(err))
}

func TestExportWorkerRequeuesOnTransientFailure(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()
	f.schedules.err = errors.New("db down")
	require.NoError(t, f.jobs.Create(ctx, &models.ExportJob{
		ID:     "job-retry",
		Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Scope: models.ExportScopeAll, Format: models.ExportFormatPDF},
	}))

	err := f.worker.Handle(ctx, jobs.Job{ID: "job-retry"})
	require.Error(t, err)
	assert.False(t, jobs.IsPermanent(err))
	job := f.jobs.jobs["job-retry"]
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	require.NotNil(t, job.ErrorMessage)

	f.worker.MarkFailed(ctx, jobs.Job{ID: "job-retry"}, err)
	assert.Equal(t, models.ExportStatusFailed, f.jobs.jobs["job-retry"].Status)
	assert.NotNil(t, f.jobs.jobs["job-retry"].FinishedAt)
}

func TestExportServiceRecoverPendingJobs(t *testing.T) {
	f := newExportFixture(t)
	f.jobs.jobs["queued"] = &models.ExportJob{ID: "queued", Status: models.ExportStatusQueued}
	f.jobs.jobs["done"] = &models.ExportJob{ID: "done", Status: models.ExportStatusFinished}

	f.svc.RecoverPendingJobs(context.Background())
	require.Len(t, f.queue.jobs, 1)
	assert.Equal(t, "queued", f.queue.jobs[0].ID)
}

func TestExportServiceCleanupExpired(t *testing.T) {
	f := newExportFixture(t)
	rel, err := f.store.Save("old.csv", []byte("a,b\n"))
	require.NoError(t, err)
	old := time.Now().Add(-2 * time.Hour)
	fresh := time.Now()
	f.jobs.jobs["old"] = &models.ExportJob{ID: "old", Status: models.ExportStatusFinished, ResultPath: &rel, FinishedAt: &old}
	f.jobs.jobs["fresh"] = &models.ExportJob{ID: "fresh", Status: models.ExportStatusFinished, FinishedAt: &fresh}

	f.svc.CleanupExpired(context.Background())

	assert.Equal(t, []string{"old"}, f.jobs.deleted)
	_, err = f.store.Open(rel)
	assert.Error(t, err)
	assert.Contains(t, f.jobs.jobs, "fresh")
}
