package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/greenquest/greenquest-api/internal/models"
	"github.com/greenquest/greenquest-api/internal/repository"
	appErrors "github.com/greenquest/greenquest-api/pkg/errors"
	"github.com/greenquest/greenquest-api/pkg/jobs"
)

type fakeExportStore struct {
	jobs    map[string]*models.ExportJob
	updates []repository.UpdateExportJobParams
}

func (f *fakeExportStore) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = "job-1"
	}
	if f.jobs == nil {
		f.jobs = make(map[string]*models.ExportJob)
	}
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeExportStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return job, nil
}

func (f *fakeExportStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	f.updates = append(f.updates, params)
	if job, ok := f.jobs[id]; ok {
		if params.Status != nil {
			job.Status = *params.Status
		}
		if params.ResultURL != nil {
			job.ResultURL = params.ResultURL
		}
	}
	return nil
}

func (f *fakeExportStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range f.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

type fakeDispatcher struct {
	enqueued []jobs.Job
	err      error
}

func (f *fakeDispatcher) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

type fakeGenerator struct {
	result *ExportResult
	err    error
}

func (f *fakeGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	return f.result, f.err
}

func TestExportJobServiceCreateJob(t *testing.T) {
	store := &fakeExportStore{}
	dispatcher := &fakeDispatcher{}
	svc := NewExportJobService(store, dispatcher, nil, zap.NewNop(), ExportJobConfig{})

	job, err := svc.CreateJob(context.Background(), models.ExportJobParams{Format: models.ExportFormatCSV}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, job.Status)
	assert.Equal(t, models.ScopeGlobal, job.Params.Scope)
	assert.Equal(t, models.PeriodAll, job.Params.Period)
	require.Len(t, dispatcher.enqueued, 1)
	assert.Equal(t, job.ID, dispatcher.enqueued[0].ID)
}

func TestExportJobServiceCreateJobBadFormat(t *testing.T) {
	svc := NewExportJobService(&fakeExportStore{}, &fakeDispatcher{}, nil, zap.NewNop(), ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), models.ExportJobParams{Format: "xlsx"}, "admin-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportJobServiceCreateJobEnqueueFailure(t *testing.T) {
	store := &fakeExportStore{}
	dispatcher := &fakeDispatcher{err: errors.New("queue stopped")}
	svc := NewExportJobService(store, dispatcher, nil, zap.NewNop(), ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), models.ExportJobParams{Format: models.ExportFormatPDF}, "admin-1")
	require.Error(t, err)
	// Job row is marked failed rather than left queued forever.
	assert.Equal(t, models.ExportStatusFailed, store.jobs["job-1"].Status)
}

func TestExportJobServiceGetStatusOwnership(t *testing.T) {
	store := &fakeExportStore{jobs: map[string]*models.ExportJob{
		"job-1": {ID: "job-1", CreatedBy: "teacher-1", Status: models.ExportStatusQueued},
	}}
	svc := NewExportJobService(store, &fakeDispatcher{}, nil, zap.NewNop(), ExportJobConfig{})

	_, err := svc.GetStatus(context.Background(), "job-1", "teacher-2", models.RoleTeacher)
	assert.Equal(t, appErrors.ErrForbidden, err)

	job, err := svc.GetStatus(context.Background(), "job-1", "teacher-1", models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)

	_, err = svc.GetStatus(context.Background(), "job-1", "someone-else", models.RoleAdmin)
	require.NoError(t, err)
}

func TestExportWorkerHandleSuccess(t *testing.T) {
	store := &fakeExportStore{jobs: map[string]*models.ExportJob{
		"job-1": {ID: "job-1", Status: models.ExportStatusQueued},
	}}
	generator := &fakeGenerator{result: &ExportResult{RelativePath: "leaderboard.csv", URL: "/api/v1/exports/download/tok"}}
	worker := NewExportWorker(store, generator, 3, zap.NewNop())

	require.NoError(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1"}))
	assert.Equal(t, models.ExportStatusFinished, store.jobs["job-1"].Status)
	require.NotNil(t, store.jobs["job-1"].ResultURL)
	assert.Equal(t, "/api/v1/exports/download/tok", *store.jobs["job-1"].ResultURL)
}

func TestExportWorkerHandleRetryThenFail(t *testing.T) {
	store := &fakeExportStore{jobs: map[string]*models.ExportJob{
		"job-1": {ID: "job-1", Status: models.ExportStatusQueued},
	}}
	generator := &fakeGenerator{err: errors.New("render failed")}
	worker := NewExportWorker(store, generator, 2, zap.NewNop())

	// Early attempts requeue the job.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 0}))
	assert.Equal(t, models.ExportStatusQueued, store.jobs["job-1"].Status)

	// The final attempt marks it failed.
	require.Error(t, worker.Handle(context.Background(), jobs.Job{ID: "job-1", Attempt: 2}))
	assert.Equal(t, models.ExportStatusFailed, store.jobs["job-1"].Status)
}
