package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/config"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/jobs"
)

// OCRProcessor consumes queued enrollment scans. The actual OCR pipeline
// lives in a downstream worker; this backend only hands payloads over.
type OCRProcessor interface {
	Process(ctx context.Context, job models.OCREnrollmentJob) error
}

const ocrJobType = "enrollment.ocr"

// EnrollmentService accepts scanned class lists for OCR-based enrollment and
// queues them for asynchronous processing. Requests are acknowledged with
// 202 and a job id; delivery to the processor is retried per queue policy.
type EnrollmentService struct {
	queue  *jobs.Queue
	guard  *AccessGuard
	logger *zap.Logger
}

// NewEnrollmentService constructs the intake service around an in-process
// worker queue.
func NewEnrollmentService(processor OCRProcessor, guard *AccessGuard, cfg config.EnrollmentConfig, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if guard == nil {
		guard = NewAccessGuard()
	}
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(models.OCREnrollmentJob)
		if !ok {
			logger.Error("unexpected ocr job payload", zap.String("job_id", job.ID))
			return nil
		}
		return processor.Process(ctx, payload)
	}
	queue := jobs.NewQueue("enrollment-ocr", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return &EnrollmentService{queue: queue, guard: guard, logger: logger}
}

// Start launches the queue workers.
func (s *EnrollmentService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *EnrollmentService) Stop() {
	s.queue.Stop()
}

// EnqueueOCR validates the intake and queues one OCR job, returning its id.
func (s *EnrollmentService) EnqueueOCR(claims *models.JWTClaims, classroomID string, image []byte) (string, error) {
	classroomID, err := parseID("classroom", classroomID)
	if err != nil {
		return "", err
	}
	if err := s.guard.CheckRole(claims, models.RoleSchoolAdmin, models.RoleTeacher); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "image payload is required")
	}

	payload := models.OCREnrollmentJob{
		ImageData:   image,
		ClassroomID: classroomID,
		SchoolID:    claims.SchoolID,
		RequestedBy: claims.UserID,
		ReceivedAt:  time.Now().UTC(),
	}
	jobID, err := s.queue.Enqueue(jobs.Job{Type: ocrJobType, Payload: payload})
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue enrollment scan")
	}

	s.logger.Info("enrollment scan queued",
		zap.String("job_id", jobID),
		zap.String("classroom_id", classroomID),
		zap.String("school_id", claims.SchoolID),
	)
	return jobID, nil
}
