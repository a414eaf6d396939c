package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/config"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

type mockOCRProcessor struct {
	mu   sync.Mutex
	jobs []models.OCREnrollmentJob
	done chan struct{}
}

func (m *mockOCRProcessor) Process(ctx context.Context, job models.OCREnrollmentJob) error {
	m.mu.Lock()
	m.jobs = append(m.jobs, job)
	m.mu.Unlock()
	if m.done != nil {
		close(m.done)
	}
	return nil
}

func TestEnqueueOCR(t *testing.T) {
	processor := &mockOCRProcessor{done: make(chan struct{})}
	svc := NewEnrollmentService(processor, nil, config.EnrollmentConfig{Workers: 1}, zap.NewNop())
	svc.Start(context.Background())
	defer svc.Stop()

	teacher := claimsFor(models.RoleTeacher, tTeacher, tSchool)

	_, err := svc.EnqueueOCR(teacher, "not-a-uuid", []byte("scan"))
	assert.ErrorIs(t, err, appErrors.ErrInvalidID)

	_, err = svc.EnqueueOCR(claimsFor(models.RoleStudent, tStudent, tSchool), tClassroom, []byte("scan"))
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.EnqueueOCR(teacher, tClassroom, nil)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	jobID, err := svc.EnqueueOCR(teacher, tClassroom, []byte("scan"))
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	select {
	case <-processor.done:
	case <-time.After(2 * time.Second):
		t.Fatal("ocr job was not processed")
	}

	processor.mu.Lock()
	defer processor.mu.Unlock()
	require.Len(t, processor.jobs, 1)
	assert.Equal(t, tClassroom, processor.jobs[0].ClassroomID)
	assert.Equal(t, tSchool, processor.jobs[0].SchoolID)
	assert.Equal(t, tTeacher, processor.jobs[0].RequestedBy)
}

func TestEnqueueOCRRequiresStartedQueue(t *testing.T) {
	svc := NewEnrollmentService(&mockOCRProcessor{}, nil, config.EnrollmentConfig{}, zap.NewNop())

	_, err := svc.EnqueueOCR(claimsFor(models.RoleTeacher, tTeacher, tSchool), tClassroom, []byte("scan"))
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
