package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klasnova/klasnova-api/internal/middleware"
	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/service"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type fakeExamService struct {
	exam             *models.Exam
	question         *models.Question
	inv              *models.ExamInvigilator
	err              error
	lastCreate       service.CreateExamRequest
	lastAnnouncement service.AnnouncementRequest
}

func (f *fakeExamService) Create(_ context.Context, _ *models.JWTClaims, req service.CreateExamRequest) (*models.Exam, error) {
	f.lastCreate = req
	return f.exam, f.err
}

func (f *fakeExamService) Get(context.Context, *models.JWTClaims, string) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamService) List(context.Context, *models.JWTClaims, models.ExamFilter) ([]models.Exam, int, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.Exam{*f.exam}, 1, nil
}

func (f *fakeExamService) AddQuestion(context.Context, *models.JWTClaims, string, service.AddQuestionRequest) (*models.Question, error) {
	return f.question, f.err
}

func (f *fakeExamService) RemoveQuestion(context.Context, *models.JWTClaims, string, string) error {
	return f.err
}

func (f *fakeExamService) Publish(context.Context, *models.JWTClaims, string) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamService) Unpublish(context.Context, *models.JWTClaims, string) (*models.Exam, error) {
	return f.exam, f.err
}

func (f *fakeExamService) AddInvigilator(context.Context, *models.JWTClaims, string, string) (*models.ExamInvigilator, error) {
	return f.inv, f.err
}

func (f *fakeExamService) RemoveInvigilator(context.Context, *models.JWTClaims, string, string) error {
	return f.err
}

func (f *fakeExamService) Announce(_ context.Context, _ *models.JWTClaims, _ string, req service.AnnouncementRequest) error {
	f.lastAnnouncement = req
	return f.err
}

func testContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleTeacher, SchoolID: "s-1"})
	return c, rec
}

func TestExamHandlerCreate(t *testing.T) {
	fake := &fakeExamService{exam: &models.Exam{ID: "e-1", Title: "Maths"}}
	handler := NewExamHandler(fake)

	c, rec := testContext(http.MethodPost, "/exams", `{"title":"Maths","classroom_id":"c-1","subject_id":"sub-1","academic_session":"2025/2026","term":1,"duration_minutes":60}`)
	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Maths", fake.lastCreate.Title)
	assert.Equal(t, 60, fake.lastCreate.DurationMinutes)

	c, rec = testContext(http.MethodPost, "/exams", `{not-json`)
	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExamHandlerGetMapsErrors(t *testing.T) {
	handler := NewExamHandler(&fakeExamService{err: appErrors.Clone(appErrors.ErrNotFound, "exam not found")})

	c, rec := testContext(http.MethodGet, "/exams/e-404", "")
	c.Params = gin.Params{{Key: "id", Value: "e-404"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestExamHandlerListPagination(t *testing.T) {
	handler := NewExamHandler(&fakeExamService{exam: &models.Exam{ID: "e-1"}})

	c, rec := testContext(http.MethodGet, "/exams?page=2&pageSize=5", "")
	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 2, envelope.Pagination.Page)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestExamHandlerAnnounce(t *testing.T) {
	fake := &fakeExamService{}
	handler := NewExamHandler(fake)

	c, rec := testContext(http.MethodPost, "/exams/e-1/announcements", `{"title":"Heads up","message":"Ten minutes left"}`)
	c.Params = gin.Params{{Key: "id", Value: "e-1"}}
	handler.Announce(c)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "Heads up", fake.lastAnnouncement.Title)
}
