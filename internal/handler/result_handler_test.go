package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klasnova/klasnova-api/internal/grading"
	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/service"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type fakeResultService struct {
	scale       *grading.Scale
	result      *models.Result
	summary     *models.ResultSummary
	bulkSummary service.BulkResultSummary
	created     bool
	err         error
	lastUpdate  service.SubjectScoreUpdate
	lastBulk    []service.SubjectScoreUpdate
	lastFilter  models.ResultFilter
}

func (f *fakeResultService) UpdateOrCreateResult(_ context.Context, update service.SubjectScoreUpdate) (bool, error) {
	f.lastUpdate = update
	return f.created, f.err
}

func (f *fakeResultService) BulkUpdateOrCreateResults(_ context.Context, updates []service.SubjectScoreUpdate) service.BulkResultSummary {
	f.lastBulk = updates
	return f.bulkSummary
}

func (f *fakeResultService) ProcessResultData(data service.RawResultData) service.ProcessedResult {
	return service.ProcessedResult{StudentID: data.StudentID}
}

func (f *fakeResultService) ValidateResultData(service.RawResultData) []string {
	return []string{"Student is required"}
}

func (f *fakeResultService) GetStudentResult(context.Context, *models.JWTClaims, string, string, int) (*models.Result, error) {
	return f.result, f.err
}

func (f *fakeResultService) GenerateResultSummary(_ context.Context, filter models.ResultFilter) (*models.ResultSummary, error) {
	f.lastFilter = filter
	return f.summary, f.err
}

func (f *fakeResultService) Scale() *grading.Scale {
	if f.scale == nil {
		f.scale = grading.NewScale(nil)
	}
	return f.scale
}

type fakeResultExporter struct {
	payload  []byte
	filename string
	err      error
}

func (f *fakeResultExporter) StudentResultPDF(context.Context, *models.JWTClaims, string, string, int) ([]byte, string, error) {
	return f.payload, f.filename, f.err
}

func (f *fakeResultExporter) ClassSummaryPDF(context.Context, models.ResultFilter) ([]byte, string, error) {
	return f.payload, f.filename, f.err
}

func TestResultHandlerUpsertStampsActor(t *testing.T) {
	fake := &fakeResultService{created: true}
	handler := NewResultHandler(fake, &fakeResultExporter{})

	c, rec := testContext(http.MethodPost, "/results", `{"student_id":"st-1","school_id":"other","classroom_id":"c-1","academic_session":"2025/2026","term":1,"subject_id":"sub-1","exam_score":40,"max_exam_score":60}`)
	handler.Upsert(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	// The actor's identity and school override whatever the payload carried.
	assert.Equal(t, "u-1", fake.lastUpdate.RecordedBy)
	assert.Equal(t, "s-1", fake.lastUpdate.SchoolID)
}

func TestResultHandlerBulk(t *testing.T) {
	fake := &fakeResultService{bulkSummary: service.BulkResultSummary{UpsertedCount: 2, Errors: []service.BulkResultError{}}}
	handler := NewResultHandler(fake, &fakeResultExporter{})

	c, rec := testContext(http.MethodPost, "/results/bulk", `[{"student_id":"st-1","classroom_id":"c-1","academic_session":"2025/2026","term":1,"subject_id":"sub-1","exam_score":40,"max_exam_score":60}]`)
	handler.Bulk(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.lastBulk, 1)
	assert.Equal(t, "s-1", fake.lastBulk[0].SchoolID)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	data := envelope.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["upserted_count"])
}

func TestResultHandlerSummaryParsesQuery(t *testing.T) {
	fake := &fakeResultService{summary: &models.ResultSummary{StudentCount: 4}}
	handler := NewResultHandler(fake, &fakeResultExporter{})

	c, rec := testContext(http.MethodGet, "/results/summary?classroomId=c-1&session=2025/2026&term=2", "")
	handler.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "c-1", fake.lastFilter.ClassroomID)
	assert.Equal(t, "2025/2026", fake.lastFilter.AcademicSession)
	assert.Equal(t, 2, fake.lastFilter.Term)
}

func TestResultHandlerStudentPDF(t *testing.T) {
	handler := NewResultHandler(&fakeResultService{}, &fakeResultExporter{payload: []byte("%PDF-1.4"), filename: "result.pdf"})

	c, rec := testContext(http.MethodGet, "/results/students/st-1/pdf?session=2025/2026&term=1", "")
	c.Params = gin.Params{{Key: "id", Value: "st-1"}}
	handler.StudentPDF(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "result.pdf")
}

func TestResultHandlerGradeScaleRejectsSilently(t *testing.T) {
	fake := &fakeResultService{}
	handler := NewResultHandler(fake, &fakeResultExporter{})

	// Overlapping bands are rejected as a whole; the default scale stays.
	c, rec := testContext(http.MethodPut, "/results/grade-scale", `[{"min":0,"max":60,"code":"P","label":"Pass"},{"min":50,"max":100,"code":"D","label":"Distinction"}]`)
	handler.SetGradeScale(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	bands := envelope.Data.([]interface{})
	assert.Len(t, bands, 9)

	c, rec = testContext(http.MethodPut, "/results/grade-scale", `[{"min":50,"max":100,"code":"D","label":"Distinction"},{"min":0,"max":49,"code":"P","label":"Pass"}]`)
	handler.SetGradeScale(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	bands = envelope.Data.([]interface{})
	assert.Len(t, bands, 2)
}
