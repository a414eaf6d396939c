package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/grading"
	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/service"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type resultService interface {
	UpdateOrCreateResult(ctx context.Context, update service.SubjectScoreUpdate) (bool, error)
	BulkUpdateOrCreateResults(ctx context.Context, updates []service.SubjectScoreUpdate) service.BulkResultSummary
	ProcessResultData(data service.RawResultData) service.ProcessedResult
	ValidateResultData(data service.RawResultData) []string
	GetStudentResult(ctx context.Context, claims *models.JWTClaims, studentID, session string, term int) (*models.Result, error)
	GenerateResultSummary(ctx context.Context, filter models.ResultFilter) (*models.ResultSummary, error)
	Scale() *grading.Scale
}

type resultExporter interface {
	StudentResultPDF(ctx context.Context, claims *models.JWTClaims, studentID, session string, term int) ([]byte, string, error)
	ClassSummaryPDF(ctx context.Context, filter models.ResultFilter) ([]byte, string, error)
}

// ResultHandler exposes the result aggregation endpoints.
type ResultHandler struct {
	results  resultService
	exporter resultExporter
}

// NewResultHandler constructs the handler.
func NewResultHandler(results resultService, exporter resultExporter) *ResultHandler {
	return &ResultHandler{results: results, exporter: exporter}
}

func termQuery(c *gin.Context) int {
	term, _ := strconv.Atoi(c.Query("term"))
	return term
}

// Upsert godoc
// @Summary Post one subject score into a student's result document
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.SubjectScoreUpdate true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Upsert(c *gin.Context) {
	var update service.SubjectScoreUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		update.RecordedBy = claims.UserID
		if claims.Role != models.RoleGlobalSuperAdmin {
			update.SchoolID = claims.SchoolID
		}
	}
	created, err := h.results.UpdateOrCreateResult(c.Request.Context(), update)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.JSON(c, status, gin.H{"created": created}, nil)
}

// Bulk godoc
// @Summary Post a batch of subject scores
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body []service.SubjectScoreUpdate true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /results/bulk [post]
func (h *ResultHandler) Bulk(c *gin.Context) {
	var updates []service.SubjectScoreUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if claims := claimsFromContext(c); claims != nil {
		for i := range updates {
			updates[i].RecordedBy = claims.UserID
			if claims.Role != models.RoleGlobalSuperAdmin {
				updates[i].SchoolID = claims.SchoolID
			}
		}
	}
	summary := h.results.BulkUpdateOrCreateResults(c.Request.Context(), updates)
	response.JSON(c, http.StatusOK, summary, nil)
}

// Process godoc
// @Summary Compute totals and grades from raw CA and exam entries
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.RawResultData true "Raw entries"
// @Success 200 {object} response.Envelope
// @Router /results/process [post]
func (h *ResultHandler) Process(c *gin.Context) {
	var data service.RawResultData
	if err := c.ShouldBindJSON(&data); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	response.JSON(c, http.StatusOK, h.results.ProcessResultData(data), nil)
}

// Validate godoc
// @Summary Validate raw result entries without storing them
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body service.RawResultData true "Raw entries"
// @Success 200 {object} response.Envelope
// @Router /results/validate [post]
func (h *ResultHandler) Validate(c *gin.Context) {
	var data service.RawResultData
	if err := c.ShouldBindJSON(&data); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	messages := h.results.ValidateResultData(data)
	response.JSON(c, http.StatusOK, gin.H{"valid": len(messages) == 0, "messages": messages}, nil)
}

// Student godoc
// @Summary Get one student's result for a session and term
// @Tags Results
// @Produce json
// @Param id path string true "Student ID"
// @Param session query string true "Academic session (YYYY/YYYY)"
// @Param term query int true "Term (1-3)"
// @Success 200 {object} response.Envelope
// @Router /results/students/{id} [get]
func (h *ResultHandler) Student(c *gin.Context) {
	result, err := h.results.GetStudentResult(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Query("session"), termQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// StudentPDF godoc
// @Summary Download one student's result sheet as PDF
// @Tags Results
// @Produce application/pdf
// @Param id path string true "Student ID"
// @Param session query string true "Academic session (YYYY/YYYY)"
// @Param term query int true "Term (1-3)"
// @Success 200 {file} binary
// @Router /results/students/{id}/pdf [get]
func (h *ResultHandler) StudentPDF(c *gin.Context) {
	payload, filename, err := h.exporter.StudentResultPDF(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Query("session"), termQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// Summary godoc
// @Summary Class-level result aggregation
// @Tags Results
// @Produce json
// @Param classroomId query string true "Classroom ID"
// @Param session query string true "Academic session (YYYY/YYYY)"
// @Param term query int true "Term (1-3)"
// @Success 200 {object} response.Envelope
// @Router /results/summary [get]
func (h *ResultHandler) Summary(c *gin.Context) {
	summary, err := h.results.GenerateResultSummary(c.Request.Context(), models.ResultFilter{
		ClassroomID:     c.Query("classroomId"),
		AcademicSession: c.Query("session"),
		Term:            termQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// SummaryPDF godoc
// @Summary Download the class summary as PDF
// @Tags Results
// @Produce application/pdf
// @Param classroomId query string true "Classroom ID"
// @Param session query string true "Academic session (YYYY/YYYY)"
// @Param term query int true "Term (1-3)"
// @Success 200 {file} binary
// @Router /results/summary/pdf [get]
func (h *ResultHandler) SummaryPDF(c *gin.Context) {
	payload, filename, err := h.exporter.ClassSummaryPDF(c.Request.Context(), models.ResultFilter{
		ClassroomID:     c.Query("classroomId"),
		AcademicSession: c.Query("session"),
		Term:            termQuery(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", payload)
}

// GradeScale godoc
// @Summary Current grade band configuration
// @Tags Results
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /results/grade-scale [get]
func (h *ResultHandler) GradeScale(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.results.Scale().Bands(), nil)
}

// SetGradeScale godoc
// @Summary Replace the grade band configuration
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body []grading.Band true "Band list"
// @Success 200 {object} response.Envelope
// @Router /results/grade-scale [put]
func (h *ResultHandler) SetGradeScale(c *gin.Context) {
	var bands []grading.Band
	if err := c.ShouldBindJSON(&bands); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	scale := h.results.Scale()
	scale.Set(bands)
	// A malformed band list is rejected silently and the previous scale
	// stays active; the response always carries the effective bands.
	response.JSON(c, http.StatusOK, scale.Bands(), nil)
}
