package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/service"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type examService interface {
	Create(ctx context.Context, claims *models.JWTClaims, req service.CreateExamRequest) (*models.Exam, error)
	Get(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.ExamFilter) ([]models.Exam, int, error)
	AddQuestion(ctx context.Context, claims *models.JWTClaims, examID string, req service.AddQuestionRequest) (*models.Question, error)
	RemoveQuestion(ctx context.Context, claims *models.JWTClaims, examID, questionID string) error
	Publish(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error)
	Unpublish(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error)
	AddInvigilator(ctx context.Context, claims *models.JWTClaims, examID, userID string) (*models.ExamInvigilator, error)
	RemoveInvigilator(ctx context.Context, claims *models.JWTClaims, examID, userID string) error
	Announce(ctx context.Context, claims *models.JWTClaims, examID string, req service.AnnouncementRequest) error
}

// ExamHandler exposes exam authoring and lifecycle endpoints.
type ExamHandler struct {
	exams examService
}

// NewExamHandler constructs the handler.
func NewExamHandler(exams examService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// Create godoc
// @Summary Create a draft exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body service.CreateExamRequest true "Exam payload"
// @Success 201 {object} response.Envelope
// @Router /exams [post]
func (h *ExamHandler) Create(c *gin.Context) {
	var req service.CreateExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exam, err := h.exams.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exam)
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Param classroomId query string false "Filter by classroom"
// @Param subjectId query string false "Filter by subject"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	filter := models.ExamFilter{
		ClassroomID: c.Query("classroomId"),
		SubjectID:   c.Query("subjectId"),
		Status:      models.ExamStatus(c.Query("status")),
		Page:        page,
		PageSize:    pageSize,
	}
	exams, total, err := h.exams.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total})
}

// Get godoc
// @Summary Get one exam with its questions
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, err := h.exams.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// AddQuestion godoc
// @Summary Append a question to a draft exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.AddQuestionRequest true "Question payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/questions [post]
func (h *ExamHandler) AddQuestion(c *gin.Context) {
	var req service.AddQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	question, err := h.exams.AddQuestion(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, question)
}

// RemoveQuestion godoc
// @Summary Remove a question from an exam
// @Tags Exams
// @Param id path string true "Exam ID"
// @Param questionId path string true "Question ID"
// @Success 204
// @Router /exams/{id}/questions/{questionId} [delete]
func (h *ExamHandler) RemoveQuestion(c *gin.Context) {
	if err := h.exams.RemoveQuestion(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("questionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Publish godoc
// @Summary Publish a draft exam
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/publish [post]
func (h *ExamHandler) Publish(c *gin.Context) {
	exam, err := h.exams.Publish(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

// Unpublish godoc
// @Summary Move a published exam back to draft
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/unpublish [post]
func (h *ExamHandler) Unpublish(c *gin.Context) {
	exam, err := h.exams.Unpublish(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exam, nil)
}

type invigilatorRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// AddInvigilator godoc
// @Summary Grant exam-scoped moderation rights
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body invigilatorRequest true "User payload"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/invigilators [post]
func (h *ExamHandler) AddInvigilator(c *gin.Context) {
	var req invigilatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	inv, err := h.exams.AddInvigilator(c.Request.Context(), claimsFromContext(c), c.Param("id"), req.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, inv)
}

// RemoveInvigilator godoc
// @Summary Revoke exam-scoped moderation rights
// @Tags Exams
// @Param id path string true "Exam ID"
// @Param userId path string true "User ID"
// @Success 204
// @Router /exams/{id}/invigilators/{userId} [delete]
func (h *ExamHandler) RemoveInvigilator(c *gin.Context) {
	if err := h.exams.RemoveInvigilator(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("userId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Announce godoc
// @Summary Broadcast a message to everyone sitting the exam
// @Tags Exams
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param payload body service.AnnouncementRequest true "Announcement payload"
// @Success 202 {object} response.Envelope
// @Router /exams/{id}/announcements [post]
func (h *ExamHandler) Announce(c *gin.Context) {
	var req service.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.exams.Announce(c.Request.Context(), claimsFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"status": "announced"})
}
