package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/internal/service"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type submissionService interface {
	Begin(ctx context.Context, claims *models.JWTClaims, examID string) (*models.StudentExam, error)
	Get(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error)
	Pause(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error)
	Resume(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error)
	AdjustTime(ctx context.Context, claims *models.JWTClaims, examID, submissionID string, deltaMinutes int) (*models.StudentExam, error)
	SubmitAnswer(ctx context.Context, claims *models.JWTClaims, examID, submissionID string, req service.SubmitAnswerRequest) (*models.SubmissionAnswer, error)
	Finalize(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error)
	OverrideAnswerScore(ctx context.Context, claims *models.JWTClaims, examID, submissionID, questionID string, score float64) (*models.StudentExam, error)
	EndAll(ctx context.Context, claims *models.JWTClaims, examID string) (int, error)
}

// SubmissionHandler exposes the timed attempt lifecycle endpoints.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs the handler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Begin godoc
// @Summary Begin the student's attempt against a published exam
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 201 {object} response.Envelope
// @Router /exams/{id}/submissions [post]
func (h *SubmissionHandler) Begin(c *gin.Context) {
	sub, err := h.submissions.Begin(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sub)
}

// Get godoc
// @Summary Get one submission with its answers
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	sub, err := h.submissions.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Pause godoc
// @Summary Pause an in-progress submission
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/pause [post]
func (h *SubmissionHandler) Pause(c *gin.Context) {
	sub, err := h.submissions.Pause(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Resume godoc
// @Summary Resume a paused submission, handing the paused interval back
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/resume [post]
func (h *SubmissionHandler) Resume(c *gin.Context) {
	sub, err := h.submissions.Resume(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

type adjustTimeRequest struct {
	DeltaMinutes int `json:"delta_minutes" binding:"required"`
}

// AdjustTime godoc
// @Summary Move one active submission's deadline
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body adjustTimeRequest true "Delta payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/time [patch]
func (h *SubmissionHandler) AdjustTime(c *gin.Context) {
	var req adjustTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.submissions.AdjustTime(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"), req.DeltaMinutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// SubmitAnswer godoc
// @Summary Store one answer of an in-progress submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Param payload body service.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/answers [put]
func (h *SubmissionHandler) SubmitAnswer(c *gin.Context) {
	var req service.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	ans, err := h.submissions.SubmitAnswer(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ans, nil)
}

// Finalize godoc
// @Summary Finalize a submission, marking it and posting the score
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/finalize [post]
func (h *SubmissionHandler) Finalize(c *gin.Context) {
	sub, err := h.submissions.Finalize(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

type overrideScoreRequest struct {
	Score float64 `json:"score"`
}

// OverrideAnswerScore godoc
// @Summary Mark a theory answer or correct an auto-marked one
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Exam ID"
// @Param submissionId path string true "Submission ID"
// @Param questionId path string true "Question ID"
// @Param payload body overrideScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/submissions/{submissionId}/answers/{questionId}/score [post]
func (h *SubmissionHandler) OverrideAnswerScore(c *gin.Context) {
	var req overrideScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sub, err := h.submissions.OverrideAnswerScore(c.Request.Context(), claimsFromContext(c), c.Param("id"), c.Param("submissionId"), c.Param("questionId"), req.Score)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// EndAll godoc
// @Summary Force-finalize every active submission of an exam
// @Tags Submissions
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} response.Envelope
// @Router /exams/{id}/end [post]
func (h *SubmissionHandler) EndAll(c *gin.Context) {
	ended, err := h.submissions.EndAll(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"ended_count": ended}, nil)
}
