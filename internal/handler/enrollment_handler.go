package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/klasnova/klasnova-api/internal/models"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
	"github.com/klasnova/klasnova-api/pkg/response"
)

type enrollmentService interface {
	EnqueueOCR(claims *models.JWTClaims, classroomID string, image []byte) (string, error)
}

// maxScanBytes caps uploaded class-list scans at 10 MiB.
const maxScanBytes = 10 << 20

// EnrollmentHandler accepts scanned class lists for OCR-based enrollment.
type EnrollmentHandler struct {
	enrollment enrollmentService
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollment enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollment: enrollment}
}

// UploadScan godoc
// @Summary Queue a scanned class list for OCR enrollment
// @Tags Enrollment
// @Accept multipart/form-data
// @Produce json
// @Param classroom_id formData string true "Classroom ID"
// @Param image formData file true "Scanned class list"
// @Success 202 {object} response.Envelope
// @Router /enrollment/ocr [post]
func (h *EnrollmentHandler) UploadScan(c *gin.Context) {
	classroomID := c.PostForm("classroom_id")
	fileHeader, err := c.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image file is required"))
		return
	}
	if fileHeader.Size > maxScanBytes {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image exceeds the 10 MiB limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxScanBytes))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}

	jobID, err := h.enrollment.EnqueueOCR(claimsFromContext(c), classroomID, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, gin.H{"job_id": jobID, "status": "queued"})
}
