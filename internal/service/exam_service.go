package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/broker"
	"github.com/klasnova/klasnova-api/pkg/database"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

type examRepo interface {
	Create(ctx context.Context, exam *models.Exam) error
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error)
	UpdateStatus(ctx context.Context, id string, status models.ExamStatus) error
	InsertQuestion(ctx context.Context, q sqlx.ExtContext, question *models.Question) error
	DeleteQuestion(ctx context.Context, q sqlx.ExtContext, examID, questionID string) (bool, error)
	RecomputeTotalMarks(ctx context.Context, q sqlx.ExtContext, examID string) (float64, error)
	ListQuestions(ctx context.Context, examID string) ([]models.Question, error)
	CountQuestions(ctx context.Context, examID string) (int, error)
	HasSubmissions(ctx context.Context, examID string) (bool, error)
	AddInvigilator(ctx context.Context, inv *models.ExamInvigilator) error
	RemoveInvigilator(ctx context.Context, examID, userID string) error
	IsInvigilator(ctx context.Context, examID, userID string) (bool, error)
}

type eventPublisher interface {
	Publish(event broker.Event) error
}

// CreateExamRequest describes a draft exam.
type CreateExamRequest struct {
	SchoolID        string `json:"school_id"`
	ClassroomID     string `json:"classroom_id" validate:"required"`
	SubjectID       string `json:"subject_id" validate:"required"`
	Title           string `json:"title" validate:"required"`
	AcademicSession string `json:"academic_session" validate:"required"`
	Term            int    `json:"term" validate:"required,min=1,max=3"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,min=1"`
	MaxPauses       int    `json:"max_pauses" validate:"min=0"`
}

// AddQuestionRequest describes one question to append to an exam.
type AddQuestionRequest struct {
	Type          string   `json:"type" validate:"required,oneof=objective theory"`
	Prompt        string   `json:"prompt" validate:"required"`
	Options       []string `json:"options,omitempty"`
	CorrectOption *int     `json:"correct_option,omitempty"`
	Marks         float64  `json:"marks" validate:"required,gt=0"`
}

// AnnouncementRequest is a broadcast to everyone sitting an exam.
type AnnouncementRequest struct {
	Title   string `json:"title" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ExamService owns exam authoring and the draft/published side of the exam
// lifecycle. Question writes and the total-marks recompute share one
// transaction so the derived sum can never drift from the question set.
type ExamService struct {
	db        *sqlx.DB
	exams     examRepo
	guard     *AccessGuard
	events    eventPublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs ExamService.
func NewExamService(db *sqlx.DB, exams examRepo, guard *AccessGuard, events eventPublisher, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if guard == nil {
		guard = NewAccessGuard()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExamService{db: db, exams: exams, guard: guard, events: events, metrics: metrics, validator: validate, logger: logger}
}

// withTx runs fn transactionally when a database handle is present; unit
// tests construct the service without one and run against the bare repos.
func (s *ExamService) withTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	if s.db != nil {
		return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error { return fn(tx) })
	}
	return fn(nil)
}

func (s *ExamService) publishEvent(eventType string, exam *models.Exam, payload interface{}) {
	if s.events == nil {
		return
	}
	err := s.events.Publish(broker.Event{
		Type:      eventType,
		ExamID:    exam.ID,
		SchoolID:  exam.SchoolID,
		Classroom: exam.ClassroomID,
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("event publish failed", zap.String("type", eventType), zap.String("exam_id", exam.ID), zap.Error(err))
		return
	}
	s.metrics.RecordExamEvent(eventType)
}

// loadExam parses the identifier, loads the exam and applies the tenancy
// check, in that order, so malformed ids and cross-school access never reach
// deeper storage.
func (s *ExamService) loadExam(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error) {
	examID, err := parseID("exam", examID)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	if err := s.guard.CheckSchool(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	return exam, nil
}

// canModerate allows school staff plus enrolled invigilators of this exam.
func (s *ExamService) canModerate(ctx context.Context, claims *models.JWTClaims, exam *models.Exam) error {
	if err := s.guard.CheckRole(claims, models.RoleSchoolAdmin, models.RoleTeacher); err == nil {
		return s.guard.CheckSchool(claims, exam.SchoolID)
	}
	ok, invErr := s.exams.IsInvigilator(ctx, exam.ID, claims.UserID)
	if invErr != nil {
		return appErrors.Wrap(invErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check invigilator")
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "invigilator rights required")
	}
	return s.guard.CheckSchool(claims, exam.SchoolID)
}

// Create registers a draft exam owned by the actor's school.
func (s *ExamService) Create(ctx context.Context, claims *models.JWTClaims, req CreateExamRequest) (*models.Exam, error) {
	if err := s.guard.CheckRole(claims, models.RoleSchoolAdmin, models.RoleTeacher); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid exam payload")
	}
	classroomID, err := parseID("classroom", req.ClassroomID)
	if err != nil {
		return nil, err
	}
	subjectID, err := parseID("subject", req.SubjectID)
	if err != nil {
		return nil, err
	}
	if !sessionFormat.MatchString(req.AcademicSession) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid session format. Use YYYY/YYYY")
	}

	schoolID := claims.SchoolID
	if claims.Role == models.RoleGlobalSuperAdmin {
		if req.SchoolID == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "school_id is required for global administrators")
		}
		schoolID = req.SchoolID
	}

	exam := &models.Exam{
		SchoolID:        schoolID,
		ClassroomID:     classroomID,
		SubjectID:       subjectID,
		Title:           req.Title,
		AcademicSession: req.AcademicSession,
		Term:            req.Term,
		Status:          models.ExamStatusDraft,
		DurationMinutes: req.DurationMinutes,
		MaxPauses:       req.MaxPauses,
		CreatedBy:       claims.UserID,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	return exam, nil
}

// Get returns one exam with its questions.
func (s *ExamService) Get(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	questions, err := s.exams.ListQuestions(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	exam.Questions = questions
	return exam, nil
}

// List returns exams in the actor's school matching the filter.
func (s *ExamService) List(ctx context.Context, claims *models.JWTClaims, filter models.ExamFilter) ([]models.Exam, int, error) {
	if claims.Role != models.RoleGlobalSuperAdmin {
		filter.SchoolID = claims.SchoolID
	}
	exams, total, err := s.exams.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, total, nil
}

// AddQuestion appends one question, rejecting option payloads on theory
// questions, and recomputes the exam total inside the same transaction.
func (s *ExamService) AddQuestion(ctx context.Context, claims *models.JWTClaims, examID string, req AddQuestionRequest) (*models.Question, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid question payload")
	}

	question := &models.Question{
		ExamID: exam.ID,
		Type:   models.QuestionType(req.Type),
		Prompt: req.Prompt,
		Marks:  req.Marks,
	}
	switch question.Type {
	case models.QuestionTypeObjective:
		if len(req.Options) < 2 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "objective questions need at least two options")
		}
		if req.CorrectOption == nil || *req.CorrectOption < 0 || *req.CorrectOption >= len(req.Options) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "correct_option must reference one of the options")
		}
		question.Options = models.OptionList(req.Options)
		question.CorrectOption = req.CorrectOption
	case models.QuestionTypeTheory:
		if len(req.Options) > 0 || req.CorrectOption != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "theory questions cannot carry options")
		}
	}

	count, err := s.exams.CountQuestions(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count questions")
	}
	question.Position = count + 1

	err = s.withTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.exams.InsertQuestion(ctx, q, question); err != nil {
			return err
		}
		total, err := s.exams.RecomputeTotalMarks(ctx, q, exam.ID)
		if err != nil {
			return err
		}
		exam.TotalMarks = total
		return nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add question")
	}
	return question, nil
}

// RemoveQuestion deletes one question and recomputes the total in the same
// transaction.
func (s *ExamService) RemoveQuestion(ctx context.Context, claims *models.JWTClaims, examID, questionID string) error {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return err
	}
	questionID, err = parseID("question", questionID)
	if err != nil {
		return err
	}

	err = s.withTx(ctx, func(q sqlx.ExtContext) error {
		removed, err := s.exams.DeleteQuestion(ctx, q, exam.ID, questionID)
		if err != nil {
			return err
		}
		if !removed {
			return appErrors.Clone(appErrors.ErrNotFound, "question not found")
		}
		_, err = s.exams.RecomputeTotalMarks(ctx, q, exam.ID)
		return err
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove question")
	}
	return nil
}

// Publish moves a draft exam with at least one question to published.
func (s *ExamService) Publish(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only a draft exam can be published")
	}
	count, err := s.exams.CountQuestions(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count questions")
	}
	if count == 0 {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "an exam needs at least one question before publishing")
	}
	if err := s.exams.UpdateStatus(ctx, exam.ID, models.ExamStatusPublished); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish exam")
	}
	exam.Status = models.ExamStatusPublished
	s.publishEvent("exam.published", exam, nil)
	return exam, nil
}

// Unpublish moves a published exam back to draft while no submissions exist.
func (s *ExamService) Unpublish(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only a published exam can be unpublished")
	}
	has, err := s.exams.HasSubmissions(ctx, exam.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check submissions")
	}
	if has {
		return nil, appErrors.Clone(appErrors.ErrConflict, "exam already has submissions")
	}
	if err := s.exams.UpdateStatus(ctx, exam.ID, models.ExamStatusDraft); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unpublish exam")
	}
	exam.Status = models.ExamStatusDraft
	return exam, nil
}

// AddInvigilator grants exam-scoped moderation rights to one user.
func (s *ExamService) AddInvigilator(ctx context.Context, claims *models.JWTClaims, examID, userID string) (*models.ExamInvigilator, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	userID, err = parseID("user", userID)
	if err != nil {
		return nil, err
	}
	inv := &models.ExamInvigilator{ExamID: exam.ID, UserID: userID, AddedBy: claims.UserID}
	if err := s.exams.AddInvigilator(ctx, inv); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add invigilator")
	}
	return inv, nil
}

// RemoveInvigilator revokes exam-scoped moderation rights.
func (s *ExamService) RemoveInvigilator(ctx context.Context, claims *models.JWTClaims, examID, userID string) error {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return err
	}
	userID, err = parseID("user", userID)
	if err != nil {
		return err
	}
	if err := s.exams.RemoveInvigilator(ctx, exam.ID, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove invigilator")
	}
	return nil
}

// Announce broadcasts a message to everyone sitting the exam via the push
// channel. Staff and enrolled invigilators may announce.
func (s *ExamService) Announce(ctx context.Context, claims *models.JWTClaims, examID string, req AnnouncementRequest) error {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return err
	}
	if err := s.canModerate(ctx, claims, exam); err != nil {
		return err
	}
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	s.publishEvent("exam.announcement", exam, map[string]string{
		"title":   req.Title,
		"message": req.Message,
		"sent_by": claims.UserID,
	})
	return nil
}
