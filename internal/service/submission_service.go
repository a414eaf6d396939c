package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/broker"
	"github.com/klasnova/klasnova-api/pkg/database"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

type submissionExamReader interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	ListQuestions(ctx context.Context, examID string) ([]models.Question, error)
	IsInvigilator(ctx context.Context, examID, userID string) (bool, error)
}

type submissionRepo interface {
	Create(ctx context.Context, sub *models.StudentExam) error
	FindByID(ctx context.Context, id string) (*models.StudentExam, error)
	FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.StudentExam, error)
	ListActiveByExam(ctx context.Context, examID string) ([]models.StudentExam, error)
	UpdateLifecycle(ctx context.Context, q sqlx.ExtContext, sub *models.StudentExam) error
	UpsertAnswer(ctx context.Context, ans *models.SubmissionAnswer) error
	ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error)
	UpdateAnswerScore(ctx context.Context, q sqlx.ExtContext, submissionID, questionID string, score float64) error
}

// SubmitAnswerRequest records one answer to one question.
type SubmitAnswerRequest struct {
	QuestionID     string  `json:"question_id" validate:"required"`
	SelectedOption *int    `json:"selected_option,omitempty"`
	AnswerText     *string `json:"answer_text,omitempty"`
}

// SubmissionService runs the timed attempt lifecycle: begin, pause, resume,
// answer, finalize. All timing decisions compare stored timestamps against
// the server clock at the moment of the call; there is no background timer,
// so an expired attempt is caught on its next write.
type SubmissionService struct {
	db          *sqlx.DB
	exams       submissionExamReader
	submissions submissionRepo
	results     *ResultService
	guard       *AccessGuard
	events      eventPublisher
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(db *sqlx.DB, exams submissionExamReader, submissions submissionRepo, results *ResultService, guard *AccessGuard, events eventPublisher, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if guard == nil {
		guard = NewAccessGuard()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		db:          db,
		exams:       exams,
		submissions: submissions,
		results:     results,
		guard:       guard,
		events:      events,
		metrics:     metrics,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// withTx runs fn transactionally when a database handle is present; unit
// tests construct the service without one and run against the bare repos.
func (s *SubmissionService) withTx(ctx context.Context, fn func(q sqlx.ExtContext) error) error {
	if s.db != nil {
		return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error { return fn(tx) })
	}
	return fn(nil)
}

func (s *SubmissionService) publishEvent(eventType string, exam *models.Exam, payload interface{}) {
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

func (s *SubmissionService) loadExam(ctx context.Context, claims *models.JWTClaims, examID string) (*models.Exam, error) {
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

func (s *SubmissionService) loadSubmission(ctx context.Context, exam *models.Exam, submissionID string) (*models.StudentExam, error) {
	submissionID, err := parseID("submission", submissionID)
	if err != nil {
		return nil, err
	}
	sub, err := s.submissions.FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if sub.ExamID != exam.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
	}
	return sub, nil
}

// canModerate allows school staff plus enrolled invigilators of this exam.
func (s *SubmissionService) canModerate(ctx context.Context, claims *models.JWTClaims, exam *models.Exam) error {
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

func (s *SubmissionService) ensureOwner(claims *models.JWTClaims, sub *models.StudentExam) error {
	if claims.Role != models.RoleStudent || claims.UserID != sub.StudentID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the owning student may do this")
	}
	return nil
}

// ensureOwnerOrModerator admits the owning student and exam moderators.
func (s *SubmissionService) ensureOwnerOrModerator(ctx context.Context, claims *models.JWTClaims, exam *models.Exam, sub *models.StudentExam) error {
	if claims.Role == models.RoleStudent && claims.UserID == sub.StudentID {
		return nil
	}
	return s.canModerate(ctx, claims, exam)
}

// Begin starts the student's attempt. The answering window is fixed at the
// moment of the call: ends_at = now + the exam's duration.
func (s *SubmissionService) Begin(ctx context.Context, claims *models.JWTClaims, examID string) (*models.StudentExam, error) {
	if err := s.guard.CheckRole(claims, models.RoleStudent); err != nil {
		return nil, err
	}
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if exam.Status != models.ExamStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "exam is not open for submissions")
	}

	existing, err := s.submissions.FindByExamAndStudent(ctx, exam.ID, claims.UserID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}
	if existing != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "exam already begun")
	}

	now := s.now()
	endsAt := now.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	sub := &models.StudentExam{
		ExamID:    exam.ID,
		StudentID: claims.UserID,
		SchoolID:  exam.SchoolID,
		Status:    models.SubmissionStatusInProgress,
		StartedAt: &now,
		EndsAt:    &endsAt,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin exam")
	}
	s.publishEvent("exam.started", exam, map[string]string{"student_id": sub.StudentID, "submission_id": sub.ID})
	return sub, nil
}

// Pause freezes the clock for one in-progress submission, charging one unit
// of the exam's pause budget.
func (s *SubmissionService) Pause(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnerOrModerator(ctx, claims, exam, sub); err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only an in-progress submission can be paused")
	}
	now := s.now()
	if sub.Expired(now) {
		return nil, appErrors.Clone(appErrors.ErrExpired, "the answering window has ended")
	}
	if sub.PausesUsed >= exam.MaxPauses {
		return nil, appErrors.Clone(appErrors.ErrPauseBudget, "pause budget exhausted")
	}

	sub.Status = models.SubmissionStatusPaused
	sub.PausedAt = &now
	sub.PausesUsed++
	if err := s.submissions.UpdateLifecycle(ctx, nil, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to pause submission")
	}
	s.publishEvent("exam.paused", exam, map[string]interface{}{"student_id": sub.StudentID, "submission_id": sub.ID, "pauses_used": sub.PausesUsed})
	return sub, nil
}

// Resume restarts the clock. The paused interval is handed back: ends_at
// shifts forward by exactly the time spent paused.
func (s *SubmissionService) Resume(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnerOrModerator(ctx, claims, exam, sub); err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusPaused || sub.PausedAt == nil {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only a paused submission can be resumed")
	}

	now := s.now()
	if sub.EndsAt != nil {
		shifted := sub.EndsAt.Add(now.Sub(*sub.PausedAt))
		sub.EndsAt = &shifted
	}
	sub.Status = models.SubmissionStatusInProgress
	sub.PausedAt = nil
	if err := s.submissions.UpdateLifecycle(ctx, nil, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resume submission")
	}
	s.publishEvent("exam.resumed", exam, map[string]string{"student_id": sub.StudentID, "submission_id": sub.ID})
	return sub, nil
}

// AdjustTime moves one active submission's deadline by deltaMinutes. Only
// moderators may adjust, and the new deadline must still lie in the future.
func (s *SubmissionService) AdjustTime(ctx context.Context, claims *models.JWTClaims, examID, submissionID string, deltaMinutes int) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.canModerate(ctx, claims, exam); err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.Active() || sub.EndsAt == nil {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only an active submission can be adjusted")
	}
	if deltaMinutes == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "delta_minutes must be non-zero")
	}

	now := s.now()
	adjusted := sub.EndsAt.Add(time.Duration(deltaMinutes) * time.Minute)
	if !adjusted.After(now) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "adjusted end time must be in the future")
	}
	sub.EndsAt = &adjusted
	if err := s.submissions.UpdateLifecycle(ctx, nil, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust submission")
	}
	s.publishEvent("exam.time_adjusted", exam, map[string]interface{}{
		"student_id":    sub.StudentID,
		"submission_id": sub.ID,
		"delta_minutes": deltaMinutes,
		"ends_at":       adjusted,
	})
	return sub, nil
}

// SubmitAnswer stores one answer. The window is checked server-side on every
// write; an answer landing after ends_at is rejected regardless of what the
// client clock showed.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, claims *models.JWTClaims, examID, submissionID string, req SubmitAnswerRequest) (*models.SubmissionAnswer, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwner(claims, sub); err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "submission is not accepting answers")
	}
	now := s.now()
	if sub.Expired(now) {
		return nil, appErrors.Clone(appErrors.ErrExpired, "the answering window has ended")
	}

	questionID, err := parseID("question", req.QuestionID)
	if err != nil {
		return nil, err
	}
	question, err := s.findQuestion(ctx, exam.ID, questionID)
	if err != nil {
		return nil, err
	}

	ans := &models.SubmissionAnswer{SubmissionID: sub.ID, QuestionID: question.ID}
	switch question.Type {
	case models.QuestionTypeObjective:
		if req.SelectedOption == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected_option is required for objective questions")
		}
		if *req.SelectedOption < 0 || *req.SelectedOption >= len(question.Options) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "selected_option is out of range")
		}
		ans.SelectedOption = req.SelectedOption
	case models.QuestionTypeTheory:
		if req.AnswerText == nil || *req.AnswerText == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "answer_text is required for theory questions")
		}
		ans.AnswerText = req.AnswerText
	}

	if err := s.submissions.UpsertAnswer(ctx, ans); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store answer")
	}
	return ans, nil
}

func (s *SubmissionService) findQuestion(ctx context.Context, examID, questionID string) (*models.Question, error) {
	questions, err := s.exams.ListQuestions(ctx, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	for i := range questions {
		if questions[i].ID == questionID {
			return &questions[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "question not found")
}

// Finalize closes the student's own attempt, marks it and posts the score
// into the result document. Finalizing an already finalized submission is a
// no-op returning the stored attempt.
func (s *SubmissionService) Finalize(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnerOrModerator(ctx, claims, exam, sub); err != nil {
		return nil, err
	}
	if sub.Status == models.SubmissionStatusFinalized {
		return sub, nil
	}
	if !sub.Status.Active() {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "submission has not been started")
	}

	var endedBy *string
	if claims.UserID != sub.StudentID {
		id := claims.UserID
		endedBy = &id
	}
	if err := s.finalize(ctx, exam, sub, endedBy); err != nil {
		return nil, err
	}
	return sub, nil
}

// finalize runs the single-transaction marking pipeline: auto-mark objective
// answers full-or-zero, sum awarded scores, close the attempt and post the
// subject score into the student's result document. Theory answers stay
// unscored until a teacher marks them.
func (s *SubmissionService) finalize(ctx context.Context, exam *models.Exam, sub *models.StudentExam, endedBy *string) error {
	questions, err := s.exams.ListQuestions(ctx, exam.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load questions")
	}
	answers, err := s.submissions.ListAnswers(ctx, sub.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}

	byQuestion := make(map[string]*models.Question, len(questions))
	for i := range questions {
		byQuestion[questions[i].ID] = &questions[i]
	}

	now := s.now()
	err = s.withTx(ctx, func(q sqlx.ExtContext) error {
		var total float64
		for i := range answers {
			ans := &answers[i]
			question, ok := byQuestion[ans.QuestionID]
			if !ok {
				continue
			}
			switch question.Type {
			case models.QuestionTypeObjective:
				awarded := 0.0
				if question.CorrectOption != nil && ans.SelectedOption != nil && *ans.SelectedOption == *question.CorrectOption {
					awarded = question.Marks
				}
				if err := s.submissions.UpdateAnswerScore(ctx, q, sub.ID, ans.QuestionID, awarded); err != nil {
					return err
				}
				ans.AwardedScore = &awarded
				total += awarded
			case models.QuestionTypeTheory:
				if ans.AwardedScore != nil {
					total += *ans.AwardedScore
				}
			}
		}

		sub.Status = models.SubmissionStatusFinalized
		sub.FinalizedAt = &now
		sub.EndedBy = endedBy
		sub.Score = total
		if err := s.submissions.UpdateLifecycle(ctx, q, sub); err != nil {
			return err
		}

		_, err := s.results.UpdateOrCreateResultTx(ctx, q, SubjectScoreUpdate{
			StudentID:       sub.StudentID,
			SchoolID:        exam.SchoolID,
			ClassroomID:     exam.ClassroomID,
			AcademicSession: exam.AcademicSession,
			Term:            exam.Term,
			SubjectID:       exam.SubjectID,
			ExamScore:       total,
			MaxExamScore:    exam.TotalMarks,
			RecordedBy:      sub.StudentID,
		})
		return err
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize submission")
	}

	sub.Answers = answers
	s.metrics.RecordSubmissionFinalized()
	s.results.InvalidateStudent(ctx, sub.StudentID, exam.ClassroomID)
	s.publishEvent("exam.finalized", exam, map[string]interface{}{
		"student_id":    sub.StudentID,
		"submission_id": sub.ID,
		"score":         sub.Score,
	})
	return nil
}

// OverrideAnswerScore lets a teacher mark a theory answer or correct an
// auto-marked one after finalization. The submission total and the posted
// subject score are re-derived in the same transaction.
func (s *SubmissionService) OverrideAnswerScore(ctx context.Context, claims *models.JWTClaims, examID, submissionID, questionID string, score float64) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckStaff(claims, exam.SchoolID); err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != models.SubmissionStatusFinalized {
		return nil, appErrors.Clone(appErrors.ErrStateInvalid, "only a finalized submission can be re-marked")
	}
	questionID, err = parseID("question", questionID)
	if err != nil {
		return nil, err
	}
	question, err := s.findQuestion(ctx, exam.ID, questionID)
	if err != nil {
		return nil, err
	}
	if score < 0 || score > question.Marks {
		return nil, appErrors.Clone(appErrors.ErrInvalidScore, "score must lie between 0 and the question's marks")
	}

	answers, err := s.submissions.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}
	var found bool
	var total float64
	for i := range answers {
		ans := &answers[i]
		if ans.QuestionID == questionID {
			found = true
			ans.AwardedScore = &score
		}
		if ans.AwardedScore != nil {
			total += *ans.AwardedScore
		}
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no answer recorded for this question")
	}

	sub.Score = total
	err = s.withTx(ctx, func(q sqlx.ExtContext) error {
		if err := s.submissions.UpdateAnswerScore(ctx, q, sub.ID, questionID, score); err != nil {
			return err
		}
		if err := s.submissions.UpdateLifecycle(ctx, q, sub); err != nil {
			return err
		}
		_, err := s.results.UpdateOrCreateResultTx(ctx, q, SubjectScoreUpdate{
			StudentID:       sub.StudentID,
			SchoolID:        exam.SchoolID,
			ClassroomID:     exam.ClassroomID,
			AcademicSession: exam.AcademicSession,
			Term:            exam.Term,
			SubjectID:       exam.SubjectID,
			ExamScore:       total,
			MaxExamScore:    exam.TotalMarks,
			RecordedBy:      claims.UserID,
		})
		return err
	})
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to override answer score")
	}

	sub.Answers = answers
	s.results.InvalidateStudent(ctx, sub.StudentID, exam.ClassroomID)
	return sub, nil
}

// EndAll force-finalizes every active submission of an exam. Already
// finalized attempts are untouched, so repeating the call is harmless.
func (s *SubmissionService) EndAll(ctx context.Context, claims *models.JWTClaims, examID string) (int, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return 0, err
	}
	if err := s.canModerate(ctx, claims, exam); err != nil {
		return 0, err
	}

	active, err := s.submissions.ListActiveByExam(ctx, exam.ID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active submissions")
	}

	actor := claims.UserID
	ended := 0
	for i := range active {
		sub := &active[i]
		if err := s.finalize(ctx, exam, sub, &actor); err != nil {
			s.logger.Error("forced finalize failed",
				zap.String("exam_id", exam.ID),
				zap.String("submission_id", sub.ID),
				zap.Error(err))
			continue
		}
		ended++
	}

	s.publishEvent("exam.ended", exam, map[string]interface{}{"ended_by": actor, "ended_count": ended})
	return ended, nil
}

// Get returns one submission with its answers, for the owning student or a
// moderator.
func (s *SubmissionService) Get(ctx context.Context, claims *models.JWTClaims, examID, submissionID string) (*models.StudentExam, error) {
	exam, err := s.loadExam(ctx, claims, examID)
	if err != nil {
		return nil, err
	}
	sub, err := s.loadSubmission(ctx, exam, submissionID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureOwnerOrModerator(ctx, claims, exam, sub); err != nil {
		return nil, err
	}
	answers, err := s.submissions.ListAnswers(ctx, sub.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load answers")
	}
	sub.Answers = answers
	return sub, nil
}
