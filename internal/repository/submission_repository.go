package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/klasnova/klasnova-api/internal/models"
)

// SubmissionRepository persists student exam attempts and their answers.
// Per-submission mutations rely on single-row UPDATE semantics for
// serialization; distinct submissions never contend with each other.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository creates a new submission repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

const submissionColumns = `id, exam_id, student_id, school_id, status, pauses_used, started_at, ends_at,
        paused_at, finalized_at, ended_by, score, created_at, updated_at`

// Create inserts a new submission row; the unique (exam_id, student_id)
// constraint keeps one attempt per student.
func (r *SubmissionRepository) Create(ctx context.Context, sub *models.StudentExam) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	const query = `INSERT INTO student_exams (id, exam_id, student_id, school_id, status, pauses_used, started_at, ends_at,
                paused_at, finalized_at, ended_by, score, created_at, updated_at)
        VALUES (:id, :exam_id, :student_id, :school_id, :status, :pauses_used, :started_at, :ends_at,
                :paused_at, :finalized_at, :ended_by, :score, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// FindByID returns one submission. sql.ErrNoRows passes through.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.StudentExam, error) {
	var sub models.StudentExam
	query := fmt.Sprintf("SELECT %s FROM student_exams WHERE id = $1", submissionColumns)
	if err := r.db.GetContext(ctx, &sub, query, id); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByExamAndStudent returns the student's attempt against one exam.
func (r *SubmissionRepository) FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.StudentExam, error) {
	var sub models.StudentExam
	query := fmt.Sprintf("SELECT %s FROM student_exams WHERE exam_id = $1 AND student_id = $2", submissionColumns)
	if err := r.db.GetContext(ctx, &sub, query, examID, studentID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListActiveByExam returns every in-progress or paused submission of an exam.
func (r *SubmissionRepository) ListActiveByExam(ctx context.Context, examID string) ([]models.StudentExam, error) {
	query := fmt.Sprintf("SELECT %s FROM student_exams WHERE exam_id = $1 AND status IN ('in_progress', 'paused')", submissionColumns)
	var subs []models.StudentExam
	if err := r.db.SelectContext(ctx, &subs, query, examID); err != nil {
		return nil, fmt.Errorf("list active submissions: %w", err)
	}
	return subs, nil
}

// UpdateLifecycle writes the mutable lifecycle fields of one submission,
// inside the caller's transaction when one is passed.
func (r *SubmissionRepository) UpdateLifecycle(ctx context.Context, q sqlx.ExtContext, sub *models.StudentExam) error {
	if q == nil {
		q = r.db
	}
	sub.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_exams SET status = :status, pauses_used = :pauses_used, started_at = :started_at,
                ends_at = :ends_at, paused_at = :paused_at, finalized_at = :finalized_at, ended_by = :ended_by,
                score = :score, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, q, query, sub); err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	return nil
}

// UpsertAnswer stores one answer, replacing any previous answer for the same
// question of the same submission.
func (r *SubmissionRepository) UpsertAnswer(ctx context.Context, ans *models.SubmissionAnswer) error {
	if ans.ID == "" {
		ans.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ans.CreatedAt.IsZero() {
		ans.CreatedAt = now
	}
	ans.UpdatedAt = now
	const query = `INSERT INTO student_exam_answers (id, submission_id, question_id, selected_option, answer_text, awarded_score, created_at, updated_at)
        VALUES (:id, :submission_id, :question_id, :selected_option, :answer_text, :awarded_score, :created_at, :updated_at)
        ON CONFLICT (submission_id, question_id)
        DO UPDATE SET selected_option = EXCLUDED.selected_option, answer_text = EXCLUDED.answer_text, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, ans); err != nil {
		return fmt.Errorf("upsert answer: %w", err)
	}
	return nil
}

// ListAnswers returns every answer of one submission.
func (r *SubmissionRepository) ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error) {
	const query = `SELECT id, submission_id, question_id, selected_option, answer_text, awarded_score, created_at, updated_at
        FROM student_exam_answers WHERE submission_id = $1 ORDER BY created_at ASC`
	var answers []models.SubmissionAnswer
	if err := r.db.SelectContext(ctx, &answers, query, submissionID); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return answers, nil
}

// UpdateAnswerScore sets the awarded score of one answer inside the caller's
// transaction.
func (r *SubmissionRepository) UpdateAnswerScore(ctx context.Context, q sqlx.ExtContext, submissionID, questionID string, score float64) error {
	if q == nil {
		q = r.db
	}
	const query = `UPDATE student_exam_answers SET awarded_score = $1, updated_at = $2
        WHERE submission_id = $3 AND question_id = $4`
	if _, err := q.ExecContext(ctx, query, score, time.Now().UTC(), submissionID, questionID); err != nil {
		return fmt.Errorf("update answer score: %w", err)
	}
	return nil
}
