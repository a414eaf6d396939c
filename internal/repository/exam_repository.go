package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/klasnova/klasnova-api/internal/models"
)

// ExamRepository handles exam, question and invigilator persistence.
// Methods that must join a caller-owned transaction take an sqlx.ExtContext;
// handing them the *sqlx.Tx from database.WithTx puts them in the same
// atomic group.
type ExamRepository struct {
	db *sqlx.DB
}

// NewExamRepository creates a new exam repository.
func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

const examColumns = `id, school_id, classroom_id, subject_id, title, academic_session, term, status,
        duration_minutes, max_pauses, total_marks, created_by, created_at, updated_at`

// Create inserts a draft exam.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now
	const query = `INSERT INTO exams (id, school_id, classroom_id, subject_id, title, academic_session, term, status,
                duration_minutes, max_pauses, total_marks, created_by, created_at, updated_at)
        VALUES (:id, :school_id, :classroom_id, :subject_id, :title, :academic_session, :term, :status,
                :duration_minutes, :max_pauses, :total_marks, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

// FindByID returns one exam without its questions. sql.ErrNoRows passes
// through for the service layer to map.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	query := fmt.Sprintf("SELECT %s FROM exams WHERE id = $1", examColumns)
	if err := r.db.GetContext(ctx, &exam, query, id); err != nil {
		return nil, err
	}
	return &exam, nil
}

// List returns exams matching the filter plus the total count.
func (r *ExamRepository) List(ctx context.Context, filter models.ExamFilter) ([]models.Exam, int, error) {
	where := " WHERE 1=1"
	var args []interface{}
	if filter.SchoolID != "" {
		where += fmt.Sprintf(" AND school_id = $%d", len(args)+1)
		args = append(args, filter.SchoolID)
	}
	if filter.ClassroomID != "" {
		where += fmt.Sprintf(" AND classroom_id = $%d", len(args)+1)
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		where += fmt.Sprintf(" AND subject_id = $%d", len(args)+1)
		args = append(args, filter.SubjectID)
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", len(args)+1)
		args = append(args, filter.Status)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	query := fmt.Sprintf("SELECT %s FROM exams%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		examColumns, where, pageSize, (page-1)*pageSize)
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list exams: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM exams"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count exams: %w", err)
	}
	return exams, total, nil
}

// UpdateStatus moves an exam between draft and published.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id string, status models.ExamStatus) error {
	const query = `UPDATE exams SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update exam status: %w", err)
	}
	return nil
}

// InsertQuestion adds one question inside the caller's transaction.
func (r *ExamRepository) InsertQuestion(ctx context.Context, q sqlx.ExtContext, question *models.Question) error {
	if question.ID == "" {
		question.ID = uuid.NewString()
	}
	question.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_questions (id, exam_id, question_type, prompt, options, correct_option, marks, position, created_at)
        VALUES (:id, :exam_id, :question_type, :prompt, :options, :correct_option, :marks, :position, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, q, query, question); err != nil {
		return fmt.Errorf("insert question: %w", err)
	}
	return nil
}

// DeleteQuestion removes one question inside the caller's transaction.
func (r *ExamRepository) DeleteQuestion(ctx context.Context, q sqlx.ExtContext, examID, questionID string) (bool, error) {
	res, err := q.ExecContext(ctx, `DELETE FROM exam_questions WHERE id = $1 AND exam_id = $2`, questionID, examID)
	if err != nil {
		return false, fmt.Errorf("delete question: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete question rows: %w", err)
	}
	return affected > 0, nil
}

// RecomputeTotalMarks derives total_marks from the question set. It must run
// in the same transaction as the question write it follows.
func (r *ExamRepository) RecomputeTotalMarks(ctx context.Context, q sqlx.ExtContext, examID string) (float64, error) {
	const query = `UPDATE exams
        SET total_marks = (SELECT COALESCE(SUM(marks), 0) FROM exam_questions WHERE exam_id = $1),
            updated_at = $2
        WHERE id = $1
        RETURNING total_marks`
	var total float64
	if err := sqlx.GetContext(ctx, q, &total, query, examID, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("recompute total marks: %w", err)
	}
	return total, nil
}

// ListQuestions returns an exam's questions in authoring order.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID string) ([]models.Question, error) {
	const query = `SELECT id, exam_id, question_type, prompt, options, correct_option, marks, position, created_at
        FROM exam_questions WHERE exam_id = $1 ORDER BY position ASC, created_at ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, examID); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// FindQuestion returns one question of one exam.
func (r *ExamRepository) FindQuestion(ctx context.Context, examID, questionID string) (*models.Question, error) {
	const query = `SELECT id, exam_id, question_type, prompt, options, correct_option, marks, position, created_at
        FROM exam_questions WHERE id = $1 AND exam_id = $2`
	var question models.Question
	if err := r.db.GetContext(ctx, &question, query, questionID, examID); err != nil {
		return nil, err
	}
	return &question, nil
}

// CountQuestions returns how many questions an exam carries.
func (r *ExamRepository) CountQuestions(ctx context.Context, examID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1", examID); err != nil {
		return 0, fmt.Errorf("count questions: %w", err)
	}
	return count, nil
}

// HasSubmissions reports whether any student has begun the exam.
func (r *ExamRepository) HasSubmissions(ctx context.Context, examID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM student_exams WHERE exam_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, examID); err != nil {
		return false, fmt.Errorf("check submissions: %w", err)
	}
	return exists, nil
}

// AddInvigilator grants one user invigilation rights for one exam.
func (r *ExamRepository) AddInvigilator(ctx context.Context, inv *models.ExamInvigilator) error {
	inv.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO exam_invigilators (exam_id, user_id, added_by, created_at)
        VALUES (:exam_id, :user_id, :added_by, :created_at)
        ON CONFLICT (exam_id, user_id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
		return fmt.Errorf("add invigilator: %w", err)
	}
	return nil
}

// RemoveInvigilator revokes invigilation rights.
func (r *ExamRepository) RemoveInvigilator(ctx context.Context, examID, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM exam_invigilators WHERE exam_id = $1 AND user_id = $2`, examID, userID); err != nil {
		return fmt.Errorf("remove invigilator: %w", err)
	}
	return nil
}

// IsInvigilator reports whether the user invigilates the exam.
func (r *ExamRepository) IsInvigilator(ctx context.Context, examID, userID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM exam_invigilators WHERE exam_id = $1 AND user_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, examID, userID); err != nil {
		return false, fmt.Errorf("check invigilator: %w", err)
	}
	return exists, nil
}
