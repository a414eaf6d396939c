package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/klasnova/klasnova-api/internal/models"
)

// ResultRepository persists result documents and their per-subject items.
// Item identity is the subject reference: UNIQUE (result_id, subject_id)
// makes every write an upsert against the matching item, so concurrent posts
// for different subjects of the same student never overwrite each other.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a new result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `id, student_id, school_id, classroom_id, academic_session, term,
        total_score, average, remark, position, created_at, updated_at`

const itemColumns = `id, result_id, subject_id, exam_score, max_exam_score, ca_score, max_ca_score,
        total, grade_code, grade_label, position, created_at, updated_at`

// EnsureResult creates the result document for the key when absent and
// returns its id plus whether it was newly created. xmax = 0 distinguishes a
// fresh insert from a conflict-update on the same statement.
func (r *ResultRepository) EnsureResult(ctx context.Context, q sqlx.ExtContext, key models.ResultKey) (string, bool, error) {
	if q == nil {
		q = r.db
	}
	now := time.Now().UTC()
	const query = `INSERT INTO results (id, student_id, school_id, classroom_id, academic_session, term,
                total_score, average, remark, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, 0, 0, '', $7, $7)
        ON CONFLICT (student_id, academic_session, term)
        DO UPDATE SET updated_at = EXCLUDED.updated_at
        RETURNING id, (xmax = 0) AS created`
	var row struct {
		ID      string `db:"id"`
		Created bool   `db:"created"`
	}
	if err := sqlx.GetContext(ctx, q, &row, query, uuid.NewString(), key.StudentID, key.SchoolID,
		key.ClassroomID, key.AcademicSession, key.Term, now); err != nil {
		return "", false, fmt.Errorf("ensure result: %w", err)
	}
	return row.ID, row.Created, nil
}

// UpsertItem writes one subject's scores into the result, updating the
// matching item in place or appending a new one. Returns whether the item
// was newly created.
func (r *ResultRepository) UpsertItem(ctx context.Context, q sqlx.ExtContext, item *models.ResultItem) (bool, error) {
	if q == nil {
		q = r.db
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	item.UpdatedAt = now
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	const query = `INSERT INTO result_items (id, result_id, subject_id, exam_score, max_exam_score, ca_score, max_ca_score,
                total, grade_code, grade_label, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        ON CONFLICT (result_id, subject_id)
        DO UPDATE SET exam_score = EXCLUDED.exam_score, max_exam_score = EXCLUDED.max_exam_score,
                ca_score = EXCLUDED.ca_score, max_ca_score = EXCLUDED.max_ca_score, total = EXCLUDED.total,
                grade_code = EXCLUDED.grade_code, grade_label = EXCLUDED.grade_label, updated_at = EXCLUDED.updated_at
        RETURNING (xmax = 0) AS created`
	var created bool
	if err := sqlx.GetContext(ctx, q, &created, query, item.ID, item.ResultID, item.SubjectID,
		item.ExamScore, item.MaxExamScore, item.CAScore, item.MaxCAScore,
		item.Total, item.GradeCode, item.GradeLabel, item.CreatedAt, item.UpdatedAt); err != nil {
		return false, fmt.Errorf("upsert result item: %w", err)
	}
	return created, nil
}

// ListItems returns every item of one result ordered by subject.
func (r *ResultRepository) ListItems(ctx context.Context, q sqlx.ExtContext, resultID string) ([]models.ResultItem, error) {
	if q == nil {
		q = r.db
	}
	query := fmt.Sprintf("SELECT %s FROM result_items WHERE result_id = $1 ORDER BY subject_id ASC", itemColumns)
	var items []models.ResultItem
	if err := sqlx.SelectContext(ctx, q, &items, query, resultID); err != nil {
		return nil, fmt.Errorf("list result items: %w", err)
	}
	return items, nil
}

// UpdateDerived recomputes the stored aggregate fields of one result.
func (r *ResultRepository) UpdateDerived(ctx context.Context, q sqlx.ExtContext, resultID string, total, average float64, remark string) error {
	if q == nil {
		q = r.db
	}
	const query = `UPDATE results SET total_score = $1, average = $2, remark = $3, updated_at = $4 WHERE id = $5`
	if _, err := q.ExecContext(ctx, query, total, average, remark, time.Now().UTC(), resultID); err != nil {
		return fmt.Errorf("update result aggregates: %w", err)
	}
	return nil
}

// FindByStudent returns one student's result with items for a session+term.
// sql.ErrNoRows passes through.
func (r *ResultRepository) FindByStudent(ctx context.Context, studentID, session string, term int) (*models.Result, error) {
	var result models.Result
	query := fmt.Sprintf("SELECT %s FROM results WHERE student_id = $1 AND academic_session = $2 AND term = $3", resultColumns)
	if err := r.db.GetContext(ctx, &result, query, studentID, session, term); err != nil {
		return nil, err
	}
	items, err := r.ListItems(ctx, nil, result.ID)
	if err != nil {
		return nil, err
	}
	result.Items = items
	return &result, nil
}

// ListByClass returns every result (with items) for a classroom, session and
// term.
func (r *ResultRepository) ListByClass(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	query := fmt.Sprintf(`SELECT %s FROM results
        WHERE classroom_id = $1 AND academic_session = $2 AND term = $3
        ORDER BY average DESC`, resultColumns)
	var results []models.Result
	if err := r.db.SelectContext(ctx, &results, query, filter.ClassroomID, filter.AcademicSession, filter.Term); err != nil {
		return nil, fmt.Errorf("list class results: %w", err)
	}
	if len(results) == 0 {
		return results, nil
	}

	ids := make([]string, len(results))
	for i := range results {
		ids[i] = results[i].ID
	}
	itemQuery, args, err := sqlx.In(fmt.Sprintf("SELECT %s FROM result_items WHERE result_id IN (?) ORDER BY subject_id ASC", itemColumns), ids)
	if err != nil {
		return nil, fmt.Errorf("build item query: %w", err)
	}
	itemQuery = r.db.Rebind(itemQuery)
	var items []models.ResultItem
	if err := r.db.SelectContext(ctx, &items, itemQuery, args...); err != nil {
		return nil, fmt.Errorf("list class result items: %w", err)
	}

	byResult := make(map[string][]models.ResultItem, len(results))
	for _, item := range items {
		byResult[item.ResultID] = append(byResult[item.ResultID], item)
	}
	for i := range results {
		results[i].Items = byResult[results[i].ID]
	}
	return results, nil
}
