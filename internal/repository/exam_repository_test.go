package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klasnova/klasnova-api/internal/models"
)

func newExamRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestExamRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newExamRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("INSERT INTO exams").
		WillReturnResult(sqlmock.NewResult(1, 1))

	exam := &models.Exam{
		SchoolID:        "school-1",
		ClassroomID:     "class-1",
		SubjectID:       "subject-1",
		Title:           "Mid-term Mathematics",
		AcademicSession: "2025/2026",
		Term:            1,
		Status:          models.ExamStatusDraft,
		DurationMinutes: 60,
		MaxPauses:       3,
		CreatedBy:       "teacher-1",
	}
	require.NoError(t, repo.Create(context.Background(), exam))
	assert.NotEmpty(t, exam.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryQuestionWriteRecomputesTotalInOneTx(t *testing.T) {
	db, mock, cleanup := newExamRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO exam_questions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("UPDATE exams").
		WillReturnRows(sqlmock.NewRows([]string{"total_marks"}).AddRow(12.5))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	correct := 1
	question := &models.Question{
		ExamID:        "exam-1",
		Type:          models.QuestionTypeObjective,
		Prompt:        "2 + 2 = ?",
		Options:       models.OptionList{"3", "4", "5"},
		CorrectOption: &correct,
		Marks:         2.5,
	}
	require.NoError(t, repo.InsertQuestion(context.Background(), tx, question))

	total, err := repo.RecomputeTotalMarks(context.Background(), tx, "exam-1")
	require.NoError(t, err)
	assert.Equal(t, 12.5, total)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newExamRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "school_id", "classroom_id", "subject_id", "title", "academic_session", "term", "status",
		"duration_minutes", "max_pauses", "total_marks", "created_by", "created_at", "updated_at",
	}).AddRow("exam-1", "school-1", "class-1", "subject-1", "Mid-term", "2025/2026", 1, "published",
		60, 3, 40.0, "teacher-1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM exams WHERE id = \\$1").
		WithArgs("exam-1").
		WillReturnRows(rows)

	exam, err := repo.FindByID(context.Background(), "exam-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExamStatusPublished, exam.Status)
	assert.Equal(t, 40.0, exam.TotalMarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryInvigilatorChecks(t *testing.T) {
	db, mock, cleanup := newExamRepoMock(t)
	defer cleanup()
	repo := NewExamRepository(db)

	mock.ExpectExec("INSERT INTO exam_invigilators").
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.AddInvigilator(context.Background(), &models.ExamInvigilator{
		ExamID: "exam-1", UserID: "user-1", AddedBy: "teacher-1",
	}))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM exam_invigilators WHERE exam_id = $1 AND user_id = $2)")).
		WithArgs("exam-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := repo.IsInvigilator(context.Background(), "exam-1", "user-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
