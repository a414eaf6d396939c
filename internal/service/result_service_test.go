package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

var (
	tSchool    = uuid.NewString()
	tClassroom = uuid.NewString()
	tSubject   = uuid.NewString()
	tSubject2  = uuid.NewString()
	tStudent   = uuid.NewString()
	tStudent2  = uuid.NewString()
	tTeacher   = uuid.NewString()
	tAdmin     = uuid.NewString()
)

func claimsFor(role models.UserRole, userID, schoolID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: role, SchoolID: schoolID}
}

type mockResultRepo struct {
	byKey     map[string]*models.Result
	items     map[string][]models.ResultItem
	ensureErr error
	upsertErr error
	listErr   error
}

func newMockResultRepo() *mockResultRepo {
	return &mockResultRepo{byKey: map[string]*models.Result{}, items: map[string][]models.ResultItem{}}
}

func resultMapKey(studentID, session string, term int) string {
	return fmt.Sprintf("%s|%s|%d", studentID, session, term)
}

func (m *mockResultRepo) EnsureResult(ctx context.Context, q sqlx.ExtContext, key models.ResultKey) (string, bool, error) {
	if m.ensureErr != nil {
		return "", false, m.ensureErr
	}
	k := resultMapKey(key.StudentID, key.AcademicSession, key.Term)
	if r, ok := m.byKey[k]; ok {
		return r.ID, false, nil
	}
	r := &models.Result{
		ID:              uuid.NewString(),
		StudentID:       key.StudentID,
		SchoolID:        key.SchoolID,
		ClassroomID:     key.ClassroomID,
		AcademicSession: key.AcademicSession,
		Term:            key.Term,
	}
	m.byKey[k] = r
	return r.ID, true, nil
}

func (m *mockResultRepo) UpsertItem(ctx context.Context, q sqlx.ExtContext, item *models.ResultItem) (bool, error) {
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	list := m.items[item.ResultID]
	for i := range list {
		if list[i].SubjectID == item.SubjectID {
			item.ID = list[i].ID
			list[i] = *item
			m.items[item.ResultID] = list
			return false, nil
		}
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	m.items[item.ResultID] = append(list, *item)
	return true, nil
}

func (m *mockResultRepo) ListItems(ctx context.Context, q sqlx.ExtContext, resultID string) ([]models.ResultItem, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.ResultItem(nil), m.items[resultID]...), nil
}

func (m *mockResultRepo) UpdateDerived(ctx context.Context, q sqlx.ExtContext, resultID string, total, average float64, remark string) error {
	for _, r := range m.byKey {
		if r.ID == resultID {
			r.TotalScore = total
			r.Average = average
			r.Remark = remark
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *mockResultRepo) FindByStudent(ctx context.Context, studentID, session string, term int) (*models.Result, error) {
	r, ok := m.byKey[resultMapKey(studentID, session, term)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *r
	out.Items = append([]models.ResultItem(nil), m.items[r.ID]...)
	return &out, nil
}

func (m *mockResultRepo) ListByClass(ctx context.Context, filter models.ResultFilter) ([]models.Result, error) {
	var results []models.Result
	for _, r := range m.byKey {
		if r.ClassroomID != filter.ClassroomID || r.AcademicSession != filter.AcademicSession || r.Term != filter.Term {
			continue
		}
		out := *r
		out.Items = append([]models.ResultItem(nil), m.items[r.ID]...)
		results = append(results, out)
	}
	return results, nil
}

func (m *mockResultRepo) resultFor(studentID, session string, term int) *models.Result {
	r, ok := m.byKey[resultMapKey(studentID, session, term)]
	if !ok {
		return nil
	}
	out := *r
	out.Items = append([]models.ResultItem(nil), m.items[r.ID]...)
	return &out
}

func newTestResultService(repo *mockResultRepo) *ResultService {
	return NewResultService(nil, repo, nil, nil, nil, nil, zap.NewNop(), 0)
}

func scoreUpdate(studentID, subjectID string, exam, maxExam float64) SubjectScoreUpdate {
	return SubjectScoreUpdate{
		StudentID:       studentID,
		SchoolID:        tSchool,
		ClassroomID:     tClassroom,
		AcademicSession: "2025/2026",
		Term:            1,
		SubjectID:       subjectID,
		ExamScore:       exam,
		MaxExamScore:    maxExam,
		RecordedBy:      tTeacher,
	}
}

func TestUpdateOrCreateResult(t *testing.T) {
	repo := newMockResultRepo()
	svc := newTestResultService(repo)

	created, err := svc.UpdateOrCreateResult(context.Background(), scoreUpdate(tStudent, tSubject, 82, 100))
	require.NoError(t, err)
	assert.True(t, created)

	result := repo.resultFor(tStudent, "2025/2026", 1)
	require.NotNil(t, result)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "A1", result.Items[0].GradeCode)
	assert.Equal(t, 82.0, result.TotalScore)
	assert.Equal(t, 82.0, result.Average)
	assert.Equal(t, "Excellent", result.Remark)

	// Posting the same subject again updates the item in place.
	created, err = svc.UpdateOrCreateResult(context.Background(), scoreUpdate(tStudent, tSubject, 41, 100))
	require.NoError(t, err)
	assert.False(t, created)

	result = repo.resultFor(tStudent, "2025/2026", 1)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "E8", result.Items[0].GradeCode)
	assert.Equal(t, 41.0, result.Average)

	// A sibling subject becomes a second item of the same document.
	_, err = svc.UpdateOrCreateResult(context.Background(), scoreUpdate(tStudent, tSubject2, 61, 100))
	require.NoError(t, err)
	result = repo.resultFor(tStudent, "2025/2026", 1)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 102.0, result.TotalScore)
	assert.Equal(t, 51.0, result.Average)
}

func TestUpdateOrCreateResultRejectsBadInput(t *testing.T) {
	svc := newTestResultService(newMockResultRepo())

	_, err := svc.UpdateOrCreateResult(context.Background(), SubjectScoreUpdate{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	update := scoreUpdate(tStudent, tSubject, 110, 100)
	_, err = svc.UpdateOrCreateResult(context.Background(), update)
	assert.ErrorIs(t, err, appErrors.ErrInvalidScore)

	update = scoreUpdate("not-a-uuid", tSubject, 50, 100)
	_, err = svc.UpdateOrCreateResult(context.Background(), update)
	assert.ErrorIs(t, err, appErrors.ErrInvalidID)
}

func TestBulkUpdateEmptyBatch(t *testing.T) {
	repo := newMockResultRepo()
	svc := newTestResultService(repo)

	summary := svc.BulkUpdateOrCreateResults(context.Background(), nil)
	assert.Zero(t, summary.ModifiedCount)
	assert.Zero(t, summary.UpsertedCount)
	assert.Zero(t, summary.MatchedCount)
	assert.Empty(t, summary.Errors)
	assert.Empty(t, repo.byKey)
}

func TestBulkUpdateSkipsInvalidSiblings(t *testing.T) {
	repo := newMockResultRepo()
	svc := newTestResultService(repo)

	bad := scoreUpdate(tStudent, tSubject, -5, 100)
	summary := svc.BulkUpdateOrCreateResults(context.Background(), []SubjectScoreUpdate{
		scoreUpdate(tStudent, tSubject, 70, 100),
		bad,
		scoreUpdate(tStudent2, tSubject, 55, 100),
	})

	assert.Equal(t, 2, summary.UpsertedCount)
	assert.Equal(t, 0, summary.MatchedCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, 1, summary.Errors[0].Index)
	assert.Equal(t, tStudent, summary.Errors[0].StudentID)

	require.NotNil(t, repo.resultFor(tStudent, "2025/2026", 1))
	require.NotNil(t, repo.resultFor(tStudent2, "2025/2026", 1))
}

func TestBulkUpdateStorageFailureZeroesSummary(t *testing.T) {
	repo := newMockResultRepo()
	repo.ensureErr = errors.New("connection reset")
	svc := newTestResultService(repo)

	summary := svc.BulkUpdateOrCreateResults(context.Background(), []SubjectScoreUpdate{
		scoreUpdate(tStudent, tSubject, 70, 100),
	})

	assert.Zero(t, summary.ModifiedCount)
	assert.Zero(t, summary.UpsertedCount)
	assert.Zero(t, summary.MatchedCount)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, -1, summary.Errors[0].Index)
	assert.Contains(t, summary.Errors[0].Reason, "connection reset")
}

func TestProcessResultData(t *testing.T) {
	svc := newTestResultService(newMockResultRepo())

	ca1, ca2 := 15.0, 18.0
	processed := svc.ProcessResultData(RawResultData{
		StudentID:       tStudent,
		AcademicSession: "2025/2026",
		Term:            2,
		Subjects: []RawSubjectEntry{
			{SubjectID: tSubject, CA1: &ca1, CA2: &ca2, Exam: 50},
			{SubjectID: tSubject2, Exam: 30},
		},
	})

	require.Len(t, processed.Items, 2)
	assert.Equal(t, 83.0, processed.Items[0].Total)
	assert.Equal(t, "A1", processed.Items[0].GradeCode)
	assert.Equal(t, 30.0, processed.Items[1].Total)
	assert.Equal(t, "F9", processed.Items[1].GradeCode)
	assert.Equal(t, 113.0, processed.TotalScore)
	assert.Equal(t, 56.5, processed.Average)
	assert.Equal(t, "Fair", processed.Remark)
}

func TestValidateResultData(t *testing.T) {
	svc := newTestResultService(newMockResultRepo())

	messages := svc.ValidateResultData(RawResultData{})
	assert.Contains(t, messages, "Student is required")
	assert.Contains(t, messages, "Term is required")
	assert.Contains(t, messages, "Invalid session format. Use YYYY/YYYY")
	assert.Contains(t, messages, "At least one subject entry is required")

	ca := 25.0
	messages = svc.ValidateResultData(RawResultData{
		StudentID:       tStudent,
		AcademicSession: "2025/2026",
		Term:            5,
		Subjects:        []RawSubjectEntry{{SubjectID: tSubject, CA1: &ca, Exam: 70}},
	})
	assert.Contains(t, messages, "Term must be 1, 2, or 3")
	assert.Contains(t, messages, "CA1 score cannot exceed 20")
	assert.Contains(t, messages, "Exam score cannot exceed 60")

	messages = svc.ValidateResultData(RawResultData{
		StudentID:       tStudent,
		AcademicSession: "2025/2026",
		Term:            1,
		Subjects:        []RawSubjectEntry{{SubjectID: tSubject, Exam: 55}},
	})
	assert.Empty(t, messages)
}

func TestGetStudentResultAccess(t *testing.T) {
	repo := newMockResultRepo()
	svc := newTestResultService(repo)

	_, err := svc.UpdateOrCreateResult(context.Background(), scoreUpdate(tStudent, tSubject, 60, 100))
	require.NoError(t, err)

	// Students may only read their own document.
	_, err = svc.GetStudentResult(context.Background(), claimsFor(models.RoleStudent, tStudent2, tSchool), tStudent, "2025/2026", 1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	result, err := svc.GetStudentResult(context.Background(), claimsFor(models.RoleStudent, tStudent, tSchool), tStudent, "2025/2026", 1)
	require.NoError(t, err)
	assert.Equal(t, tStudent, result.StudentID)

	// Staff from another school is rejected.
	_, err = svc.GetStudentResult(context.Background(), claimsFor(models.RoleTeacher, tTeacher, uuid.NewString()), tStudent, "2025/2026", 1)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.GetStudentResult(context.Background(), claimsFor(models.RoleTeacher, tTeacher, tSchool), tStudent2, "2025/2026", 1)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestGenerateResultSummary(t *testing.T) {
	repo := newMockResultRepo()
	svc := newTestResultService(repo)

	for _, post := range []SubjectScoreUpdate{
		scoreUpdate(tStudent, tSubject, 90, 100),
		scoreUpdate(tStudent, tSubject2, 90, 100),
		scoreUpdate(tStudent2, tSubject, 70, 100),
		scoreUpdate(tStudent2, tSubject2, 50, 100),
	} {
		_, err := svc.UpdateOrCreateResult(context.Background(), post)
		require.NoError(t, err)
	}

	summary, err := svc.GenerateResultSummary(context.Background(), models.ResultFilter{
		ClassroomID:     tClassroom,
		AcademicSession: "2025/2026",
		Term:            1,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.StudentCount)
	assert.Equal(t, 75.0, summary.ClassAverage)
	assert.Equal(t, 90.0, summary.HighestAverage)
	assert.Equal(t, 60.0, summary.LowestAverage)

	require.Len(t, summary.TopPerformers, 2)
	assert.Equal(t, tStudent, summary.TopPerformers[0].StudentID)
	assert.Equal(t, 1, summary.TopPerformers[0].Rank)
	assert.Equal(t, 2, summary.TopPerformers[1].Rank)

	require.Len(t, summary.SubjectBreakdown, 2)
	assert.Equal(t, 2, summary.GradeDistribution["A1"])

	_, err = svc.GenerateResultSummary(context.Background(), models.ResultFilter{
		ClassroomID:     tClassroom,
		AcademicSession: "2025-2026",
		Term:            1,
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.GenerateResultSummary(context.Background(), models.ResultFilter{
		ClassroomID:     tClassroom,
		AcademicSession: "2025/2026",
		Term:            4,
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
