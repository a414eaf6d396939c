package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

type mockSubmissionRepo struct {
	subs    map[string]*models.StudentExam
	answers map[string][]models.SubmissionAnswer
}

func newMockSubmissionRepo() *mockSubmissionRepo {
	return &mockSubmissionRepo{subs: map[string]*models.StudentExam{}, answers: map[string][]models.SubmissionAnswer{}}
}

func (m *mockSubmissionRepo) Create(ctx context.Context, sub *models.StudentExam) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	stored := *sub
	m.subs[sub.ID] = &stored
	return nil
}

func (m *mockSubmissionRepo) FindByID(ctx context.Context, id string) (*models.StudentExam, error) {
	sub, ok := m.subs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	out := *sub
	return &out, nil
}

func (m *mockSubmissionRepo) FindByExamAndStudent(ctx context.Context, examID, studentID string) (*models.StudentExam, error) {
	for _, sub := range m.subs {
		if sub.ExamID == examID && sub.StudentID == studentID {
			out := *sub
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubmissionRepo) ListActiveByExam(ctx context.Context, examID string) ([]models.StudentExam, error) {
	var active []models.StudentExam
	for _, sub := range m.subs {
		if sub.ExamID == examID && sub.Status.Active() {
			active = append(active, *sub)
		}
	}
	return active, nil
}

func (m *mockSubmissionRepo) UpdateLifecycle(ctx context.Context, q sqlx.ExtContext, sub *models.StudentExam) error {
	if _, ok := m.subs[sub.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *sub
	m.subs[sub.ID] = &stored
	return nil
}

func (m *mockSubmissionRepo) UpsertAnswer(ctx context.Context, ans *models.SubmissionAnswer) error {
	list := m.answers[ans.SubmissionID]
	for i := range list {
		if list[i].QuestionID == ans.QuestionID {
			list[i].SelectedOption = ans.SelectedOption
			list[i].AnswerText = ans.AnswerText
			m.answers[ans.SubmissionID] = list
			return nil
		}
	}
	if ans.ID == "" {
		ans.ID = uuid.NewString()
	}
	m.answers[ans.SubmissionID] = append(list, *ans)
	return nil
}

func (m *mockSubmissionRepo) ListAnswers(ctx context.Context, submissionID string) ([]models.SubmissionAnswer, error) {
	return append([]models.SubmissionAnswer(nil), m.answers[submissionID]...), nil
}

func (m *mockSubmissionRepo) UpdateAnswerScore(ctx context.Context, q sqlx.ExtContext, submissionID, questionID string, score float64) error {
	list := m.answers[submissionID]
	for i := range list {
		if list[i].QuestionID == questionID {
			s := score
			list[i].AwardedScore = &s
			m.answers[submissionID] = list
			return nil
		}
	}
	return sql.ErrNoRows
}

type submissionFixture struct {
	svc     *SubmissionService
	exams   *mockExamRepo
	subs    *mockSubmissionRepo
	results *mockResultRepo
	events  *mockPublisher
	exam    *models.Exam
	now     time.Time
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()
	exams := newMockExamRepo()
	subs := newMockSubmissionRepo()
	results := newMockResultRepo()
	events := &mockPublisher{}

	exam := draftExam(exams)
	exam.Status = models.ExamStatusPublished
	exam.MaxPauses = 1

	svc := NewSubmissionService(nil, exams, subs, newTestResultService(results), nil, events, nil, zap.NewNop())
	f := &submissionFixture{svc: svc, exams: exams, subs: subs, results: results, events: events, exam: exam, now: time.Now().UTC()}
	svc.now = func() time.Time { return f.now }
	return f
}

func (f *submissionFixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *submissionFixture) begin(t *testing.T, studentID string) *models.StudentExam {
	t.Helper()
	sub, err := f.svc.Begin(context.Background(), claimsFor(models.RoleStudent, studentID, tSchool), f.exam.ID)
	require.NoError(t, err)
	return sub
}

func TestBeginSubmission(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)

	_, err := f.svc.Begin(context.Background(), claimsFor(models.RoleTeacher, tTeacher, tSchool), f.exam.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	sub, err := f.svc.Begin(context.Background(), student, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusInProgress, sub.Status)
	require.NotNil(t, sub.EndsAt)
	assert.Equal(t, f.now.Add(60*time.Minute), *sub.EndsAt)
	assert.Equal(t, []string{"exam.started"}, f.events.types())

	_, err = f.svc.Begin(context.Background(), student, f.exam.ID)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	f.exam.Status = models.ExamStatusDraft
	_, err = f.svc.Begin(context.Background(), claimsFor(models.RoleStudent, tStudent2, tSchool), f.exam.ID)
	assert.ErrorIs(t, err, appErrors.ErrStateInvalid)
}

func TestPauseResumeHandsTimeBack(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)
	sub := f.begin(t, tStudent)
	originalEnd := *sub.EndsAt

	paused, err := f.svc.Pause(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusPaused, paused.Status)
	assert.Equal(t, 1, paused.PausesUsed)
	require.NotNil(t, paused.PausedAt)

	_, err = f.svc.Pause(context.Background(), student, f.exam.ID, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrStateInvalid)

	f.advance(10 * time.Minute)
	resumed, err := f.svc.Resume(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusInProgress, resumed.Status)
	assert.Nil(t, resumed.PausedAt)
	assert.Equal(t, originalEnd.Add(10*time.Minute), *resumed.EndsAt)

	// Budget of one pause is spent.
	_, err = f.svc.Pause(context.Background(), student, f.exam.ID, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrPauseBudget)

	_, err = f.svc.Resume(context.Background(), student, f.exam.ID, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrStateInvalid)
}

func TestPauseAfterWindowExpires(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)
	sub := f.begin(t, tStudent)

	f.advance(61 * time.Minute)
	_, err := f.svc.Pause(context.Background(), student, f.exam.ID, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrExpired)
}

func TestAdjustTime(t *testing.T) {
	f := newSubmissionFixture(t)
	teacher := claimsFor(models.RoleTeacher, tTeacher, tSchool)
	sub := f.begin(t, tStudent)
	originalEnd := *sub.EndsAt

	_, err := f.svc.AdjustTime(context.Background(), claimsFor(models.RoleStudent, tStudent, tSchool), f.exam.ID, sub.ID, 15)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.AdjustTime(context.Background(), teacher, f.exam.ID, sub.ID, 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.AdjustTime(context.Background(), teacher, f.exam.ID, sub.ID, -90)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	adjusted, err := f.svc.AdjustTime(context.Background(), teacher, f.exam.ID, sub.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, originalEnd.Add(15*time.Minute), *adjusted.EndsAt)
	assert.Contains(t, f.events.types(), "exam.time_adjusted")
}

func TestSubmitAnswer(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)
	question := objectiveQuestion(f.exams, f.exam.ID, 1, 5)
	sub := f.begin(t, tStudent)

	selected := 1
	_, err := f.svc.SubmitAnswer(context.Background(), claimsFor(models.RoleStudent, tStudent2, tSchool), f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID, SelectedOption: &selected})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	outOfRange := 9
	_, err = f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID, SelectedOption: &outOfRange})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	ans, err := f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID, SelectedOption: &selected})
	require.NoError(t, err)
	assert.Equal(t, 1, *ans.SelectedOption)

	// A paused submission stops accepting answers.
	_, err = f.svc.Pause(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	_, err = f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID, SelectedOption: &selected})
	assert.ErrorIs(t, err, appErrors.ErrStateInvalid)

	_, err = f.svc.Resume(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	f.advance(2 * time.Hour)
	_, err = f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: question.ID, SelectedOption: &selected})
	assert.ErrorIs(t, err, appErrors.ErrExpired)
}

func TestFinalizeAutoMarksAndPostsResult(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)
	q1 := objectiveQuestion(f.exams, f.exam.ID, 1, 5)
	q2 := objectiveQuestion(f.exams, f.exam.ID, 0, 5)
	theory := models.Question{ID: uuid.NewString(), ExamID: f.exam.ID, Type: models.QuestionTypeTheory, Prompt: "Discuss", Marks: 10}
	f.exams.questions[f.exam.ID] = append(f.exams.questions[f.exam.ID], theory)
	f.exam.TotalMarks += 10

	sub := f.begin(t, tStudent)
	right, wrong := 1, 2
	text := "The mitochondria is the powerhouse of the cell"
	for _, req := range []SubmitAnswerRequest{
		{QuestionID: q1.ID, SelectedOption: &right},
		{QuestionID: q2.ID, SelectedOption: &wrong},
		{QuestionID: theory.ID, AnswerText: &text},
	} {
		_, err := f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, req)
		require.NoError(t, err)
	}

	finalized, err := f.svc.Finalize(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusFinalized, finalized.Status)
	assert.Nil(t, finalized.EndedBy)
	assert.Equal(t, 5.0, finalized.Score)
	assert.Contains(t, f.events.types(), "exam.finalized")

	answers, _ := f.subs.ListAnswers(context.Background(), sub.ID)
	require.Len(t, answers, 3)
	for _, ans := range answers {
		switch ans.QuestionID {
		case q1.ID:
			require.NotNil(t, ans.AwardedScore)
			assert.Equal(t, 5.0, *ans.AwardedScore)
		case q2.ID:
			require.NotNil(t, ans.AwardedScore)
			assert.Zero(t, *ans.AwardedScore)
		case theory.ID:
			assert.Nil(t, ans.AwardedScore)
		}
	}

	result := f.results.resultFor(tStudent, f.exam.AcademicSession, f.exam.Term)
	require.NotNil(t, result)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 5.0, result.Items[0].ExamScore)
	assert.Equal(t, 20.0, result.Items[0].MaxExamScore)
	assert.Equal(t, "F9", result.Items[0].GradeCode)

	// Finalizing again is a no-op.
	again, err := f.svc.Finalize(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionStatusFinalized, again.Status)
	assert.Equal(t, 5.0, again.Score)
}

func TestOverrideAnswerScore(t *testing.T) {
	f := newSubmissionFixture(t)
	student := claimsFor(models.RoleStudent, tStudent, tSchool)
	teacher := claimsFor(models.RoleTeacher, tTeacher, tSchool)
	theory := models.Question{ID: uuid.NewString(), ExamID: f.exam.ID, Type: models.QuestionTypeTheory, Prompt: "Discuss", Marks: 10}
	f.exams.questions[f.exam.ID] = append(f.exams.questions[f.exam.ID], theory)
	f.exam.TotalMarks += 10

	sub := f.begin(t, tStudent)
	text := "answer"
	_, err := f.svc.SubmitAnswer(context.Background(), student, f.exam.ID, sub.ID, SubmitAnswerRequest{QuestionID: theory.ID, AnswerText: &text})
	require.NoError(t, err)

	// Only a finalized submission can be re-marked.
	_, err = f.svc.OverrideAnswerScore(context.Background(), teacher, f.exam.ID, sub.ID, theory.ID, 8)
	assert.ErrorIs(t, err, appErrors.ErrStateInvalid)

	_, err = f.svc.Finalize(context.Background(), student, f.exam.ID, sub.ID)
	require.NoError(t, err)

	_, err = f.svc.OverrideAnswerScore(context.Background(), teacher, f.exam.ID, sub.ID, theory.ID, 11)
	assert.ErrorIs(t, err, appErrors.ErrInvalidScore)

	_, err = f.svc.OverrideAnswerScore(context.Background(), student, f.exam.ID, sub.ID, theory.ID, 8)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	marked, err := f.svc.OverrideAnswerScore(context.Background(), teacher, f.exam.ID, sub.ID, theory.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8.0, marked.Score)

	result := f.results.resultFor(tStudent, f.exam.AcademicSession, f.exam.Term)
	require.NotNil(t, result)
	require.Len(t, result.Items, 1)
	assert.Equal(t, 8.0, result.Items[0].ExamScore)
}

func TestEndAllForcesActiveSubmissions(t *testing.T) {
	f := newSubmissionFixture(t)
	objectiveQuestion(f.exams, f.exam.ID, 0, 5)
	subA := f.begin(t, tStudent)
	subB := f.begin(t, tStudent2)

	_, err := f.svc.Pause(context.Background(), claimsFor(models.RoleStudent, tStudent2, tSchool), f.exam.ID, subB.ID)
	require.NoError(t, err)

	_, err = f.svc.EndAll(context.Background(), claimsFor(models.RoleStudent, tStudent, tSchool), f.exam.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	teacher := claimsFor(models.RoleTeacher, tTeacher, tSchool)
	ended, err := f.svc.EndAll(context.Background(), teacher, f.exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, ended)
	assert.Contains(t, f.events.types(), "exam.ended")

	for _, id := range []string{subA.ID, subB.ID} {
		stored, err := f.subs.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, models.SubmissionStatusFinalized, stored.Status)
		require.NotNil(t, stored.EndedBy)
		assert.Equal(t, tTeacher, *stored.EndedBy)
	}

	// Re-running ends nothing further.
	ended, err = f.svc.EndAll(context.Background(), teacher, f.exam.ID)
	require.NoError(t, err)
	assert.Zero(t, ended)
}

func TestGetSubmissionAccess(t *testing.T) {
	f := newSubmissionFixture(t)
	sub := f.begin(t, tStudent)

	_, err := f.svc.Get(context.Background(), claimsFor(models.RoleStudent, tStudent2, tSchool), f.exam.ID, sub.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	invigilator := uuid.NewString()
	f.exams.invigilators[f.exam.ID] = map[string]bool{invigilator: true}
	got, err := f.svc.Get(context.Background(), claimsFor(models.RoleStudent, invigilator, tSchool), f.exam.ID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, got.ID)

	_, err = f.svc.Get(context.Background(), claimsFor(models.RoleStudent, tStudent, tSchool), f.exam.ID, uuid.NewString())
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
