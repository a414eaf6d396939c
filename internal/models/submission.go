package models

import "time"

// SubmissionStatus represents a student's progress through a timed exam.
type SubmissionStatus string

const (
	SubmissionStatusNotStarted SubmissionStatus = "not_started"
	SubmissionStatusInProgress SubmissionStatus = "in_progress"
	SubmissionStatusPaused     SubmissionStatus = "paused"
	SubmissionStatusFinalized  SubmissionStatus = "finalized"
)

// Active reports whether the submission may still change state.
func (s SubmissionStatus) Active() bool {
	return s == SubmissionStatusInProgress || s == SubmissionStatusPaused
}

// StudentExam is a single student's attempt record against one exam. Timing
// is evaluated against the stored timestamps on every read and write; no
// background timer exists.
type StudentExam struct {
	ID          string           `db:"id" json:"id"`
	ExamID      string           `db:"exam_id" json:"exam_id"`
	StudentID   string           `db:"student_id" json:"student_id"`
	SchoolID    string           `db:"school_id" json:"school_id"`
	Status      SubmissionStatus `db:"status" json:"status"`
	PausesUsed  int              `db:"pauses_used" json:"pauses_used"`
	StartedAt   *time.Time       `db:"started_at" json:"started_at,omitempty"`
	EndsAt      *time.Time       `db:"ends_at" json:"ends_at,omitempty"`
	PausedAt    *time.Time       `db:"paused_at" json:"paused_at,omitempty"`
	FinalizedAt *time.Time       `db:"finalized_at" json:"finalized_at,omitempty"`
	EndedBy     *string          `db:"ended_by" json:"ended_by,omitempty"`
	Score       float64          `db:"score" json:"score"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`

	Answers []SubmissionAnswer `db:"-" json:"answers,omitempty"`
}

// Expired reports whether the answering window has elapsed relative to now.
// Paused submissions do not expire; the paused interval is handed back on
// resume.
func (s *StudentExam) Expired(now time.Time) bool {
	if s.Status != SubmissionStatusInProgress || s.EndsAt == nil {
		return false
	}
	return now.After(*s.EndsAt)
}

// SubmissionAnswer records one answer for one question of a submission.
// AwardedScore is set by the auto-marker for objective questions and by a
// teacher for theory answers or overrides; nil means not yet marked.
type SubmissionAnswer struct {
	ID             string     `db:"id" json:"id"`
	SubmissionID   string     `db:"submission_id" json:"submission_id"`
	QuestionID     string     `db:"question_id" json:"question_id"`
	SelectedOption *int       `db:"selected_option" json:"selected_option,omitempty"`
	AnswerText     *string    `db:"answer_text" json:"answer_text,omitempty"`
	AwardedScore   *float64   `db:"awarded_score" json:"awarded_score,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
