package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExamStatus represents the authoring lifecycle of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusPublished ExamStatus = "published"
)

// QuestionType distinguishes auto-markable questions from free-text ones.
type QuestionType string

const (
	QuestionTypeObjective QuestionType = "objective"
	QuestionTypeTheory    QuestionType = "theory"
)

// Exam represents a timed exam owned by one school and classroom.
// TotalMarks is derived from the question set and recomputed inside the same
// transaction as every question write.
type Exam struct {
	ID              string     `db:"id" json:"id"`
	SchoolID        string     `db:"school_id" json:"school_id"`
	ClassroomID     string     `db:"classroom_id" json:"classroom_id"`
	SubjectID       string     `db:"subject_id" json:"subject_id"`
	Title           string     `db:"title" json:"title"`
	AcademicSession string     `db:"academic_session" json:"academic_session"`
	Term            int        `db:"term" json:"term"`
	Status          ExamStatus `db:"status" json:"status"`
	DurationMinutes int        `db:"duration_minutes" json:"duration_minutes"`
	MaxPauses       int        `db:"max_pauses" json:"max_pauses"`
	TotalMarks      float64    `db:"total_marks" json:"total_marks"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`

	Questions []Question `db:"-" json:"questions,omitempty"`
}

// OptionList stores an ordered objective option list as a JSONB column.
type OptionList []string

// Value implements driver.Valuer.
func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	return json.Marshal(o)
}

// Scan implements sql.Scanner.
func (o *OptionList) Scan(src interface{}) error {
	if src == nil {
		*o = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, o)
	case string:
		return json.Unmarshal([]byte(v), o)
	default:
		return fmt.Errorf("unsupported option list type %T", src)
	}
}

// Question belongs to exactly one exam. Objective questions carry an ordered
// option list and the index of the correct option; theory questions carry
// neither.
type Question struct {
	ID            string       `db:"id" json:"id"`
	ExamID        string       `db:"exam_id" json:"exam_id"`
	Type          QuestionType `db:"question_type" json:"type"`
	Prompt        string       `db:"prompt" json:"prompt"`
	Options       OptionList   `db:"options" json:"options,omitempty"`
	CorrectOption *int         `db:"correct_option" json:"-"`
	Marks         float64      `db:"marks" json:"marks"`
	Position      int          `db:"position" json:"position"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

// ExamInvigilator grants pause/resume/end/announce rights scoped to one exam.
type ExamInvigilator struct {
	ExamID    string    `db:"exam_id" json:"exam_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	AddedBy   string    `db:"added_by" json:"added_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ExamFilter captures listing criteria for exams.
type ExamFilter struct {
	SchoolID    string
	ClassroomID string
	SubjectID   string
	Status      ExamStatus
	Page        int
	PageSize    int
}
