package models

import "time"

// Result is the per-student, per-term result document. One row exists per
// (student, academic session, term); subject scores hang off it as items.
// Average, total, remark and position are derived and recomputed whenever
// items change.
type Result struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	ClassroomID     string    `db:"classroom_id" json:"classroom_id"`
	AcademicSession string    `db:"academic_session" json:"academic_session"`
	Term            int       `db:"term" json:"term"`
	TotalScore      float64   `db:"total_score" json:"total_score"`
	Average         float64   `db:"average" json:"average"`
	Remark          string    `db:"remark" json:"remark"`
	Position        *int      `db:"position" json:"position,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`

	Items []ResultItem `db:"-" json:"items,omitempty"`
}

// ResultItem holds one subject's scores inside a result. Identity is the
// subject reference: at most one item exists per (result, subject), enforced
// by a unique constraint rather than by array position.
type ResultItem struct {
	ID           string    `db:"id" json:"id"`
	ResultID     string    `db:"result_id" json:"result_id"`
	SubjectID    string    `db:"subject_id" json:"subject_id"`
	ExamScore    float64   `db:"exam_score" json:"exam_score"`
	MaxExamScore float64   `db:"max_exam_score" json:"max_exam_score"`
	CAScore      float64   `db:"ca_score" json:"ca_score"`
	MaxCAScore   float64   `db:"max_ca_score" json:"max_ca_score"`
	Total        float64   `db:"total" json:"total"`
	GradeCode    string    `db:"grade_code" json:"grade_code"`
	GradeLabel   string    `db:"grade_label" json:"grade_label"`
	Position     *int      `db:"position" json:"position,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ResultKey identifies the result document a subject score belongs to.
type ResultKey struct {
	StudentID       string
	SchoolID        string
	ClassroomID     string
	AcademicSession string
	Term            int
}

// ResultFilter scopes summary and listing queries.
type ResultFilter struct {
	ClassroomID     string
	AcademicSession string
	Term            int
}

// SubjectPerformance aggregates one subject across a class.
type SubjectPerformance struct {
	SubjectID string  `json:"subject_id"`
	Average   float64 `json:"average"`
	Highest   float64 `json:"highest"`
	Lowest    float64 `json:"lowest"`
	Count     int     `json:"count"`
}

// TopPerformer is one entry of the ranked class leaderboard.
type TopPerformer struct {
	StudentID string  `json:"student_id"`
	Average   float64 `json:"average"`
	Rank      int     `json:"rank"`
}

// ResultSummary is the class-level aggregation for one classroom, session and
// term.
type ResultSummary struct {
	ClassroomID       string               `json:"classroom_id"`
	AcademicSession   string               `json:"academic_session"`
	Term              int                  `json:"term"`
	StudentCount      int                  `json:"student_count"`
	ClassAverage      float64              `json:"class_average"`
	HighestAverage    float64              `json:"highest_average"`
	LowestAverage     float64              `json:"lowest_average"`
	SubjectBreakdown  []SubjectPerformance `json:"subject_breakdown"`
	GradeDistribution map[string]int       `json:"grade_distribution"`
	TopPerformers     []TopPerformer       `json:"top_performers"`
	GeneratedAt       time.Time            `json:"generated_at"`
}
