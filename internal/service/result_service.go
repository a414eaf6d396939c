package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/grading"
	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/cache"
	"github.com/klasnova/klasnova-api/pkg/database"
	appErrors "github.com/klasnova/klasnova-api/pkg/errors"
)

type resultRepo interface {
	EnsureResult(ctx context.Context, q sqlx.ExtContext, key models.ResultKey) (string, bool, error)
	UpsertItem(ctx context.Context, q sqlx.ExtContext, item *models.ResultItem) (bool, error)
	ListItems(ctx context.Context, q sqlx.ExtContext, resultID string) ([]models.ResultItem, error)
	UpdateDerived(ctx context.Context, q sqlx.ExtContext, resultID string, total, average float64, remark string) error
	FindByStudent(ctx context.Context, studentID, session string, term int) (*models.Result, error)
	ListByClass(ctx context.Context, filter models.ResultFilter) ([]models.Result, error)
}

// SubjectScoreUpdate identifies one subject score post into a student's
// result document.
type SubjectScoreUpdate struct {
	StudentID       string  `json:"student_id" validate:"required"`
	SchoolID        string  `json:"school_id" validate:"required"`
	ClassroomID     string  `json:"classroom_id" validate:"required"`
	AcademicSession string  `json:"academic_session" validate:"required"`
	Term            int     `json:"term" validate:"required,min=1,max=3"`
	SubjectID       string  `json:"subject_id" validate:"required"`
	ExamScore       float64 `json:"exam_score"`
	MaxExamScore    float64 `json:"max_exam_score" validate:"required,gt=0"`
	CAScore         float64 `json:"ca_score"`
	MaxCAScore      float64 `json:"max_ca_score"`
	RecordedBy      string  `json:"recorded_by"`
}

// BulkResultError records one rejected update of a bulk batch.
type BulkResultError struct {
	Index     int    `json:"index"`
	StudentID string `json:"student_id,omitempty"`
	SubjectID string `json:"subject_id,omitempty"`
	Reason    string `json:"reason"`
}

// BulkResultSummary reports the outcome of a bulk post. Callers must inspect
// Errors: a storage failure degrades the whole batch to zero effect with the
// failure captured here instead of an exception.
type BulkResultSummary struct {
	ModifiedCount int               `json:"modified_count"`
	UpsertedCount int               `json:"upserted_count"`
	MatchedCount  int               `json:"matched_count"`
	Errors        []BulkResultError `json:"errors"`
}

// RawSubjectEntry is one subject's raw CA and exam scores as entered by a
// teacher or bulk import. Missing CA components default to zero.
type RawSubjectEntry struct {
	SubjectID string   `json:"subject_id"`
	CA1       *float64 `json:"ca1,omitempty"`
	CA2       *float64 `json:"ca2,omitempty"`
	Exam      float64  `json:"exam"`
}

// RawResultData is a student's full raw entry set for one session and term.
type RawResultData struct {
	StudentID       string            `json:"student_id"`
	AcademicSession string            `json:"academic_session"`
	Term            int               `json:"term"`
	Subjects        []RawSubjectEntry `json:"subjects"`
}

// ProcessedItem is one computed subject line of a processed result.
type ProcessedItem struct {
	SubjectID  string  `json:"subject_id"`
	CA1        float64 `json:"ca1"`
	CA2        float64 `json:"ca2"`
	Exam       float64 `json:"exam"`
	Total      float64 `json:"total"`
	GradeCode  string  `json:"grade_code"`
	GradeLabel string  `json:"grade_label"`
}

// ProcessedResult is the computed view of a student's raw entries.
type ProcessedResult struct {
	StudentID  string          `json:"student_id"`
	Items      []ProcessedItem `json:"items"`
	TotalScore float64         `json:"total_score"`
	Average    float64         `json:"average"`
	Remark     string          `json:"remark"`
}

var sessionFormat = regexp.MustCompile(`^\d{4}/\d{4}$`)

// ResultService is the aggregation engine owning the per-student, per-term
// result document: single and bulk subject-score posts, raw-entry
// processing, and the class summary. The grade scale is an injected
// dependency so tenants and tests can carry their own.
type ResultService struct {
	db        *sqlx.DB
	results   resultRepo
	scale     *grading.Scale
	cacheSvc  *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewResultService constructs the aggregator.
func NewResultService(db *sqlx.DB, results resultRepo, scale *grading.Scale, cacheSvc *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cacheTTL time.Duration) *ResultService {
	if scale == nil {
		scale = grading.NewScale(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResultService{
		db:        db,
		results:   results,
		scale:     scale,
		cacheSvc:  cacheSvc,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cacheTTL:  cacheTTL,
	}
}

// Scale exposes the aggregator's grade scale for configuration endpoints.
func (s *ResultService) Scale() *grading.Scale {
	return s.scale
}

func (s *ResultService) validateUpdate(update SubjectScoreUpdate) error {
	if err := s.validator.Struct(update); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid result payload")
	}
	if update.ExamScore < 0 || update.ExamScore > update.MaxExamScore {
		return appErrors.Clone(appErrors.ErrInvalidScore,
			fmt.Sprintf("exam score %.2f outside [0, %.2f]", update.ExamScore, update.MaxExamScore))
	}
	if update.CAScore < 0 || update.CAScore > update.MaxCAScore {
		return appErrors.Clone(appErrors.ErrInvalidScore,
			fmt.Sprintf("ca score %.2f outside [0, %.2f]", update.CAScore, update.MaxCAScore))
	}
	return nil
}

func (s *ResultService) buildItem(resultID string, update SubjectScoreUpdate) *models.ResultItem {
	total := update.ExamScore + update.CAScore
	band := s.scale.GradeFor(gradePercent(total, update.MaxExamScore+update.MaxCAScore))
	return &models.ResultItem{
		ResultID:     resultID,
		SubjectID:    update.SubjectID,
		ExamScore:    update.ExamScore,
		MaxExamScore: update.MaxExamScore,
		CAScore:      update.CAScore,
		MaxCAScore:   update.MaxCAScore,
		Total:        total,
		GradeCode:    band.Code,
		GradeLabel:   band.Label,
	}
}

// gradePercent normalizes a subject total onto the 0-100 band range when the
// max obtainable is known; raw totals pass through unchanged otherwise.
func gradePercent(total, max float64) float64 {
	if max <= 0 {
		return total
	}
	return total / max * 100
}

func (s *ResultService) recomputeDerived(ctx context.Context, q sqlx.ExtContext, resultID string) error {
	items, err := s.results.ListItems(ctx, q, resultID)
	if err != nil {
		return err
	}
	var total float64
	for _, item := range items {
		total += item.Total
	}
	average := 0.0
	if len(items) > 0 {
		average = round2(total / float64(len(items)))
	}
	return s.results.UpdateDerived(ctx, q, resultID, total, average, grading.RemarkFor(average))
}

// UpdateOrCreateResult posts one subject score, creating the result document
// lazily and updating the matching subject item in place. It returns whether
// the document was newly created. The upsert targets the located item by
// subject identity, so concurrent posts for sibling subjects of the same
// student never lose each other's data.
func (s *ResultService) UpdateOrCreateResult(ctx context.Context, update SubjectScoreUpdate) (bool, error) {
	if err := s.validateUpdate(update); err != nil {
		return false, err
	}
	for field, raw := range map[string]string{
		"student": update.StudentID, "school": update.SchoolID,
		"classroom": update.ClassroomID, "subject": update.SubjectID,
	} {
		if _, err := parseID(field, raw); err != nil {
			return false, err
		}
	}

	var created bool
	work := func(q sqlx.ExtContext) error {
		c, err := s.postSubjectScore(ctx, q, update)
		created = c
		return err
	}
	var err error
	if s.db != nil {
		err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error { return work(tx) })
	} else {
		err = work(nil)
	}
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return false, appErr
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to post result")
	}

	s.metrics.RecordResultPosted()
	s.invalidate(ctx, update.StudentID, update.ClassroomID)
	return created, nil
}

// UpdateOrCreateResultTx is the unit-of-work form of UpdateOrCreateResult:
// the caller owns the transaction, so a finalize-and-post pipeline commits or
// rolls back as one atomic group. Cache invalidation stays with the caller.
func (s *ResultService) UpdateOrCreateResultTx(ctx context.Context, q sqlx.ExtContext, update SubjectScoreUpdate) (bool, error) {
	if err := s.validateUpdate(update); err != nil {
		return false, err
	}
	created, err := s.postSubjectScore(ctx, q, update)
	if err != nil {
		return false, err
	}
	s.metrics.RecordResultPosted()
	return created, nil
}

func (s *ResultService) postSubjectScore(ctx context.Context, q sqlx.ExtContext, update SubjectScoreUpdate) (bool, error) {
	key := models.ResultKey{
		StudentID:       update.StudentID,
		SchoolID:        update.SchoolID,
		ClassroomID:     update.ClassroomID,
		AcademicSession: update.AcademicSession,
		Term:            update.Term,
	}
	resultID, created, err := s.results.EnsureResult(ctx, q, key)
	if err != nil {
		return false, err
	}
	if _, err := s.results.UpsertItem(ctx, q, s.buildItem(resultID, update)); err != nil {
		return false, err
	}
	if err := s.recomputeDerived(ctx, q, resultID); err != nil {
		return false, err
	}
	return created, nil
}

// BulkUpdateOrCreateResults posts a batch of subject scores. Per-item
// validation failures are recorded and skipped without aborting siblings;
// valid updates are grouped per result document and applied in a single
// transaction. A storage failure zeroes the whole summary and captures the
// failure text instead of propagating it.
func (s *ResultService) BulkUpdateOrCreateResults(ctx context.Context, updates []SubjectScoreUpdate) BulkResultSummary {
	summary := BulkResultSummary{Errors: []BulkResultError{}}
	if len(updates) == 0 {
		return summary
	}

	type group struct {
		key     models.ResultKey
		updates []SubjectScoreUpdate
	}
	var order []string
	groups := make(map[string]*group)
	for i, update := range updates {
		if err := s.validateUpdate(update); err != nil {
			summary.Errors = append(summary.Errors, BulkResultError{
				Index:     i,
				StudentID: update.StudentID,
				SubjectID: update.SubjectID,
				Reason:    appErrors.FromError(err).Message,
			})
			continue
		}
		key := models.ResultKey{
			StudentID:       update.StudentID,
			SchoolID:        update.SchoolID,
			ClassroomID:     update.ClassroomID,
			AcademicSession: update.AcademicSession,
			Term:            update.Term,
		}
		mapKey := fmt.Sprintf("%s|%s|%d", key.StudentID, key.AcademicSession, key.Term)
		g, ok := groups[mapKey]
		if !ok {
			g = &group{key: key}
			groups[mapKey] = g
			order = append(order, mapKey)
		}
		g.updates = append(g.updates, update)
	}
	if len(groups) == 0 {
		return summary
	}

	var upserted, matched, modified int
	apply := func(q sqlx.ExtContext) error {
		for _, mapKey := range order {
			g := groups[mapKey]
			resultID, created, err := s.results.EnsureResult(ctx, q, g.key)
			if err != nil {
				return err
			}
			if created {
				upserted++
			} else {
				matched++
				modified++
			}
			for _, update := range g.updates {
				if _, err := s.results.UpsertItem(ctx, q, s.buildItem(resultID, update)); err != nil {
					return err
				}
			}
			if err := s.recomputeDerived(ctx, q, resultID); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if s.db != nil {
		err = database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error { return apply(tx) })
	} else {
		err = apply(nil)
	}
	if err != nil {
		s.logger.Error("bulk result write failed", zap.Error(err))
		summary.ModifiedCount = 0
		summary.UpsertedCount = 0
		summary.MatchedCount = 0
		summary.Errors = append(summary.Errors, BulkResultError{Index: -1, Reason: err.Error()})
		return summary
	}

	summary.UpsertedCount = upserted
	summary.MatchedCount = matched
	summary.ModifiedCount = modified
	for _, g := range groups {
		s.metrics.RecordResultPosted()
		s.invalidate(ctx, g.key.StudentID, g.key.ClassroomID)
	}
	return summary
}

// ProcessResultData computes per-subject totals and grades plus the overall
// aggregate from raw CA and exam entries. Missing CA components default to
// zero.
func (s *ResultService) ProcessResultData(data RawResultData) ProcessedResult {
	processed := ProcessedResult{StudentID: data.StudentID, Items: make([]ProcessedItem, 0, len(data.Subjects))}
	var total float64
	for _, entry := range data.Subjects {
		ca1 := deref(entry.CA1)
		ca2 := deref(entry.CA2)
		itemTotal := ca1 + ca2 + entry.Exam
		band := s.scale.GradeFor(itemTotal)
		processed.Items = append(processed.Items, ProcessedItem{
			SubjectID:  entry.SubjectID,
			CA1:        ca1,
			CA2:        ca2,
			Exam:       entry.Exam,
			Total:      itemTotal,
			GradeCode:  band.Code,
			GradeLabel: band.Label,
		})
		total += itemTotal
	}
	processed.TotalScore = total
	if len(processed.Items) > 0 {
		processed.Average = round2(total / float64(len(processed.Items)))
	}
	processed.Remark = grading.RemarkFor(processed.Average)
	return processed
}

// ValidateResultData returns human-readable validation messages for raw
// result entries; an empty slice means the data is acceptable.
func (s *ResultService) ValidateResultData(data RawResultData) []string {
	messages := []string{}
	if data.StudentID == "" {
		messages = append(messages, "Student is required")
	}
	if data.Term == 0 {
		messages = append(messages, "Term is required")
	} else if data.Term < 1 || data.Term > 3 {
		messages = append(messages, "Term must be 1, 2, or 3")
	}
	if !sessionFormat.MatchString(data.AcademicSession) {
		messages = append(messages, "Invalid session format. Use YYYY/YYYY")
	}
	if len(data.Subjects) == 0 {
		messages = append(messages, "At least one subject entry is required")
	}
	for _, entry := range data.Subjects {
		if deref(entry.CA1) > 20 {
			messages = append(messages, "CA1 score cannot exceed 20")
		}
		if deref(entry.CA2) > 20 {
			messages = append(messages, "CA2 score cannot exceed 20")
		}
		if entry.Exam > 60 {
			messages = append(messages, "Exam score cannot exceed 60")
		}
	}
	return messages
}

// GetStudentResult returns one student's result for a session and term,
// served from cache when fresh.
func (s *ResultService) GetStudentResult(ctx context.Context, claims *models.JWTClaims, studentID, session string, term int) (*models.Result, error) {
	studentID, err := parseID("student", studentID)
	if err != nil {
		return nil, err
	}
	if claims != nil && claims.Role == models.RoleStudent && claims.UserID != studentID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "students may only read their own result")
	}

	key := cache.StudentResultKey(studentID, session, term)
	var cached models.Result
	if hit, _ := s.cacheSvc.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	result, err := s.results.FindByStudent(ctx, studentID, session, term)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load result")
	}
	if claims != nil {
		if err := s.guardSchool(claims, result.SchoolID); err != nil {
			return nil, err
		}
	}
	_ = s.cacheSvc.Set(ctx, key, result, s.cacheTTL)
	return result, nil
}

func (s *ResultService) guardSchool(claims *models.JWTClaims, schoolID string) error {
	if claims.Role == models.RoleGlobalSuperAdmin {
		return nil
	}
	if claims.SchoolID != schoolID {
		return appErrors.Clone(appErrors.ErrForbidden, "resource belongs to another school")
	}
	return nil
}

// GenerateResultSummary builds the class-level aggregation: class average,
// highest and lowest averages, per-subject breakdown, grade distribution and
// the ranked top-performer list.
func (s *ResultService) GenerateResultSummary(ctx context.Context, filter models.ResultFilter) (*models.ResultSummary, error) {
	if _, err := parseID("classroom", filter.ClassroomID); err != nil {
		return nil, err
	}
	if !sessionFormat.MatchString(filter.AcademicSession) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Invalid session format. Use YYYY/YYYY")
	}
	if filter.Term < 1 || filter.Term > 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Term must be 1, 2, or 3")
	}

	cacheKey := cache.SummaryKey(filter.ClassroomID, filter.AcademicSession, filter.Term)
	var cached models.ResultSummary
	if hit, _ := s.cacheSvc.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	results, err := s.results.ListByClass(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class results")
	}

	summary := &models.ResultSummary{
		ClassroomID:       filter.ClassroomID,
		AcademicSession:   filter.AcademicSession,
		Term:              filter.Term,
		StudentCount:      len(results),
		GradeDistribution: map[string]int{},
		SubjectBreakdown:  []models.SubjectPerformance{},
		TopPerformers:     []models.TopPerformer{},
		GeneratedAt:       time.Now().UTC(),
	}
	if len(results) == 0 {
		return summary, nil
	}

	type subjectAgg struct {
		sum, high, low float64
		count          int
	}
	subjects := make(map[string]*subjectAgg)
	averages := make([]float64, len(results))
	var classSum float64
	summary.HighestAverage = results[0].Average
	summary.LowestAverage = results[0].Average

	for i, result := range results {
		averages[i] = result.Average
		classSum += result.Average
		if result.Average > summary.HighestAverage {
			summary.HighestAverage = result.Average
		}
		if result.Average < summary.LowestAverage {
			summary.LowestAverage = result.Average
		}
		for _, item := range result.Items {
			summary.GradeDistribution[item.GradeCode]++
			agg, ok := subjects[item.SubjectID]
			if !ok {
				agg = &subjectAgg{high: item.Total, low: item.Total}
				subjects[item.SubjectID] = agg
			}
			agg.sum += item.Total
			agg.count++
			if item.Total > agg.high {
				agg.high = item.Total
			}
			if item.Total < agg.low {
				agg.low = item.Total
			}
		}
	}
	summary.ClassAverage = round2(classSum / float64(len(results)))

	subjectIDs := make([]string, 0, len(subjects))
	for id := range subjects {
		subjectIDs = append(subjectIDs, id)
	}
	sort.Strings(subjectIDs)
	for _, id := range subjectIDs {
		agg := subjects[id]
		summary.SubjectBreakdown = append(summary.SubjectBreakdown, models.SubjectPerformance{
			SubjectID: id,
			Average:   round2(agg.sum / float64(agg.count)),
			Highest:   agg.high,
			Lowest:    agg.low,
			Count:     agg.count,
		})
	}

	ranks := grading.Rank(averages)
	performers := make([]models.TopPerformer, len(results))
	for i, result := range results {
		performers[i] = models.TopPerformer{StudentID: result.StudentID, Average: result.Average, Rank: ranks[i]}
	}
	sort.SliceStable(performers, func(i, j int) bool { return performers[i].Rank < performers[j].Rank })
	if len(performers) > 10 {
		performers = performers[:10]
	}
	summary.TopPerformers = performers

	_ = s.cacheSvc.Set(ctx, cacheKey, summary, s.cacheTTL)
	return summary, nil
}

// InvalidateStudent drops cached payloads after an out-of-band mutation.
func (s *ResultService) InvalidateStudent(ctx context.Context, studentID, classroomID string) {
	s.invalidate(ctx, studentID, classroomID)
}

func (s *ResultService) invalidate(ctx context.Context, studentID, classroomID string) {
	_ = s.cacheSvc.Invalidate(ctx, cache.StudentResultPattern(studentID))
	if classroomID != "" {
		_ = s.cacheSvc.Invalidate(ctx, cache.SummaryPattern(classroomID))
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
