package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/klasnova/klasnova-api/internal/models"
	"github.com/klasnova/klasnova-api/pkg/export"
)

type pdfRenderer interface {
	Render(data export.Dataset, title string, subtitles ...string) ([]byte, error)
}

// ExportService renders result documents and class summaries as PDF report
// sheets for download by school staff.
type ExportService struct {
	results *ResultService
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs the exporter.
func NewExportService(results *ResultService, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{results: results, pdf: pdf, logger: logger}
}

// StudentResultPDF renders one student's result sheet. Access rules are the
// same as for the JSON form of the document.
func (s *ExportService) StudentResultPDF(ctx context.Context, claims *models.JWTClaims, studentID, session string, term int) ([]byte, string, error) {
	result, err := s.results.GetStudentResult(ctx, claims, studentID, session, term)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Headers: []string{"Subject", "CA", "Exam", "Total", "Grade"},
	}
	for _, item := range result.Items {
		data.Rows = append(data.Rows, map[string]string{
			"Subject": item.SubjectID,
			"CA":      fmt.Sprintf("%.1f / %.1f", item.CAScore, item.MaxCAScore),
			"Exam":    fmt.Sprintf("%.1f / %.1f", item.ExamScore, item.MaxExamScore),
			"Total":   fmt.Sprintf("%.1f", item.Total),
			"Grade":   fmt.Sprintf("%s (%s)", item.GradeCode, item.GradeLabel),
		})
	}

	subtitles := []string{
		fmt.Sprintf("Session %s, term %d", result.AcademicSession, result.Term),
		fmt.Sprintf("Total %.1f, average %.2f, %s", result.TotalScore, result.Average, result.Remark),
	}
	payload, err := s.pdf.Render(data, "Student result sheet", subtitles...)
	if err != nil {
		return nil, "", fmt.Errorf("render result sheet: %w", err)
	}

	filename := fmt.Sprintf("result-%s-%d.pdf", result.StudentID, result.Term)
	s.logger.Info("result sheet rendered", zap.String("student_id", result.StudentID), zap.Int("bytes", len(payload)))
	return payload, filename, nil
}

// ClassSummaryPDF renders the class-level aggregation as a leaderboard sheet.
func (s *ExportService) ClassSummaryPDF(ctx context.Context, filter models.ResultFilter) ([]byte, string, error) {
	summary, err := s.results.GenerateResultSummary(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Headers: []string{"Rank", "Student", "Average"},
	}
	for _, performer := range summary.TopPerformers {
		data.Rows = append(data.Rows, map[string]string{
			"Rank":    fmt.Sprintf("%d", performer.Rank),
			"Student": performer.StudentID,
			"Average": fmt.Sprintf("%.2f", performer.Average),
		})
	}

	subtitles := []string{
		fmt.Sprintf("Session %s, term %d", summary.AcademicSession, summary.Term),
		fmt.Sprintf("%d students, class average %.2f", summary.StudentCount, summary.ClassAverage),
	}
	payload, err := s.pdf.Render(data, "Class result summary", subtitles...)
	if err != nil {
		return nil, "", fmt.Errorf("render class summary: %w", err)
	}

	filename := fmt.Sprintf("summary-%s-%d.pdf", summary.ClassroomID, summary.Term)
	return payload, filename, nil
}
