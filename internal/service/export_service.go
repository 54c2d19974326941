package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
	"github.com/noah-isme/rsaf-qualification-api/pkg/export"
)

// ExportFormat selects the rendered document type.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat resolves a format name, defaulting to CSV when empty.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportFormatCSV:
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

// ExportFile is a rendered document ready for download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type exportSource interface {
	MyEnrollmentRows(ctx context.Context, actor models.Identity) ([]dto.EnrollmentRow, error)
	PendingRows(ctx context.Context, actor models.Identity) ([]dto.PendingApprovalRow, error)
}

// ExportService renders enrollment tables as CSV or PDF.
type ExportService struct {
	source    exportSource
	exporters map[ExportFormat]export.Exporter
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(source exportSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		source: source,
		exporters: map[ExportFormat]export.Exporter{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

// MyEnrollments exports actor's enrollment table.
func (s *ExportService) MyEnrollments(ctx context.Context, actor models.Identity, format ExportFormat) (*ExportFile, error) {
	rows, err := s.source.MyEnrollmentRows(ctx, actor)
	if err != nil {
		return nil, err
	}
	headers := []string{"Code", "Qualification", "Enrolled Date", "Status", "Current Stage"}
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, map[string]string{
			"Code":          row.QualificationCode,
			"Qualification": row.QualificationName,
			"Enrolled Date": row.EnrolledDate,
			"Status":        string(row.Status),
			"Current Stage": row.CurrentStage,
		})
	}
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Enrollments of %s", actor.Name),
		Headers: headers,
		Rows:    records,
	}
	return s.render(dataset, "my_enrollments_"+actor.Name, format)
}

// PendingApprovals exports actor's approval work queue.
func (s *ExportService) PendingApprovals(ctx context.Context, actor models.Identity, format ExportFormat) (*ExportFile, error) {
	rows, err := s.source.PendingRows(ctx, actor)
	if err != nil {
		return nil, err
	}
	headers := []string{"Trainee", "Qualification", "Enrolled Date", "Status", "Current Stage"}
	records := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, map[string]string{
			"Trainee":       row.Trainee,
			"Qualification": row.Qualification,
			"Enrolled Date": row.EnrolledDate,
			"Status":        string(row.Status),
			"Current Stage": row.CurrentStage,
		})
	}
	dataset := export.Dataset{
		Title:   fmt.Sprintf("Pending %s Approvals", actor.Role),
		Headers: headers,
		Rows:    records,
	}
	return s.render(dataset, "pending_"+actor.Role.Key(), format)
}

func (s *ExportService) render(dataset export.Dataset, name string, format ExportFormat) (*ExportFile, error) {
	exporter, ok := s.exporters[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	payload, err := exporter.Render(dataset)
	if err != nil {
		s.logger.Error("render export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	timestamp := s.now().UTC().Format("20060102_150405")
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.%s", sanitizeFilename(name), timestamp, exporter.Extension()),
		ContentType: exporter.ContentType(),
		Data:        payload,
	}, nil
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
