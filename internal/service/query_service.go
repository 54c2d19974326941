package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

const maxSuggestions = 3

type enrollmentLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.Enrollment, error)
}

// QueryService answers read-only questions about the catalog and enrollments.
type QueryService struct {
	store   enrollmentLister
	catalog qualificationReader
	cfg     WorkflowConfig
	logger  *zap.Logger
}

// NewQueryService constructs QueryService.
func NewQueryService(store enrollmentLister, catalog qualificationReader, cfg WorkflowConfig, logger *zap.Logger) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryService{store: store, catalog: catalog, cfg: cfg, logger: logger}
}

// MyEnrollments returns the enrollments belonging to actor.
func (s *QueryService) MyEnrollments(ctx context.Context, actor models.Identity) ([]models.Enrollment, error) {
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return OwnedBy(all, actor), nil
}

// MyEnrollmentRows renders actor's enrollments as table rows.
func (s *QueryService) MyEnrollmentRows(ctx context.Context, actor models.Identity) ([]dto.EnrollmentRow, error) {
	mine, err := s.MyEnrollments(ctx, actor)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.EnrollmentRow, 0, len(mine))
	for _, e := range mine {
		rows = append(rows, dto.EnrollmentRow{
			ID:                e.ID,
			QualificationCode: e.QualificationCode,
			QualificationName: e.QualificationName,
			EnrolledDate:      e.EnrolledDate,
			Status:            e.Status,
			CurrentStage:      e.CurrentStage(),
		})
	}
	return rows, nil
}

// Pending returns the enrollments awaiting actor's decision. Trainees have none.
func (s *QueryService) Pending(ctx context.Context, actor models.Identity) ([]models.Enrollment, error) {
	if !actor.Role.IsApprover() {
		return []models.Enrollment{}, nil
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	return PendingFor(all, actor.Role), nil
}

// PendingRows renders actor's work queue as table rows.
func (s *QueryService) PendingRows(ctx context.Context, actor models.Identity) ([]dto.PendingApprovalRow, error) {
	pending, err := s.Pending(ctx, actor)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.PendingApprovalRow, 0, len(pending))
	for _, e := range pending {
		row := dto.PendingApprovalRow{
			ID:            e.ID,
			Trainee:       e.Trainee,
			Qualification: e.QualificationCode + " - " + e.QualificationName,
			EnrolledDate:  e.EnrolledDate,
			Status:        e.Status,
			CurrentStage:  e.CurrentStage(),
		}
		row.Actions = []string{dto.ActionApprove, dto.ActionReject, dto.ActionView}
		rows = append(rows, row)
	}
	return rows, nil
}

// Summary returns the dashboard counters for actor.
func (s *QueryService) Summary(ctx context.Context, actor models.Identity) (*dto.SummaryResponse, error) {
	total, err := s.catalog.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count qualifications")
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, err
	}
	summary := Summarize(all, actor, total)
	return &summary, nil
}

// Catalog lists qualifications matching filter with actor's eligibility. When nothing matches a
// non-empty search, the closest catalog titles are returned as suggestions.
func (s *QueryService) Catalog(ctx context.Context, actor models.Identity, filter models.QualificationFilter) ([]dto.CatalogItem, []string, error) {
	quals, err := s.catalog.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
	}
	all, err := s.list(ctx)
	if err != nil {
		return nil, nil, err
	}
	mine := OwnedBy(all, actor)

	items := make([]dto.CatalogItem, 0, len(quals))
	for _, q := range quals {
		items = append(items, dto.CatalogItem{Qualification: q, Enrolled: s.enrolledIn(mine, q.ID)})
	}

	var suggestions []string
	if len(items) == 0 && strings.TrimSpace(filter.Search) != "" {
		candidates, err := s.catalog.List(ctx, models.QualificationFilter{Category: filter.Category})
		if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list qualifications")
		}
		suggestions = Suggest(filter.Search, candidates)
	}
	return items, suggestions, nil
}

// Qualification returns one catalog entry.
func (s *QueryService) Qualification(ctx context.Context, id int) (*models.Qualification, error) {
	q, err := s.catalog.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
	}
	return q, nil
}

// Detail attaches the qualification and per-stage approval progress to an enrollment.
func (s *QueryService) Detail(ctx context.Context, enrollment models.Enrollment) (*dto.EnrollmentDetail, error) {
	detail := &dto.EnrollmentDetail{Enrollment: enrollment, Progress: ApprovalProgress(enrollment)}
	q, err := s.catalog.FindByID(ctx, enrollment.QualificationID)
	switch {
	case err == nil:
		detail.Qualification = q
	case errors.Is(err, sql.ErrNoRows):
		s.logger.Warn("enrollment references unknown qualification", zap.String("enrollment_id", enrollment.ID), zap.Int("qualification_id", enrollment.QualificationID))
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load qualification")
	}
	return detail, nil
}

func (s *QueryService) enrolledIn(mine []models.Enrollment, qualificationID int) bool {
	var attempts []models.Enrollment
	for _, e := range mine {
		if e.QualificationID == qualificationID {
			attempts = append(attempts, e)
		}
	}
	return blocksEnrollment(attempts, s.cfg)
}

func (s *QueryService) list(ctx context.Context) ([]models.Enrollment, error) {
	all, err := s.store.List(ctx, models.EnrollmentFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return all, nil
}

// OwnedBy keeps the enrollments whose trainee is actor.
func OwnedBy(enrollments []models.Enrollment, actor models.Identity) []models.Enrollment {
	result := make([]models.Enrollment, 0)
	for _, e := range enrollments {
		if e.Trainee == actor.Name {
			result = append(result, e)
		}
	}
	return result
}

// Summarize computes the dashboard counters from the full collection.
func Summarize(enrollments []models.Enrollment, actor models.Identity, totalQualifications int) dto.SummaryResponse {
	mine := OwnedBy(enrollments, actor)
	summary := dto.SummaryResponse{TotalQualifications: totalQualifications, MyEnrollments: len(mine)}
	for _, e := range mine {
		if e.Status == models.EnrollmentStatusCommanderApproved {
			summary.Completed++
		}
	}
	if actor.Role.IsApprover() {
		summary.Pending = len(PendingFor(enrollments, actor.Role))
		return summary
	}
	for _, e := range mine {
		if !e.Status.IsTerminal() {
			summary.Pending++
		}
	}
	return summary
}

// ApprovalProgress lists each approver stage with its slot.
func ApprovalProgress(e models.Enrollment) []dto.ApprovalStep {
	steps := make([]dto.ApprovalStep, 0, len(approvalChain))
	for _, stage := range approvalChain {
		approval := e.ApprovalFor(stage.role)
		steps = append(steps, dto.ApprovalStep{Role: stage.role, Approval: approval, Done: approval != nil})
	}
	return steps
}

// Suggest ranks candidate titles by edit distance to term, matching against each word of the
// title and the code, and returns up to three close enough to be plausible typos.
func Suggest(term string, candidates []models.Qualification) []string {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	limit := len([]rune(term)) / 2
	if limit < 1 {
		limit = 1
	}
	type scored struct {
		title string
		score int
		order int
	}
	var ranked []scored
	for i, q := range candidates {
		best := levenshtein.ComputeDistance(term, strings.ToLower(q.Code))
		for _, word := range strings.Fields(strings.ToLower(q.Title)) {
			if d := levenshtein.ComputeDistance(term, word); d < best {
				best = d
			}
		}
		if best <= limit {
			ranked = append(ranked, scored{title: q.Title, score: best, order: i})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score < ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})
	if len(ranked) > maxSuggestions {
		ranked = ranked[:maxSuggestions]
	}
	suggestions := make([]string, 0, len(ranked))
	for _, r := range ranked {
		suggestions = append(suggestions, r.title)
	}
	return suggestions
}
