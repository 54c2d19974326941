package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	"github.com/noah-isme/rsaf-qualification-api/internal/service"
)

type exportStub struct {
	lastFormat service.ExportFormat
	lastActor  models.Identity
	source     string
}

func (s *exportStub) MyEnrollments(_ context.Context, actor models.Identity, format service.ExportFormat) (*service.ExportFile, error) {
	s.lastActor, s.lastFormat, s.source = actor, format, "mine"
	return &service.ExportFile{Filename: "my_enrollments.csv", ContentType: "text/csv; charset=utf-8", Data: []byte("id\nenr-1\n")}, nil
}

func (s *exportStub) PendingApprovals(_ context.Context, actor models.Identity, format service.ExportFormat) (*service.ExportFile, error) {
	s.lastActor, s.lastFormat, s.source = actor, format, "pending"
	return &service.ExportFile{Filename: "pending_approvals.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
}

func TestExportHandlerMineDefaultsToCSV(t *testing.T) {
	stub := &exportStub{}
	handler := NewExportHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/enrollments/mine/export", nil, trainee)
	handler.Mine(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatCSV, stub.lastFormat)
	assert.Equal(t, "mine", stub.source)
	assert.Equal(t, `attachment; filename="my_enrollments.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "id\nenr-1\n", rec.Body.String())
}

func TestExportHandlerPendingPDF(t *testing.T) {
	stub := &exportStub{}
	handler := NewExportHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/approvals/pending/export?format=PDF", nil, trainer)
	handler.Pending(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportFormatPDF, stub.lastFormat)
	assert.Equal(t, models.RoleTrainer, stub.lastActor.Role)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
}

func TestExportHandlerUnknownFormat(t *testing.T) {
	stub := &exportStub{}
	handler := NewExportHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/enrollments/mine/export?format=xlsx", nil, trainee)
	handler.Mine(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, stub.source)
}
