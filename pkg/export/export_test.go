package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "My Enrollments",
		Headers: []string{"Code", "Qualification", "Status"},
		Rows: []map[string]string{
			{"Code": "RSAF-F16-001", "Qualification": "F-16 Fighter Pilot Qualification", "Status": "Pending"},
			{"Code": "RSAF-SAF-004", "Qualification": "Aviation Safety Officer, Basic", "Status": "Rejected"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	expected := "Code,Qualification,Status\n" +
		"RSAF-F16-001,F-16 Fighter Pilot Qualification,Pending\n" +
		"RSAF-SAF-004,\"Aviation Safety Officer, Basic\",Rejected\n"
	assert.Equal(t, expected, string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	out, err := exporter.Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	empty := sampleDataset()
	empty.Rows = nil
	out, err = exporter.Render(empty)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestExporterMetadata(t *testing.T) {
	var csvExporter Exporter = NewCSVExporter()
	var pdfExporter Exporter = NewPDFExporter()

	assert.Equal(t, "csv", csvExporter.Extension())
	assert.Equal(t, "application/pdf", pdfExporter.ContentType())
}
