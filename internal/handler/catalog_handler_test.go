package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/rsaf-qualification-api/internal/dto"
	"github.com/noah-isme/rsaf-qualification-api/internal/models"
	appErrors "github.com/noah-isme/rsaf-qualification-api/pkg/errors"
)

type catalogStub struct {
	items       []dto.CatalogItem
	suggestions []string
	err         error
	lastFilter  models.QualificationFilter
	lastID      int
}

func (s *catalogStub) Catalog(_ context.Context, _ models.Identity, filter models.QualificationFilter) ([]dto.CatalogItem, []string, error) {
	s.lastFilter = filter
	return s.items, s.suggestions, s.err
}

func (s *catalogStub) Qualification(_ context.Context, id int) (*models.Qualification, error) {
	s.lastID = id
	if s.err != nil {
		return nil, s.err
	}
	return &models.Qualification{ID: id, Code: "F16-PILOT", Title: "F-16 Fighter Pilot"}, nil
}

func TestCatalogHandlerListPassesFilter(t *testing.T) {
	stub := &catalogStub{items: []dto.CatalogItem{{Qualification: models.Qualification{ID: 1, Code: "F16-PILOT"}, Enrolled: true}}}
	handler := NewCatalogHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/qualifications?search=pilot&category=aircraft", nil, trainee)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pilot", stub.lastFilter.Search)
	assert.Equal(t, models.CategoryAircraft, stub.lastFilter.Category)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Meta["total"])
	assert.NotContains(t, envelope.Meta, "suggestions")
	var items []map[string]interface{}
	require.NoError(t, json.Unmarshal(envelope.Data, &items))
	assert.Equal(t, true, items[0]["enrolled"])
}

func TestCatalogHandlerListSuggestions(t *testing.T) {
	stub := &catalogStub{suggestions: []string{"Apache Helicopter Pilot"}}
	handler := NewCatalogHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/qualifications?search=apachi", nil, trainee)
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(0), envelope.Meta["total"])
	assert.Equal(t, []interface{}{"Apache Helicopter Pilot"}, envelope.Meta["suggestions"])
}

func TestCatalogHandlerListUnknownCategory(t *testing.T) {
	handler := NewCatalogHandler(&catalogStub{})

	c, rec := newTestContext(http.MethodGet, "/qualifications?category=submarine", nil, trainee)
	handler.List(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandlerGet(t *testing.T) {
	stub := &catalogStub{}
	handler := NewCatalogHandler(stub)

	c, rec := newTestContext(http.MethodGet, "/qualifications/1", nil, trainee)
	c.AddParam("id", "1")
	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, stub.lastID)

	c, rec = newTestContext(http.MethodGet, "/qualifications/abc", nil, trainee)
	c.AddParam("id", "abc")
	handler.Get(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	stub.err = appErrors.Clone(appErrors.ErrNotFound, "qualification not found")
	c, rec = newTestContext(http.MethodGet, "/qualifications/99", nil, trainee)
	c.AddParam("id", "99")
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
