package repository

import (
	"context"
	"database/sql"

	"github.com/noah-isme/rsaf-qualification-api/internal/models"
)

var defaultQualifications = []models.Qualification{
	{
		ID:          1,
		Code:        "RSAF-F16-001",
		Title:       "F-16 Fighter Pilot Qualification",
		Category:    models.CategoryAircraft,
		Description: "Complete qualification for F-16 fighter aircraft operations including flight procedures, weapons systems, and tactical operations.",
		Duration:    "6 months",
		Level:       models.LevelAdvanced,
	},
	{
		ID:          2,
		Code:        "RSAF-MNT-002",
		Title:       "Aircraft Maintenance Engineering",
		Category:    models.CategoryMaintenance,
		Description: "Comprehensive training in aircraft maintenance, systems diagnostics, and repair procedures for military aircraft.",
		Duration:    "4 months",
		Level:       models.LevelIntermediate,
	},
	{
		ID:          3,
		Code:        "RSAF-OPS-003",
		Title:       "Air Traffic Control Operations",
		Category:    models.CategoryOperations,
		Description: "Training in air traffic control procedures, communication protocols, and airspace management for military operations.",
		Duration:    "3 months",
		Level:       models.LevelIntermediate,
	},
	{
		ID:          4,
		Code:        "RSAF-SAF-004",
		Title:       "Aviation Safety Officer",
		Category:    models.CategorySafety,
		Description: "Qualification in aviation safety protocols, accident investigation, and safety management systems.",
		Duration:    "2 months",
		Level:       models.LevelBasic,
	},
	{
		ID:          5,
		Code:        "RSAF-AIR-005",
		Title:       "Apache Helicopter Pilot",
		Category:    models.CategoryAircraft,
		Description: "Specialized training for Apache attack helicopter operations including weapons systems and combat tactics.",
		Duration:    "8 months",
		Level:       models.LevelAdvanced,
	},
	{
		ID:          6,
		Code:        "RSAF-MNT-006",
		Title:       "Avionics Systems Technician",
		Category:    models.CategoryMaintenance,
		Description: "Advanced training in aircraft avionics systems, radar, navigation, and communication equipment.",
		Duration:    "5 months",
		Level:       models.LevelAdvanced,
	},
	{
		ID:          7,
		Code:        "RSAF-OPS-007",
		Title:       "Flight Operations Coordinator",
		Category:    models.CategoryOperations,
		Description: "Training in flight planning, mission coordination, and operational resource management.",
		Duration:    "3 months",
		Level:       models.LevelIntermediate,
	},
	{
		ID:          8,
		Code:        "RSAF-SAF-008",
		Title:       "Emergency Response Procedures",
		Category:    models.CategorySafety,
		Description: "Certification in emergency response, fire safety, and crisis management for aviation incidents.",
		Duration:    "1 month",
		Level:       models.LevelBasic,
	},
}

// CatalogRepository serves the fixed qualification catalog.
type CatalogRepository struct {
	items []models.Qualification
	byID  map[int]int
}

// NewCatalogRepository constructs the repository over the built-in catalog.
func NewCatalogRepository() *CatalogRepository {
	return NewCatalogRepositoryWith(defaultQualifications)
}

// NewCatalogRepositoryWith builds a catalog over the given entries. Entries are copied.
func NewCatalogRepositoryWith(items []models.Qualification) *CatalogRepository {
	copied := make([]models.Qualification, len(items))
	copy(copied, items)
	byID := make(map[int]int, len(copied))
	for i, q := range copied {
		byID[q.ID] = i
	}
	return &CatalogRepository{items: copied, byID: byID}
}

// List returns the qualifications matching filter in catalog order.
func (r *CatalogRepository) List(_ context.Context, filter models.QualificationFilter) ([]models.Qualification, error) {
	result := make([]models.Qualification, 0, len(r.items))
	for _, q := range r.items {
		if filter.Matches(q) {
			result = append(result, q)
		}
	}
	return result, nil
}

// FindByID returns a qualification or sql.ErrNoRows.
func (r *CatalogRepository) FindByID(_ context.Context, id int) (*models.Qualification, error) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	q := r.items[idx]
	return &q, nil
}

// Count returns the catalog size.
func (r *CatalogRepository) Count(context.Context) (int, error) {
	return len(r.items), nil
}
