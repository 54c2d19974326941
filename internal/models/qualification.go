package models

import "strings"

// QualificationCategory groups catalog entries.
type QualificationCategory string

// Supported categories.
const (
	CategoryAircraft    QualificationCategory = "Aircraft"
	CategoryMaintenance QualificationCategory = "Maintenance"
	CategoryOperations  QualificationCategory = "Operations"
	CategorySafety      QualificationCategory = "Safety"
)

// QualificationLevel expresses the difficulty of a qualification.
type QualificationLevel string

// Supported levels.
const (
	LevelBasic        QualificationLevel = "Basic"
	LevelIntermediate QualificationLevel = "Intermediate"
	LevelAdvanced     QualificationLevel = "Advanced"
)

// Qualification is an immutable catalog entry describing a certifiable training program.
type Qualification struct {
	ID          int                   `json:"id"`
	Code        string                `json:"code"`
	Title       string                `json:"title"`
	Category    QualificationCategory `json:"category"`
	Description string                `json:"description"`
	Duration    string                `json:"duration"`
	Level       QualificationLevel    `json:"level"`
}

// QualificationFilter narrows catalog listings. Empty fields do not filter.
type QualificationFilter struct {
	Search   string
	Category QualificationCategory
}

// Matches applies the case-insensitive search (title, code or description) and the exact category filter.
func (f QualificationFilter) Matches(q Qualification) bool {
	if f.Category != "" && q.Category != f.Category {
		return false
	}
	term := strings.ToLower(f.Search)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(q.Title), term) ||
		strings.Contains(strings.ToLower(q.Code), term) ||
		strings.Contains(strings.ToLower(q.Description), term)
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(raw string) (QualificationCategory, bool) {
	for _, c := range []QualificationCategory{CategoryAircraft, CategoryMaintenance, CategoryOperations, CategorySafety} {
		if strings.EqualFold(strings.TrimSpace(raw), string(c)) {
			return c, true
		}
	}
	return "", false
}
