// Package intent infers which Kakebo categories a search query is asking about.
package intent

import (
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// keywordEntry maps a query keyword to the categories it implies.
// Entries are checked in order; the first substring hit wins. Keywords are
// bilingual because users mix Spanish and English freely.
type keywordEntry struct {
	keyword    string
	categories []model.Category
}

var keywordTable = []keywordEntry{
	{"supermercado", []model.Category{model.CategorySurvival}},
	{"groceries", []model.Category{model.CategorySurvival}},
	{"comida", []model.Category{model.CategorySurvival, model.CategoryOptional}},
	{"food", []model.Category{model.CategorySurvival, model.CategoryOptional}},
	{"alquiler", []model.Category{model.CategorySurvival}},
	{"rent", []model.Category{model.CategorySurvival}},
	{"luz", []model.Category{model.CategorySurvival}},
	{"agua", []model.Category{model.CategorySurvival}},
	{"electricity", []model.Category{model.CategorySurvival}},
	{"farmacia", []model.Category{model.CategorySurvival}},
	{"pharmacy", []model.Category{model.CategorySurvival}},
	{"transporte", []model.Category{model.CategorySurvival}},
	{"transport", []model.Category{model.CategorySurvival}},
	{"restaurante", []model.Category{model.CategoryOptional}},
	{"restaurant", []model.Category{model.CategoryOptional}},
	{"ocio", []model.Category{model.CategoryOptional, model.CategoryCulture}},
	{"leisure", []model.Category{model.CategoryOptional, model.CategoryCulture}},
	{"ropa", []model.Category{model.CategoryOptional}},
	{"clothes", []model.Category{model.CategoryOptional}},
	{"suscripcion", []model.Category{model.CategoryOptional}},
	{"subscription", []model.Category{model.CategoryOptional}},
	{"cine", []model.Category{model.CategoryCulture}},
	{"cinema", []model.Category{model.CategoryCulture}},
	{"movie", []model.Category{model.CategoryCulture}},
	{"libro", []model.Category{model.CategoryCulture}},
	{"book", []model.Category{model.CategoryCulture}},
	{"curso", []model.Category{model.CategoryCulture}},
	{"course", []model.Category{model.CategoryCulture}},
	{"concierto", []model.Category{model.CategoryCulture}},
	{"concert", []model.Category{model.CategoryCulture}},
	{"museo", []model.Category{model.CategoryCulture}},
	{"museum", []model.Category{model.CategoryCulture}},
	{"regalo", []model.Category{model.CategoryExtra}},
	{"gift", []model.Category{model.CategoryExtra}},
	{"imprevisto", []model.Category{model.CategoryExtra}},
	{"unexpected", []model.Category{model.CategoryExtra}},
	{"emergencia", []model.Category{model.CategoryExtra}},
	{"emergency", []model.Category{model.CategoryExtra}},
	{"reparacion", []model.Category{model.CategoryExtra}},
	{"repair", []model.Category{model.CategoryExtra}},
}

// Infer returns the category set a query implies. A query that matches
// nothing returns (nil, false): no inference is neutral, never a penalty.
func Infer(query string) ([]model.Category, bool) {
	q := strings.ToLower(query)
	if strings.TrimSpace(q) == "" {
		return nil, false
	}

	for _, entry := range keywordTable {
		if strings.Contains(q, entry.keyword) {
			out := make([]model.Category, len(entry.categories))
			copy(out, entry.categories)
			return out, true
		}
	}
	return nil, false
}
