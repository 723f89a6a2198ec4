package entity

// FilterAll is the sentinel facet value that matches every record.
const FilterAll = "all"

// UseCasesCollection is the document store path holding prioritized use
// cases. It is shared by every tenant.
const UseCasesCollection = "prioritizedUseCases"

// UseCase is a read-only copy of one document in the prioritized use cases
// collection. Fields keeps the full document body, including keys this
// service does not interpret.
type UseCase struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Type         string                 `json:"type"`
	CategoryName string                 `json:"category_name"`
	TotalScore   float64                `json:"total_score"`
	Fields       map[string]interface{} `json:"fields,omitempty"`
}

// FilterSelection is the user's current pair of facet choices.
type FilterSelection struct {
	Type     string `json:"type"`
	Category string `json:"category"`
}

func DefaultFilterSelection() FilterSelection {
	return FilterSelection{Type: FilterAll, Category: FilterAll}
}

// Normalize maps empty choices to FilterAll.
func (s FilterSelection) Normalize() FilterSelection {
	if s.Type == "" {
		s.Type = FilterAll
	}
	if s.Category == "" {
		s.Category = FilterAll
	}
	return s
}
