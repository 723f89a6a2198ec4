package matrix

import "dva-dashboard-be/internal/entity"

// FacetSet lists the filter options for the current data set. Both lists
// start with entity.FilterAll.
type FacetSet struct {
	Types      []string `json:"types"`
	Categories []string `json:"categories"`
}

// Facets collects distinct non-empty types and categories in first-seen order.
func Facets(records []entity.UseCase) FacetSet {
	return FacetSet{
		Types:      distinct(records, func(uc entity.UseCase) string { return uc.Type }),
		Categories: distinct(records, func(uc entity.UseCase) string { return uc.CategoryName }),
	}
}

func distinct(records []entity.UseCase, field func(entity.UseCase) string) []string {
	out := []string{entity.FilterAll}
	seen := map[string]struct{}{entity.FilterAll: {}}
	for _, r := range records {
		v := field(r)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Apply keeps the records matching both facets of sel, preserving order.
func Apply(records []entity.UseCase, sel entity.FilterSelection) []entity.UseCase {
	sel = sel.Normalize()
	out := make([]entity.UseCase, 0, len(records))
	for _, r := range records {
		if sel.Type != entity.FilterAll && r.Type != sel.Type {
			continue
		}
		if sel.Category != entity.FilterAll && r.CategoryName != sel.Category {
			continue
		}
		out = append(out, r)
	}
	return out
}
