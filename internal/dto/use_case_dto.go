package dto

// CreateUseCaseRequest is a scored use case submitted for the matrix.
type CreateUseCaseRequest struct {
	ID           string                 `json:"id" validate:"omitempty,max=128,excludesall=/"`
	Name         string                 `json:"name" validate:"required"`
	Type         string                 `json:"type" validate:"required"`
	CategoryName string                 `json:"category_name"`
	TotalScore   float64                `json:"total_score" validate:"gte=0"`
	Attributes   map[string]interface{} `json:"attributes"`
}

// Body is the document body written to the store. Attributes are merged
// first so the named fields always win.
func (r CreateUseCaseRequest) Body() map[string]interface{} {
	body := make(map[string]interface{}, len(r.Attributes)+4)
	for k, v := range r.Attributes {
		body[k] = v
	}
	body["name"] = r.Name
	body["type"] = r.Type
	body["category_name"] = r.CategoryName
	body["total_score"] = r.TotalScore
	return body
}

type CreateUseCaseResponse struct {
	ID     string `json:"id"`
	Queued bool   `json:"queued"`
}

type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

type TopUseCase struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TotalScore float64 `json:"total_score"`
}

// AnalyticsSummary backs the summary widget on the strategic alignment page.
type AnalyticsSummary struct {
	TotalUseCases int          `json:"total_use_cases"`
	AverageScore  float64      `json:"average_score"`
	ByType        []FacetCount `json:"by_type"`
	TopUseCases   []TopUseCase `json:"top_use_cases"`
}
