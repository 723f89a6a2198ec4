package matrix

import (
	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/livequery"
)

type ListState string

const (
	ListDisabled    ListState = "disabled"
	ListLoading     ListState = "loading"
	ListError       ListState = "error"
	ListEmptyStore  ListState = "empty_store"
	ListEmptyFilter ListState = "empty_filter"
	ListItems       ListState = "list"
)

const (
	MsgDisabled        = "The prioritization matrix is unavailable: service configuration is missing."
	MsgLoading         = "Loading Use Cases..."
	MsgEmptyStore      = "No use cases found."
	MsgEmptyFilter     = "No use cases match the selected filters."
	MsgEmbedMissing    = "Looker Studio embed URL is not configured."
	MsgEmbedMissingFix = "Please ensure LOOKER_STUDIO_EMBED_URL is set in the environment or in your .env file."

	// EmbedSandbox restricts the report frame.
	EmbedSandbox = "allow-storage-access-by-user-activation allow-scripts allow-same-origin allow-popups allow-popups-to-escape-sandbox"
)

type ListItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Category   string  `json:"category_name"`
	TotalScore float64 `json:"total_score"`
}

type EmbedView struct {
	Configured bool   `json:"configured"`
	URL        string `json:"url,omitempty"`
	Sandbox    string `json:"sandbox,omitempty"`
	Message    string `json:"message,omitempty"`
	Hint       string `json:"hint,omitempty"`
}

// ViewModel is everything the matrix page shows. It carries no behavior.
type ViewModel struct {
	State     ListState              `json:"state"`
	Message   string                 `json:"message,omitempty"`
	Items     []ListItem             `json:"items"`
	Total     int                    `json:"total"`
	Facets    FacetSet               `json:"facets"`
	Selection entity.FilterSelection `json:"selection"`
	Embed     EmbedView              `json:"embed"`
	SessionID string                 `json:"session_id,omitempty"`
	Degraded  bool                   `json:"degraded,omitempty"`
}

// Compose derives the view model from the current fetch state, the user's
// selection and the embed target. It is recomputed on every change.
func Compose(state livequery.FetchState, sel entity.FilterSelection, embed config.EmbedTarget) ViewModel {
	sel = sel.Normalize()

	vm := ViewModel{
		Items:     []ListItem{},
		Facets:    Facets(nil),
		Selection: sel,
		Embed:     composeEmbed(embed, sel),
	}

	switch state.Kind {
	case livequery.Loading:
		vm.State = ListLoading
		vm.Message = MsgLoading
		return vm
	case livequery.Failed:
		vm.State = ListError
		vm.Message = state.Message
		return vm
	}

	vm.Total = len(state.Records)
	vm.Facets = Facets(state.Records)

	if len(state.Records) == 0 {
		vm.State = ListEmptyStore
		vm.Message = MsgEmptyStore
		return vm
	}

	filtered := Apply(state.Records, sel)
	if len(filtered) == 0 {
		vm.State = ListEmptyFilter
		vm.Message = MsgEmptyFilter
		return vm
	}

	vm.State = ListItems
	for _, uc := range filtered {
		vm.Items = append(vm.Items, ListItem{
			ID:         uc.ID,
			Name:       uc.Name,
			Type:       uc.Type,
			Category:   uc.CategoryName,
			TotalScore: uc.TotalScore,
		})
	}
	return vm
}

// Disabled is the model shown when the service configuration is missing.
// The embed still renders if it is configured on its own.
func Disabled(sel entity.FilterSelection, embed config.EmbedTarget) ViewModel {
	sel = sel.Normalize()
	return ViewModel{
		State:     ListDisabled,
		Message:   MsgDisabled,
		Items:     []ListItem{},
		Facets:    Facets(nil),
		Selection: sel,
		Embed:     composeEmbed(embed, sel),
	}
}

func composeEmbed(embed config.EmbedTarget, sel entity.FilterSelection) EmbedView {
	if !embed.Configured {
		return EmbedView{Message: MsgEmbedMissing, Hint: MsgEmbedMissingFix}
	}
	return EmbedView{
		Configured: true,
		URL:        BuildEmbedURL(embed.BaseURL, sel),
		Sandbox:    EmbedSandbox,
	}
}
