package types

// LoadingFlags drive spinners in the client.
type LoadingFlags struct {
	States         bool `json:"states"`
	Municipalities bool `json:"municipalities"`
	Enrichment     bool `json:"enrichment"`
	DevPrompt      bool `json:"dev_prompt"`
}

// SelectionSnapshot is a read-only copy of a session's state.
type SelectionSnapshot struct {
	States                 []State              `json:"states"`
	Municipalities         []MunicipalityOption `json:"municipalities"`
	SelectedUF             string               `json:"selected_uf"`
	SelectedMunicipalityID int                  `json:"selected_municipality_id,omitempty"`
	CityFilter             string               `json:"city_filter"`
	Record                 *ProcessedRecord     `json:"record,omitempty"`
	Summary                Slot                 `json:"summary"`
	BusinessTips           Slot                 `json:"business_tips"`
	Tourism                Slot                 `json:"tourism"`
	AppIdeas               Slot                 `json:"app_ideas"`
	AppIdeasList           []AppIdea            `json:"app_ideas_list"`
	DeveloperPrompt        Slot                 `json:"developer_prompt"`
	ActiveIdeaID           *int                 `json:"active_idea_id,omitempty"`
	Loading                LoadingFlags         `json:"loading"`
}
