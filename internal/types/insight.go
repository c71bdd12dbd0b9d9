package types

import (
	"fmt"
	"strings"
)

// AppIdea is one micro-SaaS suggestion. IDs only correlate a developer
// prompt request with the idea it was generated for.
type AppIdea struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// FlattenAppIdeas renders ideas as the plain text used for display and CSV.
func FlattenAppIdeas(ideas []AppIdea) string {
	parts := make([]string, 0, len(ideas))
	for _, i := range ideas {
		parts = append(parts, fmt.Sprintf("%d. %s (%s): %s", i.ID, i.Title, i.Category, i.Description))
	}
	return strings.Join(parts, "\n\n")
}

// OutcomeStatus says how a generation call ended.
type OutcomeStatus string

const (
	OutcomeOK            OutcomeStatus = "ok"
	OutcomeEmpty         OutcomeStatus = "empty"
	OutcomeNotConfigured OutcomeStatus = "not_configured"
	OutcomeFailed        OutcomeStatus = "failed"
)

// GenerationOutcome always carries displayable text, including the fixed
// placeholder or error message when the call did not succeed.
type GenerationOutcome struct {
	Text   string        `json:"text"`
	Status OutcomeStatus `json:"status"`
}

func (o GenerationOutcome) Succeeded() bool {
	return o.Status == OutcomeOK || o.Status == OutcomeEmpty
}
