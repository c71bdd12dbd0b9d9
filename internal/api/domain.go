package api

import "github.com/FACorreiaa/go-municipio-insights/internal/types"

// CreateSessionResponse is returned by POST /sessions.
type CreateSessionResponse struct {
	SessionID string `json:"session_id" example:"3f1c..."`    // Session identifier used in session routes.
	Token     string `json:"token" example:"eyJhbGciOiJI..."` // Bearer token for the session routes.
}

// SelectStateRequest selects a UF. An empty uf clears the selection.
type SelectStateRequest struct {
	UF string `json:"uf" example:"SP"`
}

// SelectMunicipalityRequest selects a municipality from the loaded list. 0 clears it.
type SelectMunicipalityRequest struct {
	MunicipalityID int `json:"municipality_id" example:"3550308"`
}

// SetFilterRequest sets the municipality name filter.
type SetFilterRequest struct {
	Filter string `json:"filter" example:"campi"`
}

// SessionResponse wraps a session snapshot.
type SessionResponse struct {
	SessionID string                  `json:"session_id"`
	Session   types.SelectionSnapshot `json:"session"`
}

// Response is the body of every error reply.
type Response struct {
	Success   bool   `json:"success" example:"false"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty" example:"Session not found"`
	RequestID string `json:"request_id,omitempty"`
}
