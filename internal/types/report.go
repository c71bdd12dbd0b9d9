package types

import (
	"time"

	"github.com/google/uuid"
)

// Report is an archived CSV export.
type Report struct {
	ID             uuid.UUID `json:"id"`
	MunicipalityID int       `json:"municipality_id"`
	UF             string    `json:"uf"`
	Nome           string    `json:"nome"`
	FileName       string    `json:"file_name"`
	Content        string    `json:"content,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
