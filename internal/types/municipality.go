package types

// Region is a Brazilian macro-region (Norte, Nordeste, ...).
type Region struct {
	ID    int    `json:"id"`
	Sigla string `json:"sigla"`
	Nome  string `json:"nome"`
}

// State is a federative unit (UF) as returned by the IBGE localidades API.
type State struct {
	ID     int    `json:"id"`
	Sigla  string `json:"sigla"`
	Nome   string `json:"nome"`
	Regiao Region `json:"regiao"`
}

type MesoRegion struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
	UF   State  `json:"UF"`
}

type MicroRegion struct {
	ID          int        `json:"id"`
	Nome        string     `json:"nome"`
	Mesorregiao MesoRegion `json:"mesorregiao"`
}

type IntermediateRegion struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
	UF   State  `json:"UF"`
}

type ImmediateRegion struct {
	ID                  int                `json:"id"`
	Nome                string             `json:"nome"`
	RegiaoIntermediaria IntermediateRegion `json:"regiao-intermediaria"`
}

// Municipality is the raw municipality payload. The nested region path is the
// only source of the denormalised fields in ProcessedRecord.
type Municipality struct {
	ID             int              `json:"id"`
	Nome           string           `json:"nome"`
	Microrregiao   *MicroRegion     `json:"microrregiao"`
	RegiaoImediata *ImmediateRegion `json:"regiao-imediata,omitempty"`
}

// MunicipalityOption is the slim form used to populate pickers.
type MunicipalityOption struct {
	ID   int    `json:"id"`
	Nome string `json:"nome"`
}

// Indicators holds the statistics merged into a record after selection.
// Nil means the upstream had no usable value.
type Indicators struct {
	Populacao *float64 `json:"populacao,omitempty"`
	Area      *float64 `json:"area,omitempty"`
}

// ProcessedRecord is the assembled view of the selected municipality.
type ProcessedRecord struct {
	ID                int       `json:"id"`
	Nome              string    `json:"nome"`
	UF                string    `json:"uf"`
	Microrregiao      string    `json:"microrregiao"`
	Mesorregiao       string    `json:"mesorregiao"`
	Regiao            string    `json:"regiao"`
	Populacao         *float64  `json:"populacao,omitempty"`
	Area              *float64  `json:"area,omitempty"`
	Summary           *string   `json:"summary,omitempty"`
	BusinessTips      *string   `json:"business_tips,omitempty"`
	TourismHighlights *string   `json:"tourism_highlights,omitempty"`
	WebAppIdeas       *string   `json:"web_app_ideas,omitempty"`
	WebAppIdeasList   []AppIdea `json:"web_app_ideas_list,omitempty"`
	DevPrompt         *string   `json:"dev_prompt,omitempty"`
}

// NewProcessedRecord builds the base record from the municipality's region path.
// A few recently created municipalities come back without microrregiao; for
// those the UF and macro-region are taken from the immediate-region path.
func NewProcessedRecord(m Municipality) ProcessedRecord {
	rec := ProcessedRecord{ID: m.ID, Nome: m.Nome}
	switch {
	case m.Microrregiao != nil:
		meso := m.Microrregiao.Mesorregiao
		rec.UF = meso.UF.Sigla
		rec.Microrregiao = m.Microrregiao.Nome
		rec.Mesorregiao = meso.Nome
		rec.Regiao = meso.UF.Regiao.Nome
	case m.RegiaoImediata != nil:
		uf := m.RegiaoImediata.RegiaoIntermediaria.UF
		rec.UF = uf.Sigla
		rec.Regiao = uf.Regiao.Nome
	}
	return rec
}

// MergeIndicators copies the present indicator values onto the record.
func (r *ProcessedRecord) MergeIndicators(ind Indicators) {
	if ind.Populacao != nil {
		v := *ind.Populacao
		r.Populacao = &v
	}
	if ind.Area != nil {
		v := *ind.Area
		r.Area = &v
	}
}

// Clone returns a deep copy safe to hand to readers.
func (r ProcessedRecord) Clone() ProcessedRecord {
	out := r
	out.Populacao = clonePtr(r.Populacao)
	out.Area = clonePtr(r.Area)
	out.Summary = clonePtr(r.Summary)
	out.BusinessTips = clonePtr(r.BusinessTips)
	out.TourismHighlights = clonePtr(r.TourismHighlights)
	out.WebAppIdeas = clonePtr(r.WebAppIdeas)
	out.DevPrompt = clonePtr(r.DevPrompt)
	if r.WebAppIdeasList != nil {
		out.WebAppIdeasList = append([]AppIdea(nil), r.WebAppIdeasList...)
	}
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
