package selection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/export"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/insight"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

var (
	ErrMunicipalityNotFound = errors.New("municipality not in the loaded list")
	ErrNoRecord             = errors.New("no municipality selected")
	ErrIdeaNotFound         = errors.New("app idea not found")
)

// Enrichment names one of the four on-demand generations.
type Enrichment string

const (
	EnrichmentSummary  Enrichment = "summary"
	EnrichmentBusiness Enrichment = "business"
	EnrichmentTourism  Enrichment = "tourism"
	EnrichmentIdeas    Enrichment = "ideas"
)

// ParseEnrichment maps a route segment to an Enrichment.
func ParseEnrichment(s string) (Enrichment, bool) {
	switch e := Enrichment(s); e {
	case EnrichmentSummary, EnrichmentBusiness, EnrichmentTourism, EnrichmentIdeas:
		return e, true
	}
	return "", false
}

// municipalitySelection ties async results to the selection that started them.
// Results are merged only while it is still the controller's current one.
type municipalitySelection struct {
	id     int
	ctx    context.Context
	cancel context.CancelFunc
}

// stateLoad does the same for municipality list fetches.
type stateLoad struct {
	uf     string
	cancel context.CancelFunc
}

// Controller owns one user's selection and everything derived from it.
// Network work runs in background goroutines; Wait settles it.
type Controller struct {
	logger     *slog.Logger
	directory  ibge.Directory
	indicators ibge.IndicatorFetcher
	insights   insight.Service

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu             sync.Mutex
	states         []types.State
	municipalities []types.Municipality
	selectedUF     string
	filter         string
	load           *stateLoad
	current        *municipalitySelection
	record         *types.ProcessedRecord

	summary      types.Slot
	businessTips types.Slot
	tourism      types.Slot
	appIdeas     types.Slot
	appIdeasList []types.AppIdea
	devPrompt    types.Slot
	activeIdeaID *int
	// ideasGen counts ideas requests; developer prompts from an older
	// generation are dropped.
	ideasGen int

	loadingStates         bool
	loadingMunicipalities bool
	enrichmentInFlight    int
	devPromptInFlight     int
}

func NewController(directory ibge.Directory, indicators ibge.IndicatorFetcher, insights insight.Service, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		logger:     logger.With(slog.String("component", "selection")),
		directory:  directory,
		indicators: indicators,
		insights:   insights,
		baseCtx:    ctx,
		cancel:     cancel,
	}
	c.resetSlotsLocked()
	return c
}

// Go runs fn in the background, tracked by Wait and cancelled by Close.
func (c *Controller) Go(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.baseCtx)
	}()
}

// Wait blocks until all background work has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close cancels in-flight work. The controller must not be used afterwards.
func (c *Controller) Close() {
	c.cancel()
}

// LoadStates fetches the UF list once. Failures are logged and leave the list empty.
func (c *Controller) LoadStates() {
	c.mu.Lock()
	c.loadingStates = true
	c.mu.Unlock()

	c.Go(func(ctx context.Context) {
		states, err := c.directory.ListStates(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.loadingStates = false
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to load states", slog.Any("error", err))
			return
		}
		c.states = states
	})
}

// SelectState switches the selected UF. An empty uf clears it. Either way the
// municipality selection, filter, record and enrichments are reset.
func (c *Controller) SelectState(uf string) {
	uf = strings.ToUpper(strings.TrimSpace(uf))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.load != nil {
		c.load.cancel()
		c.load = nil
	}
	c.selectedUF = uf
	c.municipalities = nil
	c.filter = ""
	c.clearMunicipalityLocked()

	if uf == "" {
		c.loadingMunicipalities = false
		return
	}

	ctx, cancel := context.WithCancel(c.baseCtx)
	load := &stateLoad{uf: uf, cancel: cancel}
	c.load = load
	c.loadingMunicipalities = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()

		list, err := c.directory.ListMunicipalities(ctx, uf)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.load != load {
			c.recordStale(ctx, "municipalities")
			return
		}
		c.load = nil
		c.loadingMunicipalities = false
		if err != nil {
			c.logger.ErrorContext(ctx, "Failed to load municipalities", slog.String("uf", uf), slog.Any("error", err))
			return
		}
		c.municipalities = list
	}()
}

// SelectMunicipality builds the base record for id from the loaded list and
// fetches its indicators in the background. id 0 clears the selection.
func (c *Controller) SelectMunicipality(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if id == 0 {
		c.clearMunicipalityLocked()
		return nil
	}

	idx := slices.IndexFunc(c.municipalities, func(m types.Municipality) bool { return m.ID == id })
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrMunicipalityNotFound, id)
	}

	c.clearMunicipalityLocked()
	rec := types.NewProcessedRecord(c.municipalities[idx])
	c.record = &rec

	ctx, cancel := context.WithCancel(c.baseCtx)
	sel := &municipalitySelection{id: id, ctx: ctx, cancel: cancel}
	c.current = sel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ind := c.indicators.FetchIndicators(ctx, id)

		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.isCurrentLocked(sel) {
			c.recordStale(ctx, "indicators")
			return
		}
		c.record.MergeIndicators(ind)
	}()
	return nil
}

// SetCityFilter stores the case-insensitive municipality name filter.
func (c *Controller) SetCityFilter(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = text
}

// FilteredMunicipalities returns the loaded municipalities whose name contains the filter.
func (c *Controller) FilteredMunicipalities() []types.MunicipalityOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filteredLocked()
}

func (c *Controller) filteredLocked() []types.MunicipalityOption {
	needle := strings.ToLower(c.filter)
	out := make([]types.MunicipalityOption, 0, len(c.municipalities))
	for _, m := range c.municipalities {
		if strings.Contains(strings.ToLower(m.Nome), needle) {
			out = append(out, types.MunicipalityOption{ID: m.ID, Nome: m.Nome})
		}
	}
	return out
}

func (c *Controller) RequestSummary() error {
	return c.RequestEnrichment(EnrichmentSummary)
}

func (c *Controller) RequestBusinessTips() error {
	return c.RequestEnrichment(EnrichmentBusiness)
}

func (c *Controller) RequestTourism() error {
	return c.RequestEnrichment(EnrichmentTourism)
}

func (c *Controller) RequestAppIdeas() error {
	return c.RequestEnrichment(EnrichmentIdeas)
}

// RequestEnrichment starts one generation for the current record. Repeated
// requests are not deduplicated; the last one to finish wins.
func (c *Controller) RequestEnrichment(kind Enrichment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record == nil {
		return ErrNoRecord
	}
	sel := c.current
	nome, uf := c.record.Nome, c.record.UF
	populacao := c.record.Populacao
	if populacao != nil {
		v := *populacao
		populacao = &v
	}

	var call func(ctx context.Context) types.GenerationOutcome
	switch kind {
	case EnrichmentSummary:
		c.summary = types.Loading()
		call = func(ctx context.Context) types.GenerationOutcome { return c.insights.Summary(ctx, nome, uf) }
	case EnrichmentBusiness:
		c.businessTips = types.Loading()
		call = func(ctx context.Context) types.GenerationOutcome {
			return c.insights.BusinessTips(ctx, nome, uf, populacao)
		}
	case EnrichmentTourism:
		c.tourism = types.Loading()
		call = func(ctx context.Context) types.GenerationOutcome { return c.insights.Tourism(ctx, nome, uf) }
	case EnrichmentIdeas:
		c.appIdeas = types.Loading()
		c.ideasGen++
		c.devPrompt = types.NotRequested()
		c.activeIdeaID = nil
		c.record.DevPrompt = nil
		call = func(ctx context.Context) types.GenerationOutcome {
			return c.insights.AppIdeas(ctx, nome, uf, populacao)
		}
	default:
		return fmt.Errorf("unknown enrichment %q", kind)
	}
	c.enrichmentInFlight++

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, span := otel.Tracer("SelectionController").Start(sel.ctx, "RequestEnrichment")
		defer span.End()
		span.SetAttributes(attribute.String("enrichment", string(kind)), attribute.Int("municipality.id", sel.id))

		out := call(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.enrichmentInFlight--
		if !c.isCurrentLocked(sel) {
			c.recordStale(ctx, string(kind))
			return
		}
		c.applyEnrichmentLocked(ctx, kind, out)
	}()
	return nil
}

func (c *Controller) applyEnrichmentLocked(ctx context.Context, kind Enrichment, out types.GenerationOutcome) {
	slot := slotFor(out)
	switch kind {
	case EnrichmentSummary:
		c.summary = slot
		c.record.Summary = outcomeText(out)
	case EnrichmentBusiness:
		c.businessTips = slot
		c.record.BusinessTips = outcomeText(out)
	case EnrichmentTourism:
		c.tourism = slot
		c.record.TourismHighlights = outcomeText(out)
	case EnrichmentIdeas:
		ideas, err := insight.ParseAppIdeas(out.Text)
		if err != nil || !out.Succeeded() {
			if err != nil && out.Status == types.OutcomeOK {
				c.logger.WarnContext(ctx, "Discarding unparseable app ideas", slog.Any("error", err))
			}
			c.appIdeasList = []types.AppIdea{}
			c.appIdeas = types.Failed("")
			c.record.WebAppIdeas = nil
			c.record.WebAppIdeasList = nil
			return
		}
		flat := types.FlattenAppIdeas(ideas)
		c.appIdeasList = ideas
		c.appIdeas = types.Ready(flat)
		c.record.WebAppIdeas = &flat
		c.record.WebAppIdeasList = slices.Clone(ideas)
	}
}

// RequestDeveloperPrompt generates the developer prompt for one of the
// current ideas and marks it active.
func (c *Controller) RequestDeveloperPrompt(ideaID int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.record == nil {
		return ErrNoRecord
	}
	idx := slices.IndexFunc(c.appIdeasList, func(i types.AppIdea) bool { return i.ID == ideaID })
	if idx < 0 {
		return fmt.Errorf("%w: %d", ErrIdeaNotFound, ideaID)
	}
	idea := c.appIdeasList[idx]
	city := c.record.Nome + "-" + c.record.UF
	sel := c.current
	gen := c.ideasGen

	active := ideaID
	c.activeIdeaID = &active
	c.devPrompt = types.Loading()
	c.devPromptInFlight++

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		out := c.insights.DeveloperPrompt(sel.ctx, idea.Title, idea.Description, city)

		c.mu.Lock()
		defer c.mu.Unlock()
		c.devPromptInFlight--
		if !c.isCurrentLocked(sel) || gen != c.ideasGen {
			c.recordStale(sel.ctx, "developer_prompt")
			return
		}
		c.devPrompt = slotFor(out)
		c.record.DevPrompt = slotContent(c.devPrompt)
	}()
	return nil
}

// Snapshot returns a deep copy of the session state.
func (c *Controller) Snapshot() types.SelectionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := types.SelectionSnapshot{
		States:          slices.Clone(c.states),
		Municipalities:  c.filteredLocked(),
		SelectedUF:      c.selectedUF,
		CityFilter:      c.filter,
		Summary:         c.summary,
		BusinessTips:    c.businessTips,
		Tourism:         c.tourism,
		AppIdeas:        c.appIdeas,
		AppIdeasList:    slices.Clone(c.appIdeasList),
		DeveloperPrompt: c.devPrompt,
		Loading: types.LoadingFlags{
			States:         c.loadingStates,
			Municipalities: c.loadingMunicipalities,
			Enrichment:     c.enrichmentInFlight > 0,
			DevPrompt:      c.devPromptInFlight > 0,
		},
	}
	if snap.States == nil {
		snap.States = []types.State{}
	}
	if snap.AppIdeasList == nil {
		snap.AppIdeasList = []types.AppIdea{}
	}
	if c.record != nil {
		rec := c.record.Clone()
		snap.Record = &rec
		snap.SelectedMunicipalityID = rec.ID
	}
	if c.activeIdeaID != nil {
		v := *c.activeIdeaID
		snap.ActiveIdeaID = &v
	}
	return snap
}

// ExportCSV encodes the current record.
func (c *Controller) ExportCSV() (export.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return export.File{}, ErrNoRecord
	}
	return export.EncodeCSV(c.record.Clone()), nil
}

// ExportDeveloperPrompt encodes the last successfully generated developer prompt.
func (c *Controller) ExportDeveloperPrompt() (export.File, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.record == nil {
		return export.File{}, ErrNoRecord
	}
	prompt, _ := c.devPrompt.Value()
	return export.EncodeDeveloperPrompt(c.record.Clone(), prompt)
}

func (c *Controller) isCurrentLocked(sel *municipalitySelection) bool {
	return sel != nil && c.current == sel && c.record != nil && c.record.ID == sel.id
}

func (c *Controller) clearMunicipalityLocked() {
	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
	c.record = nil
	c.resetSlotsLocked()
}

func (c *Controller) resetSlotsLocked() {
	c.summary = types.NotRequested()
	c.businessTips = types.NotRequested()
	c.tourism = types.NotRequested()
	c.appIdeas = types.NotRequested()
	c.appIdeasList = nil
	c.devPrompt = types.NotRequested()
	c.activeIdeaID = nil
}

func (c *Controller) recordStale(ctx context.Context, kind string) {
	c.logger.DebugContext(ctx, "Discarding stale response", slog.String("kind", kind))
	metrics.Get().StaleResponsesTotal.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// slotFor maps a generation outcome onto a slot. Only OK and empty-fallback
// texts count as content; placeholders and error texts become Failed.
func slotFor(out types.GenerationOutcome) types.Slot {
	if out.Succeeded() {
		return types.Ready(out.Text)
	}
	return types.Failed(out.Text)
}

// outcomeText is the text a prose enrichment stores on the record, error and
// placeholder texts included.
func outcomeText(out types.GenerationOutcome) *string {
	if out.Text == "" {
		return nil
	}
	v := out.Text
	return &v
}

func slotContent(s types.Slot) *string {
	v, ok := s.Value()
	if !ok {
		return nil
	}
	return &v
}
