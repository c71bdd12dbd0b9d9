package ibge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

// Aggregate tables and variables of the IBGE agregados API.
const (
	populationAggregate = "6579" // Estimativas de população
	populationVariable  = "9324" // População residente estimada
	areaAggregate       = "1301" // Censo 2010, território
	areaVariable        = "615"  // Área territorial

	noDataSentinel = "-"
)

// aggregateVariable mirrors one element of the agregados response:
// [{"resultados":[{"series":[{"serie":{"2021":"12345"}}]}]}]
type aggregateVariable struct {
	Resultados []struct {
		Series []struct {
			Serie map[string]json.RawMessage `json:"serie"`
		} `json:"series"`
	} `json:"resultados"`
}

// FetchIndicators fetches population and area in parallel. Each failure only
// blanks its own field; nothing here returns an error.
func (c *Client) FetchIndicators(ctx context.Context, municipalityID int) types.Indicators {
	ctx, span := otel.Tracer("IBGEClient").Start(ctx, "FetchIndicators", trace.WithAttributes(
		attribute.Int("municipality.id", municipalityID),
	))
	defer span.End()

	var ind types.Indicators
	var g errgroup.Group
	g.Go(func() error {
		ind.Populacao = c.fetchLatestValue(ctx, populationAggregate, populationVariable, municipalityID)
		return nil
	})
	g.Go(func() error {
		ind.Area = c.fetchLatestValue(ctx, areaAggregate, areaVariable, municipalityID)
		return nil
	})
	_ = g.Wait()

	span.SetAttributes(
		attribute.Bool("populacao.present", ind.Populacao != nil),
		attribute.Bool("area.present", ind.Area != nil),
	)
	return ind
}

func (c *Client) fetchLatestValue(ctx context.Context, aggregate, variable string, municipalityID int) *float64 {
	url := fmt.Sprintf("%s/%s/periodos/-1/variaveis/%s?localidades=N6[%d]",
		c.agregadosURL, aggregate, variable, municipalityID)

	var payload []aggregateVariable
	if err := c.getJSON(ctx, "agregados/"+aggregate, url, &payload); err != nil {
		c.logger.WarnContext(ctx, "Indicator unavailable",
			slog.String("aggregate", aggregate),
			slog.Int("municipality_id", municipalityID),
			slog.Any("error", err))
		return nil
	}

	v, ok := extractSeriesValue(payload)
	if !ok {
		c.logger.DebugContext(ctx, "Indicator has no data",
			slog.String("aggregate", aggregate),
			slog.Int("municipality_id", municipalityID))
		return nil
	}
	return &v
}

// extractSeriesValue reads the single period value of the first series.
// With periodos=-1 there is exactly one period; if more show up the most
// recent one wins.
func extractSeriesValue(payload []aggregateVariable) (float64, bool) {
	if len(payload) == 0 || len(payload[0].Resultados) == 0 || len(payload[0].Resultados[0].Series) == 0 {
		return 0, false
	}
	serie := payload[0].Resultados[0].Series[0].Serie
	if len(serie) == 0 {
		return 0, false
	}

	periods := make([]string, 0, len(serie))
	for p := range serie {
		periods = append(periods, p)
	}
	sort.Strings(periods)
	raw := serie[periods[len(periods)-1]]

	return parseSeriesValue(raw)
}

func parseSeriesValue(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
		return f, true
	}
	s = strings.TrimSpace(s)
	if s == "" || s == noDataSentinel {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
