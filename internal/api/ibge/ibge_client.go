package ibge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

const (
	DefaultLocalidadesURL = "https://servicodados.ibge.gov.br/api/v1/localidades"
	DefaultAgregadosURL   = "https://servicodados.ibge.gov.br/api/v3/agregados"

	statesCacheKey = "states"
)

var _ Directory = (*Client)(nil)
var _ IndicatorFetcher = (*Client)(nil)

// Directory lists states and their municipalities.
type Directory interface {
	ListStates(ctx context.Context) ([]types.State, error)
	ListMunicipalities(ctx context.Context, uf string) ([]types.Municipality, error)
	GetMunicipality(ctx context.Context, id int) (*types.Municipality, error)
}

// IndicatorFetcher never fails: missing values come back as nil fields.
type IndicatorFetcher interface {
	FetchIndicators(ctx context.Context, municipalityID int) types.Indicators
}

// HTTPError is returned for non-2xx upstream responses.
type HTTPError struct {
	StatusCode int
	URL        string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("ibge: unexpected status %d from %s", e.StatusCode, e.URL)
}

type Config struct {
	LocalidadesURL       string
	AgregadosURL         string
	RequestTimeout       time.Duration
	RequestsPerSecond    float64
	MunicipalityCacheTTL time.Duration
}

// Client talks to the IBGE localidades and agregados APIs.
type Client struct {
	localidadesURL string
	agregadosURL   string
	httpClient     *http.Client
	limiter        *RateLimiter
	cache          *cache.Cache
	logger         *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.LocalidadesURL == "" {
		cfg.LocalidadesURL = DefaultLocalidadesURL
	}
	if cfg.AgregadosURL == "" {
		cfg.AgregadosURL = DefaultAgregadosURL
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	ttl := cfg.MunicipalityCacheTTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &Client{
		localidadesURL: strings.TrimRight(cfg.LocalidadesURL, "/"),
		agregadosURL:   strings.TrimRight(cfg.AgregadosURL, "/"),
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
		limiter:        NewRateLimiter(cfg.RequestsPerSecond),
		cache:          cache.New(ttl, 10*time.Minute),
		logger:         logger.With(slog.String("component", "ibge")),
	}
}

// ListStates returns every UF sorted by name. The list is fetched once per
// process; failures are not cached.
func (c *Client) ListStates(ctx context.Context) ([]types.State, error) {
	ctx, span := otel.Tracer("IBGEClient").Start(ctx, "ListStates")
	defer span.End()

	if cached, found := c.cache.Get(statesCacheKey); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return slices.Clone(cached.([]types.State)), nil
	}

	var states []types.State
	if err := c.getJSON(ctx, "estados", c.localidadesURL+"/estados?orderBy=nome", &states); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch states")
		return nil, fmt.Errorf("failed to fetch states: %w", err)
	}
	slices.SortStableFunc(states, func(a, b types.State) int {
		return strings.Compare(a.Nome, b.Nome)
	})

	c.cache.Set(statesCacheKey, states, cache.NoExpiration)
	span.SetAttributes(attribute.Int("states.count", len(states)))
	span.SetStatus(codes.Ok, "States fetched")
	return slices.Clone(states), nil
}

// ListMunicipalities returns the municipalities of a UF with their full region path.
func (c *Client) ListMunicipalities(ctx context.Context, uf string) ([]types.Municipality, error) {
	uf = strings.ToUpper(strings.TrimSpace(uf))
	ctx, span := otel.Tracer("IBGEClient").Start(ctx, "ListMunicipalities", trace.WithAttributes(
		attribute.String("uf", uf),
	))
	defer span.End()

	if uf == "" {
		return nil, fmt.Errorf("state code is required")
	}

	key := "municipios:" + uf
	if cached, found := c.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return slices.Clone(cached.([]types.Municipality)), nil
	}

	var municipalities []types.Municipality
	url := fmt.Sprintf("%s/estados/%s/municipios", c.localidadesURL, uf)
	if err := c.getJSON(ctx, "municipios", url, &municipalities); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch municipalities")
		return nil, fmt.Errorf("failed to fetch municipalities for %s: %w", uf, err)
	}

	c.cache.Set(key, municipalities, cache.DefaultExpiration)
	span.SetAttributes(attribute.Int("municipalities.count", len(municipalities)))
	span.SetStatus(codes.Ok, "Municipalities fetched")
	return slices.Clone(municipalities), nil
}

// GetMunicipality fetches a single municipality by its IBGE code.
func (c *Client) GetMunicipality(ctx context.Context, id int) (*types.Municipality, error) {
	ctx, span := otel.Tracer("IBGEClient").Start(ctx, "GetMunicipality", trace.WithAttributes(
		attribute.Int("municipality.id", id),
	))
	defer span.End()

	var m types.Municipality
	url := fmt.Sprintf("%s/municipios/%d", c.localidadesURL, id)
	if err := c.getJSON(ctx, "municipio", url, &m); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch municipality")
		return nil, fmt.Errorf("failed to fetch municipality %d: %w", id, err)
	}
	// Unknown codes come back as 200 with an empty object.
	if m.ID == 0 {
		return nil, &HTTPError{StatusCode: http.StatusNotFound, URL: url}
	}
	return &m, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, url string, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	start := time.Now()
	status := 0
	defer func() {
		attrs := metric.WithAttributes(
			attribute.String("endpoint", endpoint),
			attribute.Int("status", status),
		)
		m := metrics.Get()
		m.UpstreamRequestsTotal.Add(ctx, 1, attrs)
		m.UpstreamDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "IBGE request failed", slog.String("url", url), slog.Any("error", err))
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WarnContext(ctx, "IBGE returned non-success status",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode))
		return &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
