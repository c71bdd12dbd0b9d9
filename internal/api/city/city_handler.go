package city

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-municipio-insights/internal/api"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

// Handler serves the read-only state and municipality directory.
type Handler struct {
	logger    *slog.Logger
	directory ibge.Directory
}

func NewCityHandler(directory ibge.Directory, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		directory: directory,
	}
}

// ListStates handles GET /states
func (h *Handler) ListStates(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "ListStates")
	defer span.End()

	l := h.logger.With(slog.String("method", "ListStates"))

	states, err := h.directory.ListStates(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to retrieve states", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Directory lookup failed")
		api.ErrorResponse(w, r, upstreamStatus(err), "Failed to retrieve states")
		return
	}

	span.SetStatus(codes.Ok, "States returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, states)
}

// ListMunicipalities handles GET /states/{uf}/municipalities
func (h *Handler) ListMunicipalities(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("CityHandler").Start(r.Context(), "ListMunicipalities")
	defer span.End()

	uf := strings.ToUpper(chi.URLParam(r, "uf"))
	span.SetAttributes(attribute.String("uf", uf))
	l := h.logger.With(slog.String("method", "ListMunicipalities"), slog.String("uf", uf))

	if len(uf) != 2 {
		api.ErrorResponse(w, r, http.StatusBadRequest, "UF must be a two-letter code")
		return
	}

	municipalities, err := h.directory.ListMunicipalities(ctx, uf)
	if err != nil {
		l.ErrorContext(ctx, "Failed to retrieve municipalities", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Directory lookup failed")
		api.ErrorResponse(w, r, upstreamStatus(err), "Failed to retrieve municipalities")
		return
	}

	filter := strings.ToLower(r.URL.Query().Get("q"))
	options := make([]types.MunicipalityOption, 0, len(municipalities))
	for _, m := range municipalities {
		if strings.Contains(strings.ToLower(m.Nome), filter) {
			options = append(options, types.MunicipalityOption{ID: m.ID, Nome: m.Nome})
		}
	}

	l.DebugContext(ctx, "Returned municipalities", slog.Int("count", len(options)))
	span.SetStatus(codes.Ok, "Municipalities returned successfully")
	api.WriteJSONResponse(w, r, http.StatusOK, options)
}

// upstreamStatus maps an IBGE 404 to 404 and everything else to 502.
func upstreamStatus(err error) int {
	var httpErr *ibge.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
