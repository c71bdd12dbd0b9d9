package report

import (
	"log/slog"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-municipio-insights/internal/api"
)

type HandlerImpl struct {
	logger  *slog.Logger
	service Service
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger:  logger,
		service: service,
	}
}

// ListReports godoc
// @Summary      List archived exports
// @Tags         Reports
// @Produce      json
// @Param        municipality_id query int false "Filter by municipality"
// @Param        limit query int false "Maximum number of reports (default 20, max 100)"
// @Success      200 {array} types.Report
// @Failure      400 {object} api.Response "Invalid query parameter"
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /reports [get]
func (h *HandlerImpl) ListReports(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ReportHandler").Start(r.Context(), "ListReports")
	defer span.End()
	l := h.logger.With(slog.String("HandlerImpl", "ListReports"))

	municipalityID, err := queryInt(r, "municipality_id")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid municipality_id")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}

	reports, err := h.service.Recent(ctx, municipalityID, limit)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list reports", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Service operation failed")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list reports")
		return
	}

	span.SetStatus(codes.Ok, "Reports returned")
	api.WriteJSONResponse(w, r, http.StatusOK, reports)
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
