package selection

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	appMiddleware "github.com/FACorreiaa/go-municipio-insights/app/middleware"
	"github.com/FACorreiaa/go-municipio-insights/internal/api"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/export"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateSession(w http.ResponseWriter, r *http.Request)
	GetSession(w http.ResponseWriter, r *http.Request)
	SelectState(w http.ResponseWriter, r *http.Request)
	SelectMunicipality(w http.ResponseWriter, r *http.Request)
	SetFilter(w http.ResponseWriter, r *http.Request)
	RequestEnrichment(w http.ResponseWriter, r *http.Request)
	RequestDeveloperPrompt(w http.ResponseWriter, r *http.Request)
	ExportCSV(w http.ResponseWriter, r *http.Request)
	ExportDeveloperPrompt(w http.ResponseWriter, r *http.Request)
	DeleteSession(w http.ResponseWriter, r *http.Request)
}

// Archiver stores exported packages. Archiving is best effort.
type Archiver interface {
	Archive(ctx context.Context, rec types.ProcessedRecord, f export.File) error
}

type HandlerImpl struct {
	logger    *slog.Logger
	store     *SessionStore
	archiver  Archiver
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewHandlerImpl wires the session routes. archiver may be nil.
func NewHandlerImpl(store *SessionStore, archiver Archiver, jwtSecret []byte, tokenTTL time.Duration, logger *slog.Logger) *HandlerImpl {
	if tokenTTL <= 0 {
		tokenTTL = DefaultSessionTTL
	}
	return &HandlerImpl{
		logger:    logger,
		store:     store,
		archiver:  archiver,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// CreateSession godoc
// @Summary      Create selection session
// @Description  Starts an anonymous session and returns its id with a Bearer token.
// @Tags         Sessions
// @Produce      json
// @Success      201 {object} api.CreateSessionResponse
// @Failure      500 {object} api.Response "Internal Server Error"
// @Router       /sessions [post]
func (h *HandlerImpl) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SelectionHandler").Start(r.Context(), "CreateSession")
	defer span.End()
	l := h.logger.With(slog.String("HandlerImpl", "CreateSession"))

	id, _ := h.store.Create(ctx)
	token, err := appMiddleware.IssueSessionToken(h.jwtSecret, id, h.tokenTTL)
	if err != nil {
		l.ErrorContext(ctx, "Failed to sign session token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token signing failed")
		_ = h.store.Delete(id)
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}

	span.SetAttributes(attribute.String("session.id", id))
	span.SetStatus(codes.Ok, "Session created")
	api.WriteJSONResponse(w, r, http.StatusCreated, api.CreateSessionResponse{SessionID: id, Token: token})
}

// GetSession godoc
// @Summary      Get session state
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Success      200 {object} api.SessionResponse
// @Failure      403 {object} api.Response "Token does not match session"
// @Failure      404 {object} api.Response "Session not found"
// @Security     BearerAuth
// @Router       /sessions/{sessionID} [get]
func (h *HandlerImpl) GetSession(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, r, http.StatusOK, id, ctrl)
}

func (h *HandlerImpl) SelectState(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req api.SelectStateRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctrl.SelectState(req.UF)
	h.writeSnapshot(w, r, http.StatusAccepted, id, ctrl)
}

func (h *HandlerImpl) SelectMunicipality(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req api.SelectMunicipalityRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := ctrl.SelectMunicipality(req.MunicipalityID); err != nil {
		h.writeError(w, r, "SelectMunicipality", err)
		return
	}
	h.writeSnapshot(w, r, http.StatusAccepted, id, ctrl)
}

func (h *HandlerImpl) SetFilter(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	var req api.SetFilterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	ctrl.SetCityFilter(req.Filter)
	h.writeSnapshot(w, r, http.StatusOK, id, ctrl)
}

// RequestEnrichment godoc
// @Summary      Start an enrichment
// @Description  Starts summary, business, tourism or ideas generation for the selected municipality. Poll the session for the result.
// @Tags         Sessions
// @Produce      json
// @Param        sessionID path string true "Session ID"
// @Param        kind path string true "summary | business | tourism | ideas"
// @Success      202 {object} api.SessionResponse
// @Failure      404 {object} api.Response "Unknown enrichment or session"
// @Failure      409 {object} api.Response "No municipality selected"
// @Security     BearerAuth
// @Router       /sessions/{sessionID}/enrichments/{kind} [post]
func (h *HandlerImpl) RequestEnrichment(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	kind, valid := ParseEnrichment(chi.URLParam(r, "kind"))
	if !valid {
		api.ErrorResponse(w, r, http.StatusNotFound, "Unknown enrichment")
		return
	}
	if err := ctrl.RequestEnrichment(kind); err != nil {
		h.writeError(w, r, "RequestEnrichment", err)
		return
	}
	h.writeSnapshot(w, r, http.StatusAccepted, id, ctrl)
}

func (h *HandlerImpl) RequestDeveloperPrompt(w http.ResponseWriter, r *http.Request) {
	ctrl, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	ideaID, err := strconv.Atoi(chi.URLParam(r, "ideaID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid idea ID")
		return
	}
	if err := ctrl.RequestDeveloperPrompt(ideaID); err != nil {
		h.writeError(w, r, "RequestDeveloperPrompt", err)
		return
	}
	h.writeSnapshot(w, r, http.StatusAccepted, id, ctrl)
}

// ExportCSV godoc
// @Summary      Download the municipality package
// @Tags         Sessions
// @Produce      text/csv
// @Param        sessionID path string true "Session ID"
// @Success      200 {file} file
// @Failure      409 {object} api.Response "No municipality selected"
// @Security     BearerAuth
// @Router       /sessions/{sessionID}/export.csv [get]
func (h *HandlerImpl) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SelectionHandler").Start(r.Context(), "ExportCSV")
	defer span.End()
	l := h.logger.With(slog.String("HandlerImpl", "ExportCSV"))

	ctrl, _, ok := h.controller(w, r)
	if !ok {
		return
	}
	f, err := ctrl.ExportCSV()
	if err != nil {
		h.writeError(w, r, "ExportCSV", err)
		return
	}

	if h.archiver != nil {
		if snap := ctrl.Snapshot(); snap.Record != nil {
			if err := h.archiver.Archive(ctx, *snap.Record, f); err != nil {
				l.WarnContext(ctx, "Failed to archive export", slog.Any("error", err))
				span.RecordError(err)
			}
		}
	}

	if err := (export.HTTPSaver{W: w}).Save(ctx, f); err != nil {
		l.ErrorContext(ctx, "Failed to write export", slog.Any("error", err))
		span.SetStatus(codes.Error, "Write failed")
		return
	}
	span.SetStatus(codes.Ok, "Exported")
}

func (h *HandlerImpl) ExportDeveloperPrompt(w http.ResponseWriter, r *http.Request) {
	ctrl, _, ok := h.controller(w, r)
	if !ok {
		return
	}
	f, err := ctrl.ExportDeveloperPrompt()
	if err != nil {
		h.writeError(w, r, "ExportDeveloperPrompt", err)
		return
	}
	if err := (export.HTTPSaver{W: w}).Save(r.Context(), f); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to write developer prompt", slog.Any("error", err))
	}
}

func (h *HandlerImpl) DeleteSession(w http.ResponseWriter, r *http.Request) {
	_, id, ok := h.controller(w, r)
	if !ok {
		return
	}
	if err := h.store.Delete(id); err != nil {
		h.writeError(w, r, "DeleteSession", err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

// controller resolves the {sessionID} route parameter. The Bearer token must
// belong to the same session.
func (h *HandlerImpl) controller(w http.ResponseWriter, r *http.Request) (*Controller, string, bool) {
	id := chi.URLParam(r, "sessionID")
	tokenID, ok := appMiddleware.GetSessionIDFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return nil, "", false
	}
	if tokenID != id {
		api.ErrorResponse(w, r, http.StatusForbidden, "Token does not grant access to this session")
		return nil, "", false
	}
	ctrl, err := h.store.Get(id)
	if err != nil {
		h.writeError(w, r, "controller", err)
		return nil, "", false
	}
	return ctrl, id, true
}

func (h *HandlerImpl) writeSnapshot(w http.ResponseWriter, r *http.Request, status int, id string, ctrl *Controller) {
	api.WriteJSONResponse(w, r, status, api.SessionResponse{SessionID: id, Session: ctrl.Snapshot()})
}

func (h *HandlerImpl) writeError(w http.ResponseWriter, r *http.Request, method string, err error) {
	l := h.logger.With(slog.String("HandlerImpl", method))
	switch {
	case errors.Is(err, ErrSessionNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Session not found")
	case errors.Is(err, ErrMunicipalityNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Municipality not found in the selected state")
	case errors.Is(err, ErrIdeaNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Idea not found")
	case errors.Is(err, ErrNoRecord):
		api.ErrorResponse(w, r, http.StatusConflict, "No municipality selected")
	case errors.Is(err, export.ErrNoDeveloperPrompt):
		api.ErrorResponse(w, r, http.StatusConflict, "No developer prompt generated")
	default:
		l.ErrorContext(r.Context(), "Unexpected error", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
