package cmd

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appMiddleware "github.com/FACorreiaa/go-municipio-insights/app/middleware"
	"github.com/FACorreiaa/go-municipio-insights/config"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/export"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/insight"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/selection"
	"github.com/FACorreiaa/go-municipio-insights/internal/container"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

func benchRecord() types.ProcessedRecord {
	pop, area := 1139047.0, 794.571
	summary := "Campinas é um polo de tecnologia, com \"parques\" científicos e universidades."
	return types.ProcessedRecord{
		ID: 3509502, Nome: "Campinas", UF: "SP",
		Microrregiao: "Campinas", Mesorregiao: "Campinas", Regiao: "Sudeste",
		Populacao: &pop, Area: &area, Summary: &summary,
	}
}

func BenchmarkEncodeCSV(b *testing.B) {
	rec := benchRecord()
	b.ReportAllocs()
	for b.Loop() {
		export.EncodeCSV(rec)
	}
}

func BenchmarkParseAppIdeas(b *testing.B) {
	text := "Aqui estão as ideias:\n```json\n" + e2eIdeas + "\n```"
	b.ReportAllocs()
	for b.Loop() {
		if _, err := insight.ParseAppIdeas(text); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSessionSnapshot(b *testing.B) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{}
	cfg.Session.JWTSecret = "bench-secret"
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, e2eStates)
	}))
	defer upstream.Close()
	client := ibge.NewClient(ibge.Config{LocalidadesURL: upstream.URL}, logger)
	insights := insight.NewService(nil, insight.Config{}, logger)

	sessions := selection.NewSessionStore(time.Hour, func() *selection.Controller {
		return selection.NewController(client, client, insights, logger)
	}, logger)
	defer sessions.Close()

	id, ctrl := sessions.Create(context.Background())
	ctrl.Wait()
	token, err := appMiddleware.IssueSessionToken([]byte(cfg.Session.JWTSecret), id, time.Hour)
	if err != nil {
		b.Fatal(err)
	}

	handler := newServerHandler(&container.Container{
		Config:           cfg,
		Logger:           logger,
		Sessions:         sessions,
		SelectionHandler: selection.NewHandlerImpl(sessions, nil, []byte(cfg.Session.JWTSecret), time.Hour, logger),
	})

	b.ReportAllocs()
	for b.Loop() {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			b.Fatalf("status %d", rr.Code)
		}
	}
}
