package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-municipio-insights/config"
	"github.com/FACorreiaa/go-municipio-insights/internal/api"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/city"
	generativeAI "github.com/FACorreiaa/go-municipio-insights/internal/api/generative_ai"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/ibge"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/insight"
	"github.com/FACorreiaa/go-municipio-insights/internal/api/selection"
	"github.com/FACorreiaa/go-municipio-insights/internal/container"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

const (
	e2eStates         = `[{"id":35,"sigla":"SP","nome":"São Paulo","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}},{"id":33,"sigla":"RJ","nome":"Rio de Janeiro","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}}]`
	e2eMunicipalities = `[{"id":3509502,"nome":"Campinas","microrregiao":{"id":35032,"nome":"Campinas","mesorregiao":{"id":3507,"nome":"Campinas","UF":{"id":35,"sigla":"SP","nome":"São Paulo","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}}}}},{"id":3550308,"nome":"São Paulo","microrregiao":{"id":35061,"nome":"São Paulo","mesorregiao":{"id":3515,"nome":"Metropolitana de São Paulo","UF":{"id":35,"sigla":"SP","nome":"São Paulo","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}}}}}]`
	e2eCampinas       = `{"id":3509502,"nome":"Campinas","microrregiao":{"id":35032,"nome":"Campinas","mesorregiao":{"id":3507,"nome":"Campinas","UF":{"id":35,"sigla":"SP","nome":"São Paulo","regiao":{"id":3,"sigla":"SE","nome":"Sudeste"}}}}}`
	e2eIdeas          = `[{"id":1,"title":"Feira Digital","category":"Comércio","description":"Marketplace de feirantes."},{"id":2,"title":"Rota Verde","category":"Turismo","description":"Trilhas da região."}]`
)

func e2eSeries(value string) string {
	return fmt.Sprintf(`[{"id":"1","variavel":"v","resultados":[{"classificacoes":[],"series":[{"localidade":{"id":"3509502"},"serie":{"2024":"%s"}}]}]}]`, value)
}

// fakeIBGEHandler serves the directory and aggregate endpoints the client calls.
func fakeIBGEHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/localidades/estados", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, e2eStates)
	})
	mux.HandleFunc("/localidades/estados/SP/municipios", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, e2eMunicipalities)
	})
	mux.HandleFunc("/localidades/estados/RJ/municipios", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/agregados/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/variaveis/9324"):
			io.WriteString(w, e2eSeries("1139047"))
		case strings.Contains(r.URL.Path, "/variaveis/615"):
			io.WriteString(w, e2eSeries("794.571"))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/localidades/municipios/3509502", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, e2eCampinas)
	})
	return mux
}

// fakeGenerator answers every prompt without a network call.
type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, req generativeAI.GenerationRequest) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()
	if req.JSON {
		return e2eIdeas, nil
	}
	return "Texto gerado para o teste.", nil
}

// E2ETestSuite drives the full HTTP stack against a fake IBGE upstream.
type E2ETestSuite struct {
	suite.Suite
	upstream  *httptest.Server
	server    *httptest.Server
	container *container.Container
	client    *http.Client
	generator *fakeGenerator
}

func (s *E2ETestSuite) SetupSuite() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.upstream = httptest.NewServer(fakeIBGEHandler())

	cfg := &config.Config{}
	cfg.Session.JWTSecret = "e2e-secret"
	cfg.Session.TTL = time.Hour

	client := ibge.NewClient(ibge.Config{
		LocalidadesURL: s.upstream.URL + "/localidades",
		AgregadosURL:   s.upstream.URL + "/agregados",
	}, logger)
	s.generator = &fakeGenerator{}
	insights := insight.NewService(s.generator, insight.Config{APIKey: "test-key"}, logger)
	sessions := selection.NewSessionStore(cfg.Session.TTL, func() *selection.Controller {
		return selection.NewController(client, client, insights, logger)
	}, logger)

	s.container = &container.Container{
		Config:           cfg,
		Logger:           logger,
		IBGE:             client,
		Insights:         insights,
		Sessions:         sessions,
		CityHandler:      city.NewCityHandler(client, logger),
		SelectionHandler: selection.NewHandlerImpl(sessions, nil, []byte(cfg.Session.JWTSecret), cfg.Session.TTL, logger),
	}
	s.server = httptest.NewServer(newServerHandler(s.container))
	s.client = s.server.Client()
}

func (s *E2ETestSuite) TearDownSuite() {
	s.server.Close()
	s.container.Close()
	s.upstream.Close()
}

func (s *E2ETestSuite) do(method, path, token string, body any) *http.Response {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *E2ETestSuite) createSession() api.CreateSessionResponse {
	resp := s.do(http.MethodPost, "/api/v1/sessions", "", nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	var created api.CreateSessionResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func (s *E2ETestSuite) snapshot(sess api.CreateSessionResponse) types.SelectionSnapshot {
	resp := s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID, sess.Token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var out api.SessionResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out.Session
}

func (s *E2ETestSuite) eventually(sess api.CreateSessionResponse, cond func(types.SelectionSnapshot) bool) types.SelectionSnapshot {
	var snap types.SelectionSnapshot
	s.Require().Eventually(func() bool {
		snap = s.snapshot(sess)
		return cond(snap)
	}, 2*time.Second, 10*time.Millisecond)
	return snap
}

func (s *E2ETestSuite) expectStatus(want int, resp *http.Response) {
	defer resp.Body.Close()
	s.Require().Equal(want, resp.StatusCode)
}

func (s *E2ETestSuite) TestPing() {
	resp := s.do(http.MethodGet, "/ping", "", nil)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *E2ETestSuite) TestPublicDirectory() {
	resp := s.do(http.MethodGet, "/api/v1/states/sp/municipalities?q=camp", "", nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	var options []types.MunicipalityOption
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&options))
	s.Equal([]types.MunicipalityOption{{ID: 3509502, Nome: "Campinas"}}, options)
}

func (s *E2ETestSuite) TestSessionRoutesRequireToken() {
	sess := s.createSession()
	s.expectStatus(http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID, "", nil))

	other := s.createSession()
	s.expectStatus(http.StatusForbidden, s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID, other.Token, nil))
}

func (s *E2ETestSuite) TestSelectionWorkflow() {
	sess := s.createSession()
	s.eventually(sess, func(snap types.SelectionSnapshot) bool { return len(snap.States) == 2 })

	s.expectStatus(http.StatusAccepted, s.do(http.MethodPut, "/api/v1/sessions/"+sess.SessionID+"/state", sess.Token, api.SelectStateRequest{UF: "sp"}))
	snap := s.eventually(sess, func(snap types.SelectionSnapshot) bool { return len(snap.Municipalities) == 2 })
	s.Equal("SP", snap.SelectedUF)

	s.expectStatus(http.StatusAccepted, s.do(http.MethodPut, "/api/v1/sessions/"+sess.SessionID+"/municipality", sess.Token, api.SelectMunicipalityRequest{MunicipalityID: 3509502}))
	snap = s.eventually(sess, func(snap types.SelectionSnapshot) bool {
		return snap.Record != nil && snap.Record.Populacao != nil && snap.Record.Area != nil
	})
	s.Equal("Campinas", snap.Record.Nome)
	s.Equal(1139047.0, *snap.Record.Populacao)

	for _, kind := range []string{"summary", "business", "tourism", "ideas"} {
		s.expectStatus(http.StatusAccepted, s.do(http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/enrichments/"+kind, sess.Token, nil))
	}
	snap = s.eventually(sess, func(snap types.SelectionSnapshot) bool {
		return snap.Summary.State == types.SlotReady && snap.BusinessTips.State == types.SlotReady &&
			snap.Tourism.State == types.SlotReady && snap.AppIdeas.State == types.SlotReady
	})
	s.Require().Len(snap.AppIdeasList, 2)
	s.Equal("Rota Verde", snap.AppIdeasList[1].Title)

	s.expectStatus(http.StatusAccepted, s.do(http.MethodPost, "/api/v1/sessions/"+sess.SessionID+"/ideas/2/prompt", sess.Token, nil))
	snap = s.eventually(sess, func(snap types.SelectionSnapshot) bool { return snap.DeveloperPrompt.State == types.SlotReady })
	s.Require().NotNil(snap.ActiveIdeaID)
	s.Equal(2, *snap.ActiveIdeaID)

	resp := s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID+"/export.csv", sess.Token, nil)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Contains(resp.Header.Get("Content-Disposition"), "pacote_SP_campinas.csv")
	rows, err := csv.NewReader(resp.Body).ReadAll()
	s.Require().NoError(err)
	s.Require().Len(rows, 2)
	s.Equal("Campinas", rows[1][1])
	s.Equal("1139047", rows[1][6])

	prompt := s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID+"/export/prompt", sess.Token, nil)
	defer prompt.Body.Close()
	s.Require().Equal(http.StatusOK, prompt.StatusCode)
	s.Contains(prompt.Header.Get("Content-Disposition"), "prompt_dev_campinas.md")

	s.expectStatus(http.StatusNoContent, s.do(http.MethodDelete, "/api/v1/sessions/"+sess.SessionID, sess.Token, nil))
	s.expectStatus(http.StatusNotFound, s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID, sess.Token, nil))
}

func (s *E2ETestSuite) TestExportWithoutSelectionConflicts() {
	sess := s.createSession()
	s.expectStatus(http.StatusConflict, s.do(http.MethodGet, "/api/v1/sessions/"+sess.SessionID+"/export.csv", sess.Token, nil))
}

func TestE2ETestSuite(t *testing.T) {
	suite.Run(t, new(E2ETestSuite))
}
