package selection

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

// MockDirectory is a mock implementation of ibge.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) ListStates(ctx context.Context) ([]types.State, error) {
	args := m.Called(ctx)
	states, _ := args.Get(0).([]types.State)
	return states, args.Error(1)
}

func (m *MockDirectory) ListMunicipalities(ctx context.Context, uf string) ([]types.Municipality, error) {
	args := m.Called(ctx, uf)
	list, _ := args.Get(0).([]types.Municipality)
	return list, args.Error(1)
}

func (m *MockDirectory) GetMunicipality(ctx context.Context, id int) (*types.Municipality, error) {
	args := m.Called(ctx, id)
	mun, _ := args.Get(0).(*types.Municipality)
	return mun, args.Error(1)
}

// MockIndicators is a mock implementation of ibge.IndicatorFetcher
type MockIndicators struct {
	mock.Mock
}

func (m *MockIndicators) FetchIndicators(ctx context.Context, municipalityID int) types.Indicators {
	args := m.Called(ctx, municipalityID)
	return args.Get(0).(types.Indicators)
}

// MockInsightService is a mock implementation of insight.Service
type MockInsightService struct {
	mock.Mock
}

func (m *MockInsightService) Summary(ctx context.Context, nome, uf string) types.GenerationOutcome {
	return m.Called(ctx, nome, uf).Get(0).(types.GenerationOutcome)
}

func (m *MockInsightService) BusinessTips(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome {
	return m.Called(ctx, nome, uf, populacao).Get(0).(types.GenerationOutcome)
}

func (m *MockInsightService) Tourism(ctx context.Context, nome, uf string) types.GenerationOutcome {
	return m.Called(ctx, nome, uf).Get(0).(types.GenerationOutcome)
}

func (m *MockInsightService) AppIdeas(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome {
	return m.Called(ctx, nome, uf, populacao).Get(0).(types.GenerationOutcome)
}

func (m *MockInsightService) DeveloperPrompt(ctx context.Context, title, description, city string) types.GenerationOutcome {
	return m.Called(ctx, title, description, city).Get(0).(types.GenerationOutcome)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(f float64) *float64 { return &f }

func okOutcome(text string) types.GenerationOutcome {
	return types.GenerationOutcome{Text: text, Status: types.OutcomeOK}
}

var sudeste = types.Region{ID: 3, Sigla: "SE", Nome: "Sudeste"}

var testStates = []types.State{
	{ID: 33, Sigla: "RJ", Nome: "Rio de Janeiro", Regiao: sudeste},
	{ID: 35, Sigla: "SP", Nome: "São Paulo", Regiao: sudeste},
}

func spMunicipality(id int, nome, micro string) types.Municipality {
	return types.Municipality{
		ID:   id,
		Nome: nome,
		Microrregiao: &types.MicroRegion{
			ID:   35061,
			Nome: micro,
			Mesorregiao: types.MesoRegion{
				ID:   3515,
				Nome: "Metropolitana de São Paulo",
				UF:   testStates[1],
			},
		},
	}
}

var spMunicipalities = []types.Municipality{
	spMunicipality(3509502, "Campinas", "Campinas"),
	spMunicipality(3550308, "São Paulo", "São Paulo"),
	spMunicipality(3548708, "São Bernardo do Campo", "São Paulo"),
}

var rjMunicipalities = []types.Municipality{
	{
		ID:   3304557,
		Nome: "Rio de Janeiro",
		Microrregiao: &types.MicroRegion{
			ID:   33018,
			Nome: "Rio de Janeiro",
			Mesorregiao: types.MesoRegion{
				ID:   3306,
				Nome: "Metropolitana do Rio de Janeiro",
				UF:   testStates[0],
			},
		},
	},
}

const ideasJSON = `[
  {"id": 1, "title": "Calc Feira", "category": "Varejo", "description": "Calcula margem de feirantes."},
  {"id": 2, "title": "Rota Escolar", "category": "Gestão", "description": "Planeja rotas de vans escolares."}
]`
