package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-municipio-insights/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-municipio-insights/internal/api/generative_ai"
	"github.com/FACorreiaa/go-municipio-insights/internal/types"
)

const (
	NotConfiguredMessage = "Chave de API não configurada."

	SummaryErrorMessage   = "Erro ao comunicar com o serviço de inteligência."
	SummaryEmptyMessage   = "Não foi possível gerar a análise."
	BusinessErrorMessage  = "Erro ao gerar dicas de negócios."
	BusinessEmptyMessage  = "Análise de negócios indisponível."
	TourismErrorMessage   = "Erro ao gerar guia turístico."
	TourismEmptyMessage   = "Guia turístico indisponível."
	DevPromptErrorMessage = "Erro ao gerar prompt de desenvolvimento."

	// EmptyIdeas is what AppIdeas returns whenever no ideas could be produced.
	EmptyIdeas = "[]"

	DefaultDevPromptModel = "gemini-3-pro-preview"
)

var _ Service = (*ServiceImpl)(nil)

// Service produces generated text about a municipality. None of the methods
// fail: problems come back as a fixed message with a non-OK status.
type Service interface {
	Summary(ctx context.Context, nome, uf string) types.GenerationOutcome
	BusinessTips(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome
	Tourism(ctx context.Context, nome, uf string) types.GenerationOutcome
	AppIdeas(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome
	DeveloperPrompt(ctx context.Context, title, description, city string) types.GenerationOutcome
}

type Config struct {
	APIKey         string
	Model          string
	DevPromptModel string
}

type ServiceImpl struct {
	logger         *slog.Logger
	generator      generativeAI.TextGenerator
	configured     bool
	model          string
	devPromptModel string
}

// NewService builds the generator facade. Without an API key every call
// short-circuits to the not-configured placeholder.
func NewService(generator generativeAI.TextGenerator, cfg Config, logger *slog.Logger) *ServiceImpl {
	if cfg.Model == "" {
		cfg.Model = generativeAI.DefaultModel
	}
	if cfg.DevPromptModel == "" {
		cfg.DevPromptModel = DefaultDevPromptModel
	}
	return &ServiceImpl{
		logger:         logger,
		generator:      generator,
		configured:     cfg.APIKey != "" && generator != nil,
		model:          cfg.Model,
		devPromptModel: cfg.DevPromptModel,
	}
}

type operation struct {
	name          string
	notConfigured string
	failure       string
	empty         string
	// emptyIsFailure marks operations whose empty-response text is an error message.
	emptyIsFailure bool
}

var (
	summaryOp   = operation{name: "summary", notConfigured: NotConfiguredMessage, failure: SummaryErrorMessage, empty: SummaryEmptyMessage}
	businessOp  = operation{name: "business_tips", notConfigured: NotConfiguredMessage, failure: BusinessErrorMessage, empty: BusinessEmptyMessage}
	tourismOp   = operation{name: "tourism", notConfigured: NotConfiguredMessage, failure: TourismErrorMessage, empty: TourismEmptyMessage}
	appIdeasOp  = operation{name: "app_ideas", notConfigured: EmptyIdeas, failure: EmptyIdeas, empty: EmptyIdeas}
	devPromptOp = operation{name: "developer_prompt", notConfigured: NotConfiguredMessage, failure: DevPromptErrorMessage, empty: DevPromptErrorMessage, emptyIsFailure: true}
)

func (s *ServiceImpl) Summary(ctx context.Context, nome, uf string) types.GenerationOutcome {
	return s.run(ctx, summaryOp, generativeAI.GenerationRequest{
		Model:  s.model,
		Prompt: GetSummaryPrompt(nome, uf),
	})
}

func (s *ServiceImpl) BusinessTips(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome {
	return s.run(ctx, businessOp, generativeAI.GenerationRequest{
		Model:  s.model,
		Prompt: GetBusinessTipsPrompt(nome, uf, populacao),
	})
}

func (s *ServiceImpl) Tourism(ctx context.Context, nome, uf string) types.GenerationOutcome {
	return s.run(ctx, tourismOp, generativeAI.GenerationRequest{
		Model:  s.model,
		Prompt: GetTourismPrompt(nome, uf),
	})
}

// AppIdeas returns the raw JSON text of the ideas array. Callers must parse
// it with ParseAppIdeas and treat any error as "no ideas".
func (s *ServiceImpl) AppIdeas(ctx context.Context, nome, uf string, populacao *float64) types.GenerationOutcome {
	return s.run(ctx, appIdeasOp, generativeAI.GenerationRequest{
		Model:  s.model,
		Prompt: GetAppIdeasPrompt(nome, uf, populacao),
		JSON:   true,
	})
}

func (s *ServiceImpl) DeveloperPrompt(ctx context.Context, title, description, city string) types.GenerationOutcome {
	return s.run(ctx, devPromptOp, generativeAI.GenerationRequest{
		Model:  s.devPromptModel,
		Prompt: GetDeveloperPrompt(title, description, city),
	})
}

func (s *ServiceImpl) run(ctx context.Context, op operation, req generativeAI.GenerationRequest) (out types.GenerationOutcome) {
	ctx, span := otel.Tracer("InsightService").Start(ctx, op.name, trace.WithAttributes(
		attribute.String("model", req.Model),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		attrs := metric.WithAttributes(
			attribute.String("operation", op.name),
			attribute.String("outcome", string(out.Status)),
		)
		m := metrics.Get()
		m.GenerationsTotal.Add(ctx, 1, attrs)
		if out.Status != types.OutcomeNotConfigured {
			m.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
		}
	}()

	l := s.logger.With(slog.String("operation", op.name))

	if !s.configured {
		span.SetStatus(codes.Error, "API key not configured")
		return types.GenerationOutcome{Text: op.notConfigured, Status: types.OutcomeNotConfigured}
	}

	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		l.ErrorContext(ctx, "Generative backend call failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return types.GenerationOutcome{Text: op.failure, Status: types.OutcomeFailed}
	}

	if strings.TrimSpace(text) == "" {
		l.WarnContext(ctx, "Generative backend returned empty text")
		if op.emptyIsFailure {
			return types.GenerationOutcome{Text: op.empty, Status: types.OutcomeFailed}
		}
		return types.GenerationOutcome{Text: op.empty, Status: types.OutcomeEmpty}
	}

	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Generated")
	return types.GenerationOutcome{Text: text, Status: types.OutcomeOK}
}
