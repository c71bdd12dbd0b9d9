package generativeAI

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

var ErrMissingAPIKey = errors.New("gemini API key is not set")

// GenerationRequest is one prompt sent to the backend.
type GenerationRequest struct {
	Model  string
	Prompt string
	// JSON asks the backend for application/json output.
	JSON        bool
	Temperature *float32
}

// TextGenerator is the generative-text backend.
type TextGenerator interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

var _ TextGenerator = (*AIClient)(nil)

type AIClient struct {
	client *genai.Client
	model  string
}

// NewAIClient creates a Gemini API client. An empty key is rejected so the
// caller can decide to run without generation instead of failing later.
func NewAIClient(ctx context.Context, apiKey, model string) (*AIClient, error) {
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "NewAIClient")
	defer span.End()

	if apiKey == "" {
		span.SetStatus(codes.Error, "API key not set")
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	span.SetStatus(codes.Ok, "AI client created successfully")
	return &AIClient{
		client: client,
		model:  model,
	}, nil
}

// Generate sends a single-turn prompt and returns the response text.
func (ai *AIClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = ai.model
	}
	ctx, span := otel.Tracer("GenerativeAI").Start(ctx, "Generate", trace.WithAttributes(
		attribute.Int("prompt.length", len(req.Prompt)),
		attribute.String("model", model),
		attribute.Bool("response.json", req.JSON),
	))
	defer span.End()

	config := &genai.GenerateContentConfig{Temperature: req.Temperature}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	result, err := ai.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	responseText := result.Text()
	span.SetAttributes(attribute.Int("response.length", len(responseText)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return responseText, nil
}
