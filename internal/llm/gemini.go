package llm

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

const tracerName = "GenerativeAI"

// GeminiBackend serves models from the Gemini API.
type GeminiBackend struct {
	client *genai.Client
}

// NewGeminiBackend builds a Gemini API client for apiKey. An empty key returns ErrNoBackend so
// callers can run without AI features.
func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "NewGeminiBackend")
	defer span.End()

	if apiKey == "" {
		span.SetStatus(codes.Error, "API key not set")
		return nil, ErrNoBackend
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create Gemini client")
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

// Model looks name up so unknown or retired models fail here instead of at generation time.
func (b *GeminiBackend) Model(ctx context.Context, name string) (Model, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GetModel", trace.WithAttributes(
		attribute.String("model", name),
	))
	defer span.End()

	if _, err := b.client.Models.Get(ctx, name, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Model lookup failed")
		return nil, fmt.Errorf("get model %s: %w", name, err)
	}
	return &geminiModel{client: b.client, name: name}, nil
}

// ListModels returns every model name the API key can see, e.g. "models/gemini-1.5-flash".
func (b *GeminiBackend) ListModels(ctx context.Context) ([]string, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ListModels")
	defer span.End()

	var names []string
	for m, err := range b.client.Models.All(ctx) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Model listing failed")
			return names, fmt.Errorf("list models: %w", err)
		}
		if m != nil && m.Name != "" {
			names = append(names, m.Name)
		}
	}
	span.SetAttributes(attribute.Int("models.count", len(names)))
	return names, nil
}

type geminiModel struct {
	client *genai.Client
	name   string
}

func (m *geminiModel) Name() string { return m.name }

// Generate sends parts as one user turn and returns the concatenated response text.
func (m *geminiModel) Generate(ctx context.Context, parts ...string) (string, error) {
	promptLen := 0
	for _, p := range parts {
		promptLen += len(p)
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "GenerateContent", trace.WithAttributes(
		attribute.String("model", m.name),
		attribute.Int("prompt.parts", len(parts)),
		attribute.Int("prompt.length", promptLen),
	))
	defer span.End()

	content := &genai.Content{Role: "user"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	result, err := m.client.Models.GenerateContent(ctx, m.name, []*genai.Content{content}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to generate content")
		return "", fmt.Errorf("generate with %s: %w", m.name, err)
	}
	text := result.Text()
	if text == "" {
		err := errors.New("empty response")
		span.RecordError(err)
		span.SetStatus(codes.Error, "Empty response")
		return "", fmt.Errorf("generate with %s: %w", m.name, err)
	}
	span.SetAttributes(attribute.Int("response.length", len(text)))
	span.SetStatus(codes.Ok, "Content generated successfully")
	return text, nil
}
