package geminiapi

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"callcoach/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"
)

const (
	GEMINI_MODEL_NAME = "gemini-2.5-flash"
)

const (
	maxRetries = 3
	baseDelay  = 1 * time.Second
)

type GeminiConnectProps struct {
	Logger *logger.LogMiddleware
	Model  string
}

// Gemini backs the advisory generator interface with the Gemini API. A missing
// GEMINI_SECRET_KEY is not fatal: the client connects in unavailable mode and
// every advisory path degrades to its safe default.
type Gemini struct {
	logger    *logger.LogMiddleware
	client    *genai.Client
	semaphore *semaphore.Weighted
	model     string
}

func exponentialBackoff(attempt int) time.Duration {
	return baseDelay * time.Duration(1<<uint(attempt))
}

func Connect(ctx context.Context, args GeminiConnectProps) *Gemini {
	tracer := otel.Tracer("geminiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()
	args.Logger.Logger(ctx).Info("[GeminiAPI] Connecting Gemini API client")

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))
	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))

	model := args.Model
	if model == "" {
		model = GEMINI_MODEL_NAME
	}

	GEMINI_KEY := os.Getenv("GEMINI_SECRET_KEY")
	if GEMINI_KEY == "" {
		args.Logger.Logger(ctx).Warn("[GeminiAPI] GEMINI_SECRET_KEY not set, generator unavailable")
		span.AddEvent("MissingCredential")
		return &Gemini{logger: args.Logger, semaphore: sem, model: model}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  GEMINI_KEY,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		args.Logger.Logger(ctx).Error("[GeminiAPI] Could not create Gemini client", zap.Error(err))
		span.RecordError(err)
		return &Gemini{logger: args.Logger, semaphore: sem, model: model}
	}

	return &Gemini{logger: args.Logger, client: client, semaphore: sem, model: model}
}

// Available reports whether a credentialed client exists. Callers check this
// before building a request so the missing-key branch never hits the network.
func (g *Gemini) Available() bool {
	return g != nil && g.client != nil
}

// Generate sends one system+user prompt pair and returns the raw response text.
// The caller owns parsing; this layer only retries transport-level failures.
func (g *Gemini) Generate(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int32) (string, error) {
	tracer := otel.Tracer("geminiapi/Generate")
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()
	g.logger.Logger(ctx).Info("[GeminiAPI] Generate called",
		zap.Int("prompt.length", len(userPrompt)),
		zap.Int32("maxTokens", maxTokens))

	if !g.Available() {
		return "", fmt.Errorf("gemini client not available")
	}

	if err := g.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer g.semaphore.Release(1)

	thinkingBudget := int32(0)

	var resp *genai.GenerateContentResponse
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		span.AddEvent("Attempt", trace.WithAttributes(attribute.Int("attemptNumber", attempt+1)))

		resp, err = g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt), &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			MaxOutputTokens:   maxTokens,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  &thinkingBudget,
			},
		})

		if err != nil || resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			if err != nil {
				span.RecordError(err)
				g.logger.Logger(ctx).Warn("[GeminiAPI] Error generating content, retrying...",
					zap.Error(err),
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
			} else {
				span.AddEvent("EmptyResponse")
				g.logger.Logger(ctx).Warn("[GeminiAPI] Received empty or invalid response, retrying...",
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
			}

			if attempt < maxRetries-1 {
				delay := exponentialBackoff(attempt)
				span.AddEvent("Backoff", trace.WithAttributes(attribute.Int64("delayMs", delay.Milliseconds())))
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(delay):
				}
			}
			continue
		}

		break
	}

	if err != nil {
		g.logger.Logger(ctx).Error("[GeminiAPI] Final error generating content after retries", zap.Error(err))
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response after %d attempts", maxRetries)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}

	span.AddEvent("Generation successful", trace.WithAttributes(attribute.Int("response.length", b.Len())))
	return b.String(), nil
}
