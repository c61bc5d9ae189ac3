package openaiapi

import (
	"context"
	"fmt"
	"os"
	"time"

	"callcoach/logger"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	OPENAI_MODEL_NAME = "gpt-4o-mini"
)

const (
	maxRetries = 3
	baseDelay  = 1 * time.Second
)

type OpenAIConnectProps struct {
	Logger *logger.LogMiddleware
	Model  string
}

// OpenAI backs the advisory generator interface with the OpenAI chat
// completions API. Mirrors the availability semantics of geminiapi: a missing
// OPENAI_SECRET_KEY leaves the client connected but unavailable.
type OpenAI struct {
	logger    *logger.LogMiddleware
	semaphore *semaphore.Weighted
	client    *openai.Client
	model     string
}

func Connect(ctx context.Context, args OpenAIConnectProps) *OpenAI {
	tracer := otel.Tracer("openaiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))
	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))

	model := args.Model
	if model == "" {
		model = OPENAI_MODEL_NAME
	}

	OPENAI_SECRET_KEY := os.Getenv("OPENAI_SECRET_KEY")
	if OPENAI_SECRET_KEY == "" {
		args.Logger.Logger(ctx).Warn("[OpenAIAPI] OPENAI_SECRET_KEY not set, generator unavailable")
		span.AddEvent("MissingCredential")
		return &OpenAI{logger: args.Logger, semaphore: sem, model: model}
	}

	client := openai.NewClient(
		option.WithAPIKey(OPENAI_SECRET_KEY),
	)

	return &OpenAI{logger: args.Logger, semaphore: sem, client: &client, model: model}
}

func (o *OpenAI) Available() bool {
	return o != nil && o.client != nil
}

// Generate sends one system+user prompt pair and returns the raw response text.
func (o *OpenAI) Generate(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int32) (string, error) {
	tracer := otel.Tracer("openaiapi/Generate")
	ctx, span := tracer.Start(ctx, "Generate")
	defer span.End()
	o.logger.Logger(ctx).Info("[OpenAIAPI] Generate called",
		zap.Int("prompt.length", len(userPrompt)),
		zap.Int32("maxTokens", maxTokens))

	if !o.Available() {
		return "", fmt.Errorf("openai client not available")
	}

	if err := o.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore: %w", err)
	}
	defer o.semaphore.Release(1)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(o.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
			MaxTokens: openai.Int(int64(maxTokens)),
		})
		if err == nil && len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
			span.AddEvent("Generation successful", trace.WithAttributes(
				attribute.Int("response.length", len(resp.Choices[0].Message.Content))))
			return resp.Choices[0].Message.Content, nil
		}

		if err != nil {
			lastErr = err
			span.RecordError(err)
		} else {
			lastErr = fmt.Errorf("empty completion response")
			span.AddEvent("EmptyResponse")
		}
		o.logger.Logger(ctx).Warn("[OpenAIAPI] Completion failed, retrying...",
			zap.Error(lastErr),
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", maxRetries))

		if attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	o.logger.Logger(ctx).Error("[OpenAIAPI] Final error generating completion after retries", zap.Error(lastErr))
	return "", lastErr
}
