package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"research-orchestrator/internal/domain"
	"research-orchestrator/internal/infra/httpclient"
)

const generationTemperature = 0.4

// ChatGenerator calls an OpenAI-compatible chat-completions endpoint. A
// rate limiter paces requests so concurrent section generation does not
// trip the provider's per-minute quota.
type ChatGenerator struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewChatGenerator creates the generator. requestsPerSecond <= 0 disables
// pacing.
func NewChatGenerator(baseURL, model, apiKey string, timeoutSeconds int, requestsPerSecond float64, logger *slog.Logger) *ChatGenerator {
	timeout := 120 * time.Second
	if timeoutSeconds > 0 {
		timeout = time.Duration(timeoutSeconds) * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}

	return &ChatGenerator{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		client:  httpclient.NewPooledClient(timeout),
		limiter: limiter,
		logger:  logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

const systemPrompt = "You are a social-media research analyst. Write precise, evidence-backed report sections. " +
	"Cite only metrics provided in the context. Plain prose with markdown tables where useful."

func (g *ChatGenerator) Complete(ctx context.Context, req domain.CompletionRequest) (*domain.CompletionResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter interrupted: %w", err)
	}

	start := time.Now()
	g.logger.Info("generation_started",
		slog.String("model", g.model),
		slog.Int("prompt_len", len(req.Prompt)))

	body := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: generationTemperature,
	}
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/chat/completions", g.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error("generation_failed",
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("failed to call generation backend: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.logger.Error("generation_bad_status",
			slog.Int("status", resp.StatusCode),
			slog.Duration("elapsed", time.Since(start)))
		return nil, fmt.Errorf("generation backend returned status %d: %s", resp.StatusCode, snippet)
	}

	var respBody chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(respBody.Choices) == 0 {
		return nil, fmt.Errorf("generation backend returned no choices")
	}

	choice := respBody.Choices[0]
	g.logger.Info("generation_completed",
		slog.String("model", g.model),
		slog.Int("completion_tokens", respBody.Usage.CompletionTokens),
		slog.Duration("elapsed", time.Since(start)))

	return &domain.CompletionResponse{
		Text:             choice.Message.Content,
		PromptTokens:     respBody.Usage.PromptTokens,
		CompletionTokens: respBody.Usage.CompletionTokens,
		Done:             choice.FinishReason == "stop",
	}, nil
}

func (g *ChatGenerator) Model() string {
	return g.model
}

var _ domain.LLMClient = (*ChatGenerator)(nil)
