package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"mailtriage/pkg/circuitbreaker"
	"mailtriage/pkg/config"
	"mailtriage/pkg/metrics"
	"mailtriage/pkg/trace"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60 * time.Second

	traceHeader = "X-Trace-ID"
)

// ErrEmptyResponse 服务返回 200 但没有任何候选文本
var ErrEmptyResponse = errors.New("generation service returned no choices")

// APIError 非 200 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("generation service error (status %d): %s", e.StatusCode, e.Body)
}

// HTTPStatus 供 util.ClassifyError 识别
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Generator 请求/响应式文本生成
type Generator interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Client OpenAI 兼容的 chat completions 客户端（非流式），带熔断器
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient 创建生成服务客户端
func NewClient(cfg config.LLMConfig, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// 连续失败 3 次后快速失败，避免一轮轮询里每封邮件都等满超时
	cbConfig := circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			metrics.SetBreakerState(int(to))
			logger.Warn("Generation service circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		cb:         circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     logger,
	}
}

// For 返回按用途打点的 Generator，共享同一个熔断器
func (c *Client) For(purpose string) Generator {
	return &purposeGenerator{client: c, purpose: purpose}
}

type purposeGenerator struct {
	client  *Client
	purpose string
}

func (g *purposeGenerator) Complete(ctx context.Context, system, prompt string) (string, error) {
	return g.client.complete(ctx, g.purpose, system, prompt)
}

// Complete 发送一次 system + user 对话，返回第一个候选的文本
func (c *Client) Complete(ctx context.Context, system, prompt string) (string, error) {
	return c.complete(ctx, "generic", system, prompt)
}

func (c *Client) complete(ctx context.Context, purpose, system, prompt string) (string, error) {
	var text string

	err := c.cb.Execute(func() error {
		start := time.Now()
		var callErr error
		text, callErr = c.do(ctx, system, prompt)

		status := "success"
		if callErr != nil {
			status = errorStatus(callErr)
		}
		metrics.RecordGenerationLatency(purpose, status, time.Since(start))
		return callErr
	})
	if err != nil {
		c.logger.Debug("Generation call failed",
			zap.String("purpose", purpose),
			zap.String("trace_id", trace.FromContext(ctx)),
			zap.Error(err),
		)
		return "", err
	}

	return text, nil
}

func (c *Client) do(ctx context.Context, system, prompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	b, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	// 传播 trace_id
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(traceHeader, traceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	return out.Choices[0].Message.Content, nil
}

func errorStatus(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 {
			return "5xx"
		}
		return fmt.Sprintf("%d", apiErr.StatusCode)
	}
	return "error"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
