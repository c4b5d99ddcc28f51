package ai

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

	"agentic-rag/internal/metrics"
	"agentic-rag/internal/pkg/retry"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	Retry          retry.Config
}

// StatusError is a non-2xx reply from the provider.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm response status %d: %s", e.StatusCode, e.Body)
}

// OpenAICompatibleClient talks to any /chat/completions + /embeddings provider.
type OpenAICompatibleClient struct {
	httpClient *http.Client
	cfg        Config
}

func NewOpenAICompatibleClient(cfg Config) *OpenAICompatibleClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultConfig()
	}
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}
}

// WithModel returns a client sharing the transport but completing with another chat model.
func (c *OpenAICompatibleClient) WithModel(model string) *OpenAICompatibleClient {
	if strings.TrimSpace(model) == "" {
		return c
	}
	cfg := c.cfg
	cfg.ChatModel = model
	return &OpenAICompatibleClient{httpClient: c.httpClient, cfg: cfg}
}

func (c *OpenAICompatibleClient) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("llm messages are empty")
	}
	reqBody := map[string]interface{}{
		"model":    c.cfg.ChatModel,
		"messages": messages,
		"stream":   false,
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := c.postJSON(ctx, "completion", "/chat/completions", reqBody, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty llm choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (c *OpenAICompatibleClient) postJSON(ctx context.Context, service, path string, body, out interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal %s request failed: %w", service, err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path

	raw, err := retry.Do(ctx, c.cfg.Retry, isRetryable, func() ([]byte, error) {
		start := time.Now()
		defer func() { metrics.ObserveDependency(service, time.Since(start)) }()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("build %s request failed: %w", service, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", service, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read %s response failed: %w", service, err)
		}
		if resp.StatusCode >= 300 {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(raw), 512)}
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parse %s json failed: %w", service, err)
	}
	return nil
}

// isRetryable retries transport failures, 429 and 5xx; other statuses fail fast.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
