package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/nutrichat/nutrichat/internal/config"
	"github.com/nutrichat/nutrichat/internal/domain"
)

// chatMessage is one role-tagged message on the wire.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatCompletionRequest is the request body of the chat-completion call.
type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatCompletionResponse is the response body of the chat-completion call.
type chatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []choice `json:"choices"`
	Usage   *usage   `json:"usage,omitempty"`
}

type choice struct {
	Index        int          `json:"index"`
	Message      *chatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client calls an external chat-completion endpoint. Every failure path —
// missing or placeholder credential, transport error, non-2xx status,
// malformed body — resolves to the simulated responder, so callers never see
// an error and the external call is never retried.
type Client struct {
	backend     config.BackendConfig
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	detector    AdviceDetector
	fallback    *Simulated
}

// NewClient creates a chat-completion client for one backend.
func NewClient(backend config.BackendConfig, temperature float64, maxTokens int, timeout time.Duration, detector AdviceDetector) *Client {
	return &Client{
		backend:     backend,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		detector: detector,
		fallback: NewSimulated(),
	}
}

// GenerateReply builds the structured prompt, invokes the backend once, and
// extracts the top completion. Advice detection runs on the reply text.
func (c *Client) GenerateReply(ctx context.Context, userMessage string, history []domain.Message, turnCtx *TurnContext) *Reply {
	if !config.CredentialUsable(c.backend.APIKey) {
		log.Printf("WARN: no usable API key for %s, using simulated responder", c.backend.Endpoint)
		return c.fallback.GenerateReply(ctx, userMessage, history, turnCtx)
	}

	messages := make([]chatMessage, 0, historyWindow+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, formatHistory(history)...)
	messages = append(messages, chatMessage{Role: "user", Content: buildTurnPrompt(userMessage, turnCtx)})

	content, err := c.createChatCompletion(ctx, messages)
	if err != nil {
		log.Printf("WARN: chat completion failed, using simulated responder: %v", err)
		return c.fallback.GenerateReply(ctx, userMessage, history, turnCtx)
	}

	reply := &Reply{Message: content}
	if c.detector != nil && c.detector.ContainsAdvice(ctx, content) {
		reply.Advice = &AdviceSuggestion{
			Type:           domain.AdviceTypeResponse,
			Content:        content,
			RelatedFoodIDs: []string{},
		}
	}
	return reply
}

// GenerateDailyAdvice asks the backend for a daily dietary tip.
func (c *Client) GenerateDailyAdvice(ctx context.Context, user *domain.User, recentFoods []domain.FoodEntry) *Reply {
	if !config.CredentialUsable(c.backend.APIKey) {
		return c.fallback.GenerateDailyAdvice(ctx, user, recentFoods)
	}

	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildDailyAdvicePrompt(user, recentFoods)},
	}
	content, err := c.createChatCompletion(ctx, messages)
	if err != nil {
		log.Printf("WARN: daily advice generation failed, using default: %v", err)
		return c.fallback.GenerateDailyAdvice(ctx, user, recentFoods)
	}

	return &Reply{
		Message: content,
		Advice: &AdviceSuggestion{
			Type:           domain.AdviceTypeDaily,
			Content:        content,
			RelatedFoodIDs: []string{},
		},
	}
}

// createChatCompletion performs a single POST to the backend and returns the
// top completion's text.
func (c *Client) createChatCompletion(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatCompletionRequest{
		Model:       c.backend.Model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backend.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.backend.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var result chatCompletionResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 || result.Choices[0].Message == nil {
		return "", fmt.Errorf("invalid response structure: no choices")
	}
	return result.Choices[0].Message.Content, nil
}
