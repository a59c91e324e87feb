package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/reisbot/reisbot/pkg/failure"
	"github.com/reisbot/reisbot/pkg/logger"
)

const quotaCooldown = 10 * time.Minute

// Client is the narrow AI-chat collaborator. The feature itself is not
// part of the core; this wrapper only exists so the router has one
// Reply call to dispatch to.
type Client struct {
	api     openai.Client
	model   openai.ChatModel
	enabled bool

	mu            sync.Mutex
	cooldownUntil time.Time
}

func New(apiKey, model string) *Client {
	c := &Client{
		model:   openai.ChatModel(model),
		enabled: apiKey != "",
	}
	if c.enabled {
		c.api = openai.NewClient(option.WithAPIKey(apiKey))
	}
	return c
}

func (c *Client) Enabled() bool {
	return c.enabled
}

// Reply sends one prompt and returns the model's answer. After a quota
// or rate-limit rejection the client refuses further calls for a fixed
// cooldown window instead of hammering the provider.
func (c *Client) Reply(ctx context.Context, prompt string) (string, error) {
	if !c.enabled {
		return "", failure.New(failure.Disabled, "ai_reply", "AI service")
	}

	c.mu.Lock()
	until := c.cooldownUntil
	c.mu.Unlock()
	if remaining := time.Until(until); remaining > 0 {
		return "", failure.Wrap(failure.Disabled, "ai_reply", "AI service",
			fmt.Errorf("cooling down for %d more minute(s)", int(remaining.Minutes())+1))
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(500),
		Temperature: openai.Float(0.7),
	})
	if err != nil {
		if isQuotaError(err) {
			c.mu.Lock()
			c.cooldownUntil = time.Now().Add(quotaCooldown)
			c.mu.Unlock()
			logger.WarnC("ai", "Quota exhausted, starting cooldown")
		} else {
			logger.ErrorCF("ai", "Chat completion failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return "", failure.Wrap(failure.Transport, "ai_reply", "AI service", err)
	}

	if len(resp.Choices) == 0 {
		return "", failure.New(failure.Transport, "ai_reply", "AI service")
	}
	return resp.Choices[0].Message.Content, nil
}

func isQuotaError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}
