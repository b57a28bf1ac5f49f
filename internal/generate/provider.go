package generate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"
	"github.com/sashabaranov/go-openai"

	"github.com/siteulation/backend/internal/models"
)

// Provider produces application code for a prompt. Implementations call an
// external LLM and return its raw text output; fence stripping and storage
// happen in the worker.
type Provider interface {
	GenerateApp(ctx context.Context, model, prompt string) (string, error)
}

const systemPrompt = `You build small self-contained web applications. ` +
	`Respond with a JSON array of files, each {"name","content"}, where the entry file is index.html. ` +
	`Use only HTML, CSS and JavaScript. No explanations, no markdown.`

// upstream model ids per supported model name.
var geminiModels = map[string]string{
	models.ModelGemini25: "gemini-2.5-flash",
	models.ModelGemini3:  "gemini-3-pro-preview",
}

var openRouterModels = map[string]string{
	models.ModelGemini25: "google/gemini-2.5-flash",
	models.ModelGemini3:  "google/gemini-3-pro-preview",
}

// GeminiProvider calls Gemini's OpenAI-compatible chat completions endpoint.
type GeminiProvider struct {
	client fastshot.ClientHttpMethods
}

// NewGeminiProvider builds a provider against baseURL (the Gemini
// OpenAI-compatibility root) authenticated with apiKey.
func NewGeminiProvider(baseURL, apiKey string) *GeminiProvider {
	c := fastshot.NewClient(baseURL)
	if apiKey != "" {
		c.Auth().BearerToken(apiKey)
	}
	client := c.Config().SetTimeout(3 * time.Minute).
		Header().Add("Content-Type", "application/json").
		Build()
	return &GeminiProvider{client: client}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *GeminiProvider) GenerateApp(ctx context.Context, model, prompt string) (string, error) {
	upstream, ok := geminiModels[model]
	if !ok {
		return "", fmt.Errorf("unsupported model %q", model)
	}

	req := chatRequest{
		Model: upstream,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
	}

	resp, err := p.client.
		POST("/chat/completions").
		Context().Set(ctx).
		Header().Add("Accept", "application/json").
		Retry().SetExponentialBackoff(2*time.Second, 3, 2.0).
		Body().AsJSON(req).
		Send()
	if err != nil {
		return "", fmt.Errorf("gemini request: %w", err)
	}
	defer resp.Body().Close()

	if resp.Status().IsError() {
		msg, rerr := resp.Body().AsString()
		if rerr != nil {
			return "", fmt.Errorf("read gemini error response: %w", rerr)
		}
		return "", fmt.Errorf("gemini error: %s", msg)
	}

	var out chatResponse
	if err := resp.Body().AsJSON(&out); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("gemini returned no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// OpenRouterProvider calls OpenRouter through its OpenAI-compatible API.
type OpenRouterProvider struct {
	client *openai.Client
}

func NewOpenRouterProvider(baseURL, apiKey string) *OpenRouterProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenRouterProvider{client: openai.NewClientWithConfig(cfg)}
}

func (p *OpenRouterProvider) GenerateApp(ctx context.Context, model, prompt string) (string, error) {
	upstream, ok := openRouterModels[model]
	if !ok {
		return "", fmt.Errorf("unsupported model %q", model)
	}

	res, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: upstream,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openrouter request: %w", err)
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openrouter returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}

// stripFences removes a surrounding markdown code fence, which models emit
// despite instructions.
func stripFences(s string) string {
	out := strings.TrimSpace(s)
	if !strings.HasPrefix(out, "```") {
		return out
	}
	out = strings.TrimPrefix(out, "```")
	// Drop the language tag on the opening fence line.
	if i := strings.Index(out, "\n"); i >= 0 {
		out = out[i+1:]
	} else {
		return strings.TrimSpace(strings.TrimSuffix(out, "```"))
	}
	out = strings.TrimSuffix(strings.TrimSpace(out), "```")
	return strings.TrimSpace(out)
}
