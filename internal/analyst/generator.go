package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Generator turns a natural language question into SQL text. The text is
// not trusted: callers pass it through CleanSQL before running it.
type Generator interface {
	Name() string
	GenerateSQL(ctx context.Context, question string) (string, error)
}

// perCallTimeout bounds a single generation request.
const perCallTimeout = 30 * time.Second

// Completer is the subset of the Cortex client used for generation.
type Completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// CortexGenerator asks a Cortex LLM to write the SQL.
type CortexGenerator struct {
	client Completer
	model  string
}

// NewCortexGenerator creates a generator backed by Cortex Complete. An
// empty model uses the Cortex default.
func NewCortexGenerator(client Completer, model string) *CortexGenerator {
	return &CortexGenerator{client: client, model: model}
}

func (*CortexGenerator) Name() string { return "Cortex Analyst" }

func (g *CortexGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()
	text, err := g.client.Complete(callCtx, g.model, Prompt(question))
	if err != nil {
		return "", fmt.Errorf("cortex generator: %w", err)
	}
	return text, nil
}

// GeminiGenerator writes SQL with a Gemini model through the genai SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini-backed generator. baseURL is empty
// outside tests.
func NewGeminiGenerator(ctx context.Context, apiKey, model, baseURL string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini generator: API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generator: create client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (*GeminiGenerator) Name() string { return "Gemini" }

func (g *GeminiGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(callCtx, g.model, genai.Text(Prompt(question)), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generator: generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini generator: empty response")
	}
	return text, nil
}

// OllamaGenerator writes SQL with a local Ollama chat model.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaGenerator creates a generator that calls Ollama's chat API.
func NewOllamaGenerator(baseURL, model string) *OllamaGenerator {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "qwen2.5-coder:7b"
	}
	return &OllamaGenerator{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: perCallTimeout + 5*time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func (*OllamaGenerator) Name() string { return "Ollama" }

func (g *OllamaGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	var result ollamaChatResponse
	err := postJSON(ctx, g.httpClient, g.baseURL+"/api/chat", "", ollamaChatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(question)}},
		Stream:   false,
	}, &result)
	if err != nil {
		return "", fmt.Errorf("ollama generator: %w", err)
	}
	return result.Message.Content, nil
}

// OpenAIGenerator writes SQL with the OpenAI chat completions API.
type OpenAIGenerator struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewOpenAIGenerator creates an OpenAI-backed generator. An empty baseURL
// targets api.openai.com.
func NewOpenAIGenerator(apiKey, model, baseURL string) *OpenAIGenerator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &OpenAIGenerator{
		apiKey:   apiKey,
		model:    model,
		endpoint: strings.TrimRight(baseURL, "/") + "/v1/chat/completions",
		httpClient: &http.Client{
			Timeout: perCallTimeout + 5*time.Second,
		},
	}
}

type openAIChatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (*OpenAIGenerator) Name() string { return "OpenAI" }

func (g *OpenAIGenerator) GenerateSQL(ctx context.Context, question string) (string, error) {
	var result openAIChatResponse
	err := postJSON(ctx, g.httpClient, g.endpoint, g.apiKey, openAIChatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: Prompt(question)}},
	}, &result)
	if err != nil {
		return "", fmt.Errorf("openai generator: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai generator: no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

func postJSON(ctx context.Context, hc *http.Client, url, bearer string, in, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
