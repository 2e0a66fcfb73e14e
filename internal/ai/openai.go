package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/strrl/dayflow/internal/media"
)

const (
	openAIURL = "https://api.openai.com/v1/chat/completions"
	localURL  = "http://localhost:1234/v1/chat/completions"
)

// chatClient speaks the OpenAI chat completions protocol. The local
// provider uses it without images.
type chatClient struct {
	name          string
	apiKey        string
	baseURL       string
	httpClient    *http.Client
	model         string
	temperature   float64
	includeImages bool
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newChatClient(name string, cfg Config, includeImages bool) *chatClient {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = openAIURL
		if name == ProviderLocal {
			baseURL = localURL
		}
	}

	return &chatClient{
		name:          name,
		apiKey:        cfg.APIKey,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		includeImages: includeImages,
	}
}

func (c *chatClient) Name() string { return c.name }

func (c *chatClient) Generate(ctx context.Context, prompt string) (string, error) {
	return c.send(ctx, chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
}

func (c *chatClient) GenerateWithMedia(ctx context.Context, prompt string, parts []Part) (string, error) {
	content := []contentPart{{Type: "text", Text: prompt}}
	for _, part := range parts {
		if c.includeImages {
			if uri, ok := dataURI(part); ok {
				content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
			}
		}
		if part.Context != "" {
			content = append(content, contentPart{Type: "text", Text: part.Context})
		}
	}

	return c.send(ctx, chatRequest{
		Model:          c.model,
		Messages:       []chatMessage{{Role: "user", Content: content}},
		Temperature:    c.temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
}

func (c *chatClient) send(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail(resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.fail(resp.StatusCode, snippet(respBody), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to parse response: %w", err))
	}
	if parsed.Error != nil {
		return "", c.fail(0, "", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", c.fail(0, "", fmt.Errorf("response missing choices"))
	}

	text := messageText(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", c.fail(0, "", fmt.Errorf("response did not include text content"))
	}
	return text, nil
}

func (c *chatClient) fail(status int, body string, err error) error {
	return &ProviderError{Provider: c.name, Status: status, Body: body, Err: err}
}

// messageText accepts content as a string or as a list of text parts.
func messageText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}
	chunks := make([]string, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, p.Text)
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

// dataURI inlines an image file. Missing files and non-images are skipped.
func dataURI(part Part) (string, bool) {
	mime := part.MIMEType
	if mime == "" {
		mime = media.MIMEType(part.MediaPath)
	}
	if part.MediaPath == "" || !strings.HasPrefix(mime, "image/") {
		return "", false
	}
	raw, err := os.ReadFile(part.MediaPath)
	if err != nil {
		return "", false
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), true
}

func snippet(body []byte) string {
	const max = 2048
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		s = s[:max]
	}
	return s
}
