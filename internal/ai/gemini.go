package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/strrl/dayflow/internal/media"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

type geminiClient struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	model       string
	temperature float64
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func newGemini(cfg Config) *geminiClient {
	baseURL := cfg.Endpoint
	if baseURL == "" {
		baseURL = geminiBaseURL
	}
	return &geminiClient{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

func (g *geminiClient) Name() string { return ProviderGemini }

func (g *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return g.send(ctx, geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: g.temperature},
	})
}

func (g *geminiClient) GenerateWithMedia(ctx context.Context, prompt string, parts []Part) (string, error) {
	contentParts := []geminiPart{{Text: prompt}}
	for _, part := range parts {
		if data, ok := inline(part); ok {
			contentParts = append(contentParts, geminiPart{InlineData: data})
		}
		if part.Context != "" {
			contentParts = append(contentParts, geminiPart{Text: part.Context})
		}
	}

	return g.send(ctx, geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: contentParts}},
		GenerationConfig: generationConfig{
			Temperature:      g.temperature,
			ResponseMIMEType: "application/json",
		},
	})
}

func (g *geminiClient) send(ctx context.Context, payload geminiRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", g.fail(0, "", fmt.Errorf("failed to marshal request: %w", err))
	}

	endpoint := fmt.Sprintf("%s/%s:generateContent?key=%s", g.baseURL, url.PathEscape(g.model), url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", g.fail(0, "", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", g.fail(0, "", fmt.Errorf("request failed: %w", redactKey(err, g.apiKey)))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", g.fail(resp.StatusCode, "", fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", g.fail(resp.StatusCode, snippet(respBody), nil)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", g.fail(0, "", fmt.Errorf("failed to parse response: %w", err))
	}
	if parsed.Error != nil {
		return "", g.fail(0, "", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Candidates) == 0 {
		return "", g.fail(0, "", fmt.Errorf("response missing candidates"))
	}
	for _, part := range parsed.Candidates[0].Content.Parts {
		if text := strings.TrimSpace(part.Text); text != "" {
			return part.Text, nil
		}
	}
	return "", g.fail(0, "", fmt.Errorf("response did not include text output"))
}

func (g *geminiClient) fail(status int, body string, err error) error {
	return &ProviderError{Provider: ProviderGemini, Status: status, Body: body, Err: err}
}

func inline(part Part) (*inlineData, bool) {
	if part.MediaPath == "" {
		return nil, false
	}
	mime := part.MIMEType
	if mime == "" {
		mime = media.MIMEType(part.MediaPath)
	}
	if mime == "" {
		return nil, false
	}
	raw, err := os.ReadFile(part.MediaPath)
	if err != nil {
		return nil, false
	}
	return &inlineData{MIMEType: mime, Data: base64.StdEncoding.EncodeToString(raw)}, true
}

// redactKey keeps the API key, which travels in the query string, out of
// transport errors.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	if !strings.Contains(msg, key) {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(msg, key, "REDACTED"))
}
