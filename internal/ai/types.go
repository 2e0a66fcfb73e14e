package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	DefaultTemperature = 0.2
	DefaultTimeout     = 240 * time.Second
)

// ErrProvider marks failed, rejected or undecodable provider calls.
var ErrProvider = errors.New("provider error")

// ErrDisabled is returned by NewProvider when no provider is configured.
var ErrDisabled = errors.New("ai provider disabled")

type ProviderError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
	default:
		return fmt.Sprintf("%s: %v", e.Provider, e.Err)
	}
}

func (e *ProviderError) Unwrap() error { return e.Err }

func (e *ProviderError) Is(target error) bool { return target == ErrProvider }

type Config struct {
	Provider    string
	Model       string
	APIKey      string
	Endpoint    string
	Temperature float64
	Timeout     time.Duration
}

// Part is one piece of evidence: an optional media file and the context
// line that describes it.
type Part struct {
	MediaPath string
	MIMEType  string
	Context   string
}

// Provider generates text from a prompt, optionally with media. Callers get
// raw model text and parse it themselves.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
	GenerateWithMedia(ctx context.Context, prompt string, parts []Part) (string, error)
}

// Disabled reports whether name selects no provider.
func Disabled(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	return name == "" || name == ProviderNone
}

// NewProvider validates cfg and builds the matching client.
func NewProvider(cfg Config) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if Disabled(name) {
		return nil, ErrDisabled
	}

	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	switch name {
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for %s", name)
		}
		return newGemini(cfg), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for %s", name)
		}
		return newChatClient(name, cfg, true), nil
	case ProviderLocal:
		return newChatClient(name, cfg, false), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
}
