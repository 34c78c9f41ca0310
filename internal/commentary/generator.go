package commentary

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	apperrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
)

// ErrDisabled is returned by the Disabled generator.
var ErrDisabled = errors.New("commentary provider is not configured")

// Request is one text-generation call.
type Request struct {
	Model       string
	Prompt      string
	Temperature float32
	MaxTokens   int
}

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Provider() string
}

// Disabled is used when no provider or API key is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, Request) (string, error) { return "", ErrDisabled }
func (Disabled) Provider() string                                  { return config.ProviderNone }

// NewGenerator selects the generator for cfg.Provider. A missing API key
// yields Disabled.
func NewGenerator(ctx context.Context, cfg config.CommentaryConfig, client *http.Client) (Generator, error) {
	if cfg.APIKey == "" {
		return Disabled{}, nil
	}
	switch cfg.Provider {
	case config.ProviderGroq:
		return NewChatCompletionClient(cfg.BaseURL, cfg.APIKey, client), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.APIKey)
	case config.ProviderNone, "":
		return Disabled{}, nil
	default:
		return nil, apperrors.NewConfigError(fmt.Sprintf("unsupported commentary provider: %q", cfg.Provider), nil)
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case config.ProviderGemini:
		return DefaultGeminiModel
	case config.ProviderGroq:
		return DefaultChatModel
	default:
		return ""
	}
}
