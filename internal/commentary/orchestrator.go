package commentary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	"github.com/essai1415/discount-analysis-dashboard/internal/config"
	apperrors "github.com/essai1415/discount-analysis-dashboard/internal/errors"
	"github.com/essai1415/discount-analysis-dashboard/internal/infrastructure"
	"github.com/essai1415/discount-analysis-dashboard/internal/insights"
	"github.com/essai1415/discount-analysis-dashboard/internal/session"
)

const (
	kindRecommendation = "recommendation"
	kindFollowUp       = "follow_up"
)

var (
	ErrEmptyQuestion    = apperrors.NewAppValidationError("question must not be empty")
	ErrQuestionTooLong  = apperrors.NewAppValidationError("question is too long")
	errEmptyGeneratedAI = errors.New("empty response from provider")
)

// Settings holds the generation parameters of both commentary kinds.
type Settings struct {
	Model               string
	Timeout             time.Duration
	Temperature         float32
	MaxTokens           int
	FollowUpTemperature float32
	FollowUpMaxTokens   int
	MaxQuestionLength   int
}

// SettingsFrom derives settings from configuration.
func SettingsFrom(cfg config.CommentaryConfig) Settings {
	model := cfg.Model
	if model == "" {
		model = DefaultModel(cfg.Provider)
	}
	return Settings{
		Model:               model,
		Timeout:             cfg.Timeout,
		Temperature:         cfg.Temperature,
		MaxTokens:           cfg.MaxTokens,
		FollowUpTemperature: cfg.FollowUpTemperature,
		FollowUpMaxTokens:   cfg.FollowUpMaxTokens,
		MaxQuestionLength:   cfg.MaxQuestionLength,
	}
}

// RecommendationResult is the recommendation panel payload. Warning is set
// instead of Recommendation when generation failed.
type RecommendationResult struct {
	Recommendation *Recommendation `json:"recommendation,omitempty"`
	Cached         bool            `json:"cached"`
	Warning        string          `json:"warning,omitempty"`
}

// FollowUpResult is the answer to a follow-up question.
type FollowUpResult struct {
	Question string          `json:"question"`
	Answer   *FollowUpAnswer `json:"answer,omitempty"`
	Warning  string          `json:"warning,omitempty"`
}

// Orchestrator runs commentary requests against a Generator.
type Orchestrator struct {
	gen      Generator
	settings Settings
	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	group    singleflight.Group

	closeOnce sync.Once
	closeErr  error
}

// NewOrchestrator creates an orchestrator. A nil generator is treated as
// Disabled.
func NewOrchestrator(gen Generator, settings Settings, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) *Orchestrator {
	if gen == nil {
		gen = Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		gen:      gen,
		settings: settings,
		logger:   logger.With(slog.String("component", "commentary"), slog.String("provider", gen.Provider())),
		metrics:  metrics,
	}
}

// Enabled reports whether a real provider is configured.
func (o *Orchestrator) Enabled() bool {
	_, disabled := o.gen.(Disabled)
	return !disabled
}

// Close releases the generator's resources when it holds any. Only the first
// call reaches the generator.
func (o *Orchestrator) Close() error {
	o.closeOnce.Do(func() {
		if c, ok := o.gen.(io.Closer); ok {
			o.closeErr = c.Close()
		}
	})
	return o.closeErr
}

// Recommend returns the cached recommendation for plot or generates one.
// Only successful text is cached, so a failed or timed out call is retried
// on the next request.
func (o *Orchestrator) Recommend(ctx context.Context, store session.Store, plot string, items []string, summary *insights.SummaryTable) RecommendationResult {
	key := session.RecommendationTextKey(plot)
	if text, ok := session.CachedText(store, key); ok {
		infrastructure.RecordCommentary(ctx, o.metrics, kindRecommendation, 0, true, nil)
		rec := ParseRecommendation(text)
		return RecommendationResult{Recommendation: &rec, Cached: true}
	}

	flightKey := session.IDFromContext(ctx) + "|" + key
	if session.IDFromContext(ctx) == "" {
		flightKey = fmt.Sprintf("%p|%s", store, key)
	}

	v, err, shared := o.group.Do(flightKey, func() (any, error) {
		if text, ok := session.CachedText(store, key); ok {
			return text, nil
		}
		text, err := o.generate(ctx, kindRecommendation, Request{
			Model:       o.settings.Model,
			Prompt:      RecommendationPrompt(items, insights.FormatSummary(summary)),
			Temperature: o.settings.Temperature,
			MaxTokens:   o.settings.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		session.SetCachedText(store, key, text)
		return text, nil
	})
	if err != nil {
		session.ClearCachedText(store, key)
		return RecommendationResult{Warning: "AI failed: " + failureReason(err)}
	}
	if shared {
		o.logger.DebugContext(ctx, "recommendation request collapsed", slog.String("plot", plot))
	}

	rec := ParseRecommendation(v.(string))
	return RecommendationResult{Recommendation: &rec}
}

// FollowUp answers a free-text question about plot. Answers are never cached.
func (o *Orchestrator) FollowUp(ctx context.Context, plot, question string, items []string, summary *insights.SummaryTable) (FollowUpResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return FollowUpResult{}, ErrEmptyQuestion
	}
	if o.settings.MaxQuestionLength > 0 && utf8.RuneCountInString(question) > o.settings.MaxQuestionLength {
		return FollowUpResult{}, apperrors.NewAppValidationError(ErrQuestionTooLong.Message).
			WithContext("max_length", o.settings.MaxQuestionLength)
	}

	text, err := o.generate(ctx, kindFollowUp, Request{
		Model:       o.settings.Model,
		Prompt:      FollowUpPrompt(question, items, insights.FormatSummary(summary)),
		Temperature: o.settings.FollowUpTemperature,
		MaxTokens:   o.settings.FollowUpMaxTokens,
	})
	if err != nil {
		return FollowUpResult{Question: question, Warning: "Failed to answer: " + failureReason(err)}, nil
	}

	answer := SplitBullets(text)
	o.logger.DebugContext(ctx, "follow-up answered",
		slog.String("plot", plot),
		slog.Int("bullets", len(answer.Bullets)))
	return FollowUpResult{Question: question, Answer: &answer}, nil
}

func (o *Orchestrator) generate(ctx context.Context, kind string, req Request) (string, error) {
	// The call may be shared by several waiters, so it must not die with the
	// first caller's request.
	ctx = context.WithoutCancel(ctx)
	if o.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.settings.Timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := o.gen.Generate(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errEmptyGeneratedAI
	}
	duration := time.Since(start)
	infrastructure.RecordCommentary(ctx, o.metrics, kind, duration, false, err)

	if err != nil {
		if errors.Is(err, ErrDisabled) {
			o.logger.DebugContext(ctx, "commentary skipped", slog.String("kind", kind))
		} else {
			o.logger.WarnContext(ctx, "commentary request failed",
				slog.String("kind", kind),
				slog.String("model", req.Model),
				slog.Duration("duration", duration),
				slog.String("error", err.Error()))
		}
		return "", apperrors.NewCommentaryError(kind+" generation failed", err).
			WithContext("provider", o.gen.Provider()).
			WithContext("model", req.Model)
	}

	o.logger.InfoContext(ctx, "commentary generated",
		slog.String("kind", kind),
		slog.String("model", req.Model),
		slog.Duration("duration", duration),
		slog.Int("length", len(text)))
	return strings.TrimSpace(text), nil
}

// failureReason is the provider's own message, shown to the user without
// the commentary error wrapping.
func failureReason(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Cause != nil {
		return appErr.Cause.Error()
	}
	return err.Error()
}
