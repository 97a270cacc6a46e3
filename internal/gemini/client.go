// Package gemini implements integration with Google's Gemini AI API.
// It generates personalised birthday greetings for the daily scan.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/birthdaybot/internal/config"
	"github.com/edgard/birthdaybot/internal/scan"
)

// maxGreetingLength caps generated text so a runaway reply cannot flood the chat.
const maxGreetingLength = 1000

// contentGenerator is the part of genai.Models the greeter uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Greeter produces birthday greetings with a Gemini model.
type Greeter struct {
	models        contentGenerator
	log           *slog.Logger
	contentConfig *genai.GenerateContentConfig
	modelName     string
	timeout       time.Duration
	maxRetries    int
	retryDelay    time.Duration
}

var _ scan.Greeter = (*Greeter)(nil)

// NewGreeter creates a Gemini-backed greeter with the provided configuration.
func NewGreeter(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Greeter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	g := newGreeter(gi.Models, cfg, log)
	g.log.Info("Gemini greeter initialized successfully", "model", cfg.Model)
	return g, nil
}

func newGreeter(models contentGenerator, cfg config.GeminiConfig, log *slog.Logger) *Greeter {
	if log == nil {
		log = slog.Default()
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if cfg.SystemInstruction != "" {
		baseCfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: cfg.SystemInstruction}}}
	}

	return &Greeter{
		models:        models,
		log:           log.With("component", "gemini_greeter"),
		contentConfig: baseCfg,
		modelName:     cfg.Model,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		retryDelay:    cfg.RetryDelay,
	}
}

// BirthdayGreeting asks the model for a greeting addressed to displayName.
func (g *Greeter) BirthdayGreeting(ctx context.Context, displayName string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.log.DebugContext(ctx, "Generating birthday greeting", "display_name", displayName)

	contents := []*genai.Content{
		genai.NewContentFromText(fmt.Sprintf(BirthdayPromptTemplate, displayName), genai.RoleUser),
	}

	resp, err := g.generateContentWithRetries(ctx, contents)
	if err != nil {
		return "", fmt.Errorf("failed to generate greeting: %w", err)
	}

	return g.extractText(ctx, resp)
}

func (g *Greeter) generateContentWithRetries(ctx context.Context, contents []*genai.Content) (*genai.GenerateContentResponse, error) {
	var lastErr error

	for i := 0; i <= g.maxRetries; i++ {
		resp, err := g.models.GenerateContent(ctx, g.modelName, contents, g.contentConfig)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		g.log.WarnContext(ctx, "Gemini API call failed, checking for retry", "attempt", i+1, "max_retries", g.maxRetries, "error", err)

		code, ok := apiErrorCode(err)
		if !ok || !retriable(code) {
			return nil, fmt.Errorf("gemini API call failed: %w", err)
		}
		if i == g.maxRetries {
			break
		}

		g.log.InfoContext(ctx, "Retrying Gemini API call due to retriable APIError", "delay", g.retryDelay, "code", code)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("gemini retry aborted: %w", ctx.Err())
		case <-time.After(g.retryDelay):
		}
	}

	return nil, fmt.Errorf("gemini API call failed after %d retries: %w", g.maxRetries, lastErr)
}

// apiErrorCode extracts the HTTP status of a genai.APIError, which the SDK
// returns by value.
func apiErrorCode(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func retriable(code int) bool {
	return code == 429 || code == 500 || code == 503
}

func (g *Greeter) extractText(ctx context.Context, resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("gemini returned no response")
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		g.log.ErrorContext(ctx, "Gemini request blocked", "reason", reason)
		return "", fmt.Errorf("greeting blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		finishReason := "unknown"
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonUnspecified {
			finishReason = fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
		}
		g.log.WarnContext(ctx, "Gemini response missing candidates or content", "finish_reason", finishReason)
		return "", fmt.Errorf("greeting returned no content, finish reason: %s", finishReason)
	}

	text := strings.TrimSpace(resp.Text())
	text = strings.Trim(text, "\"“”")
	if text == "" {
		return "", fmt.Errorf("greeting returned empty text")
	}

	if r := []rune(text); len(r) > maxGreetingLength {
		text = string(r[:maxGreetingLength])
	}
	return text, nil
}
