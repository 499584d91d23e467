// internal/services/insight_generator.go
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"seo-insights-backend/internal/config"
	"seo-insights-backend/internal/models"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

var ErrGeneratorDisabled = errors.New("insight generator is not configured")

const (
	maxPromptIssues   = 10
	maxFallbackIssues = 5

	systemInstruction = "You are an SEO consultant. Write a short, prioritized set of recommendations " +
		"for the page described by the user. Use plain sentences, no markdown headings, at most 200 words."
)

// InsightGenerator writes the narrative recommendation for one analysed page.
type InsightGenerator interface {
	Enabled() bool
	Model() string
	Generate(ctx context.Context, req *models.InsightRequest) (string, error)
}

// NewInsightGenerator returns a Gemini backed generator, or a disabled one
// when no API key is configured.
func NewInsightGenerator(ctx context.Context, cfg config.AIConfig, logger *zap.Logger) (InsightGenerator, error) {
	if !cfg.Enabled() {
		return disabledGenerator{}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	g := &geminiInsightGenerator{
		model:  cfg.Model,
		cfg:    cfg,
		logger: logger.Named("gemini"),
	}
	g.call = func(ctx context.Context, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       genai.Ptr(float32(0.4)),
			MaxOutputTokens:   512,
		})
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return g, nil
}

type disabledGenerator struct{}

func (disabledGenerator) Enabled() bool { return false }

func (disabledGenerator) Model() string { return "" }

func (disabledGenerator) Generate(context.Context, *models.InsightRequest) (string, error) {
	return "", ErrGeneratorDisabled
}

type geminiInsightGenerator struct {
	model  string
	cfg    config.AIConfig
	call   func(ctx context.Context, prompt string) (string, error)
	logger *zap.Logger
}

func (g *geminiInsightGenerator) Enabled() bool { return true }

func (g *geminiInsightGenerator) Model() string { return g.model }

// Generate calls the model, retrying rate limited and server side failures
// with a doubling delay.
func (g *geminiInsightGenerator) Generate(ctx context.Context, req *models.InsightRequest) (string, error) {
	prompt := buildPrompt(req)
	delay := g.cfg.RetryDelay

	var lastErr error
	for attempt := 0; attempt <= g.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("retrying insight generation",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		text, err := g.generateOnce(ctx, prompt)
		if err == nil {
			text = strings.TrimSpace(text)
			if text == "" {
				return "", errors.New("model returned an empty response")
			}
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil || !isRetryable(err) {
			break
		}
	}

	return "", fmt.Errorf("insight generation failed: %w", lastErr)
}

func (g *geminiInsightGenerator) generateOnce(ctx context.Context, prompt string) (string, error) {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	return g.call(ctx, prompt)
}

func isRetryable(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func buildPrompt(req *models.InsightRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Page: %s\n", req.URL)
	fmt.Fprintf(&b, "SEO score: %d/100\n", req.Score)
	if req.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", req.Title)
	}
	if req.MetaDescription != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", req.MetaDescription)
	}
	if len(req.Issues) > 0 {
		b.WriteString("Detected issues:\n")
		for i, issue := range req.Issues {
			if i == maxPromptIssues {
				break
			}
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}
	b.WriteString("Explain what to fix first and why it matters for search visibility.")
	return b.String()
}

func scoreBand(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 70:
		return "good"
	case score >= 50:
		return "needs work"
	default:
		return "poor"
	}
}

// FallbackInsight builds a deterministic recommendation from the local score
// alone. It is used whenever the model is unavailable.
func FallbackInsight(req *models.InsightRequest) string {
	var b strings.Builder

	band := scoreBand(req.Score)
	fmt.Fprintf(&b, "This page scored %d/100, which is %s. ", req.Score, band)

	switch band {
	case "excellent":
		b.WriteString("Keep the content fresh and monitor Core Web Vitals to hold this position.")
	case "good":
		b.WriteString("A few targeted fixes should move it into the top band.")
	case "needs work":
		b.WriteString("Address the on-page basics before investing in new content.")
	default:
		b.WriteString("Search engines are likely struggling to understand this page; start with the fundamentals.")
	}

	issues := req.Issues
	if len(issues) > maxFallbackIssues {
		issues = issues[:maxFallbackIssues]
	}
	if len(issues) > 0 {
		b.WriteString("\n\nStart with these issues:")
		for _, issue := range issues {
			fmt.Fprintf(&b, "\n- %s", issue)
		}
	}
	return b.String()
}
