package triage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/domain"
)

// NoHistory is the history text used when equipment never failed before.
const NoHistory = "No previous failures recorded."

// HistoryLimit caps how many corrective requests feed an explanation.
const HistoryLimit = 5

// FormatHistory renders corrective requests, newest first, one per line.
func FormatHistory(failures []domain.Request) string {
	if len(failures) == 0 {
		return NoHistory
	}
	lines := make([]string, 0, len(failures))
	for _, f := range failures {
		downtime := "unknown"
		if f.Duration != nil {
			downtime = strconv.FormatFloat(*f.Duration, 'f', -1, 64)
		}
		lines = append(lines, fmt.Sprintf("Date: %s, Issue: %s, Downtime: %s hours",
			f.CreatedAt.UTC().Format(time.DateOnly), f.Subject, downtime))
	}
	return strings.Join(lines, "\n")
}

// Explainer produces a short human-readable failure rationale.
type Explainer interface {
	Explain(ctx context.Context, reading Reading, history string) (string, error)
}

// NewExplainer picks the Anthropic explainer when a key is configured and the
// template explainer otherwise.
func NewExplainer(cfg config.AIConfig, logger *zap.Logger) Explainer {
	if cfg.AnthropicAPIKey == "" {
		logger.Info("ANTHROPIC_API_KEY not provided; using template explanations")
		return TemplateExplainer{}
	}
	return NewAnthropicExplainer(cfg.AnthropicAPIKey, cfg.ExplainerModel, cfg.ExplainerMaxTokens, cfg.ExplainerTimeout())
}

// AnthropicExplainer asks a Claude model for the explanation.
type AnthropicExplainer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

// NewAnthropicExplainer builds the client. opts are appended after the key.
func NewAnthropicExplainer(apiKey, model string, maxTokens int, timeout time.Duration, opts ...option.RequestOption) *AnthropicExplainer {
	if maxTokens <= 0 {
		maxTokens = 300
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicExplainer{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		timeout:   timeout,
	}
}

// Explain sends one prompt and returns the first text block.
func (e *AnthropicExplainer) Explain(ctx context.Context, reading Reading, history string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	msg, err := e.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(e.model),
		MaxTokens: e.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildPrompt(reading, history))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("explainer call for equipment %s: %w", reading.EquipmentID, err)
	}
	for _, block := range msg.Content {
		if text := strings.TrimSpace(block.Text); text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("empty explanation for equipment %s", reading.EquipmentID)
}

func buildPrompt(r Reading, history string) string {
	return fmt.Sprintf(`You are an industrial maintenance expert.

Sensor readings:
Temperature: %g
Vibration: %g
Power: %g
Runtime: %g

Past failures:
%s

Explain why this machine is likely to fail in 2-3 clear technical lines.`,
		r.Temperature, r.Vibration, r.Power, r.Runtime, history)
}

// TemplateExplainer builds a deterministic explanation offline.
type TemplateExplainer struct{}

// Explain names every exceeded threshold and summarizes the history.
func (TemplateExplainer) Explain(_ context.Context, r Reading, history string) (string, error) {
	var findings []string
	if r.Temperature > 80 {
		findings = append(findings, fmt.Sprintf("temperature %g exceeds 80", r.Temperature))
	}
	if r.Vibration > 7 {
		findings = append(findings, fmt.Sprintf("vibration %g exceeds 7", r.Vibration))
	}
	if r.Power > 12 {
		findings = append(findings, fmt.Sprintf("power draw %g exceeds 12", r.Power))
	}
	if r.Runtime > 8 {
		findings = append(findings, fmt.Sprintf("runtime %g exceeds 8 hours", r.Runtime))
	}

	var b strings.Builder
	if len(findings) == 0 {
		b.WriteString("The anomaly model flagged this reading although no single threshold is exceeded.")
	} else {
		b.WriteString("Abnormal operation: ")
		b.WriteString(strings.Join(findings, "; "))
		b.WriteString(".")
	}
	if history == "" || history == NoHistory {
		b.WriteString(" No previous failures recorded.")
	} else {
		n := strings.Count(history, "\n") + 1
		fmt.Fprintf(&b, " %d recent corrective repair(s) on record.", n)
	}
	return b.String(), nil
}
