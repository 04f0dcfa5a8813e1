package insights

import (
	"context"
	"time"

	"github.com/pulsecare/portal-api/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Sampling parameters are fixed: the temperature keeps answers consistent
// across sessions and the token cap bounds cost and latency per call.
const (
	completionTemperature = 0.7
	completionMaxTokens   = 600
)

// The complete output space of the completion boundary. Callers render
// whichever string comes back; none of these are errors.
const (
	// MsgNoResponse is returned when the service answered with no content.
	MsgNoResponse = "No response from AI"
	// MsgTransientError is returned on any network, timeout or API failure.
	MsgTransientError = "I encountered an error connecting to the AI service. Please try again in a moment."
	// MsgServiceUnavailable is returned when no API credential is configured.
	MsgServiceUnavailable = "AI service unavailable. Please configure GROQ_API_KEY in your environment."
)

// Completer sends composed prompts to the completion service and maps every
// failure mode to a displayable string. It never returns an error.
type Completer struct {
	client  LLMClient
	modelID string
	timeout time.Duration
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewCompleter wraps an LLM client with the portal's fixed persona and
// sampling settings. A nil client means no credential was configured at
// startup; every call then short-circuits to MsgServiceUnavailable without
// touching the network. timeout of zero leaves the provider's own deadline
// in charge.
func NewCompleter(client LLMClient, modelID string, timeout time.Duration, logger *logging.Logger) *Completer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Completer{
		client:  client,
		modelID: modelID,
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer("portal.internal.insights.completer"),
	}
}

// Configured reports whether a completion provider is available.
func (c *Completer) Configured() bool {
	return c.client != nil
}

// Complete sends the prompt and returns displayable text for every outcome.
func (c *Completer) Complete(ctx context.Context, prompt string) string {
	if c.client == nil {
		c.logger.Warn("completion requested but no API credential is configured")
		return MsgServiceUnavailable
	}

	ctx, span := c.tracer.Start(ctx, "insights.complete")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.Complete(ctx, LLMRequest{
		Model:       c.modelID,
		System:      []string{systemPrompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: prompt}},
		Temperature: completionTemperature,
		MaxTokens:   completionMaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		c.logger.Error("completion call failed", "error", err, "model", c.modelID)
		return MsgTransientError
	}
	if resp.Text == "" {
		c.logger.Warn("completion returned no content", "model", c.modelID, "stop_reason", resp.StopReason)
		return MsgNoResponse
	}

	c.logger.Debug("completion succeeded",
		"model", c.modelID,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text
}
