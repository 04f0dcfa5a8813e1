package insights

import (
	"context"
	"time"

	"github.com/pulsecare/portal-api/internal/observability/metrics"
	"github.com/pulsecare/portal-api/pkg/logging"
)

// MsgInternalError is the outermost safety net: anything unexpected that
// escapes the analysis steps surfaces as this string, never as an error.
const MsgInternalError = "I apologize, but I'm having trouble connecting to my brain right now. Please try again later."

// Service is the single entry point surrounding callers use for AI analysis.
// Analyze always returns displayable text.
type Service struct {
	contexts  *ContextBuilder
	completer *Completer
	logger    *logging.Logger
	metrics   *metrics.AIMetrics
}

// NewService wires the record-context builder and the completion boundary
// together. contexts may be nil when no record store is available; analysis
// then runs without medical context. aiMetrics may be nil.
func NewService(contexts *ContextBuilder, completer *Completer, aiMetrics *metrics.AIMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		contexts:  contexts,
		completer: completer,
		logger:    logger,
		metrics:   aiMetrics,
	}
}

// Analyze answers a user query, optionally enriched with the caller's
// flattened conversation history and, when userID is set, the user's recent
// medical records. Every failure mode degrades to a fixed string; the
// calling UI never branches on errors for this call.
func (s *Service) Analyze(ctx context.Context, query, historyContext, userID string) (result string) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("analysis panicked", "panic", r, "user_id", userID)
			result = MsgInternalError
		}
		s.metrics.ObserveAnalysis(outcomeLabel(result), time.Since(start).Seconds())
	}()

	medicalContext := ""
	if userID != "" {
		medicalContext = s.recordContext(ctx, userID)
	}

	prompt := ComposePrompt(query, historyContext, medicalContext)
	return s.completer.Complete(ctx, prompt)
}

// Insight runs the canned records-summary prompt for the dashboard panel.
func (s *Service) Insight(ctx context.Context, userID string) string {
	return s.Analyze(ctx, insightPrompt, "", userID)
}

// recordContext degrades to an empty string on any failure, including a
// panic inside formatting; missing context must never abort an analysis.
func (s *Service) recordContext(ctx context.Context, userID string) (out string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("record context formatting panicked", "panic", r, "user_id", userID)
			out = ""
		}
	}()

	if s.contexts == nil {
		return ""
	}
	text, err := s.contexts.Context(ctx, userID)
	if err != nil {
		s.logger.Warn("medical record context unavailable", "error", err, "user_id", userID)
		return ""
	}
	return text
}

func outcomeLabel(result string) string {
	switch result {
	case MsgTransientError:
		return "transient_error"
	case MsgServiceUnavailable:
		return "unconfigured"
	case MsgInternalError:
		return "internal_error"
	case MsgNoResponse:
		return "no_response"
	default:
		return "ok"
	}
}
