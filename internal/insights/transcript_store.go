package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptTTL = 24 * time.Hour

// TranscriptStore keeps AI chat transcripts in Redis so a session survives
// page reloads. Transcripts are ephemeral by design and expire after a day;
// they are conversation state, not medical data.
type TranscriptStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewTranscriptStore(client *redis.Client) *TranscriptStore {
	if client == nil {
		panic("insights: redis client cannot be nil")
	}
	return &TranscriptStore{
		redis:  client,
		tracer: otel.Tracer("portal.internal.insights.transcript"),
	}
}

// Load returns the stored transcript for the session. A session that was
// never written (or has expired) loads as an empty transcript.
func (s *TranscriptStore) Load(ctx context.Context, userID, sessionID string) ([]ChatMessage, error) {
	ctx, span := s.tracer.Start(ctx, "insights.load_transcript")
	defer span.End()

	data, err := s.redis.Get(ctx, transcriptKey(userID, sessionID)).Bytes()
	if err == redis.Nil {
		return []ChatMessage{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insights: failed to load transcript: %w", err)
	}

	var transcript []ChatMessage
	if err := json.Unmarshal(data, &transcript); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("insights: failed to decode transcript: %w", err)
	}
	return transcript, nil
}

// Save replaces the session transcript and refreshes its TTL.
func (s *TranscriptStore) Save(ctx context.Context, userID, sessionID string, transcript []ChatMessage) error {
	ctx, span := s.tracer.Start(ctx, "insights.save_transcript")
	defer span.End()

	data, err := json.Marshal(transcript)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insights: failed to marshal transcript: %w", err)
	}
	if err := s.redis.Set(ctx, transcriptKey(userID, sessionID), data, transcriptTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insights: failed to persist transcript: %w", err)
	}
	return nil
}

func transcriptKey(userID, sessionID string) string {
	return fmt.Sprintf("chat:%s:%s", userID, sessionID)
}
