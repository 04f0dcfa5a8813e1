package messaging

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository persists conversations and messages in Postgres.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const conversationColumns = `id, participant1_id, participant2_id, last_message_at, created_at`

// ListConversations returns the conversations userID participates in,
// most recently active first.
func (r *Repository) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE participant1_id = $1 OR participant2_id = $1
		ORDER BY last_message_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("messaging: list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []Conversation{}
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Participant1ID, &c.Participant2ID, &c.LastMessageAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan conversation: %w", err)
		}
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messaging: iterate conversations: %w", err)
	}
	return conversations, nil
}

// GetConversation returns one conversation, or nil when it does not exist.
func (r *Repository) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	var c Conversation
	err := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations WHERE id = $1`, id).
		Scan(&c.ID, &c.Participant1ID, &c.Participant2ID, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: get conversation: %w", err)
	}
	return &c, nil
}

// FindConversation looks up an existing thread between two users,
// regardless of which side created it. Returns nil when none exists.
func (r *Repository) FindConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	var c Conversation
	err := r.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE (participant1_id = $1 AND participant2_id = $2)
		   OR (participant1_id = $2 AND participant2_id = $1)`, userA, userB).
		Scan(&c.ID, &c.Participant1ID, &c.Participant2ID, &c.LastMessageAt, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("messaging: find conversation: %w", err)
	}
	return &c, nil
}

// CreateConversation inserts a new thread between two users.
func (r *Repository) CreateConversation(ctx context.Context, userA, userB string) (*Conversation, error) {
	now := time.Now().UTC()
	c := Conversation{
		ID:             uuid.New().String(),
		Participant1ID: userA,
		Participant2ID: userB,
		LastMessageAt:  now,
		CreatedAt:      now,
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, participant1_id, participant2_id, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Participant1ID, c.Participant2ID, c.LastMessageAt, c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("messaging: create conversation: %w", err)
	}
	return &c, nil
}

// ListMessages returns the messages of a conversation oldest first.
func (r *Repository) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
		LIMIT $2`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("messaging: list messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messaging: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("messaging: iterate messages: %w", err)
	}
	return messages, nil
}

// CreateMessage stores a message and bumps the conversation's
// last_message_at so thread lists stay sorted by activity.
func (r *Repository) CreateMessage(ctx context.Context, conversationID, senderID, content string) (*Message, error) {
	m := Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.CreatedAt); err != nil {
		return nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET last_message_at = $1 WHERE id = $2`,
		m.CreatedAt, conversationID); err != nil {
		return nil, fmt.Errorf("messaging: bump conversation: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("messaging: commit message: %w", err)
	}
	return &m, nil
}
