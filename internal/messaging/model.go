package messaging

import "time"

// Conversation is a direct-message thread between two portal users,
// typically a patient and a doctor.
type Conversation struct {
	ID             string    `json:"id"`
	Participant1ID string    `json:"participant1_id"`
	Participant2ID string    `json:"participant2_id"`
	LastMessageAt  time.Time `json:"last_message_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participant1ID == userID || c.Participant2ID == userID
}

// OtherParticipant returns the counterpart of userID, or "" if userID
// is not a participant.
func (c *Conversation) OtherParticipant(userID string) string {
	switch userID {
	case c.Participant1ID:
		return c.Participant2ID
	case c.Participant2ID:
		return c.Participant1ID
	}
	return ""
}

// Message is a single entry in a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}
