package insights

import "strings"

// systemPrompt establishes the assistant persona for every completion call.
// Downstream rendering relies on the markdown instruction, and the closing
// sentence is a compliance requirement, so treat the wording as fixed.
const systemPrompt = "You are a helpful medical assistant. Provide accurate, concise health information in clear, scannable format. Use markdown formatting (headers, bold, bullet points) for readability. Keep responses focused and to-the-point. Always recommend consulting healthcare professionals for medical decisions."

// insightPrompt is the canned query behind the dashboard health-insight
// panel. The numbered structure keeps the model's answer scannable.
const insightPrompt = "Analyze my medical records briefly. Provide: 1) Key health observations (2-3 points), 2) Any concerning values, 3) 2-3 actionable lifestyle tips. Keep it concise and easy to read."

// ComposePrompt merges the medical-record context, the flattened
// conversation history and the user's query into the final prompt. Section
// order is fixed: medical history, then conversation context, then the
// query. When both contexts are empty the query passes through unchanged.
func ComposePrompt(query, historyContext, medicalContext string) string {
	if medicalContext == "" && historyContext == "" {
		return query
	}

	var b strings.Builder
	if medicalContext != "" {
		b.WriteString("Patient Medical History:")
		b.WriteString(medicalContext)
		b.WriteString("\n")
	}
	if historyContext != "" {
		b.WriteString("Conversation Context:\n")
		b.WriteString(historyContext)
		b.WriteString("\n\n")
	}
	b.WriteString("User Query: ")
	b.WriteString(query)
	return b.String()
}

// FlattenHistory serializes prior turns to the "ROLE: content" line format
// the analysis entry point expects for conversation context.
func FlattenHistory(turns []ChatMessage) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, turn := range turns {
		lines = append(lines, strings.ToUpper(turn.Role)+": "+turn.Content)
	}
	return strings.Join(lines, "\n")
}
