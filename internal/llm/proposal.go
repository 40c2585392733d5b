package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"repo-patch-server/internal/models"
)

// Proposal is the structured answer expected from the model: a user-facing
// message plus zero or more edit operations.
type Proposal struct {
	Message string            `json:"message"`
	Changes []models.ChangeOp `json:"changes"`
}

// ParseProposal extracts the JSON object from raw model output. Models
// occasionally wrap the object in prose or code fences, so the slice between
// the first '{' and the last '}' is tried before the verbatim text.
func ParseProposal(text string) (Proposal, error) {
	var p Proposal

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &p); err == nil {
			return p, nil
		}
	}

	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return Proposal{}, fmt.Errorf("model output is not a valid proposal: %w", err)
	}
	return p, nil
}

// BuildMessages assembles the conversation sent to the provider: the system
// prompt, the trailing historyWindow turns of history, then the user message
// prefixed with the repository context.
func BuildMessages(prompt string, history []models.ChatMessage, historyWindow int, repoContext, userMsg string) []Message {
	if historyWindow > 0 && len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: prompt})
	for _, h := range history {
		role := RoleAssistant
		if h.Sender == "user" {
			role = RoleUser
		}
		messages = append(messages, Message{Role: role, Content: h.Text})
	}
	messages = append(messages, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("%s\n\nUser: %s", repoContext, userMsg),
	})
	return messages
}
