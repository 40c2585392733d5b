package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-patch-server/internal/models"
)

func TestParseProposalPlain(t *testing.T) {
	p, err := ParseProposal(`{"message":"done","changes":[{"action":"delete_file","file":"old.py"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "done", p.Message)
	require.Len(t, p.Changes, 1)
	assert.Equal(t, "delete_file", p.Changes[0].Action)
}

func TestParseProposalFenced(t *testing.T) {
	raw := "Sure, here you go:\n```json\n{\"message\":\"ok\",\"changes\":[]}\n```\nanything else?"
	p, err := ParseProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.Message)
	assert.Empty(t, p.Changes)
}

func TestParseProposalNestedBraces(t *testing.T) {
	raw := `{"message":"uses {braces}","changes":[]}`
	p, err := ParseProposal(raw)
	require.NoError(t, err)
	assert.Equal(t, "uses {braces}", p.Message)
}

func TestParseProposalInvalid(t *testing.T) {
	_, err := ParseProposal("no json here")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid proposal")
}

func TestBuildMessagesWindowAndRoles(t *testing.T) {
	history := make([]models.ChatMessage, 0, 12)
	for i := 0; i < 12; i++ {
		sender := "user"
		if i%2 == 1 {
			sender = "assistant"
		}
		history = append(history, models.ChatMessage{Sender: sender, Text: "turn"})
	}

	msgs := BuildMessages("SYSTEM", history, 10, "CONTEXT", "do the thing")
	// system + 10 history turns + final user message
	require.Len(t, msgs, 12)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, "SYSTEM", msgs[0].Content)
	assert.Equal(t, RoleUser, msgs[1].Role, "oldest retained turn is a user turn")

	last := msgs[len(msgs)-1]
	assert.Equal(t, RoleUser, last.Role)
	assert.Contains(t, last.Content, "CONTEXT")
	assert.Contains(t, last.Content, "User: do the thing")
}

func TestBuildMessagesNoHistory(t *testing.T) {
	msgs := BuildMessages("S", nil, 10, "", "hi")
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, RoleUser, msgs[1].Role)
}
