package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repo-patch-server/internal/models"
)

func TestParseOperationRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		in      models.ChangeOp
		wantErr string
	}{
		{"write without content", models.ChangeOp{Action: "write"}, "requires 'content'"},
		{"line insert without content", models.ChangeOp{Action: "insert", Line: intp(1)}, "requires 'content'"},
		{"line erase without content", models.ChangeOp{Action: "erase", Line: intp(1)}, "requires 'content'"},
		{"anchor erase without search", models.ChangeOp{Action: "erase"}, "requires 'search'"},
		{"replace without search", models.ChangeOp{Action: "replace", Replace: strp("x")}, "requires 'search'"},
		{"replace without replace", models.ChangeOp{Action: "replace", Search: strp("x")}, "requires 'replace'"},
		{"insert without position", models.ChangeOp{Action: "insert", Insert: strp("x")}, "requires 'position'"},
		{"insert bad position", models.ChangeOp{Action: "insert", Insert: strp("x"), Position: "middle"}, "invalid position"},
		{"insert before without search", models.ChangeOp{Action: "insert", Insert: strp("x"), Position: "before"}, "requires 'search'"},
		{"unknown action", models.ChangeOp{Action: "merge"}, "unknown action"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOperation(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseOperationStartNeedsNoSearch(t *testing.T) {
	op, err := ParseOperation(models.ChangeOp{Action: "insert", Insert: strp("x"), Position: "start"})
	require.NoError(t, err)
	assert.Equal(t, PositionStart, op.Position)
	assert.False(t, op.LineAddressed())
}

func TestParseOperationLineAddressing(t *testing.T) {
	op, err := ParseOperation(models.ChangeOp{Action: "erase", Line: intp(3), Content: strp("x")})
	require.NoError(t, err)
	assert.True(t, op.LineAddressed())
	assert.Equal(t, 3, op.Line)
}

func TestParseOperationCaseInsensitiveAction(t *testing.T) {
	op, err := ParseOperation(models.ChangeOp{Action: " Write ", Content: strp("c")})
	require.NoError(t, err)
	assert.Equal(t, ActionWrite, op.Action)
}

func TestParseOperationEmptyReplaceAllowed(t *testing.T) {
	// replace with an empty substitution is a valid erase-equivalent.
	op, err := ParseOperation(models.ChangeOp{Action: "replace", Search: strp("x"), Replace: strp("")})
	require.NoError(t, err)
	assert.Equal(t, "", op.Replace)
}
