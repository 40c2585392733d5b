package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repo-patch-server/internal/errors"
	"repo-patch-server/internal/models"
)

func runStdio(t *testing.T, svc *mockService, input string) []models.JSONRPCResponse {
	t.Helper()
	h := NewStdioHandler(svc, zap.NewNop())
	var out bytes.Buffer
	require.NoError(t, h.Start(context.Background(), strings.NewReader(input), &out))

	var responses []models.JSONRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp models.JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestStdioApply(t *testing.T) {
	svc := &mockService{applyResp: &models.ApplyResponse{Results: []models.FileResult{
		{File: "a.txt", Status: models.StatusUpdated},
	}}}
	responses := runStdio(t, svc,
		`{"jsonrpc":"2.0","id":1,"method":"apply","params":{"changes":[{"action":"delete_file","file":"a.txt"}]}}`+"\n")

	require.Len(t, responses, 1)
	resp := responses[0]
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.EqualValues(t, 1, resp.ID)
	require.Nil(t, resp.Error)
	require.NotNil(t, resp.Result)

	require.NotNil(t, svc.lastApply)
	require.Len(t, svc.lastApply.Changes, 1)
	assert.Equal(t, "delete_file", svc.lastApply.Changes[0].Action)
}

func TestStdioChat(t *testing.T) {
	svc := &mockService{chatResp: &models.ChatResponse{Response: "hello"}}
	responses := runStdio(t, svc,
		`{"jsonrpc":"2.0","id":"abc","method":"chat","params":{"message":"hi"}}`+"\n")

	require.Len(t, responses, 1)
	assert.Equal(t, "abc", responses[0].ID)
	require.Nil(t, responses[0].Error)
}

func TestStdioInvalidJSON(t *testing.T) {
	responses := runStdio(t, &mockService{}, "this is not json\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeParseError, responses[0].Error.Code)
}

func TestStdioWrongVersion(t *testing.T) {
	responses := runStdio(t, &mockService{},
		`{"jsonrpc":"1.0","id":1,"method":"apply","params":{}}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeInvalidRequest, responses[0].Error.Code)
}

func TestStdioMethodNotFound(t *testing.T) {
	responses := runStdio(t, &mockService{},
		`{"jsonrpc":"2.0","id":7,"method":"compile","params":{}}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeMethodNotFound, responses[0].Error.Code)
	assert.EqualValues(t, 7, responses[0].ID)
}

func TestStdioInvalidParams(t *testing.T) {
	responses := runStdio(t, &mockService{},
		`{"jsonrpc":"2.0","id":1,"method":"apply","params":"not an object"}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeInvalidParams, responses[0].Error.Code)
}

func TestStdioServiceErrorCarriesMethod(t *testing.T) {
	svc := &mockService{chatErr: errors.NewProviderError("rate limited")}
	responses := runStdio(t, svc,
		`{"jsonrpc":"2.0","id":2,"method":"chat","params":{"message":"hi"}}`+"\n")

	require.Len(t, responses, 1)
	rpcErr := responses[0].Error
	require.NotNil(t, rpcErr)
	assert.Equal(t, errors.CodeProviderError, rpcErr.Code)
	require.NotNil(t, rpcErr.Data)
	assert.Equal(t, "chat", rpcErr.Data.Operation)
	assert.NotEmpty(t, rpcErr.Data.Timestamp)
}

func TestStdioSkipsBlankLines(t *testing.T) {
	svc := &mockService{applyResp: &models.ApplyResponse{}}
	input := "\n\n" +
		`{"jsonrpc":"2.0","id":1,"method":"apply","params":{"changes":[]}}` + "\n\n"
	responses := runStdio(t, svc, input)
	assert.Len(t, responses, 1)
}

func TestStdioMultipleRequests(t *testing.T) {
	svc := &mockService{
		applyResp: &models.ApplyResponse{},
		chatResp:  &models.ChatResponse{Response: "ok"},
	}
	input := `{"jsonrpc":"2.0","id":1,"method":"apply","params":{"changes":[]}}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"chat","params":{"message":"hi"}}` + "\n"
	responses := runStdio(t, svc, input)
	require.Len(t, responses, 2)
	assert.EqualValues(t, 1, responses[0].ID)
	assert.EqualValues(t, 2, responses[1].ID)
}
