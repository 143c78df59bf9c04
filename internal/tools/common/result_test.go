package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxreader/internal/mail"
)

func resultText(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, r)
	require.Len(t, r.Content, 1)
	tc, ok := r.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", r.Content[0])
	return tc.Text
}

func TestJSONResult(t *testing.T) {
	r, err := JSONResult(mail.MessageContent{ID: "m1", Text: "hello"})
	require.NoError(t, err)
	assert.False(t, r.IsError)
	assert.JSONEq(t, `{"id":"m1","text":"hello"}`, resultText(t, r))
}

func TestJSONResult_Unencodable(t *testing.T) {
	r, err := JSONResult(map[string]any{"bad": make(chan int)})
	require.NoError(t, err)
	assert.True(t, r.IsError)
}

func TestErrorResult(t *testing.T) {
	sc := newTestServerContext(t, nil)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unauthorized",
			err:  &mail.Error{Kind: mail.KindUnauthorized, Op: "authenticate", Msg: "Unauthorized"},
			want: "unauthorized: Unauthorized",
		},
		{
			name: "missing backend credential",
			err:  &mail.Error{Kind: mail.KindMissingBackendCredential, Op: "authenticate", Msg: "Fastmail API token is required"},
			want: "missing_backend_credential: Fastmail API token is required",
		},
		{
			name: "validation",
			err:  &mail.Error{Kind: mail.KindValidation, Op: "offset", Msg: "offset must be >= 0"},
			want: "validation_error: offset must be >= 0",
		},
		{
			name: "wrapped backend error",
			err:  fmt.Errorf("list: %w", &mail.Error{Kind: mail.KindBackend, Op: "query", Err: errors.New("timeout")}),
			want: "backend_error: list: query: timeout",
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: "backend_error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ErrorResult(context.Background(), sc, tt.err)
			require.NoError(t, err)
			assert.True(t, r.IsError)
			assert.Equal(t, tt.want, resultText(t, r))
		})
	}
}
