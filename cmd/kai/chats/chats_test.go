package chatscmder_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chatscmder "github.com/keboola/kai-client-go/cmd/kai/chats"
)

func setEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("STORAGE_API_TOKEN", "test-token")
	t.Setenv("STORAGE_API_URL", "https://connection.test.keboola.com")
	t.Setenv("KAI_BASE_URL", baseURL)
}

func runCmd(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/history", r.URL.Path)
		require.Equal(t, "5", r.URL.Query().Get("limit"))
		w.Write([]byte(`{
			"chats":[
				{"id":"chat-1","title":"First Chat","createdAt":"2025-12-01T10:00:00Z"},
				{"id":"chat-2","title":"Second Chat","createdAt":"2025-12-02T10:00:00Z"}
			],
			"hasMore":true
		}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewHistoryCmd(), "", "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "chat-1")
	assert.Contains(t, out, "First Chat")
	assert.Contains(t, out, "Second Chat")
	assert.Contains(t, out, "... and more")
}

func TestHistoryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chats":[],"hasMore":false}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewHistoryCmd(), "")
	require.NoError(t, err)
	assert.Contains(t, out, "No chat history found.")
}

func TestHistoryJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chats":[{"id":"chat-1","title":"Test Chat"}],"hasMore":false}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewHistoryCmd(), "", "--json-output")
	require.NoError(t, err)
	assert.Contains(t, out, `"chats"`)
	assert.Contains(t, out, `"hasMore"`)
}

func TestGetChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat/chat-123", r.URL.Path)
		w.Write([]byte(`{
			"id":"chat-123",
			"title":"Bucket talk",
			"messages":[
				{"id":"msg-1","role":"user","parts":[{"type":"text","text":"Make a bucket"}]},
				{"id":"msg-2","role":"assistant","parts":[
					{"type":"tool-create_bucket","toolCallId":"tool-1","state":"output-available"},
					{"type":"text","text":"Done."}
				]}
			]
		}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewGetChatCmd(), "", "chat-123", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "chat-123")
	assert.Contains(t, out, "Bucket talk")
	assert.Contains(t, out, "[USER]")
	assert.Contains(t, out, "[ASSISTANT]")
	assert.Contains(t, out, "create_bucket (output-available)")
	assert.Contains(t, out, "Done.")
}

func TestGetChatJSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"chat-123","title":"Test","messages":[]}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewGetChatCmd(), "", "chat-123", "--json-output")
	require.NoError(t, err)
	assert.Contains(t, out, `"id":"chat-123"`)
}

func TestDeleteChatConfirmed(t *testing.T) {
	var deleted bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "chat-123", r.URL.Query().Get("id"))
		deleted = true
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewDeleteChatCmd(), "y\n", "chat-123")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Contains(t, out, "Deleted chat chat-123")
}

func TestDeleteChatCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected when the prompt is declined")
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewDeleteChatCmd(), "n\n", "chat-123")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")
}

func TestDeleteChatYesSkipsPrompt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	out, err := runCmd(t, chatscmder.NewDeleteChatCmd(), "", "chat-123", "--yes")
	require.NoError(t, err)
	assert.NotContains(t, out, "[y/N]")
	assert.Contains(t, out, "Deleted chat chat-123")
}
