package kai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func sseHandler(t *testing.T, capture *map[string]any, frames ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Fatalf("decoding request body: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n", frame)
		}
	}
}

func TestSendMessageRequestFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(sseHandler(t, &body,
		`{"type":"text","text":"Hello"}`,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.SendMessage(context.Background(), "chat-123", "Hi there")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	result, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if result.Text != "Hello" {
		t.Fatalf("text %q", result.Text)
	}

	if body["id"] != "chat-123" {
		t.Fatalf("chat id %v", body["id"])
	}
	if body["selectedChatModel"] != "chat-model" {
		t.Fatalf("model %v", body["selectedChatModel"])
	}
	if body["selectedVisibilityType"] != "private" {
		t.Fatalf("visibility %v", body["selectedVisibilityType"])
	}
	message := body["message"].(map[string]any)
	if message["role"] != "user" {
		t.Fatalf("role %v", message["role"])
	}
	if message["id"] == "" || message["id"] == nil {
		t.Fatal("message id missing")
	}
	parts := message["parts"].([]any)
	part := parts[0].(map[string]any)
	if part["type"] != "text" || part["text"] != "Hi there" {
		t.Fatalf("part %v", part)
	}
}

func TestSendMessageStreamsEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, nil,
		`{"type":"step-start"}`,
		`{"type":"text","text":"Hello "}`,
		`{"type":"text","text":"world!"}`,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.SendMessage(context.Background(), "chat-123", "Test")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	defer stream.Close()

	var events []Event
	for {
		ev, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if !ok {
			break
		}
		events = append(events, ev)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events got %d", len(events))
	}
	if _, ok := events[0].(*StepStartEvent); !ok {
		t.Fatalf("first event %T", events[0])
	}
	if text := events[1].(*TextEvent); text.Text != "Hello " {
		t.Fatalf("text %q", text.Text)
	}
	if _, ok := events[3].(*FinishEvent); !ok {
		t.Fatalf("last event %T", events[3])
	}
}

func TestSendMessageStreamEventHook(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, nil,
		`{"type":"text","text":"hi"}`,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	var hooked int
	client, err := NewClient(Config{
		BaseURL:         srv.URL,
		StorageAPIToken: "tok",
		StorageAPIURL:   "https://connection.keboola.com",
		Telemetry: TelemetryHooks{
			OnStreamEvent: func(Event) { hooked++ },
		},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	stream, err := client.SendMessage(context.Background(), "chat-123", "Test")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if _, err := stream.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if hooked != 2 {
		t.Fatalf("OnStreamEvent fired %d times, want 2", hooked)
	}
}

func TestChatConvenience(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t, nil,
		`{"type":"text","text":"The answer "}`,
		`{"type":"text","text":"is 42."}`,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	result, err := client.Chat(context.Background(), "What is the answer?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Text != "The answer is 42." {
		t.Fatalf("text %q", result.Text)
	}
	if result.ChatID == "" {
		t.Fatal("chat id missing")
	}
}

func TestConfirmToolRequestFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(sseHandler(t, &body,
		`{"type":"tool-call","toolCallId":"tool-123","toolName":"create_bucket","state":"output-available","output":{"ok":true}}`,
		`{"type":"text","text":"Bucket created!"}`,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.ConfirmTool(context.Background(), "chat-123", "tool-123", "create_bucket")
	if err != nil {
		t.Fatalf("ConfirmTool: %v", err)
	}
	result, err := stream.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if result.Text != "Bucket created!" {
		t.Fatalf("text %q", result.Text)
	}

	message := body["message"].(map[string]any)
	part := message["parts"].([]any)[0].(map[string]any)
	if part["type"] != "tool-create_bucket" {
		t.Fatalf("part type %v", part["type"])
	}
	if part["toolCallId"] != "tool-123" {
		t.Fatalf("tool call id %v", part["toolCallId"])
	}
	if part["state"] != "output-available" {
		t.Fatalf("state %v", part["state"])
	}
	if part["output"] != "Yes, confirmed." {
		t.Fatalf("output %v", part["output"])
	}
}

func TestDenyToolRequestFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(sseHandler(t, &body,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.DenyTool(context.Background(), "chat-123", "tool-123", "create_bucket")
	if err != nil {
		t.Fatalf("DenyTool: %v", err)
	}
	if _, err := stream.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	part := body["message"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if part["output"] != "No, denied." {
		t.Fatalf("output %v", part["output"])
	}
}

func TestApproveToolRequestFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(sseHandler(t, &body,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.ApproveTool(context.Background(), "chat-123", "appr-1")
	if err != nil {
		t.Fatalf("ApproveTool: %v", err)
	}
	if _, err := stream.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	part := body["message"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if part["type"] != "tool-approval-response" {
		t.Fatalf("part type %v", part["type"])
	}
	if part["approvalId"] != "appr-1" {
		t.Fatalf("approval id %v", part["approvalId"])
	}
	if part["approved"] != true {
		t.Fatalf("approved %v", part["approved"])
	}
}

func TestRejectToolRequestFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(sseHandler(t, &body,
		`{"type":"finish","finishReason":"complete"}`,
	))
	defer srv.Close()

	client := testClient(t, srv.URL)
	stream, err := client.RejectTool(context.Background(), "chat-123", "appr-1", "not in production")
	if err != nil {
		t.Fatalf("RejectTool: %v", err)
	}
	if _, err := stream.Collect(context.Background()); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	part := body["message"].(map[string]any)["parts"].([]any)[0].(map[string]any)
	if part["approved"] != false {
		t.Fatalf("approved %v", part["approved"])
	}
	if part["reason"] != "not in production" {
		t.Fatalf("reason %v", part["reason"])
	}
}

func TestGetChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat/chat-123" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id":"chat-123",
			"title":"Test Chat",
			"messages":[
				{"id":"msg-1","role":"user","parts":[]},
				{"id":"msg-2","role":"assistant","parts":[]}
			]
		}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	chat, err := client.GetChat(context.Background(), "chat-123")
	if err != nil {
		t.Fatalf("GetChat: %v", err)
	}
	if chat.ID != "chat-123" || chat.Title != "Test Chat" || len(chat.Messages) != 2 {
		t.Fatalf("chat %+v", chat)
	}
}

func TestDeleteChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			t.Fatalf("method %s", r.Method)
		}
		if got := r.URL.Query().Get("id"); got != "chat-123" {
			t.Fatalf("id query %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	if err := client.DeleteChat(context.Background(), "chat-123"); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
}

func TestHistoryPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/history" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "20" {
			t.Fatalf("limit %q", got)
		}
		if got := r.URL.Query().Get("starting_after"); got != "chat-5" {
			t.Fatalf("starting_after %q", got)
		}
		w.Write([]byte(`{"chats":[{"id":"chat-6","title":"Next"}],"hasMore":true}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	page, err := client.History(context.Background(), 20, "chat-5")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(page.Chats) != 1 || !page.HasMore {
		t.Fatalf("page %+v", page)
	}
}

func TestSendMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"unauthorized:chat","message":"Invalid token"}`))
	}))
	defer srv.Close()

	client := testClient(t, srv.URL)
	if _, err := client.SendMessage(context.Background(), "chat-123", "Hi"); !IsAuthError(err) {
		t.Fatalf("expected auth error got %v", err)
	}
}
