package kai

import (
	"net/http"
	"strings"
	"time"
)

const (
	defaultChatModel  = "chat-model"
	defaultVisibility = "private"
)

// Chat is one conversation as listed by the history endpoint.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one entry in a chat transcript.
type Message struct {
	ID    string        `json:"id"`
	Role  string        `json:"role"`
	Parts []MessagePart `json:"parts"`
}

// MessagePart is one piece of a message. The wire format is a tagged union;
// only the fields relevant to the part's Type are populated.
type MessagePart struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
	State      string `json:"state,omitempty"`
	Output     any    `json:"output,omitempty"`
	ApprovalID string `json:"approvalId,omitempty"`
	Approved   *bool  `json:"approved,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ChatDetail is a full conversation with its transcript.
type ChatDetail struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Messages []Message `json:"messages"`
}

// HistoryPage is one page of the chat history listing.
type HistoryPage struct {
	Chats   []Chat `json:"chats"`
	HasMore bool   `json:"hasMore"`
}

// VoteType is the direction of a message vote.
type VoteType string

const (
	VoteUp   VoteType = "up"
	VoteDown VoteType = "down"
)

// Vote records a thumbs up/down on an assistant message.
type Vote struct {
	ChatID    string   `json:"chatId"`
	MessageID string   `json:"messageId"`
	Type      VoteType `json:"type"`
}

// PingResponse is the backend liveness probe result.
type PingResponse struct {
	Timestamp time.Time `json:"timestamp"`
}

// MCPConnection describes one MCP server the backend is connected to.
type MCPConnection struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// InfoResponse describes the backend build and its MCP connectivity.
type InfoResponse struct {
	Timestamp     time.Time       `json:"timestamp"`
	Uptime        float64         `json:"uptime"`
	AppName       string          `json:"appName"`
	AppVersion    string          `json:"appVersion"`
	ServerVersion string          `json:"serverVersion"`
	ConnectedMCP  []MCPConnection `json:"connectedMcp"`
}

// SendOption customizes outgoing chat requests.
type SendOption func(*sendCallOptions)

type sendCallOptions struct {
	model      string
	visibility string
	messageID  string
	headers    http.Header
}

func buildSendCallOptions(options []SendOption) sendCallOptions {
	cfg := sendCallOptions{
		model:      defaultChatModel,
		visibility: defaultVisibility,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.messageID == "" {
		cfg.messageID = NewMessageID()
	}
	return cfg
}

// WithModel overrides the backend chat model selector for this send.
func WithModel(model string) SendOption {
	return func(opts *sendCallOptions) {
		if strings.TrimSpace(model) != "" {
			opts.model = strings.TrimSpace(model)
		}
	}
}

// WithVisibility sets the chat visibility type (private/public).
func WithVisibility(visibility string) SendOption {
	return func(opts *sendCallOptions) {
		if strings.TrimSpace(visibility) != "" {
			opts.visibility = strings.TrimSpace(visibility)
		}
	}
}

// WithMessageID pins the outgoing message id instead of minting one.
func WithMessageID(id string) SendOption {
	return func(opts *sendCallOptions) {
		if strings.TrimSpace(id) != "" {
			opts.messageID = strings.TrimSpace(id)
		}
	}
}

// WithSendHeader attaches an arbitrary header to the underlying request.
func WithSendHeader(key, value string) SendOption {
	return func(opts *sendCallOptions) {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			return
		}
		if opts.headers == nil {
			opts.headers = make(http.Header)
		}
		opts.headers.Add(strings.TrimSpace(key), strings.TrimSpace(value))
	}
}
