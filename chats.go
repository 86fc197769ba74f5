package kai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type sendMessagePayload struct {
	ID                     string  `json:"id"`
	Message                Message `json:"message"`
	SelectedChatModel      string  `json:"selectedChatModel"`
	SelectedVisibilityType string  `json:"selectedVisibilityType"`
}

// SendMessage posts a user message to a chat and opens the SSE response
// stream. The chat is created server-side on first use of the id. The
// returned stream must be drained or closed by the caller.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, options ...SendOption) (*MessageStream, error) {
	opts := buildSendCallOptions(options)
	payload := sendMessagePayload{
		ID: chatID,
		Message: Message{
			ID:    opts.messageID,
			Role:  "user",
			Parts: []MessagePart{{Type: "text", Text: text}},
		},
		SelectedChatModel:      opts.model,
		SelectedVisibilityType: opts.visibility,
	}
	return c.openStream(ctx, chatID, payload, opts)
}

// Chat is a convenience wrapper: it mints a chat id when none is given,
// sends one message, and drains the stream into a Result.
func (c *Client) Chat(ctx context.Context, text string, options ...SendOption) (*Result, error) {
	return c.ChatWithID(ctx, NewChatID(), text, options...)
}

// ChatWithID is Chat against an existing conversation.
func (c *Client) ChatWithID(ctx context.Context, chatID, text string, options ...SendOption) (*Result, error) {
	stream, err := c.SendMessage(ctx, chatID, text, options...)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx)
}

// ConfirmTool approves a pending tool call under the legacy flow, where a
// tool call parked at input-available is itself the approval request. The
// backend resumes the conversation; the returned stream carries the tool
// output and any follow-up text.
func (c *Client) ConfirmTool(ctx context.Context, chatID, toolCallID, toolName string, options ...SendOption) (*MessageStream, error) {
	return c.sendToolDecision(ctx, chatID, toolCallID, toolName, "Yes, confirmed.", options)
}

// DenyTool rejects a pending tool call under the legacy flow.
func (c *Client) DenyTool(ctx context.Context, chatID, toolCallID, toolName string, options ...SendOption) (*MessageStream, error) {
	return c.sendToolDecision(ctx, chatID, toolCallID, toolName, "No, denied.", options)
}

func (c *Client) sendToolDecision(ctx context.Context, chatID, toolCallID, toolName, decision string, options []SendOption) (*MessageStream, error) {
	opts := buildSendCallOptions(options)
	payload := sendMessagePayload{
		ID: chatID,
		Message: Message{
			ID:   opts.messageID,
			Role: "user",
			Parts: []MessagePart{{
				Type:       "tool-" + toolName,
				ToolCallID: toolCallID,
				State:      string(ToolCallOutputAvailable),
				Output:     decision,
			}},
		},
		SelectedChatModel:      opts.model,
		SelectedVisibilityType: opts.visibility,
	}
	return c.openStream(ctx, chatID, payload, opts)
}

// ApproveTool resolves a v6 approval request by its opaque approval id.
func (c *Client) ApproveTool(ctx context.Context, chatID, approvalID string, options ...SendOption) (*MessageStream, error) {
	return c.sendApprovalResponse(ctx, chatID, approvalID, true, "", options)
}

// RejectTool declines a v6 approval request. The optional reason is shown
// to the assistant so it can explain or adjust course.
func (c *Client) RejectTool(ctx context.Context, chatID, approvalID, reason string, options ...SendOption) (*MessageStream, error) {
	return c.sendApprovalResponse(ctx, chatID, approvalID, false, reason, options)
}

func (c *Client) sendApprovalResponse(ctx context.Context, chatID, approvalID string, approved bool, reason string, options []SendOption) (*MessageStream, error) {
	opts := buildSendCallOptions(options)
	payload := sendMessagePayload{
		ID: chatID,
		Message: Message{
			ID:   opts.messageID,
			Role: "user",
			Parts: []MessagePart{{
				Type:       "tool-approval-response",
				ApprovalID: approvalID,
				Approved:   &approved,
				Reason:     reason,
			}},
		},
		SelectedChatModel:      opts.model,
		SelectedVisibilityType: opts.visibility,
	}
	return c.openStream(ctx, chatID, payload, opts)
}

// openStream posts the payload to /api/chat and wraps the SSE body.
// Streaming requests are never retried: a retry would duplicate the user
// message in the conversation.
func (c *Client) openStream(ctx context.Context, chatID string, payload sendMessagePayload, opts sendCallOptions) (*MessageStream, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/chat", payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	for key, values := range opts.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	c.authorize(req)
	resp, err := c.send(req)
	if err != nil {
		c.telemetry.log(LogLevelError, "send_message_failed", map[string]any{"error": err.Error()})
		return nil, err
	}
	return newMessageStream(chatID, resp.Body, c.telemetry), nil
}

// GetChat fetches a conversation and its transcript.
func (c *Client) GetChat(ctx context.Context, chatID string) (*ChatDetail, error) {
	if chatID == "" {
		return nil, fmt.Errorf("kai: chat id required")
	}
	var detail ChatDetail
	if err := c.doJSON(ctx, http.MethodGet, "/api/chat/"+url.PathEscape(chatID), nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeleteChat removes a conversation server-side.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	if chatID == "" {
		return fmt.Errorf("kai: chat id required")
	}
	return c.doJSON(ctx, http.MethodDelete, "/api/chat?id="+url.QueryEscape(chatID), nil, nil)
}

// History lists past chats, newest first. startingAfter pages past the
// given chat id; limit <= 0 uses the backend default.
func (c *Client) History(ctx context.Context, limit int, startingAfter string) (*HistoryPage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if startingAfter != "" {
		query.Set("starting_after", startingAfter)
	}
	path := "/api/history"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var page HistoryPage
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
