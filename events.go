package kai

import "encoding/json"

// Event is the closed set of domain events a Kai message stream can yield.
// Exactly one concrete type exists per wire event kind; consumers dispatch
// with a type switch. Unknown wire labels never produce an Event.
type Event interface {
	event()
}

// TextState reports whether a text fragment is still being streamed.
type TextState string

const (
	TextStreaming TextState = "streaming"
	TextComplete  TextState = "complete"
)

// ToolCallState tracks a tool call through its lifecycle. A call may skip
// ToolCallStarted and begin directly at ToolCallInputAvailable; the two
// output states are terminal for that call id.
type ToolCallState string

const (
	ToolCallStarted         ToolCallState = "started"
	ToolCallInputAvailable  ToolCallState = "input-available"
	ToolCallOutputAvailable ToolCallState = "output-available"
	ToolCallOutputError     ToolCallState = "output-error"
)

// FinishReason encodes why the backend ended a response stream.
type FinishReason string

const (
	FinishComplete  FinishReason = "complete"
	FinishError     FinishReason = "error"
	FinishCancelled FinishReason = "cancelled"
	FinishMaxTokens FinishReason = "max_tokens"
)

func knownFinishReason(r FinishReason) bool {
	switch r {
	case FinishComplete, FinishError, FinishCancelled, FinishMaxTokens:
		return true
	}
	return false
}

// TextEvent carries a fragment of assistant text.
type TextEvent struct {
	Text  string
	State TextState
}

// StepStartEvent marks the beginning of an agent step. Informational only.
type StepStartEvent struct{}

// ToolApproval is the approval metadata the backend attaches to a tool call
// under the v6 flow. Approved is nil while the decision is still pending.
type ToolApproval struct {
	ID       string `json:"id"`
	Approved *bool  `json:"approved"`
	Reason   string `json:"reason"`
}

// ToolCallEvent reports the latest known state of one tool call. Input and
// Output are opaque backend payloads; either may be absent depending on the
// call's state.
type ToolCallEvent struct {
	ToolCallID string
	ToolName   string
	State      ToolCallState
	Input      json.RawMessage
	Output     json.RawMessage
	Approval   *ToolApproval
}

// ToolApprovalRequestEvent asks the caller to approve or reject a tool call
// under the v6 flow. Resolve it with Client.ApproveTool or Client.RejectTool.
type ToolApprovalRequestEvent struct {
	ApprovalID string
	ToolCallID string
}

// ToolOutputErrorEvent reports that a tool call failed during execution.
type ToolOutputErrorEvent struct {
	ToolCallID string
	ErrorText  string
}

// Usage counts tokens consumed by a response.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
}

// UsageEvent carries incremental token usage emitted by the backend.
type UsageEvent struct {
	Usage Usage
}

// FinishEvent terminates a stream normally.
type FinishEvent struct {
	Reason FinishReason
	Usage  *Usage
}

// ErrorEvent terminates a stream with an in-band backend error. This is
// distinct from transport failures, which surface as request errors.
type ErrorEvent struct {
	Message string
	Code    string
}

func (*TextEvent) event()                {}
func (*StepStartEvent) event()           {}
func (*ToolCallEvent) event()            {}
func (*ToolApprovalRequestEvent) event() {}
func (*ToolOutputErrorEvent) event()     {}
func (*UsageEvent) event()               {}
func (*FinishEvent) event()              {}
func (*ErrorEvent) event()               {}

// frameParsers maps wire labels to parsers. The backend speaks two dialects:
// the local dev server emits the plain labels (text, tool-call) while
// production emits the AI SDK v6 labels (text-delta, tool-input-available).
// Both appear here; labels missing from the table are dropped, not errored,
// so new backend event kinds cannot break older clients.
var frameParsers = map[string]func(json.RawMessage) (Event, error){
	"text":                  parseTextFrame,
	"text-delta":            parseTextDeltaFrame,
	"step-start":            parseStepStartFrame,
	"start-step":            parseStepStartFrame,
	"tool-call":             parseToolCallFrame,
	"tool-input-start":      parseToolInputStartFrame,
	"tool-input-available":  parseToolInputAvailableFrame,
	"tool-output-available": parseToolOutputAvailableFrame,
	"tool-output-error":     parseToolOutputErrorFrame,
	"tool-approval-request": parseToolApprovalRequestFrame,
	"data-usage":            parseUsageFrame,
	"finish":                parseFinishFrame,
	"finish-step":           parseFinishFrame,
	"error":                 parseErrorFrame,
}

// terminalLabels are the labels needed to detect stream termination. A frame
// with one of these labels that fails to decode is stream-fatal; any other
// decode failure is recoverable.
var terminalLabels = map[string]bool{
	"finish":      true,
	"finish-step": true,
	"error":       true,
}

// parseFrame maps one SSE frame onto a domain event. It returns (nil, nil)
// for labels outside the table and a *FrameError when the payload does not
// decode.
func parseFrame(label string, data json.RawMessage) (Event, error) {
	parse, ok := frameParsers[label]
	if !ok {
		return nil, nil
	}
	ev, err := parse(data)
	if err != nil {
		return nil, &FrameError{Label: label, Err: err}
	}
	return ev, nil
}

func parseTextFrame(data json.RawMessage) (Event, error) {
	var p struct {
		Text  string    `json:"text"`
		State TextState `json:"state"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &TextEvent{Text: p.Text, State: p.State}, nil
}

func parseTextDeltaFrame(data json.RawMessage) (Event, error) {
	var p struct {
		Delta string    `json:"delta"`
		State TextState `json:"state"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &TextEvent{Text: p.Delta, State: p.State}, nil
}

func parseStepStartFrame(data json.RawMessage) (Event, error) {
	var p struct{}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &StepStartEvent{}, nil
}

type toolCallPayload struct {
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	State      ToolCallState   `json:"state"`
	Input      json.RawMessage `json:"input"`
	Output     json.RawMessage `json:"output"`
	Approval   *ToolApproval   `json:"approval"`
}

func (p toolCallPayload) approval() *ToolApproval {
	if p.Approval == nil || p.Approval.ID == "" {
		return nil
	}
	return p.Approval
}

func parseToolCallFrame(data json.RawMessage) (Event, error) {
	var p toolCallPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolCallEvent{
		ToolCallID: p.ToolCallID,
		ToolName:   p.ToolName,
		State:      p.State,
		Input:      p.Input,
		Output:     p.Output,
		Approval:   p.approval(),
	}, nil
}

func parseToolInputStartFrame(data json.RawMessage) (Event, error) {
	var p toolCallPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolCallEvent{
		ToolCallID: p.ToolCallID,
		ToolName:   p.ToolName,
		State:      ToolCallStarted,
	}, nil
}

func parseToolInputAvailableFrame(data json.RawMessage) (Event, error) {
	var p toolCallPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolCallEvent{
		ToolCallID: p.ToolCallID,
		ToolName:   p.ToolName,
		State:      ToolCallInputAvailable,
		Input:      p.Input,
		Approval:   p.approval(),
	}, nil
}

func parseToolOutputAvailableFrame(data json.RawMessage) (Event, error) {
	var p toolCallPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolCallEvent{
		ToolCallID: p.ToolCallID,
		ToolName:   p.ToolName,
		State:      ToolCallOutputAvailable,
		Output:     p.Output,
	}, nil
}

func parseToolOutputErrorFrame(data json.RawMessage) (Event, error) {
	var p struct {
		ToolCallID string `json:"toolCallId"`
		ErrorText  string `json:"errorText"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolOutputErrorEvent{ToolCallID: p.ToolCallID, ErrorText: p.ErrorText}, nil
}

func parseToolApprovalRequestFrame(data json.RawMessage) (Event, error) {
	var p struct {
		ApprovalID string `json:"approvalId"`
		ToolCallID string `json:"toolCallId"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ToolApprovalRequestEvent{ApprovalID: p.ApprovalID, ToolCallID: p.ToolCallID}, nil
}

func parseUsageFrame(data json.RawMessage) (Event, error) {
	var p struct {
		Data Usage `json:"data"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &UsageEvent{Usage: p.Data}, nil
}

func parseFinishFrame(data json.RawMessage) (Event, error) {
	var p struct {
		FinishReason FinishReason `json:"finishReason"`
		Usage        *Usage       `json:"usage"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &FinishEvent{Reason: p.FinishReason, Usage: p.Usage}, nil
}

func parseErrorFrame(data json.RawMessage) (Event, error) {
	var p struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &ErrorEvent{Message: p.Message, Code: p.Code}, nil
}
