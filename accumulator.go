package kai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToolCall is the accumulator's running record of one tool call, merged
// across every event seen for its id. Fields absent from a later event
// never erase values recorded by an earlier one.
type ToolCall struct {
	ToolCallID string
	ToolName   string
	State      ToolCallState
	Input      json.RawMessage
	Output     json.RawMessage
	ErrorText  string
	Approval   *ToolApproval
}

// Pending reports whether the call reached input-available without a
// terminal output state, i.e. it is waiting for approval under the legacy
// flow.
func (t ToolCall) Pending() bool {
	return t.State == ToolCallInputAvailable
}

// Accumulator is the running summary of one message stream: text so far,
// latest tool call states, terminal flag, pending v6 approval, and token
// usage. Each stream owns exactly one Accumulator; it is not safe for
// concurrent use and is never shared across streams.
type Accumulator struct {
	text              strings.Builder
	order             []string
	calls             map[string]*ToolCall
	finished          bool
	finishReason      FinishReason
	streamErr         *ErrorEvent
	pendingApprovalID string
	usage             Usage
	violations        []error
}

// NewAccumulator returns an empty accumulator. MessageStream creates its
// own; this is exported for callers feeding events from elsewhere.
func NewAccumulator() *Accumulator {
	return &Accumulator{calls: make(map[string]*ToolCall)}
}

// Process folds one event into the accumulator. Events arriving after the
// terminal one are ignored; MessageStream stops delivering them anyway.
func (a *Accumulator) Process(ev Event) {
	if a.finished {
		return
	}
	switch ev := ev.(type) {
	case *TextEvent:
		a.text.WriteString(ev.Text)
	case *ToolCallEvent:
		a.mergeToolCall(ev)
	case *ToolApprovalRequestEvent:
		if a.pendingApprovalID != "" && a.pendingApprovalID != ev.ApprovalID {
			a.record(&ProtocolViolation{Reason: fmt.Sprintf(
				"approval request %s arrived while %s was still pending",
				ev.ApprovalID, a.pendingApprovalID)})
		}
		a.pendingApprovalID = ev.ApprovalID
	case *ToolOutputErrorEvent:
		call := a.call(ev.ToolCallID)
		call.State = ToolCallOutputError
		call.ErrorText = ev.ErrorText
	case *UsageEvent:
		a.usage.PromptTokens += ev.Usage.PromptTokens
		a.usage.CompletionTokens += ev.Usage.CompletionTokens
	case *FinishEvent:
		a.finished = true
		a.finishReason = ev.Reason
		if ev.Usage != nil {
			a.usage.PromptTokens += ev.Usage.PromptTokens
			a.usage.CompletionTokens += ev.Usage.CompletionTokens
		}
		if !knownFinishReason(ev.Reason) {
			a.record(&ProtocolViolation{Reason: fmt.Sprintf("unrecognized finish reason %q", ev.Reason)})
		}
	case *ErrorEvent:
		a.finished = true
		a.streamErr = ev
	case *StepStartEvent:
		// Informational only.
	}
}

func (a *Accumulator) mergeToolCall(ev *ToolCallEvent) {
	call := a.call(ev.ToolCallID)
	if ev.ToolName != "" {
		call.ToolName = ev.ToolName
	}
	if ev.State != "" {
		call.State = ev.State
	}
	if ev.Input != nil {
		call.Input = ev.Input
	}
	if ev.Output != nil {
		call.Output = ev.Output
	}
	if ev.Approval != nil {
		call.Approval = ev.Approval
	}
}

func (a *Accumulator) call(id string) *ToolCall {
	if a.calls == nil {
		a.calls = make(map[string]*ToolCall)
	}
	call, ok := a.calls[id]
	if !ok {
		call = &ToolCall{ToolCallID: id}
		a.calls[id] = call
		a.order = append(a.order, id)
	}
	return call
}

func (a *Accumulator) record(err error) {
	a.violations = append(a.violations, err)
}

// Text returns all assistant text accumulated so far, in arrival order.
func (a *Accumulator) Text() string { return a.text.String() }

// ToolCalls returns a snapshot of every tool call seen, in first-arrival
// order.
func (a *Accumulator) ToolCalls() []ToolCall {
	calls := make([]ToolCall, 0, len(a.order))
	for _, id := range a.order {
		calls = append(calls, *a.calls[id])
	}
	return calls
}

// ToolCall returns the merged record for one call id.
func (a *Accumulator) ToolCall(id string) (ToolCall, bool) {
	call, ok := a.calls[id]
	if !ok {
		return ToolCall{}, false
	}
	return *call, true
}

// PendingToolCalls returns the calls stuck at input-available, i.e. those
// awaiting legacy-flow confirmation.
func (a *Accumulator) PendingToolCalls() []ToolCall {
	var pending []ToolCall
	for _, id := range a.order {
		if a.calls[id].Pending() {
			pending = append(pending, *a.calls[id])
		}
	}
	return pending
}

// Finished reports whether a finish or error event was observed.
func (a *Accumulator) Finished() bool { return a.finished }

// FinishReason returns the terminal reason, empty until finished.
func (a *Accumulator) FinishReason() FinishReason { return a.finishReason }

// StreamError returns the in-band error event that ended the stream, if any.
func (a *Accumulator) StreamError() *ErrorEvent { return a.streamErr }

// PendingApprovalID returns the outstanding v6 approval id, empty if none.
func (a *Accumulator) PendingApprovalID() string { return a.pendingApprovalID }

// ResolveApproval clears the pending approval id once the caller submits a
// decision for it. It reports whether the given id was the pending one.
func (a *Accumulator) ResolveApproval(approvalID string) bool {
	if approvalID == "" || a.pendingApprovalID != approvalID {
		return false
	}
	a.pendingApprovalID = ""
	return true
}

// Usage returns the token usage tallied from data-usage and finish events.
func (a *Accumulator) Usage() Usage { return a.usage }

// Violations returns the recoverable protocol problems seen so far: frame
// decode failures that were skipped and grammar violations. They are a side
// channel; none of them stopped the stream.
func (a *Accumulator) Violations() []error { return a.violations }
