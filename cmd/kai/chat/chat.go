// Package chatcmder provides the chat command for talking to the Kai
// backend and streaming the assistant's reply to the terminal.
package chatcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	kai "github.com/keboola/kai-client-go"
	"github.com/keboola/kai-client-go/internal/cliui"
	"github.com/keboola/kai-client-go/internal/config"
	"github.com/keboola/kai-client-go/internal/logger"
)

// maxApprovalRounds bounds the auto-approve loop so a backend that keeps
// requesting tool approvals cannot spin the CLI forever.
const maxApprovalRounds = 5

type chatCommander struct {
	message     string
	chatID      string
	jsonOutput  bool
	autoApprove bool

	logger *slog.Logger
}

const chatLongDesc string = `Send a message to the Kai backend and stream the reply.

Tool calls the assistant makes are shown as they execute. When a tool
needs human approval the stream pauses; pass --auto-approve to confirm
every tool automatically, or re-run with "kai chat" later after
approving through another surface.

Examples:
  kai chat -m "List my buckets"
  kai chat -m "Create a bucket called staging" --auto-approve
  kai chat -m "And what about tables?" --chat-id 0f8f9c1e-...`

const chatShortDesc string = "Send a message and stream the assistant's reply"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.message, "message", "m", "", "Message to send (required)")
	cmd.Flags().StringVar(&cmder.chatID, "chat-id", "", "Continue an existing chat instead of starting a new one")
	cmd.Flags().String("model", "", "Backend chat model selector")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json-output", false, "Emit one JSON object per stream event")
	cmd.Flags().BoolVar(&cmder.autoApprove, "auto-approve", false, "Approve tool calls without asking")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	c.logger = logger.New(logger.WithPretty(true), logger.WithDebug(cfg.Debug), logger.WithWriter(cmd.ErrOrStderr()))

	client, err := cfg.Client()
	if err != nil {
		return err
	}

	chatID := c.chatID
	newChat := chatID == ""
	if newChat {
		chatID = kai.NewChatID()
	}
	c.logger.Debug("sending message", "chat_id", chatID, "new_chat", newChat)

	var opts []kai.SendOption
	if cfg.Model != "" {
		opts = append(opts, kai.WithModel(cfg.Model))
	}

	stream, err := client.SendMessage(ctx, chatID, c.message, opts...)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	for round := 0; ; round++ {
		result, err := c.consume(out, stream)
		if err != nil {
			return err
		}
		if result.Err != nil {
			if !c.jsonOutput {
				fmt.Fprintf(out, "\n%s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(result.Err.Message))
			}
			return fmt.Errorf("assistant error: %s", result.Err.Message)
		}

		approvalID := result.PendingApprovalID
		pending := pendingCalls(result.ToolCalls)
		if approvalID == "" && len(pending) == 0 {
			break
		}

		if !c.autoApprove {
			if !c.jsonOutput {
				fmt.Fprintf(out, "\n  %s %s\n", cliui.ToolMark,
					cliui.StepStyle.Render("Tool call is waiting for approval. Re-run with --auto-approve to confirm."))
			}
			break
		}
		if round+1 >= maxApprovalRounds {
			c.logger.Warn("giving up after repeated approval requests", "rounds", round+1)
			break
		}

		switch {
		case approvalID != "":
			name := approvalToolName(result, approvalID)
			if !c.jsonOutput {
				fmt.Fprintf(out, "\n  %s Auto-approving %s\n", cliui.SuccessMark, name)
			}
			stream, err = client.ApproveTool(ctx, chatID, approvalID, opts...)
		default:
			call := pending[0]
			if !c.jsonOutput {
				fmt.Fprintf(out, "\n  %s Auto-approving %s\n", cliui.SuccessMark, call.ToolName)
			}
			stream, err = client.ConfirmTool(ctx, chatID, call.ToolCallID, call.ToolName, opts...)
		}
		if err != nil {
			return fmt.Errorf("approving tool: %w", err)
		}
	}

	if !c.jsonOutput && newChat {
		fmt.Fprintf(out, "%s\n", cliui.DimStyle.Render("chat id: "+chatID))
	}
	return nil
}

// consume drains one stream, rendering each event, and returns the final
// snapshot. The stream is always closed before returning.
func (c *chatCommander) consume(out io.Writer, stream *kai.MessageStream) (*kai.Result, error) {
	defer stream.Close()
	for {
		ev, ok, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("reading stream: %w", err)
		}
		if !ok {
			break
		}
		if c.jsonOutput {
			if m := eventJSON(ev); m != nil {
				_ = json.NewEncoder(out).Encode(m)
			}
			continue
		}
		c.render(out, ev)
	}
	result := stream.Result()
	for _, v := range result.Violations {
		c.logger.Debug("stream violation", "err", v)
	}
	return result, nil
}

func (c *chatCommander) render(out io.Writer, ev kai.Event) {
	switch ev := ev.(type) {
	case *kai.StepStartEvent:
		fmt.Fprintf(out, "%s\n", cliui.StepStyle.Render("[Processing...]"))
	case *kai.TextEvent:
		fmt.Fprint(out, ev.Text)
	case *kai.ToolCallEvent:
		fmt.Fprintf(out, "\n  %s %s\n", cliui.ToolMark,
			cliui.StepStyle.Render(fmt.Sprintf("%s (%s)", ev.ToolName, ev.State)))
	case *kai.ToolApprovalRequestEvent:
		fmt.Fprintf(out, "\n  %s %s\n", cliui.ToolMark,
			cliui.StepStyle.Render("approval requested for "+ev.ToolCallID))
	case *kai.ToolOutputErrorEvent:
		fmt.Fprintf(out, "\n  %s %s\n", cliui.FailMark, cliui.ErrorStyle.Render(ev.ErrorText))
	case *kai.ErrorEvent:
		// Rendered by the caller from the final result.
	case *kai.FinishEvent:
		fmt.Fprintln(out)
	}
}

func pendingCalls(calls []kai.ToolCall) []kai.ToolCall {
	var pending []kai.ToolCall
	for _, call := range calls {
		if call.Pending() {
			pending = append(pending, call)
		}
	}
	return pending
}

// approvalToolName finds the tool call the given approval id belongs to.
func approvalToolName(result *kai.Result, approvalID string) string {
	for _, call := range result.ToolCalls {
		if call.Approval != nil && call.Approval.ID == approvalID {
			return call.ToolName
		}
	}
	return "tool"
}

func eventJSON(ev kai.Event) map[string]any {
	switch ev := ev.(type) {
	case *kai.TextEvent:
		return map[string]any{"type": "text", "text": ev.Text}
	case *kai.StepStartEvent:
		return map[string]any{"type": "step-start"}
	case *kai.ToolCallEvent:
		m := map[string]any{
			"type":       "tool-call",
			"toolCallId": ev.ToolCallID,
			"toolName":   ev.ToolName,
			"state":      string(ev.State),
		}
		if len(ev.Input) > 0 {
			m["input"] = json.RawMessage(ev.Input)
		}
		if len(ev.Output) > 0 {
			m["output"] = json.RawMessage(ev.Output)
		}
		if ev.Approval != nil {
			m["approval"] = ev.Approval
		}
		return m
	case *kai.ToolApprovalRequestEvent:
		return map[string]any{"type": "tool-approval-request", "approvalId": ev.ApprovalID, "toolCallId": ev.ToolCallID}
	case *kai.ToolOutputErrorEvent:
		return map[string]any{"type": "tool-output-error", "toolCallId": ev.ToolCallID, "errorText": ev.ErrorText}
	case *kai.UsageEvent:
		return map[string]any{"type": "usage", "promptTokens": ev.Usage.PromptTokens, "completionTokens": ev.Usage.CompletionTokens}
	case *kai.FinishEvent:
		return map[string]any{"type": "finish", "finishReason": string(ev.Reason)}
	case *kai.ErrorEvent:
		return map[string]any{"type": "error", "message": ev.Message, "code": ev.Code}
	}
	return nil
}
