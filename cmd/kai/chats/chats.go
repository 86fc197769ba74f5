// Package chatscmder provides commands for managing past conversations:
// listing history, showing a transcript, and deleting a chat.
package chatscmder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	kai "github.com/keboola/kai-client-go"
	"github.com/keboola/kai-client-go/internal/cliui"
	"github.com/keboola/kai-client-go/internal/config"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type historyCommander struct {
	limit         int
	startingAfter string
	jsonOutput    bool
}

const historyLongDesc string = `List past chats, newest first.

Examples:
  kai history
  kai history -n 50
  kai history --starting-after 0f8f9c1e-...`

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past chats",
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 10, "Maximum number of chats to list")
	cmd.Flags().StringVar(&cmder.startingAfter, "starting-after", "", "Page past the given chat id")
	cmd.Flags().BoolVar(&cmder.jsonOutput, "json-output", false, "Emit the page as JSON")

	return cmd
}

func (c *historyCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	page, err := client.History(commandContext(cmd), c.limit, c.startingAfter)
	if err != nil {
		return fmt.Errorf("listing chats: %w", err)
	}

	if c.jsonOutput {
		return json.NewEncoder(out).Encode(page)
	}

	if len(page.Chats) == 0 {
		fmt.Fprintln(out, "No chat history found.")
		return nil
	}
	for _, chat := range page.Chats {
		fmt.Fprintf(out, "  %s  %s %s\n",
			cliui.DimStyle.Render(chat.ID),
			chat.Title,
			cliui.DimStyle.Render(chat.CreatedAt.Format("2006-01-02 15:04")),
		)
	}
	if page.HasMore {
		last := page.Chats[len(page.Chats)-1]
		fmt.Fprintf(out, "  %s\n", cliui.DimStyle.Render("... and more (--starting-after "+last.ID+")"))
	}
	return nil
}

type getChatCommander struct {
	jsonOutput bool
	raw        bool
}

func NewGetChatCmd() *cobra.Command {
	cmder := &getChatCommander{}

	cmd := &cobra.Command{
		Use:   "get-chat <chat-id>",
		Short: "Show a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOutput, "json-output", false, "Emit the transcript as JSON")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Skip markdown rendering of message text")

	return cmd
}

func (c *getChatCommander) run(cmd *cobra.Command, chatID string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	detail, err := client.GetChat(commandContext(cmd), chatID)
	if err != nil {
		return fmt.Errorf("fetching chat: %w", err)
	}

	if c.jsonOutput {
		return json.NewEncoder(out).Encode(detail)
	}

	fmt.Fprintf(out, "%s %s\n\n", cliui.TitleStyle.Render(detail.Title), cliui.DimStyle.Render(detail.ID))
	for _, msg := range detail.Messages {
		fmt.Fprintf(out, "%s\n", cliui.StepStyle.Render("["+strings.ToUpper(msg.Role)+"]"))
		for _, part := range msg.Parts {
			c.renderPart(cmd, part)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func (c *getChatCommander) renderPart(cmd *cobra.Command, part kai.MessagePart) {
	out := cmd.OutOrStdout()
	switch {
	case part.Type == "text":
		text := part.Text
		if !c.raw {
			if rendered, err := cliui.RenderMarkdown(text); err == nil {
				text = rendered
			}
		}
		fmt.Fprint(out, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(out)
		}
	case strings.HasPrefix(part.Type, "tool-"):
		fmt.Fprintf(out, "  %s %s\n", cliui.ToolMark,
			cliui.StepStyle.Render(fmt.Sprintf("%s (%s)", strings.TrimPrefix(part.Type, "tool-"), part.State)))
	}
}

type deleteChatCommander struct {
	yes bool
}

func NewDeleteChatCmd() *cobra.Command {
	cmder := &deleteChatCommander{}

	cmd := &cobra.Command{
		Use:   "delete-chat <chat-id>",
		Short: "Delete a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&cmder.yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func (c *deleteChatCommander) run(cmd *cobra.Command, chatID string) error {
	out := cmd.OutOrStdout()

	if !c.yes {
		fmt.Fprintf(out, "Delete chat %s? [y/N] ", chatID)
		reader := bufio.NewReader(cmd.InOrStdin())
		answer, _ := reader.ReadString('\n')
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	if err := client.DeleteChat(commandContext(cmd), chatID); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	fmt.Fprintf(out, "  %s Deleted chat %s\n", cliui.SuccessMark, chatID)
	return nil
}
