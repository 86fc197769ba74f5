// Package votecmder provides commands for voting on assistant messages
// and listing the votes recorded for a chat.
package votecmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	kai "github.com/keboola/kai-client-go"
	"github.com/keboola/kai-client-go/internal/cliui"
	"github.com/keboola/kai-client-go/internal/config"
)

const voteLongDesc string = `Vote on an assistant message.

Examples:
  kai vote 0f8f9c1e-... 7c2a41d0-... up
  kai vote 0f8f9c1e-... 7c2a41d0-... down`

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func NewVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote <chat-id> <message-id> <up|down>",
		Short: "Vote on an assistant message",
		Long:  voteLongDesc,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVote(cmd, args[0], args[1], kai.VoteType(args[2]))
		},
	}
	return cmd
}

func runVote(cmd *cobra.Command, chatID, messageID string, voteType kai.VoteType) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	vote, err := client.Vote(commandContext(cmd), chatID, messageID, voteType)
	if err != nil {
		return fmt.Errorf("recording vote: %w", err)
	}
	fmt.Fprintf(out, "  %s Voted %s on %s\n", cliui.SuccessMark, vote.Type, vote.MessageID)
	return nil
}

type votesCommander struct {
	jsonOutput bool
}

func NewVotesCmd() *cobra.Command {
	cmder := &votesCommander{}

	cmd := &cobra.Command{
		Use:   "get-votes <chat-id>",
		Short: "List the votes recorded for a chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOutput, "json-output", false, "Emit the votes as JSON")

	return cmd
}

func (c *votesCommander) run(cmd *cobra.Command, chatID string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	votes, err := client.GetVotes(commandContext(cmd), chatID)
	if err != nil {
		return fmt.Errorf("listing votes: %w", err)
	}

	if c.jsonOutput {
		return json.NewEncoder(out).Encode(votes)
	}

	if len(votes) == 0 {
		fmt.Fprintln(out, "No votes found.")
		return nil
	}
	for _, vote := range votes {
		mark := cliui.SuccessMark
		if vote.Type == kai.VoteDown {
			mark = cliui.FailMark
		}
		fmt.Fprintf(out, "  %s %s: %s\n", mark, vote.MessageID, vote.Type)
	}
	return nil
}
