// Package kaicmder
package kaicmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/keboola/kai-client-go/cmd/kai/chat"
	chatscmder "github.com/keboola/kai-client-go/cmd/kai/chats"
	statuscmder "github.com/keboola/kai-client-go/cmd/kai/status"
	votecmder "github.com/keboola/kai-client-go/cmd/kai/vote"
)

const kaiLongDesc string = `Kai is a conversational assistant for your Keboola project.

Talk to the backend using:
  kai chat -m "..."      Send a message and stream the reply
  kai history            List past conversations
  kai get-chat <id>      Show a conversation transcript
  kai vote <ids> up      Vote on an assistant message
  kai ping               Check backend liveness

Credentials come from STORAGE_API_TOKEN and STORAGE_API_URL, or the
--token and --storage-url flags.`

const kaiShortDesc string = "Kai - Keboola conversational assistant"

func NewKaiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "kai",
		Short:        kaiShortDesc,
		Long:         kaiLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().String("base-url", "", "Kai backend URL (default http://localhost:3000)")
	cmd.PersistentFlags().String("token", "", "Keboola storage API token")
	cmd.PersistentFlags().String("storage-url", "", "Keboola storage API URL")
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(chatscmder.NewHistoryCmd())
	cmd.AddCommand(chatscmder.NewGetChatCmd())
	cmd.AddCommand(chatscmder.NewDeleteChatCmd())
	cmd.AddCommand(votecmder.NewVoteCmd())
	cmd.AddCommand(votecmder.NewVotesCmd())
	cmd.AddCommand(statuscmder.NewPingCmd())
	cmd.AddCommand(statuscmder.NewInfoCmd())

	return cmd
}
