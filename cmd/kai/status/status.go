// Package statuscmder provides the ping and info commands for checking
// the Kai backend's health and build information.
package statuscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/keboola/kai-client-go/internal/cliui"
	"github.com/keboola/kai-client-go/internal/config"
)

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func NewPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check backend liveness",
		Args:  cobra.NoArgs,
		RunE:  runPing,
	}
}

func runPing(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	start := time.Now()
	ping, err := client.Ping(commandContext(cmd))
	if err != nil {
		fmt.Fprintf(out, "  %s Server is unreachable\n", cliui.FailMark)
		return err
	}

	fmt.Fprintf(out, "  %s Server is alive %s\n",
		cliui.SuccessMark,
		cliui.DimStyle.Render(fmt.Sprintf("(%s, %s)", ping.Timestamp.Format(time.RFC3339), cliui.FormatDuration(time.Since(start)))),
	)
	return nil
}

type infoCommander struct {
	jsonOutput bool
}

func NewInfoCmd() *cobra.Command {
	cmder := &infoCommander{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show backend build and MCP connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().BoolVar(&cmder.jsonOutput, "json-output", false, "Emit the info as JSON")

	return cmd
}

func (c *infoCommander) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	cfg, err := config.FromCommand(cmd)
	if err != nil {
		return err
	}
	client, err := cfg.Client()
	if err != nil {
		return err
	}

	info, err := client.Info(commandContext(cmd))
	if err != nil {
		return fmt.Errorf("fetching info: %w", err)
	}

	if c.jsonOutput {
		return json.NewEncoder(out).Encode(info)
	}

	fmt.Fprintf(out, "  %s %s\n", cliui.TitleStyle.Render(info.AppName), cliui.DimStyle.Render("v"+info.AppVersion))
	fmt.Fprintf(out, "  server %s, up %s\n", info.ServerVersion, cliui.FormatUptime(info.Uptime))
	for _, mcp := range info.ConnectedMCP {
		mark := cliui.SuccessMark
		if mcp.Status != "connected" {
			mark = cliui.FailMark
		}
		fmt.Fprintf(out, "  %s %s %s\n", mark, mcp.Name, cliui.DimStyle.Render(mcp.Status))
	}
	return nil
}
