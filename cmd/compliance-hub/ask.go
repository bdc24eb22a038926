package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/agent"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/chat"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/compliance"
	"github.com/Lyzr-Apps/compliance-rag-ultra-deck-lzib/pkg/ui"
)

// newAskCommand builds the one-shot query command. It bypasses the turn
// controller: a single question, a single answer, no session state beyond
// the one call.
func newAskCommand() *cobra.Command {
	var modeID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadDefaults()
			if err != nil {
				return err
			}
			modes := chat.NewModeSet(cfg.Modes, cfg.DefaultMode)

			client, err := newAgentClient()
			if err != nil {
				return err
			}

			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return errors.New("question is empty")
			}

			payload, err := client.Call(cmd.Context(), agent.CallOptions{
				AgentID:   viper.GetString("agent-id"),
				SessionID: newSessionID(),
				Message:   modes.Prefix(modeID) + question,
			})
			if err != nil {
				return err
			}
			if !payload.Success {
				msg := payload.Error
				if msg == "" {
					msg = "the agent reported a failure"
				}
				return errors.New(msg)
			}

			response := compliance.Normalize(payload)
			if response == nil {
				return errors.New("the agent did not return a usable response")
			}

			md, err := ui.ResponseMarkdown(response)
			if err != nil {
				return err
			}

			if isatty.IsTerminal(os.Stdout.Fd()) {
				styled, err := ui.RenderResponse(response, 100)
				if err == nil {
					md = styled
				}
			}
			fmt.Println(md)

			return nil
		},
	}

	cmd.Flags().StringVar(&modeID, "mode", "general",
		"query mode (general, cross-reference, gap-analysis, checklist, risk-assessment)")

	return cmd
}
