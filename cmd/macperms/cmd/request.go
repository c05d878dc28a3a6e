package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type requestOutput struct {
	Type           string `json:"type"`
	Status         string `json:"status,omitempty"`
	SettingsOpened bool   `json:"settings_opened,omitempty"`
}

func requestCmd(s *session) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "request <type>",
		Short: "Request access to a permission type",
		Long: `Request access to a permission type. Types with a system prompt wait
for the user's answer; types that can only be granted in System Settings
open the matching pane and return at once. A type that is already decided
reports its status without prompting again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			if timeout <= 0 {
				timeout = s.cfg.RequestTimeout
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if e, err := s.broker.Entry(args[0]); err == nil && e.RequestIsAsynchronous() && isTerminal(s.env.Err) {
				fmt.Fprintf(s.env.Err, "waiting for an answer to the %s prompt...\n", e.Type)
			}
			result, err := s.broker.Request(ctx, args[0])
			if err != nil {
				return err
			}
			out := requestOutput{
				Type:           string(result.Type),
				Status:         result.Status.String(),
				SettingsOpened: result.SettingsOpened,
			}
			if s.jsonOut {
				return s.printJSON(out)
			}
			if result.SettingsOpened {
				e, _ := s.broker.Entry(args[0])
				fmt.Fprintf(s.env.Out, "%s: opened System Settings (%s)\n", out.Type, e.Pane)
				return nil
			}
			fmt.Fprintf(s.env.Out, "%s: %s\n", out.Type, out.Status)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "how long to wait for an answer (default from config, 30s)")
	return cmd
}
