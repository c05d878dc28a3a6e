package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(s.env.Out, "macperms version %s (built %s, os %s)\n",
				Version, BuildTime, s.broker.OSVersion())
			return nil
		},
	}
}
