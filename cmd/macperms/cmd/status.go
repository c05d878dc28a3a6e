package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-drift/macperms/pkg/permissions"
)

type statusLine struct {
	Type   string `json:"type"`
	Status string `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

func statusCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "status [type...]",
		Short: "Print the authorization status of permission types",
		Long: `Print the authorization status of the named permission types, or of
every type when none is named. Querying never shows a prompt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				for _, t := range permissions.Types() {
					names = append(names, string(t))
				}
			}
			// Reject unknown names before touching any subsystem.
			for _, name := range names {
				if _, err := s.broker.Entry(name); err != nil {
					return err
				}
			}

			lines := make([]statusLine, 0, len(names))
			for _, name := range names {
				line := statusLine{Type: name}
				status, err := s.broker.Status(name)
				if err != nil {
					line.Error = err.Error()
				} else {
					line.Status = status.String()
				}
				lines = append(lines, line)
			}

			if s.jsonOut {
				return s.printJSON(lines)
			}
			w := tabwriter.NewWriter(s.env.Out, 0, 4, 2, ' ', 0)
			for _, line := range lines {
				value := line.Status
				if line.Error != "" {
					value = "error: " + line.Error
				}
				fmt.Fprintf(w, "%s\t%s\n", line.Type, value)
			}
			return w.Flush()
		},
	}
}
