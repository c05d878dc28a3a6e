package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type typeInfo struct {
	Type      string `json:"type"`
	Request   string `json:"request"`
	MinimumOS string `json:"minimum_os,omitempty"`
	Available bool   `json:"available"`
	Service   string `json:"service,omitempty"`
	Pane      string `json:"pane"`
}

func typesCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List permission types and how they are requested",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var infos []typeInfo
			for _, e := range s.broker.Registry().Entries() {
				infos = append(infos, typeInfo{
					Type:      string(e.Type),
					Request:   e.Convention.String(),
					MinimumOS: string(e.MinimumOS),
					Available: s.broker.Available(e),
					Service:   e.Service,
					Pane:      e.Pane,
				})
			}
			if s.jsonOut {
				return s.printJSON(infos)
			}
			w := tabwriter.NewWriter(s.env.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tREQUEST\tMIN OS\tAVAILABLE\tSERVICE")
			for _, info := range infos {
				minOS := info.MinimumOS
				if minOS == "" {
					minOS = "-"
				}
				service := info.Service
				if service == "" {
					service = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", info.Type, info.Request, minOS, info.Available, service)
			}
			return w.Flush()
		},
	}
}
