package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/go-drift/macperms/pkg/permissions"
	"github.com/go-drift/macperms/pkg/tccdb"
)

func tccCmd(s *session) *cobra.Command {
	var dbs []string
	cmd := &cobra.Command{
		Use:   "tcc",
		Short: "Read recorded decisions from the privacy database",
		Long: `Read the privacy (TCC) database directly. This shows decisions made for
any application, not only this one, and needs full disk access.`,
	}
	cmd.PersistentFlags().StringSliceVar(&dbs, "db", nil, "database files (default: the user and system databases)")

	open := func() (tccdb.Set, error) {
		paths := dbs
		if len(paths) == 0 {
			paths = []string{s.cfg.UserDB, s.cfg.SystemDB}
		}
		return tccdb.OpenSet(paths...)
	}

	var service string
	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded decisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := open()
			if err != nil {
				return err
			}
			defer set.Close()

			entries, err := set.Entries(cmd.Context(), service)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return s.printJSON(entries)
			}
			w := tabwriter.NewWriter(s.env.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SERVICE\tCLIENT\tAUTH\tMODIFIED")
			for _, e := range entries {
				modified := "-"
				if !e.LastModified.IsZero() {
					modified = e.LastModified.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Service, e.Client, e.AuthValue, modified)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&service, "service", "", "only this service, e.g. kTCCServiceCamera")

	status := &cobra.Command{
		Use:   "status <type> <bundle-id>",
		Short: "Print the recorded status of a type for another application",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.broker.Entry(args[0]); err != nil {
				return err
			}
			set, err := open()
			if err != nil {
				return err
			}
			defer set.Close()

			b := permissions.NewBroker(
				permissions.WithRegistry(s.broker.Registry()),
				permissions.WithOSVersion(s.broker.OSVersion()),
				permissions.WithLogger(s.logger),
				permissions.WithTCC(set),
			)
			result, err := b.StatusFor(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if s.jsonOut {
				return s.printJSON(map[string]string{"type": args[0], "client": args[1], "status": result.String()})
			}
			fmt.Fprintf(s.env.Out, "%s %s: %s\n", args[1], args[0], result)
			return nil
		},
	}

	cmd.AddCommand(list, status)
	return cmd
}
