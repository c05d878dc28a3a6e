package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/macperms/pkg/permissions"
)

func watchCmd(s *session) *cobra.Command {
	var dirs []string
	cmd := &cobra.Command{
		Use:   "watch [type...]",
		Short: "Print permission status changes as they happen",
		Long: `Watch the privacy database directories and print every status change
until interrupted. Without arguments all types are watched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := make(map[permissions.PermissionType]bool)
			for _, name := range args {
				t, err := permissions.ParsePermissionType(name)
				if err != nil {
					return err
				}
				filter[t] = true
			}

			opts := []permissions.WatchOption{permissions.WithDebounce(s.cfg.WatchDebounce)}
			if len(dirs) > 0 {
				opts = append(opts, permissions.WithWatchDirs(dirs...))
			}
			w := permissions.NewWatcher(s.broker, opts...)
			if err := w.Start(); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer w.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			changes := make(chan permissions.Change, 16)
			unsubscribe := w.Subscribe(func(c permissions.Change) {
				if len(filter) > 0 && !filter[c.Type] {
					return
				}
				select {
				case changes <- c:
				case <-ctx.Done():
				}
			})
			defer unsubscribe()
			s.logger.Info("watching for permission changes")
			for {
				select {
				case <-ctx.Done():
					return nil
				case c := <-changes:
					if s.jsonOut {
						if err := s.printJSON(map[string]string{
							"type":     string(c.Type),
							"previous": c.Previous.String(),
							"status":   c.Current.String(),
						}); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintf(s.env.Out, "%s: %s -> %s\n", c.Type, c.Previous, c.Current)
				}
			}
		},
	}
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "directories to watch (default: the privacy database directories)")
	return cmd
}
