package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-drift/macperms/cmd/macperms/internal/config"
	"github.com/go-drift/macperms/pkg/permissions"
)

func foldersCmd(s *session) *cobra.Command {
	var appID string
	cmd := &cobra.Command{
		Use:   "folders <desktop|documents|downloads>",
		Short: "Provoke the access prompt for a protected folder",
		Long: `List a protected folder so that macOS shows its access prompt. There is
no way to query folder access, so nothing is reported back beyond the path
that was probed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if appID == "" {
				appID = s.cfg.AppID
			} else if err := config.ValidateAppID(appID); err != nil {
				return err
			}
			if err := s.broker.AskForFoldersAccess(args[0], appID); err != nil {
				return err
			}
			f, _ := permissions.ParseProtectedFolder(args[0])
			path, err := s.broker.FolderPath(f, appID)
			if err != nil {
				return err
			}
			if s.jsonOut {
				return s.printJSON(map[string]string{"folder": string(f), "path": path})
			}
			fmt.Fprintf(s.env.Out, "probed %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&appID, "app-id", "", "probe the folder inside this application's container")
	return cmd
}
