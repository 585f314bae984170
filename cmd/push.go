package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvwtools/dvw-cli/internal/persist"
)

// newPushCmd creates the `push` command: save the workspace to the remote
// service, creating the model on first push.
func newPushCmd() *cobra.Command {
	pushCmd := &cobra.Command{
		Use:   "push",
		Short: "Save the workspace to the remote service",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			name, _ := cmd.Flags().GetString("name")
			asNew, _ := cmd.Flags().GetBool("as-new")

			if err := s.coord.Save(cmd.Context(), persist.SaveOptions{Name: name, AsNew: asNew}); err != nil {
				return err
			}
			fmt.Printf("saved %q as %s\n", s.coord.ModelName(), s.coord.ModelID())
			return nil
		},
	}

	pushCmd.Flags().String("name", "", "rename the model as part of the save")
	pushCmd.Flags().Bool("as-new", false, "create a new remote model even if one exists (\"Save As\")")
	return pushCmd
}
