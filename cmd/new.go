package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newNewCmd creates the `new` command: reset the workspace to an empty,
// unsaved model.
func newNewCmd() *cobra.Command {
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Reset the workspace to an empty model",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.coord.NewModel()

			if purge, _ := cmd.Flags().GetBool("purge"); purge {
				if err := s.coord.ClearPersistedState(); err != nil {
					return err
				}
			}
			fmt.Println("workspace reset")
			return nil
		},
	}

	newCmd.Flags().Bool("purge", false, "also remove the durable workspace cache")
	return newCmd
}
