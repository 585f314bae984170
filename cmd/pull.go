package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newPullCmd creates the `pull` command: fetch a remote model into the local
// workspace, replacing whatever is there.
func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull <model-id>",
		Short: "Load a remote model into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.coord.Load(cmd.Context(), args[0]); err != nil {
				return err
			}
			nodes, edges := s.store.Counts()
			fmt.Printf("%s: %d nodes, %d edges\n", s.coord.ModelName(), nodes, edges)
			return nil
		},
	}
}
