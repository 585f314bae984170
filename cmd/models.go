package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newModelsCmd groups the remote model management commands.
func newModelsCmd() *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Manage models stored on the remote service",
	}
	modelsCmd.AddCommand(newModelsListCmd(), newModelsRmCmd())
	return modelsCmd
}

func newModelsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List remote models",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			summaries, err := s.coord.RefreshModels(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNODES\tEDGES\tCREATED")
			for _, m := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
					m.ID, m.Name, m.NodeCount, m.EdgeCount, m.CreatedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newModelsRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <model-id>",
		Short: "Delete a remote model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			return s.coord.Delete(cmd.Context(), args[0])
		},
	}
}
