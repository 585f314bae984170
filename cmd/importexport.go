package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dvwtools/dvw-cli/internal/persist"
)

// newImportCmd creates the `import` command: replace the workspace with a
// model read from a JSON exchange file. The file is fully validated before
// anything is touched.
func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a model file into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			file, err := persist.ParseModelFile(data)
			if err != nil {
				return fmt.Errorf("invalid model file %s: %w", args[0], err)
			}

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			s.coord.Import(file)
			return nil
		},
	}
}

// newExportCmd creates the `export` command: write the workspace as a JSON
// exchange file, or to stdout when the path is "-".
func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export the workspace as a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			data, err := s.coord.Export()
			if err != nil {
				return err
			}

			if args[0] == "-" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", args[0], err)
			}
			fmt.Printf("exported %q to %s\n", s.coord.ModelName(), args[0])
			return nil
		},
	}
}
