package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvwtools/dvw-cli/api/schemas"
	"github.com/dvwtools/dvw-cli/internal/derive"
)

// newDeriveCmd creates the `derive` command: print the physical table name and
// column set derived for each node in the workspace.
func newDeriveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "derive [node-label]",
		Short: "Show derived table names and columns for workspace nodes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			nodes, edges := s.store.Snapshot()
			if len(nodes) == 0 {
				fmt.Println("workspace is empty")
				return nil
			}

			var filter string
			if len(args) == 1 {
				filter = strings.ToLower(args[0])
			}

			globals := s.settings.Current().GlobalColumns
			matched := false
			for _, n := range nodes {
				if filter != "" && strings.ToLower(n.Label) != filter {
					continue
				}
				matched = true
				printNodeColumns(n, nodes, edges, globals)
			}
			if filter != "" && !matched {
				return fmt.Errorf("no node labelled %q", args[0])
			}
			return nil
		},
	}
}

func printNodeColumns(n schemas.Node, nodes []schemas.Node, edges []schemas.Edge, globals []schemas.ColumnDefinition) {
	fmt.Printf("%s [%s] -> %s\n", n.Label, n.Kind, derive.TableName(n))

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	for _, col := range derive.Columns(n, nodes, edges, globals) {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", col.Display(), col.DataType, col.Description)
	}
	w.Flush()
	fmt.Println()
}
