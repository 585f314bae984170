package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dvwtools/dvw-cli/api/schemas"
)

// newSettingsCmd groups the workspace settings commands.
func newSettingsCmd() *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change workspace settings",
	}
	settingsCmd.AddCommand(newSettingsShowCmd(), newSettingsSetCmd(), newSettingsResetCmd())
	return settingsCmd
}

func newSettingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			// Prefer the remote copy; fall back to the local one when the
			// service is unreachable.
			current, err := s.client.GetSettings(cmd.Context())
			if err != nil {
				s.log.Warn("remote settings unavailable, showing local settings")
				current = s.settings.Current()
			} else {
				s.settings.Set(current)
			}
			printSettings(current)
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Update settings via flags (only changed flags are applied)",
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := patchFromFlags(cmd)

			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			applied := s.coord.UpdateSettings(cmd.Context(), patch)
			printSettings(applied)
			return nil
		},
	}

	setCmd.Flags().String("theme", "", "color theme (light or dark)")
	setCmd.Flags().Bool("auto-save", false, "enable the auto-save scheduler")
	setCmd.Flags().Int("auto-save-interval", 0, "auto-save interval in seconds")
	setCmd.Flags().Bool("snap-to-grid", false, "snap node positions to the grid")
	setCmd.Flags().Int("grid-size", 0, "grid cell size in pixels")
	setCmd.Flags().String("edge-type", "", "edge rendering type (e.g. smoothstep)")
	setCmd.Flags().Bool("floating-edges", false, "let edges attach to the nearest side")
	setCmd.Flags().Bool("edge-animation", false, "animate edges")
	setCmd.Flags().Bool("show-connection-points", false, "show node connection points")
	return setCmd
}

// patchFromFlags builds a partial update from exactly the flags the user set,
// so untouched settings stay untouched.
func patchFromFlags(cmd *cobra.Command) schemas.SettingsPatch {
	var patch schemas.SettingsPatch
	flags := cmd.Flags()

	if flags.Changed("theme") {
		v, _ := flags.GetString("theme")
		patch.Theme = &v
	}
	if flags.Changed("auto-save") {
		v, _ := flags.GetBool("auto-save")
		patch.AutoSave = &v
	}
	if flags.Changed("auto-save-interval") {
		v, _ := flags.GetInt("auto-save-interval")
		patch.AutoSaveIntervalSec = &v
	}
	if flags.Changed("snap-to-grid") {
		v, _ := flags.GetBool("snap-to-grid")
		patch.SnapToGrid = &v
	}
	if flags.Changed("grid-size") {
		v, _ := flags.GetInt("grid-size")
		patch.GridSize = &v
	}
	if flags.Changed("edge-type") {
		v, _ := flags.GetString("edge-type")
		patch.EdgeType = &v
	}
	if flags.Changed("floating-edges") {
		v, _ := flags.GetBool("floating-edges")
		patch.FloatingEdges = &v
	}
	if flags.Changed("edge-animation") {
		v, _ := flags.GetBool("edge-animation")
		patch.EdgeAnimation = &v
	}
	if flags.Changed("show-connection-points") {
		v, _ := flags.GetBool("show-connection-points")
		patch.ShowConnectionPoints = &v
	}
	return patch
}

func newSettingsResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the remote settings to defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession()
			if err != nil {
				return err
			}
			defer s.close()

			defaults, err := s.client.ResetSettings(cmd.Context())
			if err != nil {
				return err
			}
			s.settings.Set(defaults)
			s.coord.RestartAutoSave()
			s.store.RematerializeEdges()
			printSettings(defaults)
			return nil
		},
	}
}

func printSettings(s schemas.Settings) {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintf(w, "theme\t%s\n", s.Theme)
	fmt.Fprintf(w, "autoSave\t%t\n", s.AutoSave)
	fmt.Fprintf(w, "autoSaveIntervalSec\t%d\n", s.AutoSaveIntervalSec)
	fmt.Fprintf(w, "snapToGrid\t%t\n", s.SnapToGrid)
	fmt.Fprintf(w, "gridSize\t%d\n", s.GridSize)
	fmt.Fprintf(w, "edgeType\t%s\n", s.EdgeType)
	fmt.Fprintf(w, "floatingEdges\t%t\n", s.FloatingEdges)
	fmt.Fprintf(w, "edgeAnimation\t%t\n", s.EdgeAnimation)
	fmt.Fprintf(w, "showConnectionPoints\t%t\n", s.ShowConnectionPoints)
	for _, col := range s.GlobalColumns {
		fmt.Fprintf(w, "globalColumn\t%s %s\n", col.Display(), col.DataType)
	}
	w.Flush()
}
