// ABOUTME: Collections command listing configured collections and their feed files
// ABOUTME: Shows which artifact each collection produces per display mode

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"ls", "list"},
	Short:   "List configured collections",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		bold := color.New(color.Bold).SprintFunc()
		faint := color.New(color.Faint).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		fmt.Fprintf(out, "%s %s (%s)\n\n", faint("Library:"), cfg.API.Library, cfg.FeedFormat())
		for _, col := range cfg.Collections {
			key := col.Key
			if col.IsTopLevel() {
				key = "top level"
			}
			fmt.Fprintf(out, "%s %s\n", bold(col.Name), faint("("+key+")"))
			fmt.Fprintf(out, "  %s\n", col.Title)
			for _, mode := range cfg.DisplayModes() {
				file := col.FileName(mode)
				if u := cfg.PublicURL(file); u != "" {
					file = u
				}
				fmt.Fprintf(out, "  %s %s\n", faint(string(mode)+":"), cyan(file))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
}
