// ABOUTME: Preview command rendering one collection's items in the terminal
// ABOUTME: Builds Markdown from the sorted items and renders it with glamour instead of writing XML

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/feedwriter"
	"github.com/harper/pubfeed/internal/models"
	"github.com/harper/pubfeed/internal/normalize"
)

var previewCmd = &cobra.Command{
	Use:   "preview <collection>",
	Short: "Preview a collection feed in the terminal",
	Long: `Fetch one collection and show its items the way they would appear in
the feed, newest first. Nothing is written to the output directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modeName, _ := cmd.Flags().GetString("mode")
		limit, _ := cmd.Flags().GetInt("limit")
		raw, _ := cmd.Flags().GetBool("raw")

		spec, ok := cfg.Collection(args[0])
		if !ok {
			return fmt.Errorf("collection not found: %s", args[0])
		}
		mode, err := models.ParseDisplayMode(modeName)
		if err != nil {
			return err
		}

		agg := aggregate.New(cfg.NewClient(logger), aggregate.NewMemorySink(), logger)
		artifact, err := agg.Collect(cmd.Context(), cfg, spec, mode)
		if artifact == nil {
			return fmt.Errorf("failed to fetch collection %s: %w", spec.Name, err)
		}
		if err != nil {
			logger.Warn("showing partial collection", "collection", spec.Name, "err", err)
		}

		markdown := previewMarkdown(artifact, limit)
		out := cmd.OutOrStdout()
		if raw {
			fmt.Fprint(out, markdown)
			return nil
		}

		rendered, err := glamour.Render(markdown, "dark")
		if err != nil {
			faint := color.New(color.Faint).SprintFunc()
			fmt.Fprintf(out, "%s\n", faint("(markdown rendering unavailable, showing plain text)"))
			fmt.Fprintf(out, "\n%s\n", markdown)
			return nil
		}
		fmt.Fprint(out, rendered)
		return nil
	},
}

// previewMarkdown lists up to limit items; limit <= 0 shows all.
func previewMarkdown(artifact *aggregate.Artifact, limit int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", artifact.Channel.Title)
	if d := artifact.Channel.Description; d != "" && d != artifact.Channel.Title {
		fmt.Fprintf(&b, "%s\n\n", normalize.TitleMarkdown(d))
	}

	if len(artifact.Items) == 0 {
		b.WriteString("_No items._\n")
		return b.String()
	}

	shown := artifact.Items
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	for i, item := range shown {
		display := item
		display.Title = normalize.TitleMarkdown(item.Title)
		line := feedwriter.DisplayTitle(display)
		if !item.HasSortDate() {
			line += " _(undated, sorted last)_"
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, line)
		if item.Link != "" {
			fmt.Fprintf(&b, "   <%s>\n", item.Link)
		}
	}
	if len(shown) < len(artifact.Items) {
		fmt.Fprintf(&b, "\n_%d more item(s) in the feed._\n", len(artifact.Items)-len(shown))
	}
	fmt.Fprintf(&b, "\n---\n\n%s: `%s`\n", artifact.Mode, artifact.File)
	return b.String()
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringP("mode", "m", string(models.ModeAllAuthors), "display mode (all-authors or single-author)")
	previewCmd.Flags().IntP("limit", "l", 20, "maximum items to show (0 for all)")
	previewCmd.Flags().Bool("raw", false, "print Markdown without terminal rendering")
}
