// ABOUTME: Generate command building every configured feed from the remote library
// ABOUTME: Writes artifacts atomically into the output directory and prints a colored run summary

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/harper/pubfeed/internal/aggregate"
	"github.com/harper/pubfeed/internal/config"
)

var generateCmd = &cobra.Command{
	Use:     "generate",
	Aliases: []string{"gen", "build"},
	Short:   "Fetch the library and write all feeds",
	Long: `Fetch every configured collection from the remote library and write one
feed per collection and display mode into the output directory.

Use --dry-run to build every feed without writing anything.

Exit status is 0 when everything was produced, 2 when some feeds are
missing or truncated, and 3 when nothing could be produced.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		if dir, _ := cmd.Flags().GetString("output"); dir != "" {
			cfg.Output.Dir = dir
		}

		if !dryRun {
			if err := os.MkdirAll(cfg.Output.Dir, config.DefaultDirPerms); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		agg := aggregate.New(cfg.NewClient(logger), aggregate.NewDirSink(cfg.Output.Dir), logger)
		report, err := agg.Run(ctx, cfg, dryRun)
		if err != nil {
			return err
		}

		printReport(cmd.OutOrStdout(), report, dryRun)
		return reportError(report)
	},
}

func printReport(out io.Writer, report *aggregate.Report, dryRun bool) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	for _, o := range report.Outcomes {
		label := fmt.Sprintf("%s [%s]", o.Collection.Name, o.Mode)
		switch {
		case o.Failed():
			fmt.Fprintf(out, "%s %s: %v\n", red("x"), label, o.Err)
		case o.Status == aggregate.StatusEmpty:
			fmt.Fprintf(out, "%s %s: no items\n", faint("-"), label)
		case o.Partial:
			fmt.Fprintf(out, "%s %s -> %s (%d items, truncated)\n", yellow("!"), label, o.File, o.Items)
		default:
			fmt.Fprintf(out, "%s %s -> %s (%d items)\n", green("v"), label, o.File, o.Items)
		}
		if o.Skipped > 0 {
			fmt.Fprintf(out, "    %s %d record(s) skipped\n", faint("-"), o.Skipped)
		}
	}

	fmt.Fprintln(out)
	verb := "written"
	if dryRun {
		verb = "built (dry run)"
	}
	fmt.Fprintf(out, "Summary: %d feed(s) %s\n", report.Produced(), verb)
	if n := report.Failures(); n > 0 {
		fmt.Fprintf(out, "  %s %d failed\n", red("x"), n)
	}
	if report.IndexFile != "" {
		if report.IndexErr != nil {
			fmt.Fprintf(out, "  %s index %s: %v\n", red("x"), report.IndexFile, report.IndexErr)
		} else {
			fmt.Fprintf(out, "  %s index %s\n", green("v"), report.IndexFile)
		}
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().BoolP("dry-run", "n", false, "build feeds without writing them")
	generateCmd.Flags().StringP("output", "o", "", "output directory (overrides output.dir)")
}

