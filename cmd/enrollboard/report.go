package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"enrollboard/internal/model"
	"enrollboard/internal/pipeline"
	"enrollboard/internal/util"
)

func newReportCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the pipeline once and print the comparison",
		Long: `Fetches and cleans the sheet once, then prints the baseline comparison
and the latest week-over-week growth per centre. Exits non-zero with a single
error message when the sheet cannot be loaded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runOnce(cmd, a)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(out, report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

// runOnce 执行一次流水线，失败时折叠为一条用户消息
func runOnce(cmd *cobra.Command, a *app) (*model.Report, error) {
	p, err := pipeline.New(a.cfg, pipeline.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	report, err := p.Run(cmd.Context())
	if err != nil {
		return nil, errors.New(pipeline.UserMessage(err))
	}
	return report, nil
}

func printReport(w io.Writer, r *model.Report) error {
	latest, _ := r.Series.Latest()
	fmt.Fprintf(w, "Run %s  rows=%d  latest=%s\n\n", r.RunID, r.Series.Len(), latest.Date)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Centre\t%s\t%s\t%% Change\t\n", r.BaselineLabel, r.CurrentLabel)
	for _, c := range r.Comparisons {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n",
			c.Centre, util.FormatNumber(c.Baseline), util.FormatNumber(c.Latest), util.FormatPercent(c.PercentChange))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Growth.Rows) == 0 {
		return nil
	}
	last := r.Growth.Rows[len(r.Growth.Rows)-1]
	fmt.Fprintf(w, "\nWeek-over-week growth (%s)\n\n", last.Date)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "Column\tGrowth\t\n")
	for i, col := range r.Growth.Columns {
		fmt.Fprintf(tw, "%s\t%s\t\n", col.Header, util.FormatPercent(last.Values[i]))
	}
	return tw.Flush()
}
