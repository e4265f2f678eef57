package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enrollboard/internal/exporter"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		output     string
		skipCharts bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Run the pipeline once and write an xlsx workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runOnce(cmd, a)
			if err != nil {
				return err
			}
			if output == "" {
				output = exporter.Filename(report)
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}

			exp := exporter.NewExporter(a.cfg.Server.Title)
			err = exp.Write(f, report, exporter.ExportOptions{
				SkipCharts: skipCharts,
				Progress: func(e exporter.ProgressEvent) {
					a.logger.Debug("Export progress", zap.Int("percent", e.Percent), zap.String("stage", e.Stage))
				},
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				_ = os.Remove(output)
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: enrollment-report-<timestamp>.xlsx)")
	cmd.Flags().BoolVar(&skipCharts, "no-charts", false, "omit the Charts sheet")
	return cmd
}
