package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prodplan/pkg/export"
)

var (
	planFormat string
	planOutput string
	planYear   int
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run one annual plan and write the result",
	Long: `Run one annual plan from the configured parameters and demand sources.

The csv format writes one row per day, json the full result, yaml the run
summary and html an inventory chart. On a demand conflict the partial result
is still written and the command exits with an error.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", export.FormatCSV, "output format: csv, json, yaml or html")
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "output file, stdout when empty")
	planCmd.Flags().IntVar(&planYear, "year", 0, "override the planning year")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	format, err := export.ParseFormat(planFormat)
	if err != nil {
		return err
	}
	cfg, svc, err := loadService()
	if err != nil {
		return err
	}
	defer closeService(svc)

	if planYear != 0 {
		cfg.Plan.Year = planYear
	}
	req, err := cfg.Plan.Request()
	if err != nil {
		return err
	}
	res, planErr := svc.Plan(ctx, req)
	if res == nil {
		return planErr
	}

	var out io.Writer = cmd.OutOrStdout()
	if planOutput != "" {
		f, err := os.Create(planOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	if err := export.Write(out, format, res); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return planErr
}
