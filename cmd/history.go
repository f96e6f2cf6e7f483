package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/prodplan/config"
	"github.com/kilianp07/prodplan/core/runlog"
)

var (
	historyStatus string
	historyLimit  int
	historySince  time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded plan runs",
	RunE:  listHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only runs with this status: ok, conflict, invalid or error")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of most recent runs, 0 for all")
	historyCmd.Flags().DurationVar(&historySince, "since", 0, "only runs newer than this duration")
	rootCmd.AddCommand(historyCmd)
}

func listHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := runlog.Open(cfg.RunLog)
	if err != nil {
		return err
	}
	defer store.Close()

	q := runlog.Query{Status: historyStatus, Limit: historyLimit}
	if historySince > 0 {
		q.Start = time.Now().Add(-historySince)
	}
	recs, err := store.Query(context.Background(), q)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
