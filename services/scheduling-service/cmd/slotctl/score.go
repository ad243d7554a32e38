package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/scoring"
)

func newScoreCmd() *cobra.Command {
	var (
		at        string
		reference string
		duration  int
		timezone  string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a single slot start against a reference time",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(timezone)
			if err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
			start, err := parseTime(at, loc)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
			ref := time.Now()
			if reference != "" {
				if ref, err = parseTime(reference, loc); err != nil {
					return fmt.Errorf("--reference: %w", err)
				}
			}
			start = start.In(loc)
			slot := availability.Slot{Start: start, End: start.Add(time.Duration(duration) * time.Minute)}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", scoring.Score(slot, ref))
			return err
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "slot start time")
	cmd.Flags().StringVar(&reference, "reference", "", "reference time (default now)")
	cmd.Flags().IntVarP(&duration, "duration", "d", 30, "slot duration in minutes")
	cmd.Flags().StringVar(&timezone, "timezone", "UTC", "IANA zone for naive times and hour rules")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}
