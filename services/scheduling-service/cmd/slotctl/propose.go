package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/calendar"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/proposer"
)

type proposeOptions struct {
	windows  []string
	duration int
	busyPath string
	timezone string
	limit    int
	jsonOut  bool
}

func newProposeCmd() *cobra.Command {
	var opts proposeOptions
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Propose ranked slots inside one or more windows",
		Long: `Propose ranked meeting slots.

Examples:
  # Two candidate windows, 30 minute meeting, busy times from YAML
  slotctl propose --window 2024-01-15T09:00/2024-01-15T17:00 \
    --window 2024-01-16T09:00/2024-01-16T12:00 --duration 30 --busy busy.yaml

  # Busy times from an exported calendar, shown in Kolkata time
  slotctl propose --window 2024-01-15T09:00:00Z/2024-01-15T18:00:00Z \
    --duration 45 --busy work.ics --timezone Asia/Kolkata --json
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPropose(cmd, opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.windows, "window", "w", nil, "preferred window START/END (repeatable)")
	cmd.Flags().IntVarP(&opts.duration, "duration", "d", 30, "meeting duration in minutes")
	cmd.Flags().StringVar(&opts.busyPath, "busy", "", "busy intervals file (.yaml or .ics)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "UTC", "IANA zone for naive times and output")
	cmd.Flags().IntVar(&opts.limit, "limit", 3, "maximum number of slots")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON instead of a table")
	return cmd
}

func runPropose(cmd *cobra.Command, opts proposeOptions) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	if len(opts.windows) == 0 {
		return fmt.Errorf("at least one --window is required")
	}
	windows := make([]availability.Window, 0, len(opts.windows))
	for _, raw := range opts.windows {
		w, err := parseWindow(raw, loc)
		if err != nil {
			return err
		}
		windows = append(windows, w)
	}

	provider := calendar.NewStatic()
	if opts.busyPath != "" {
		timeMin, timeMax := span(windows)
		busy, err := loadBusy(opts.busyPath, timeMin, timeMax, loc)
		if err != nil {
			return err
		}
		provider.SetBusy(calendar.AnyIdentity, busy...)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	p := proposer.New(provider, proposer.Options{
		MaxResults: opts.limit,
		Location:   loc,
		Logger:     logger,
	})
	slots, err := p.Propose(cmd.Context(), "slotctl", opts.duration, windows)
	if err != nil {
		return err
	}
	if opts.jsonOut {
		return writeSlotsJSON(cmd.OutOrStdout(), slots)
	}
	return writeSlotsTable(cmd.OutOrStdout(), slots)
}

// span returns the earliest start and latest end across windows.
func span(windows []availability.Window) (time.Time, time.Time) {
	lo, hi := windows[0].Start, windows[0].End
	for _, w := range windows[1:] {
		if w.Start.Before(lo) {
			lo = w.Start
		}
		if w.End.After(hi) {
			hi = w.End
		}
	}
	return lo, hi
}

type slotOutput struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Score float64 `json:"score"`
}

func writeSlotsJSON(w io.Writer, slots []availability.Slot) error {
	out := make([]slotOutput, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotOutput{
			Start: s.Start.Format(time.RFC3339),
			End:   s.End.Format(time.RFC3339),
			Score: s.Score,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"slots": out})
}

func writeSlotsTable(w io.Writer, slots []availability.Slot) error {
	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "no free slots")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTART\tEND\tSCORE")
	for i, s := range slots {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.3f\n", i+1,
			s.Start.Format("Mon 2006-01-02 15:04 MST"), s.End.Format("15:04"), s.Score)
	}
	return tw.Flush()
}
