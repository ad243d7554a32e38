// Package proposer turns preferred windows into a short ranked list of
// meeting slots.
package proposer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	otelx "github.com/md-rashed-zaman/meetsched/libs/otel"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/meetsched/services/scheduling-service/internal/scoring"
)

// ErrValidation marks a request the proposer refuses before any provider call.
var ErrValidation = errors.New("invalid proposal request")

const (
	defaultFetchTimeout   = 5 * time.Second
	defaultMaxConcurrency = 4
	defaultMaxResults     = 3
)

// BusyProvider returns busy intervals for identity within [timeMin, timeMax].
type BusyProvider interface {
	BusyIntervals(ctx context.Context, identity string, timeMin, timeMax time.Time) ([]availability.Interval, error)
}

type Options struct {
	// FetchTimeout bounds each per-window provider call.
	FetchTimeout   time.Duration
	MaxConcurrency int
	MaxResults     int
	// Location, when set, is the zone slots are scored and returned in.
	Location *time.Location
	Logger   *slog.Logger
	Metrics  *Metrics
}

type Proposer struct {
	provider BusyProvider
	opts     Options
	tracer   trace.Tracer
	now      func() time.Time
}

func New(provider BusyProvider, opts Options) *Proposer {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = defaultMaxResults
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Proposer{
		provider: provider,
		opts:     opts,
		tracer:   otelx.Tracer("scheduling-service/proposer"),
		now:      time.Now,
	}
}

// WithLocation returns a copy of p that scores and returns slots in loc.
func (p *Proposer) WithLocation(loc *time.Location) *Proposer {
	cp := *p
	cp.opts.Location = loc
	return &cp
}

// Propose returns at most MaxResults free slots of durationMinutes across
// windows, best score first. Ties keep window order then chronological order.
// A window whose busy data cannot be fetched is treated as entirely free.
func (p *Proposer) Propose(ctx context.Context, identity string, durationMinutes int, windows []availability.Window) ([]availability.Slot, error) {
	if err := validate(identity, durationMinutes, windows); err != nil {
		p.opts.Metrics.observeProposal("invalid")
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "proposer.Propose", trace.WithAttributes(
		attribute.Int("proposal.duration_minutes", durationMinutes),
		attribute.Int("proposal.windows", len(windows)),
	))
	defer span.End()

	duration := time.Duration(durationMinutes) * time.Minute
	perWindow := make([][]availability.Slot, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.MaxConcurrency)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			busy := p.fetchBusy(gctx, span, identity, i, w)
			perWindow[i] = availability.FindFreeSlots(w.Start, w.End, busy, duration)
			return nil
		})
	}
	// Fetch errors are absorbed per window, so Wait never reports one.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.opts.Metrics.observeProposal("cancelled")
		return nil, err
	}

	var candidates []availability.Slot
	for _, slots := range perWindow {
		candidates = append(candidates, slots...)
	}
	p.opts.Metrics.observeCandidates(len(candidates))

	reference := windows[0].Start
	for i := range candidates {
		if p.opts.Location != nil {
			candidates[i].Start = candidates[i].Start.In(p.opts.Location)
			candidates[i].End = candidates[i].End.In(p.opts.Location)
		}
		candidates[i].Score = scoring.Score(candidates[i], reference)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > p.opts.MaxResults {
		candidates = candidates[:p.opts.MaxResults]
	}

	span.SetAttributes(attribute.Int("proposal.slots", len(candidates)))
	if len(candidates) == 0 {
		p.opts.Metrics.observeProposal("empty")
		return []availability.Slot{}, nil
	}
	p.opts.Metrics.observeProposal("ok")
	return candidates, nil
}

func (p *Proposer) fetchBusy(ctx context.Context, span trace.Span, identity string, idx int, w availability.Window) []availability.Interval {
	fctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()

	started := p.now()
	busy, err := p.provider.BusyIntervals(fctx, identity, w.Start, w.End)
	p.opts.Metrics.observeFetch(p.now().Sub(started).Seconds())
	if err == nil {
		return busy
	}

	reason := "error"
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(fctx.Err(), context.DeadlineExceeded) {
		reason = "timeout"
	}
	p.opts.Metrics.observeFetchFailure(reason)
	span.AddEvent("busy fetch failed", trace.WithAttributes(
		attribute.Int("window.index", idx),
		attribute.String("reason", reason),
		attribute.String("error", err.Error()),
	))
	p.opts.Logger.WarnContext(ctx, "busy fetch failed, treating window as free",
		"window_index", idx,
		"window_start", w.Start.Format(time.RFC3339),
		"window_end", w.End.Format(time.RFC3339),
		"reason", reason,
		"error", err,
	)
	return nil
}

func validate(identity string, durationMinutes int, windows []availability.Window) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", ErrValidation)
	}
	if durationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %d", ErrValidation, durationMinutes)
	}
	if len(windows) == 0 {
		return fmt.Errorf("%w: at least one preferred window is required", ErrValidation)
	}
	for i, w := range windows {
		if !w.Valid() {
			return fmt.Errorf("%w: window %d must start before it ends", ErrValidation, i)
		}
	}
	return nil
}
