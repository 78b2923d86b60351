package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fleda/internal/config"
	"fleda/internal/models"
	"fleda/internal/sanity"
)

// BatchSize is the number of mutations sent per CMS transaction.
const BatchSize = 150

// EventSource lists the events of one calendar inside a window.
type EventSource interface {
	ListEvents(ctx context.Context, calendarID string, window config.Window) ([]*models.GoogleEvent, error)
}

// SourceFactory builds an EventSource for the credentials of one run.
type SourceFactory func(ctx context.Context, auth config.GoogleAuth) (EventSource, error)

// Mutator writes one transaction to the CMS.
type Mutator interface {
	Mutate(ctx context.Context, mutations []sanity.Mutation) (*sanity.MutateResult, error)
}

// Syncer copies Google Calendar events into CMS draft documents.
type Syncer struct {
	logger    *slog.Logger
	newSource SourceFactory
	store     Mutator
	location  *time.Location
	dryRun    bool
	now       func() time.Time
}

// Option customises a Syncer.
type Option func(*Syncer)

// WithDryRun builds mutations without writing them.
func WithDryRun(dryRun bool) Option {
	return func(s *Syncer) { s.dryRun = dryRun }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// NewSyncer creates a new Syncer. loc is the venue timezone used to derive
// program dates and times.
func NewSyncer(logger *slog.Logger, newSource SourceFactory, store Mutator, loc *time.Location, opts ...Option) *Syncer {
	s := &Syncer{
		logger:    logger,
		newSource: newSource,
		store:     store,
		location:  loc,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CalendarSummary reports what one source contributed.
type CalendarSummary struct {
	ID       string        `json:"id"`
	Label    *string       `json:"label"`
	Venue    *models.Venue `json:"venue"`
	Imported int           `json:"imported"`
}

// WindowSummary is the fetched range rendered as RFC 3339.
type WindowSummary struct {
	TimeMin string `json:"timeMin"`
	TimeMax string `json:"timeMax"`
}

// Result summarises one sync run.
type Result struct {
	Calendars []CalendarSummary `json:"calendars"`
	Imported  int               `json:"imported"`
	Mutations int               `json:"mutations"`
	Window    WindowSummary     `json:"window"`
	DryRun    bool              `json:"dryRun,omitempty"`
}

type sourceEvents struct {
	source config.CalendarSource
	events []*models.GoogleEvent
}

// Sync performs a full synchronization cycle. Sources are fetched in
// parallel; nothing is written unless every fetch succeeded. Batches are
// written in order and the first failing batch stops the run.
func (s *Syncer) Sync(ctx context.Context, cfg config.SyncConfig) (*Result, error) {
	s.logger.Info("Starting sync cycle.", "sources", len(cfg.Sources), "timeMin", cfg.Window.TimeMin, "timeMax", cfg.Window.TimeMax)

	fetched, err := s.fetchAll(ctx, cfg)
	if err != nil {
		return nil, err
	}

	syncedAt := s.now().UTC().Format(time.RFC3339)
	result := &Result{
		Window: WindowSummary{
			TimeMin: cfg.Window.TimeMin.UTC().Format(time.RFC3339),
			TimeMax: cfg.Window.TimeMax.UTC().Format(time.RFC3339),
		},
		DryRun: s.dryRun,
	}

	var mutations []sanity.Mutation
	for _, entry := range fetched {
		result.Calendars = append(result.Calendars, summarize(entry))
		result.Imported += len(entry.events)
		for _, ev := range entry.events {
			muts := eventMutations(entry.source, ev, s.location, syncedAt)
			if muts == nil {
				s.logger.Debug("Skipping event without program date", "calendarID", entry.source.ID, "eventID", ev.ID)
				continue
			}
			mutations = append(mutations, muts...)
		}
	}
	result.Mutations = len(mutations)

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would submit mutations", "imported", result.Imported, "mutations", result.Mutations)
		return result, nil
	}

	if err := s.submit(ctx, mutations); err != nil {
		return nil, err
	}

	s.logger.Info("Sync cycle finished.", "imported", result.Imported, "mutations", result.Mutations)
	return result, nil
}

// fetchAll fetches every source concurrently and keeps the configured order.
func (s *Syncer) fetchAll(ctx context.Context, cfg config.SyncConfig) ([]sourceEvents, error) {
	source, err := s.newSource(ctx, cfg.Google)
	if err != nil {
		return nil, err
	}

	fetched := make([]sourceEvents, len(cfg.Sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range cfg.Sources {
		g.Go(func() error {
			events, err := source.ListEvents(gctx, src.ID, cfg.Window)
			if err != nil {
				return err
			}
			kept := make([]*models.GoogleEvent, 0, len(events))
			for _, ev := range events {
				if keepEvent(ev) {
					kept = append(kept, ev)
				}
			}
			fetched[i] = sourceEvents{source: src, events: kept}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fetched, nil
}

// submit writes mutations in fixed-size batches, one after another.
func (s *Syncer) submit(ctx context.Context, mutations []sanity.Mutation) error {
	batches := sanity.Chunk(mutations, BatchSize)
	for i, batch := range batches {
		res, err := s.store.Mutate(ctx, batch)
		if err != nil {
			s.logger.Error("Mutation batch failed", "batch", i+1, "of", len(batches), "error", err)
			return fmt.Errorf("mutation batch %d/%d: %w", i+1, len(batches), err)
		}
		var txID string
		if res != nil {
			txID = res.TransactionID
		}
		s.logger.Debug("Mutation batch committed", "batch", i+1, "of", len(batches), "size", len(batch), "transactionId", txID)
	}
	return nil
}

func summarize(entry sourceEvents) CalendarSummary {
	sum := CalendarSummary{ID: entry.source.ID, Imported: len(entry.events)}
	if entry.source.Label != "" {
		label := entry.source.Label
		sum.Label = &label
	}
	if entry.source.Venue != "" {
		venue := entry.source.Venue
		sum.Venue = &venue
	}
	return sum
}
