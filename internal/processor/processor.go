package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pauljones0/shift-code-watcher/internal/config"
	"github.com/pauljones0/shift-code-watcher/internal/delta"
	"github.com/pauljones0/shift-code-watcher/internal/models"
	"github.com/pauljones0/shift-code-watcher/internal/scraper"
)

type Processor interface {
	Run(ctx context.Context) (RunResult, error)
}

// RunResult summarizes one run.
type RunResult struct {
	NewCount  int
	NewCodes  []models.CodeRecord
	Notified  bool
	FirstRun  bool
	Extracted int
	Known     int
}

type CodeProcessor struct {
	store    KnownSetStore
	notifier CodeNotifier
	scraper  scraper.Scraper
	config   *config.Config
	now      func() time.Time
}

func New(store KnownSetStore, n CodeNotifier, s scraper.Scraper, cfg *config.Config) *CodeProcessor {
	return &CodeProcessor{
		store:    store,
		notifier: n,
		scraper:  s,
		config:   cfg,
		now:      time.Now,
	}
}

// Run scrapes the page, diffs it against the known set, notifies about new
// codes and persists the merged set. A scrape or load failure returns before
// any state is written.
func (p *CodeProcessor) Run(ctx context.Context) (RunResult, error) {
	records, err := p.scraper.ScrapeCodes(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to scrape codes: %w", err)
	}

	known, err := p.store.Load(ctx)
	if err != nil {
		return RunResult{}, fmt.Errorf("failed to load known codes: %w", err)
	}
	firstRun := known.Len() == 0
	if firstRun {
		slog.Info("No known codes yet, treating this as the first run")
	}

	diff := delta.Diff(records, known, p.now().UTC())
	result := RunResult{
		NewCount:  len(diff.New),
		NewCodes:  diff.New,
		FirstRun:  firstRun,
		Extracted: len(records),
		Known:     diff.Updated.Len(),
	}
	slog.Info("Compared page against known codes", "extracted", len(records), "new", len(diff.New), "known", known.Len())

	switch {
	case len(diff.New) == 0:
		slog.Info("No new codes found")
	case firstRun && p.config.SuppressFirstRun:
		slog.Info("First run, recording codes without notifying", "codes", len(diff.New))
	default:
		if err := p.notifier.Send(ctx, p.config.RecipientEmail, diff.New); err != nil {
			if p.config.RequireDelivery {
				slog.Error("Notification failed, leaving known codes unchanged so the next run retries", "error", err)
				return result, err
			}
			slog.Warn("Notification failed, saving known codes anyway", "error", err)
		} else {
			result.Notified = true
		}
	}

	if p.config.DryRun {
		slog.Info("Dry run, known codes not saved", "known", result.Known)
		return result, nil
	}

	if err := p.store.Save(ctx, diff.Updated); err != nil {
		return result, fmt.Errorf("failed to save known codes: %w", err)
	}
	slog.Info("Saved known codes", "count", result.Known)
	return result, nil
}
