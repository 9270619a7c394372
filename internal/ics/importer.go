package ics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "github.com/Nhatnguyen0000/Choir-sub000/internal/log"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/metrics"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/model"
	"github.com/Nhatnguyen0000/Choir-sub000/internal/store"
)

// ImportStats summarises one feed import.
type ImportStats struct {
	Feed      string `json:"feed"`
	Added     int    `json:"added"`
	Updated   int    `json:"updated"`
	Removed   int    `json:"removed"`
	Unchanged int    `json:"unchanged"`
	Failed    int    `json:"failed"`
}

// Importer keeps the schedule in step with the configured feeds. Entries
// are keyed by FeedEventID, so repeated imports update in place, and
// entries that vanished from a feed are deleted.
type Importer struct {
	fetcher *Fetcher
	store   *store.Store
	feeds   []Source
	loc     *time.Location

	mu sync.Mutex // one refresh at a time
}

func NewImporter(fetcher *Fetcher, st *store.Store, feeds []Source, loc *time.Location) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{fetcher: fetcher, store: st, feeds: feeds, loc: loc}
}

// Refresh fetches and imports every feed. A failing feed does not stop the
// others; all errors are joined.
func (im *Importer) Refresh(ctx context.Context) ([]ImportStats, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	results, errs := im.fetcher.FetchAll(ctx, im.feeds)
	fetched := make(map[string]bool, len(results))
	stats := make([]ImportStats, 0, len(results))

	for _, res := range results {
		fetched[res.Source.ID] = true
		st, err := im.importBody(ctx, res.Source, res.Body)
		metrics.RecordFeedImport(res.Source.ID, err == nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", res.Source.ID, err))
		}
		stats = append(stats, st)
	}
	for _, src := range im.feeds {
		if !fetched[src.ID] {
			metrics.RecordFeedImport(src.ID, false)
		}
	}
	return stats, errors.Join(errs...)
}

// Import parses body as the content of src and applies it to the store.
func (im *Importer) Import(ctx context.Context, src Source, body []byte) (ImportStats, error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.importBody(ctx, src, body)
}

func (im *Importer) importBody(ctx context.Context, src Source, body []byte) (ImportStats, error) {
	stats := ImportStats{Feed: src.ID}

	parsed, err := ParseICS(src, body, im.loc)
	if err != nil {
		return stats, err
	}
	incoming := ToScheduleEvents(parsed, im.loc)

	var (
		pending []*store.Task[model.ScheduleEvent]
		errs    []error
	)
	keep := make(map[string]bool, len(incoming))
	for _, ev := range incoming {
		keep[ev.ID] = true
		existing, ok := im.store.Event(ev.ID)
		if ok && existing == ev {
			stats.Unchanged++
			continue
		}
		task, err := im.store.SaveEvent(ev)
		if err != nil {
			stats.Failed++
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
			continue
		}
		if ok {
			stats.Updated++
		} else {
			stats.Added++
		}
		pending = append(pending, task)
	}

	for _, ev := range im.store.Events() {
		if ev.Source != src.ID || keep[ev.ID] {
			continue
		}
		task, err := im.store.DeleteEvent(ev.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
			continue
		}
		stats.Removed++
		pending = append(pending, task)
	}

	for _, task := range pending {
		if _, err := task.Wait(ctx); err != nil {
			stats.Failed++
			errs = append(errs, err)
		}
	}

	appLog.Info("feed imported", "feed", src.ID,
		"added", stats.Added, "updated", stats.Updated, "removed", stats.Removed,
		"unchanged", stats.Unchanged, "failed", stats.Failed)
	return stats, errors.Join(errs...)
}

// Start runs Refresh on the cron spec until ctx is done. The returned stop
// func waits for a running refresh to finish.
func (im *Importer) Start(ctx context.Context, spec string) (stop func(), err error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(im.loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() {
		if _, err := im.Refresh(ctx); err != nil {
			appLog.Error("scheduled feed refresh failed", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("feed refresh scheduled", "spec", spec, "feeds", len(im.feeds))

	return func() { <-c.Stop().Done() }, nil
}

// cronLogger routes cron's own messages into the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}
