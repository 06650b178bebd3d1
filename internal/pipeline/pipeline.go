package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/pfrederiksen/eventscout/internal/event"
	"github.com/pfrederiksen/eventscout/internal/logger"
	"github.com/pfrederiksen/eventscout/internal/metrics"
	"github.com/pfrederiksen/eventscout/internal/scraper"
	"github.com/pfrederiksen/eventscout/internal/storage"
)

// PageFetcher retrieves an event page
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (*scraper.Page, error)
}

// Summarizer classifies an event from its page text. It must not fail;
// problems are reported as an empty summary.
type Summarizer interface {
	Summarize(ctx context.Context, content string) event.Summary
}

// Config holds per-run settings
type Config struct {
	PacingDelay time.Duration
	Metrics     *metrics.Metrics
}

// Pipeline runs the fetch and summarize stages over stored worklists
type Pipeline struct {
	cfg     Config
	fetcher PageFetcher
	sum     Summarizer
	store   *storage.Storage

	wait func(ctx context.Context, d time.Duration) error
}

// New creates a Pipeline. fetcher or sum may be nil when the corresponding
// stage is not used.
func New(cfg Config, fetcher PageFetcher, sum Summarizer, store *storage.Storage) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		sum:     sum,
		store:   store,
		wait:    sleep,
	}
}

// FetchContents fetches the page of every stored overview and writes the
// content records. Stubs whose page cannot be fetched are skipped.
func (p *Pipeline) FetchContents(ctx context.Context) (*Result, error) {
	if p.fetcher == nil {
		return nil, fmt.Errorf("fetch stage requires a page fetcher")
	}

	stubs, err := p.store.LoadOverviews()
	if err != nil {
		return nil, err
	}

	res := newResult(StageFetch, len(stubs))
	defer res.finish()

	contents := []*event.ContentRecord{}
	if err := p.store.SaveContents(contents); err != nil {
		return res, err
	}

	for i, stub := range stubs {
		if err := p.pace(ctx, i); err != nil {
			return res, err
		}

		it := newItem(StageFetch, stub.Index)
		rec := p.fetch(ctx, it, stub)
		if err := interrupted(ctx, it); err != nil {
			return res, err
		}
		if rec != nil {
			contents = append(contents, rec)
			if err := p.store.SaveContents(contents); err != nil {
				return res, err
			}
			it.transition(StatePersisted)
		}
		p.done(res, it)
	}

	return res, ctx.Err()
}

// Summarize summarizes every stored content record and writes the merged
// event records.
func (p *Pipeline) Summarize(ctx context.Context) (*Result, error) {
	if p.sum == nil {
		return nil, fmt.Errorf("summarize stage requires a summarizer")
	}

	contents, err := p.store.LoadContents()
	if err != nil {
		return nil, err
	}

	res := newResult(StageSummarize, len(contents))
	defer res.finish()

	details := []*event.Record{}
	if err := p.store.SaveDetails(details); err != nil {
		return res, err
	}

	for i, content := range contents {
		if err := p.pace(ctx, i); err != nil {
			return res, err
		}

		it := newItem(StageSummarize, content.ID)
		detail := p.summarize(ctx, it, content)
		if err := interrupted(ctx, it); err != nil {
			return res, err
		}
		details = append(details, detail)
		if err := p.store.SaveDetails(details); err != nil {
			return res, err
		}
		it.transition(StatePersisted)
		p.done(res, it)
	}

	return res, ctx.Err()
}

// Run fetches, summarizes and persists each stored overview in a single
// pass, rewriting both the contents and details files after every event.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.fetcher == nil || p.sum == nil {
		return nil, fmt.Errorf("run requires a page fetcher and a summarizer")
	}

	stubs, err := p.store.LoadOverviews()
	if err != nil {
		return nil, err
	}

	res := newResult(StageRun, len(stubs))
	defer res.finish()

	contents := []*event.ContentRecord{}
	details := []*event.Record{}
	if err := p.saveBoth(contents, details); err != nil {
		return res, err
	}

	for i, stub := range stubs {
		if err := p.pace(ctx, i); err != nil {
			return res, err
		}

		it := newItem(StageRun, stub.Index)
		rec := p.fetch(ctx, it, stub)
		if err := interrupted(ctx, it); err != nil {
			return res, err
		}
		if rec != nil {
			detail := p.summarize(ctx, it, rec)
			if err := interrupted(ctx, it); err != nil {
				return res, err
			}
			contents = append(contents, rec)
			details = append(details, detail)
			if err := p.saveBoth(contents, details); err != nil {
				return res, err
			}
			it.transition(StatePersisted)
		}
		p.done(res, it)
	}

	return res, ctx.Err()
}

// fetch moves it through the fetching state. It returns nil and leaves it
// skipped when the page cannot be retrieved.
func (p *Pipeline) fetch(ctx context.Context, it *item, stub *event.Stub) *event.ContentRecord {
	it.transition(StateFetching)

	if !stub.HasURL() {
		logger.Warn("Skipping event without URL", logger.Fields{
			"id":   stub.Index,
			"name": stub.Name,
		})
		it.transition(StateSkipped)
		return nil
	}

	start := time.Now()
	page, err := p.fetcher.FetchPage(ctx, stub.URL)
	p.cfg.Metrics.ObserveFetch(time.Since(start))
	if err != nil {
		logger.Error("Failed to fetch event page", logger.Fields{
			"id":  stub.Index,
			"url": stub.URL,
		}, err)
		it.transition(StateSkipped)
		return nil
	}

	logger.Info("Fetched event page", logger.Fields{
		"id":         stub.Index,
		"name":       stub.Name,
		"structured": page.Structured != nil,
	})
	return event.NewContentRecord(stub, page.Content, page.Structured)
}

func (p *Pipeline) summarize(ctx context.Context, it *item, content *event.ContentRecord) *event.Record {
	it.transition(StateSummarizing)

	summary := p.sum.Summarize(ctx, content.Content)
	logger.Info("Summarized event", logger.Fields{
		"id":     content.ID,
		"name":   content.Name,
		"tags":   len(summary.Tags),
		"status": summary.Status,
		"empty":  summary.IsEmpty(),
	})
	return event.NewRecord(content, summary)
}

func (p *Pipeline) saveBoth(contents []*event.ContentRecord, details []*event.Record) error {
	if err := p.store.SaveContents(contents); err != nil {
		return err
	}
	return p.store.SaveDetails(details)
}

// interrupted returns the context error once a run is cancelled. The item in
// flight is left unsaved and counted as pending.
func interrupted(ctx context.Context, it *item) error {
	err := ctx.Err()
	if err != nil {
		logger.Warn("Run interrupted, discarding unfinished event", logger.Fields{
			"id":    it.id,
			"stage": it.stage,
			"state": string(it.state),
		})
	}
	return err
}

func (p *Pipeline) done(res *Result, it *item) {
	res.record(it)
	p.cfg.Metrics.ItemDone(it.stage, string(it.state))
}

// pace waits the pacing delay before every item but the first
func (p *Pipeline) pace(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index == 0 || p.cfg.PacingDelay <= 0 {
		return nil
	}
	return p.wait(ctx, p.cfg.PacingDelay)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
