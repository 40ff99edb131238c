package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/pkg/chunking"
	"github.com/Ianodad/Vector11/pkg/retry"
	"github.com/Ianodad/Vector11/repository"
)

// ContentGate is the quality filter applied to extracted page text.
type ContentGate interface {
	IsAcceptable(text string) bool
	IsAccessBlocked(text string) bool
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, label string, texts []string) ([][]float32, error)
	TokensUsed() int64
}

type URLChecker interface {
	HasURL(ctx context.Context, url string) (bool, error)
}

type Options struct {
	// MaxURLs caps the number of pages processed in one run. Zero means no cap.
	MaxURLs int
	// SkipExisting skips pages whose URL is already in the store.
	SkipExisting         bool
	MaxLinksPerExpansion int
	Retry                retry.Policy
}

type Deps struct {
	Fetcher PageFetcher
	// Browser renders sources marked render. Nil falls back to Fetcher.
	Browser   PageFetcher
	Extractor TextExtractor
	Gate      ContentGate
	Links     LinkFilter
	Chunker   *chunking.Chunker
	Embedder  Embedder
	Writer    *repository.Writer
	Store     URLChecker
	Logger    *zap.Logger
}

// Crawler drains a queue of sources one entry at a time: fetch, filter, chunk,
// embed and write, pausing for the source's delay after every entry.
type Crawler struct {
	fetcher   PageFetcher
	browser   PageFetcher
	extractor TextExtractor
	gate      ContentGate
	chunker   *chunking.Chunker
	embedder  Embedder
	writer    *repository.Writer
	store     URLChecker
	expander  *Expander
	opts      Options
	logger    *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewCrawler(d Deps, opts Options) *Crawler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = retry.DefaultPolicy(logger)
	}
	if opts.Retry.Logger == nil {
		opts.Retry.Logger = logger
	}
	browser := d.Browser
	if browser == nil {
		browser = d.Fetcher
	}
	extractor := d.Extractor
	if extractor == nil {
		extractor = NewExtractor(logger)
	}

	return &Crawler{
		fetcher:   d.Fetcher,
		browser:   browser,
		extractor: extractor,
		gate:      d.Gate,
		chunker:   d.Chunker,
		embedder:  d.Embedder,
		writer:    d.Writer,
		store:     d.Store,
		expander:  NewExpander(d.Fetcher, browser, d.Links, opts.Retry, opts.MaxLinksPerExpansion, logger),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run ingests sources and always returns a summary. The error is non-nil only
// when ctx was cancelled; per-page failures are counted, not returned.
func (c *Crawler) Run(ctx context.Context, sources []Source) (Summary, error) {
	return c.run(ctx, sources, c.opts.SkipExisting)
}

// Refresh is Run with SkipExisting forced on, for scheduled incremental runs
// over feeds.
func (c *Crawler) Refresh(ctx context.Context, feeds []Source) (Summary, error) {
	return c.run(ctx, feeds, true)
}

func (c *Crawler) run(ctx context.Context, sources []Source, skipExisting bool) (Summary, error) {
	state := NewRunState(c.now())
	ctx = WithRunID(ctx, state.RunID)
	logger := ContextLogger(ctx, c.logger)
	startTokens := c.tokensUsed()

	queue := &Queue{}
	for _, src := range sources {
		for _, v := range src.Variants() {
			if state.MarkSeen(v.URL) {
				queue.Push(NewEntry(v))
			}
		}
	}
	logger.Info("ingestion started",
		zap.Int("sources", len(sources)),
		zap.Int("queued", queue.Len()),
		zap.Int("max_urls", c.opts.MaxURLs),
		zap.Bool("skip_existing", skipExisting),
	)

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		entry, ok := queue.Pop()
		if !ok {
			break
		}

		var outcome Outcome
		switch e := entry.(type) {
		case ExpandEntry:
			var found []Source
			outcome, found = c.expand(ctx, e.Src)
			for _, s := range found {
				if state.MarkSeen(s.URL) {
					queue.Push(NewEntry(s))
				}
			}
		case FetchEntry:
			if c.opts.MaxURLs > 0 && state.Processed() >= c.opts.MaxURLs {
				state.recordCapped()
				logger.Debug("url cap reached, not processing", zap.String("url", e.Src.URL))
				continue
			}
			outcome = c.process(ctx, e.Src, skipExisting)
		}

		state.Record(outcome)
		c.logOutcome(logger, outcome)

		if err := c.sleep(ctx, entry.Source().DelayDuration()); err != nil {
			runErr = err
			break
		}
	}

	summary := state.Summary(c.now(), c.tokensUsed()-startTokens)
	logger.Info("ingestion finished",
		zap.Int("done", summary.Done),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.Int("expanded", summary.Expanded),
		zap.Int("not_processed", summary.NotProcessed),
		zap.Int("parents_inserted", summary.ParentsInserted),
		zap.Int("children_inserted", summary.ChildrenInserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int64("tokens", summary.TokensUsed),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, runErr
}

func (c *Crawler) tokensUsed() int64 {
	if c.embedder == nil {
		return 0
	}
	return c.embedder.TokensUsed()
}

func (c *Crawler) expand(ctx context.Context, src Source) (Outcome, []Source) {
	found, err := c.expander.Expand(ctx, src)
	if err != nil {
		return Outcome{URL: src.URL, Final: StageFailed, At: StageExpanding, Reason: "expansion failed", Err: err}, nil
	}
	return Outcome{URL: src.URL, Final: StageDone, At: StageExpanding, Links: len(found)}, found
}

func skipped(url string, at Stage, reason string) Outcome {
	return Outcome{URL: url, Final: StageSkipped, At: at, Reason: reason}
}

func failed(url string, at Stage, err error) Outcome {
	return Outcome{URL: url, Final: StageFailed, At: at, Err: err}
}

func (c *Crawler) process(ctx context.Context, src Source, skipExisting bool) Outcome {
	if skipExisting && c.store != nil {
		exists, err := c.store.HasURL(ctx, src.URL)
		if err != nil {
			return failed(src.URL, StagePending, err)
		}
		if exists {
			return skipped(src.URL, StagePending, "already ingested")
		}
	}

	fetcher := c.fetcher
	if src.Render {
		fetcher = c.browser
	}
	page, err := retry.Do(ctx, c.opts.Retry, "fetch "+src.URL, func(ctx context.Context) (*Page, error) {
		page, err := fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, classifyFetchError(err)
		}
		return page, nil
	})
	if err != nil {
		return failed(src.URL, StageFetching, err)
	}

	profile := chunking.ProfileFor(src.Category, src.Host())
	content, err := c.extractor.Extract(page.Body, src.URL, profile.Name == chunking.StatsProfile.Name)
	if err != nil {
		if errors.Is(err, ErrNoContent) {
			return skipped(src.URL, StageFiltering, "empty content")
		}
		return skipped(src.URL, StageFiltering, "extraction failed: "+err.Error())
	}
	if c.gate.IsAccessBlocked(content.Text) {
		return skipped(src.URL, StageFiltering, "access blocked")
	}
	if !c.gate.IsAcceptable(content.Text) {
		return skipped(src.URL, StageFiltering, "low quality content")
	}

	parents := c.chunker.Build(content.Text, profile)
	if len(parents) == 0 {
		return skipped(src.URL, StageChunking, "no valid chunks")
	}

	texts := make([]string, 0, chunking.CountChildren(parents))
	for _, p := range parents {
		for _, ch := range p.Children {
			texts = append(texts, ch.Text)
		}
	}
	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = c.embedder.EmbedDocuments(ctx, src.DisplayLabel(), texts)
		if err != nil {
			return failed(src.URL, StageEmbedding, err)
		}
		if len(vectors) != len(texts) {
			return failed(src.URL, StageEmbedding, fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(texts)))
		}
	}

	parentDocs, childDocs := buildDocuments(src, parents, vectors, c.now())

	pres, err := c.writer.WriteParents(ctx, parentDocs)
	if err != nil {
		return failed(src.URL, StageWriting, err)
	}
	cres, err := c.writer.WriteChildren(ctx, childDocs)
	if err != nil {
		return failed(src.URL, StageWriting, err)
	}

	return Outcome{
		URL:      src.URL,
		Final:    StageDone,
		At:       StageWriting,
		Parents:  pres.Inserted,
		Children: cres.Inserted,
		Dups:     pres.Duplicates + cres.Duplicates,
	}
}

// buildDocuments pairs children with their vectors in the order they were
// embedded.
func buildDocuments(src Source, parents []chunking.Parent, vectors [][]float32, scrapedAt time.Time) ([]repository.ParentDoc, []repository.ChildDoc) {
	label := src.DisplayLabel()
	parentDocs := make([]repository.ParentDoc, 0, len(parents))
	childDocs := make([]repository.ChildDoc, 0, len(vectors))

	i := 0
	for _, p := range parents {
		parentDocs = append(parentDocs, repository.ParentDoc{
			ID:        p.ID,
			Content:   p.Text,
			Source:    label,
			URL:       src.URL,
			Category:  src.Category,
			ScrapedAt: scrapedAt,
		})
		for _, ch := range p.Children {
			childDocs = append(childDocs, repository.ChildDoc{
				ID:        ch.ID,
				ParentID:  ch.ParentID,
				Content:   ch.Text,
				Source:    label,
				URL:       src.URL,
				Category:  src.Category,
				ScrapedAt: scrapedAt,
				Vector:    vectors[i],
			})
			i++
		}
	}
	return parentDocs, childDocs
}

func (c *Crawler) logOutcome(logger *zap.Logger, o Outcome) {
	fields := []zap.Field{
		zap.String("url", o.URL),
		zap.String("status", o.Final.String()),
		zap.String("stage", o.At.String()),
	}
	switch o.Final {
	case StageDone:
		if o.At == StageExpanding {
			logger.Info("expanded", append(fields, zap.Int("links", o.Links))...)
			return
		}
		logger.Info("ingested", append(fields,
			zap.Int("parents_inserted", o.Parents),
			zap.Int("children_inserted", o.Children),
			zap.Int("duplicates", o.Dups),
		)...)
	case StageSkipped:
		logger.Info("skipped", append(fields, zap.String("reason", o.Reason))...)
	case StageFailed:
		logger.Warn("failed", append(fields, zap.Error(o.Err))...)
	}
}
