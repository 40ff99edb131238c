package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/Ianodad/Vector11/pkg/retry"
	"github.com/Ianodad/Vector11/relevance"
)

const DefaultMaxLinksPerExpansion = 30

// LinkFilter decides whether a discovered link is on topic.
type LinkFilter interface {
	IsLinkRelevant(rawURL, anchor string) bool
}

// Expander turns feed and hub sources into article sources.
type Expander struct {
	fetcher  PageFetcher
	browser  PageFetcher
	links    LinkFilter
	policy   retry.Policy
	maxLinks int
	logger   *zap.Logger
}

// NewExpander builds an Expander. Sources marked render are fetched with
// browser; a nil browser falls back to fetcher.
func NewExpander(fetcher, browser PageFetcher, links LinkFilter, policy retry.Policy, maxLinks int, logger *zap.Logger) *Expander {
	if browser == nil {
		browser = fetcher
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinksPerExpansion
	}
	return &Expander{fetcher: fetcher, browser: browser, links: links, policy: policy, maxLinks: maxLinks, logger: logger}
}

// Expand fetches src and returns at most maxLinks article sources. Fetch and
// parse run inside one retry so a truncated feed body is fetched again.
func (x *Expander) Expand(ctx context.Context, src Source) ([]Source, error) {
	base, err := url.Parse(src.URL)
	if err != nil {
		return nil, fmt.Errorf("parse source url: %w", err)
	}

	fetcher := x.fetcher
	if src.Render {
		fetcher = x.browser
	}
	links, err := retry.Do(ctx, x.policy, "expand "+src.URL, func(ctx context.Context) ([]Link, error) {
		page, err := fetcher.Fetch(ctx, src.URL)
		if err != nil {
			return nil, classifyFetchError(err)
		}
		switch src.Type {
		case TypeRSS:
			links, err := ParseFeed(page.Body, base)
			if errors.Is(err, ErrUnknownFeedFormat) {
				return nil, retry.Permanent(err)
			}
			return links, err
		case TypeHub:
			return DiscoverLinks(page.Body, base)
		}
		return nil, retry.Permanent(fmt.Errorf("source type %q does not expand", src.Type))
	})
	if err != nil {
		return nil, err
	}

	var out []Source
	for _, l := range links {
		if len(out) >= x.maxLinks {
			break
		}
		if relevance.ShouldSkipURL(l.URL) {
			continue
		}
		if x.links != nil && !x.links.IsLinkRelevant(l.URL, l.Title) {
			x.logger.Debug("skipping off-topic link", zap.String("url", l.URL))
			continue
		}
		out = append(out, src.child(l))
	}

	x.logger.Info("expanded source",
		zap.String("url", src.URL),
		zap.String("type", string(src.Type)),
		zap.Int("found", len(links)),
		zap.Int("kept", len(out)),
	)
	return out, nil
}

// classifyFetchError marks client errors other than timeouts and rate limits
// as not worth retrying.
func classifyFetchError(err error) error {
	var se *StatusError
	if errors.As(err, &se) && !se.Retryable() {
		return retry.Permanent(err)
	}
	return err
}
