package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/storage"
	"go.uber.org/zap"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type HTTPFetcherConfig struct {
	UserAgent string
	Timeout   time.Duration
	ProxyURL  string
	// Storage persists cookies between runs. Nil keeps them in memory.
	Storage storage.Storage
}

// HTTPFetcher fetches static pages and feeds with colly. Every Fetch runs on a
// clone of the base collector so callbacks never leak between requests.
type HTTPFetcher struct {
	base   *colly.Collector
	logger *zap.Logger
}

func NewHTTPFetcher(cfg HTTPFetcherConfig, logger *zap.Logger) (*HTTPFetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	c.SetRequestTimeout(cfg.Timeout)

	if cfg.ProxyURL != "" {
		if err := c.SetProxy(cfg.ProxyURL); err != nil {
			return nil, fmt.Errorf("set proxy: %w", err)
		}
	}
	if cfg.Storage != nil {
		if err := c.SetStorage(cfg.Storage); err != nil {
			return nil, fmt.Errorf("set storage: %w", err)
		}
	}

	return &HTTPFetcher{base: c, logger: logger}, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := f.base.Clone()
	var (
		page     *Page
		fetchErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.9")
	})
	c.OnResponse(func(r *colly.Response) {
		page = &Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       r.Body,
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			fetchErr = &StatusError{URL: url, Code: r.StatusCode}
			return
		}
		fetchErr = err
	})

	visitErr := c.Visit(url)
	c.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	if visitErr != nil {
		return nil, visitErr
	}
	if page == nil {
		return nil, errors.New("fetch " + url + ": no response")
	}

	f.logger.Debug("fetched page",
		zap.String("url", url),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
	)
	return page, nil
}
