package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserFetcher renders JavaScript-heavy pages in headless Chrome.
type BrowserFetcher struct {
	logger            *zap.Logger
	navigationTimeout time.Duration
	settle            time.Duration
	ChromedpOptions   []chromedp.ExecAllocatorOption
}

func NewBrowserFetcher(logger *zap.Logger, proxyURL string, navigationTimeout time.Duration) *BrowserFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if navigationTimeout <= 0 {
		navigationTimeout = 45 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(DefaultUserAgent),

		// Stealth options
		chromedp.Flag("accept-language", "en-GB,en;q=0.9"),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", true),
	)
	if proxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(proxyURL))
	}

	return &BrowserFetcher{
		logger:            logger,
		navigationTimeout: navigationTimeout,
		settle:            2 * time.Second,
		ChromedpOptions:   opts,
	}
}

func (b *BrowserFetcher) Fetch(ctx context.Context, url string) (*Page, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	taskCtx, timeoutCancel := context.WithTimeout(taskCtx, b.navigationTimeout)
	defer timeoutCancel()

	b.logger.Debug("rendering page", zap.String("url", url))

	var finalURL, domHTML string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Evaluate(`Object.defineProperty(navigator, 'webdriver', {get: () => undefined});`, nil),
		chromedp.Sleep(b.settle),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &domHTML),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", url, err)
	}

	b.logger.Debug("rendered page",
		zap.String("url", url),
		zap.String("final_url", finalURL),
		zap.Int("dom_length", len(domHTML)),
	)
	return &Page{URL: finalURL, StatusCode: 200, Body: []byte(domHTML)}, nil
}
