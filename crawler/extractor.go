package crawler

import (
	"bytes"
	"errors"
	"net/url"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

var ErrNoContent = errors.New("no content extracted")

type Content struct {
	Title string
	Text  string
	// Method names the extractor that produced Text.
	Method string
}

// TextExtractor pulls the main readable text out of an HTML page. With
// markdown set, tables and lists are kept as markdown rows.
type TextExtractor interface {
	Extract(body []byte, pageURL string, markdown bool) (*Content, error)
}

// Extractor tries trafilatura, then readability, then a plain DOM walk.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

func (e *Extractor) Extract(body []byte, pageURL string, markdown bool) (*Content, error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	content, err := e.extractWithTrafilatura(body, parsedURL, markdown)
	if err == nil && strings.TrimSpace(content.Text) != "" {
		return content, nil
	}
	if err != nil {
		e.logger.Debug("trafilatura failed", zap.String("url", pageURL), zap.Error(err))
	}

	content, err = e.extractWithReadability(body, parsedURL, markdown)
	if err == nil && strings.TrimSpace(content.Text) != "" {
		return content, nil
	}
	if err != nil {
		e.logger.Debug("readability failed", zap.String("url", pageURL), zap.Error(err))
	}

	content, err = extractFromDOM(body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content.Text) == "" {
		return nil, ErrNoContent
	}
	return content, nil
}

func (e *Extractor) extractWithTrafilatura(body []byte, pageURL *url.URL, markdown bool) (*Content, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL:  pageURL,
		IncludeLinks: false,
	})
	if err != nil {
		return nil, err
	}

	text := result.ContentText
	if markdown && result.ContentNode != nil {
		if md, err := nodeToMarkdown(result.ContentNode); err == nil && strings.TrimSpace(md) != "" {
			text = md
		}
	}

	e.logger.Debug("trafilatura extraction",
		zap.String("url", pageURL.String()),
		zap.String("title", result.Metadata.Title),
		zap.Int("word_count", len(strings.Fields(text))),
	)
	return &Content{Title: result.Metadata.Title, Text: text, Method: "trafilatura"}, nil
}

func (e *Extractor) extractWithReadability(body []byte, pageURL *url.URL, markdown bool) (*Content, error) {
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err != nil {
		return nil, err
	}

	text := article.TextContent
	if markdown && article.Content != "" {
		if md, err := htmltomarkdown.ConvertString(article.Content); err == nil && strings.TrimSpace(md) != "" {
			text = md
		}
	}

	e.logger.Debug("readability extraction",
		zap.String("url", pageURL.String()),
		zap.String("title", article.Title),
		zap.Int("word_count", len(strings.Fields(text))),
	)
	return &Content{Title: article.Title, Text: text, Method: "readability"}, nil
}

// extractFromDOM keeps text from content-bearing elements once chrome such as
// navigation and footers has been removed.
func extractFromDOM(body []byte) (*Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, p, li, td, th").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if len(text) > 10 {
			blocks = append(blocks, text)
		}
	})

	return &Content{
		Title:  strings.TrimSpace(doc.Find("title").First().Text()),
		Text:   strings.Join(blocks, "\n\n"),
		Method: "dom",
	}, nil
}

func nodeToMarkdown(n *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return "", err
	}
	return htmltomarkdown.ConvertString(buf.String())
}
