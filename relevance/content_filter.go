package relevance

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloudflare/ahocorasick"
)

type ContentQualityConfig struct {
	MinTextLength      int // Minimum normalized length for ordinary prose
	MinStatsTextLength int // Minimum normalized length for short stats snippets
	TrustedTextLength  int // Length at which content is accepted without further checks
	MaxBoilerplateHits int // Distinct boilerplate phrases tolerated below TrustedTextLength
	MinDistinctWords   int // Lexical diversity floor below TrustedTextLength
}

func DefaultContentQualityConfig() ContentQualityConfig {
	return ContentQualityConfig{
		MinTextLength:      200,
		MinStatsTextLength: 100,
		TrustedTextLength:  800,
		MaxBoilerplateHits: 2,
		MinDistinctWords:   30,
	}
}

var statsKeywords = []string{
	"goal", "assist", "match", "team", "player", "score", "stat", "table",
	"league", "position", "points", "win", "draw", "loss",
}

var boilerplatePhrases = []string{
	"accept all",
	"accept cookies",
	"cookie policy",
	"cookie settings",
	"privacy policy",
	"terms of service",
	"terms and conditions",
	"all rights reserved",
	"skip to content",
	"skip to main content",
	"main menu",
	"navigation",
	"sign up",
	"sign in",
	"log in",
	"subscribe",
	"newsletter",
	"read more",
	"continue reading",
	"load more",
	"follow us",
	"share this",
	"advertisement",
	"already a subscriber",
	"to continue reading",
}

var blockMarkers = []string{
	"access denied",
	"access to this page has been denied",
	"captcha",
	"cloudflare",
	"attention required",
	"checking your browser",
	"verify you are human",
	"are you a robot",
	"request blocked",
	"error 403",
	"error 404",
	"403 forbidden",
	"404 not found",
	"page not found",
	"too many requests",
	"enable javascript and cookies to continue",
}

// ContentFilter decides whether scraped text is worth chunking and embedding.
// All checks run over normalized text: whitespace collapsed and lower-cased.
type ContentFilter struct {
	config      ContentQualityConfig
	stats       map[string]struct{}
	boilerplate *phraseMatcher
	blocked     *phraseMatcher
}

func NewContentFilter(config ContentQualityConfig) *ContentFilter {
	stats := make(map[string]struct{}, 3*len(statsKeywords))
	for _, kw := range statsKeywords {
		stats[kw] = struct{}{}
		stats[kw+"s"] = struct{}{}
		stats[kw+"es"] = struct{}{}
	}
	return &ContentFilter{
		config:      config,
		stats:       stats,
		boilerplate: newPhraseMatcher(boilerplatePhrases),
		blocked:     newPhraseMatcher(blockMarkers),
	}
}

var defaultFilter = NewContentFilter(DefaultContentQualityConfig())

// IsAcceptable reports whether text passes the default quality rules.
func IsAcceptable(text string) bool {
	return defaultFilter.IsAcceptable(text)
}

// IsAccessBlocked reports whether text looks like a block or error interstitial.
func IsAccessBlocked(text string) bool {
	return defaultFilter.IsAccessBlocked(text)
}

func (f *ContentFilter) IsAcceptable(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}

	length := utf8.RuneCountInString(normalized)
	if length >= f.config.TrustedTextLength {
		return true
	}

	words := tokenize(normalized)
	if length < f.config.MinTextLength {
		// Short stats snippets ("Saka 12 goals") are the only short text kept.
		return length >= f.config.MinStatsTextLength && hasDigit(normalized) && f.hasStatsKeyword(words)
	}

	if f.boilerplate.count(normalized) > f.config.MaxBoilerplateHits {
		return false
	}

	return distinctWords(words) >= f.config.MinDistinctWords
}

// hasStatsKeyword matches whole words only, so "showing" does not count as
// "win" nor "state" as "stat".
func (f *ContentFilter) hasStatsKeyword(words []string) bool {
	for _, w := range words {
		if _, ok := f.stats[w]; ok {
			return true
		}
	}
	return false
}

func (f *ContentFilter) IsAccessBlocked(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}
	return f.blocked.count(normalized) > 0
}

// Normalize collapses whitespace runs to single spaces and lower-cases the text.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

type phraseMatcher struct {
	matcher *ahocorasick.Matcher
	size    int
}

func newPhraseMatcher(phrases []string) *phraseMatcher {
	return &phraseMatcher{
		matcher: ahocorasick.NewStringMatcher(phrases),
		size:    len(phrases),
	}
}

// count returns the number of distinct phrases found in text.
func (m *phraseMatcher) count(text string) int {
	hits := m.matcher.MatchThreadSafe([]byte(text))
	found := make(map[int]struct{}, len(hits))
	for _, idx := range hits {
		if idx >= 0 && idx < m.size {
			found[idx] = struct{}{}
		}
	}
	return len(found)
}

func hasDigit(text string) bool {
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}

func tokenize(text string) []string {
	return strings.FieldsFunc(text, func(c rune) bool {
		return !unicode.IsLetter(c) && !unicode.IsNumber(c)
	})
}

func distinctWords(words []string) int {
	unique := make(map[string]struct{}, len(words))
	for _, w := range words {
		unique[w] = struct{}{}
	}
	return len(unique)
}
