package relevance

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// DefaultDomainKeywords are the football terms a discovered link must mention,
// in its path or anchor text, before it is queued.
var DefaultDomainKeywords = []string{
	"football",
	"soccer",
	"premier league",
	"champions league",
	"la liga",
	"serie a",
	"bundesliga",
	"transfer",
	"match",
	"fixture",
	"result",
	"goal",
	"player",
	"manager",
	"club",
	"team",
	"squad",
	"league",
	"cup",
	"season",
	"stats",
	"injury",
	"tactics",
	"score",
}

// KeywordRelevanceFilter matches link text against stemmed domain keywords.
// A multi-word keyword matches only when every one of its stems is present.
type KeywordRelevanceFilter struct {
	keywords [][]string
}

func NewKeywordRelevanceFilter(keywords []string) *KeywordRelevanceFilter {
	stemmed := make([][]string, 0, len(keywords))
	for _, k := range keywords {
		words := tokenizeLower(k)
		if len(words) == 0 {
			continue
		}
		stems := make([]string, len(words))
		for i, w := range words {
			stems[i] = stemWord(w)
		}
		stemmed = append(stemmed, stems)
	}
	return &KeywordRelevanceFilter{keywords: stemmed}
}

// IsRelevant reports whether any keyword occurs in text.
func (f *KeywordRelevanceFilter) IsRelevant(text string) bool {
	words := tokenizeLower(text)
	if len(words) == 0 {
		return false
	}

	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[stemWord(w)] = struct{}{}
	}

	for _, stems := range f.keywords {
		matched := true
		for _, s := range stems {
			if _, ok := present[s]; !ok {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

// IsLinkRelevant checks the URL path together with the anchor text.
func (f *KeywordRelevanceFilter) IsLinkRelevant(rawURL, anchor string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return f.IsRelevant(parsed.Path + " " + anchor)
}

var skipPattern = regexp.MustCompile(`(?i)(contact|privacy|terms|faq|signin|login|register|subscribe|feedback|cookies|sitemap|help|account|podcast|video|gallery|live-stream|betting|shop|tickets)`)

// ShouldSkipURL reports whether the URL path points at a low-value page.
func ShouldSkipURL(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	path := strings.ToLower(parsed.Path)
	path = strings.ReplaceAll(path, "_", "-")
	path = strings.ReplaceAll(path, ".", "-")

	return skipPattern.MatchString(path)
}

func stemWord(word string) string {
	stem, err := snowball.Stem(word, "english", true)
	if err != nil {
		return word
	}
	return stem
}

func tokenizeLower(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
