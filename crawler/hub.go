package crawler

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DiscoverLinks returns the distinct same-host article links on a hub page,
// in document order.
func DiscoverLinks(body []byte, base *url.URL) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var links []Link
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		abs, ok := resolve(base, href)
		if !ok {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || !sameHost(u.Hostname(), base.Hostname()) {
			return
		}
		if u.Path == "" || u.Path == "/" || abs == base.String() {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, Link{URL: abs, Title: strings.Join(strings.Fields(s.Text()), " ")})
	})
	return links, nil
}

func sameHost(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}
