package crawler

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrUnknownFeedFormat = errors.New("feed: unknown format (expected <rss> or <feed>)")

// Link is a discovered URL with its anchor or item title.
type Link struct {
	URL   string
	Title string
}

type rssItem struct {
	Title string `xml:"title"`
	// Links also collects <atom:link> elements, which carry href instead of text.
	Links []struct {
		Text string `xml:",chardata"`
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
	} `xml:"link"`
	GUID string `xml:"guid"`
}

// link prefers the plain <link> text, then an alternate atom href, then a
// URL-shaped guid.
func (it rssItem) link() string {
	for _, l := range it.Links {
		if t := strings.TrimSpace(l.Text); t != "" {
			return t
		}
	}
	for _, l := range it.Links {
		if l.Href != "" && (l.Rel == "" || l.Rel == "alternate") {
			return strings.TrimSpace(l.Href)
		}
	}
	if guid := strings.TrimSpace(it.GUID); strings.HasPrefix(guid, "http") {
		return guid
	}
	return ""
}

type rssRoot struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type atomRoot struct {
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

// ParseFeed returns the item links of an RSS 2.0 or Atom document, resolved
// against base, in document order.
func ParseFeed(data []byte, base *url.URL) ([]Link, error) {
	var raw []Link

	switch detectFeedFormat(data) {
	case "rss":
		var root rssRoot
		if err := xml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("feed: parse rss: %w", err)
		}
		for _, item := range root.Channel.Items {
			raw = append(raw, Link{URL: item.link(), Title: strings.TrimSpace(item.Title)})
		}
	case "atom":
		var root atomRoot
		if err := xml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("feed: parse atom: %w", err)
		}
		for _, entry := range root.Entries {
			var href string
			for _, l := range entry.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					href = l.Href
					break
				}
			}
			raw = append(raw, Link{URL: strings.TrimSpace(href), Title: strings.TrimSpace(entry.Title)})
		}
	default:
		return nil, ErrUnknownFeedFormat
	}

	links := make([]Link, 0, len(raw))
	for _, l := range raw {
		if l.URL == "" {
			continue
		}
		abs, ok := resolve(base, l.URL)
		if !ok {
			continue
		}
		links = append(links, Link{URL: abs, Title: l.Title})
	}
	return links, nil
}

func detectFeedFormat(data []byte) string {
	d := xml.NewDecoder(bytes.NewReader(bytes.TrimSpace(data)))
	d.Strict = false
	for {
		tok, err := d.Token()
		if err != nil {
			return ""
		}
		if se, ok := tok.(xml.StartElement); ok {
			switch strings.ToLower(se.Name.Local) {
			case "rss":
				return "rss"
			case "feed":
				return "atom"
			}
			return ""
		}
	}
}

// resolve makes ref absolute against base and drops the fragment. Only http
// and https results are returned.
func resolve(base *url.URL, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	u.Fragment = ""
	return u.String(), true
}
