package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestParseFeed_RSS(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <title>BBC Sport - Football</title>
    <item>
      <title>Arsenal 2-1 Chelsea</title>
      <link>https://www.bbc.co.uk/sport/football/articles/abc#comments</link>
    </item>
    <item>
      <title>Relative link</title>
      <link>/sport/football/articles/def</link>
    </item>
    <item>
      <title>Guid only</title>
      <guid>https://www.bbc.co.uk/sport/football/articles/ghi</guid>
    </item>
    <item>
      <title>No link</title>
    </item>
  </channel>
</rss>`)

	links, err := ParseFeed(data, mustURL(t, "https://feeds.bbci.co.uk/sport/football/rss.xml"))
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "https://www.bbc.co.uk/sport/football/articles/abc", Title: "Arsenal 2-1 Chelsea"},
		{URL: "https://feeds.bbci.co.uk/sport/football/articles/def", Title: "Relative link"},
		{URL: "https://www.bbc.co.uk/sport/football/articles/ghi", Title: "Guid only"},
	}, links)
}

func TestParseFeed_RSSItemWithAtomLink(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">
  <channel>
    <item>
      <title>Transfer latest</title>
      <link>https://news.example.com/football/transfer-latest</link>
      <atom:link href="https://news.example.com/rss.xml" rel="self" type="application/rss+xml"/>
    </item>
    <item>
      <title>Injury news</title>
      <atom:link href="https://news.example.com/rss.xml" rel="self"/>
      <link>https://news.example.com/football/injury-news</link>
    </item>
    <item>
      <title>Atom only</title>
      <atom:link href="https://news.example.com/football/atom-only" rel="alternate"/>
    </item>
  </channel>
</rss>`)

	links, err := ParseFeed(data, mustURL(t, "https://news.example.com/rss.xml"))
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "https://news.example.com/football/transfer-latest", Title: "Transfer latest"},
		{URL: "https://news.example.com/football/injury-news", Title: "Injury news"},
		{URL: "https://news.example.com/football/atom-only", Title: "Atom only"},
	}, links)
}

func TestParseFeed_Atom(t *testing.T) {
	data := []byte(`<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Club news</title>
  <entry>
    <title>Squad update</title>
    <link rel="edit" href="https://club.example.com/edit/1"/>
    <link rel="alternate" href="https://club.example.com/news/squad-update"/>
  </entry>
  <entry>
    <title>Match preview</title>
    <link href="news/match-preview"/>
  </entry>
</feed>`)

	links, err := ParseFeed(data, mustURL(t, "https://club.example.com/feed.atom"))
	require.NoError(t, err)
	assert.Equal(t, []Link{
		{URL: "https://club.example.com/news/squad-update", Title: "Squad update"},
		{URL: "https://club.example.com/news/match-preview", Title: "Match preview"},
	}, links)
}

func TestParseFeed_UnknownFormat(t *testing.T) {
	_, err := ParseFeed([]byte(`<html><body>not a feed</body></html>`), nil)
	assert.ErrorIs(t, err, ErrUnknownFeedFormat)

	_, err = ParseFeed([]byte(""), nil)
	assert.ErrorIs(t, err, ErrUnknownFeedFormat)
}

func TestResolve(t *testing.T) {
	base := mustURL(t, "https://example.com/a/b")

	got, ok := resolve(base, "../c?x=1#frag")
	require.True(t, ok)
	assert.Equal(t, "https://example.com/c?x=1", got)

	_, ok = resolve(base, "mailto:someone@example.com")
	assert.False(t, ok)
	_, ok = resolve(base, "javascript:void(0)")
	assert.False(t, ok)
}
