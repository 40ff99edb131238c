package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ianodad/Vector11/crawler"
)

// SourceList is the content of a sources YAML file. Refresh holds the feeds
// the incremental refresh walks.
type SourceList struct {
	Sources []crawler.Source `yaml:"sources"`
	Refresh []crawler.Source `yaml:"refresh"`
}

// LoadSources reads path, or returns the built-in lists when path is empty.
// A file without a refresh list gets the default refresh feeds.
func LoadSources(path string) (*SourceList, error) {
	if path == "" {
		return &SourceList{Sources: DefaultSources(), Refresh: DefaultRefreshFeeds()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources %s: %w", path, err)
	}
	var list SourceList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse sources %s: %w", path, err)
	}
	if len(list.Refresh) == 0 {
		list.Refresh = DefaultRefreshFeeds()
	}
	return &list, list.Validate()
}

// Validate fills in the default type and rejects unusable entries.
func (l *SourceList) Validate() error {
	for _, group := range []struct {
		name string
		srcs []crawler.Source
	}{{"sources", l.Sources}, {"refresh", l.Refresh}} {
		for i := range group.srcs {
			s := &group.srcs[i]
			if s.URL == "" {
				return fmt.Errorf("%s[%d]: url is required", group.name, i)
			}
			switch s.Type {
			case "":
				s.Type = crawler.TypeHTML
			case crawler.TypeHTML, crawler.TypeRSS, crawler.TypeHub:
			default:
				return fmt.Errorf("%s[%d]: unsupported type %q (use html, rss or hub)", group.name, i, s.Type)
			}
			if s.Delay < 0 {
				return fmt.Errorf("%s[%d]: delay must not be negative", group.name, i)
			}
		}
	}
	return nil
}

var premierLeagueTeams = []string{
	"arsenal", "aston-villa", "bournemouth", "brentford", "brighton",
	"chelsea", "crystal-palace", "everton", "fulham", "liverpool",
	"manchester-city", "manchester-united", "newcastle-united", "nottingham-forest",
	"tottenham-hotspur", "west-ham-united", "wolverhampton-wanderers",
}

func DefaultSources() []crawler.Source {
	return []crawler.Source{
		{URL: "https://feeds.bbci.co.uk/sport/football/rss.xml", Type: crawler.TypeRSS, Label: "BBC Sport", Delay: 2, Category: "news"},
		{URL: "https://www.theguardian.com/football/rss", Type: crawler.TypeRSS, Label: "The Guardian", Delay: 2, Category: "news"},
		{URL: "https://www.skysports.com/football/news", Type: crawler.TypeHub, Label: "Sky Sports", Delay: 3, Category: "news", Render: true},
		{URL: "https://www.premierleague.com/news", Type: crawler.TypeHub, Label: "Premier League", Delay: 3, Category: "news", Render: true},
		{URL: "https://en.wikipedia.org/wiki/Premier_League", Type: crawler.TypeHTML, Label: "Wikipedia", Delay: 1, Category: "reference"},
		{
			URL:      "https://www.skysports.com/{team}-{page}",
			Type:     crawler.TypeHTML,
			Label:    "Sky Sports",
			Delay:    3,
			Category: "stats",
			Teams:    premierLeagueTeams,
			Pages:    []string{"squad", "fixtures", "results"},
		},
	}
}

func DefaultRefreshFeeds() []crawler.Source {
	return []crawler.Source{
		{URL: "https://feeds.bbci.co.uk/sport/football/rss.xml", Type: crawler.TypeRSS, Label: "BBC Sport", Delay: 2, Category: "news"},
		{URL: "https://www.theguardian.com/football/rss", Type: crawler.TypeRSS, Label: "The Guardian", Delay: 2, Category: "news"},
		{URL: "https://www.skysports.com/rss/11095", Type: crawler.TypeRSS, Label: "Sky Sports", Delay: 2, Category: "news"},
	}
}
