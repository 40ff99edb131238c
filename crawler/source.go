package crawler

import (
	"net/url"
	"strings"
	"time"
)

type ContentType string

const (
	TypeHTML ContentType = "html"
	TypeRSS  ContentType = "rss"
	TypeHub  ContentType = "hub"
)

// Source is one configured seed. A URL containing {team} or {page} is a
// template expanded over Teams and Pages.
type Source struct {
	URL      string      `yaml:"url" json:"url"`
	Type     ContentType `yaml:"type" json:"type"`
	Label    string      `yaml:"label" json:"label"`
	Delay    float64     `yaml:"delay" json:"delay"` // seconds
	Category string      `yaml:"category" json:"category"`
	Render   bool        `yaml:"render" json:"render"`
	Teams    []string    `yaml:"teams,omitempty" json:"teams,omitempty"`
	Pages    []string    `yaml:"pages,omitempty" json:"pages,omitempty"`
}

func (s Source) DelayDuration() time.Duration {
	return time.Duration(s.Delay * float64(time.Second))
}

func (s Source) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// DisplayLabel falls back to the host when no label was configured.
func (s Source) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Host()
}

// Variants substitutes every team and page into the URL template, teams in
// the outer loop. A source without placeholders yields itself.
func (s Source) Variants() []Source {
	teams := s.Teams
	if len(teams) == 0 || !strings.Contains(s.URL, "{team}") {
		teams = []string{""}
	}
	pages := s.Pages
	if len(pages) == 0 || !strings.Contains(s.URL, "{page}") {
		pages = []string{""}
	}

	out := make([]Source, 0, len(teams)*len(pages))
	for _, team := range teams {
		for _, page := range pages {
			v := s
			v.Teams, v.Pages = nil, nil
			v.URL = strings.NewReplacer("{team}", team, "{page}", page).Replace(s.URL)
			if team != "" && s.Label != "" {
				v.Label = s.Label + " - " + team
			}
			out = append(out, v)
		}
	}
	return out
}

// child builds the fetch source for a link discovered on s.
func (s Source) child(link Link) Source {
	return Source{
		URL:      link.URL,
		Type:     TypeHTML,
		Label:    s.Label,
		Delay:    s.Delay,
		Category: s.Category,
		Render:   s.Render,
	}
}
