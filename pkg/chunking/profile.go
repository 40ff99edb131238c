package chunking

import "strings"

// Profile holds the window sizes, in characters, for one content class.
type Profile struct {
	Name          string
	ParentSize    int
	ParentOverlap int
	ChildSize     int
	ChildOverlap  int
}

var (
	StatsProfile = Profile{
		Name:          "stats",
		ParentSize:    1500,
		ParentOverlap: 200,
		ChildSize:     400,
		ChildOverlap:  50,
	}
	DefaultProfile = Profile{
		Name:          "default",
		ParentSize:    800,
		ParentOverlap: 150,
		ChildSize:     400,
		ChildOverlap:  50,
	}
)

const CategoryStats = "stats"

var statsHosts = []string{
	"fbref.com",
	"transfermarkt",
	"understat.com",
	"whoscored.com",
	"sofascore.com",
	"fotmob.com",
	"worldfootball.net",
	"footystats.org",
}

// ProfileFor picks the stats profile for stats categories and stats-oriented
// hosts, and the default profile for everything else.
func ProfileFor(category, host string) Profile {
	if strings.EqualFold(category, CategoryStats) {
		return StatsProfile
	}
	host = strings.ToLower(host)
	for _, h := range statsHosts {
		if strings.Contains(host, h) {
			return StatsProfile
		}
	}
	return DefaultProfile
}
