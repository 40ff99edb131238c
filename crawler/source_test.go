package crawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Variants(t *testing.T) {
	src := Source{
		URL:   "https://stats.example.com/{team}/{page}",
		Label: "Stats",
		Teams: []string{"arsenal", "chelsea"},
		Pages: []string{"squad", "fixtures"},
	}

	variants := src.Variants()
	require.Len(t, variants, 4)
	assert.Equal(t, "https://stats.example.com/arsenal/squad", variants[0].URL)
	assert.Equal(t, "https://stats.example.com/arsenal/fixtures", variants[1].URL)
	assert.Equal(t, "https://stats.example.com/chelsea/squad", variants[2].URL)
	assert.Equal(t, "Stats - chelsea", variants[2].Label)
	assert.Nil(t, variants[0].Teams)
}

func TestSource_VariantsWithoutTemplate(t *testing.T) {
	src := Source{URL: "https://example.com/news", Teams: []string{"a", "b"}}
	variants := src.Variants()
	require.Len(t, variants, 1)
	assert.Equal(t, "https://example.com/news", variants[0].URL)
}

func TestSource_Helpers(t *testing.T) {
	src := Source{URL: "https://www.skysports.com/football", Delay: 1.5}
	assert.Equal(t, 1500*time.Millisecond, src.DelayDuration())
	assert.Equal(t, "www.skysports.com", src.Host())
	assert.Equal(t, "www.skysports.com", src.DisplayLabel())

	src.Label = "Sky Sports"
	assert.Equal(t, "Sky Sports", src.DisplayLabel())
}

func TestQueue_FIFOWithGrowth(t *testing.T) {
	q := &Queue{}
	q.Push(NewEntry(Source{URL: "a", Type: TypeRSS}))
	q.Push(NewEntry(Source{URL: "b"}))

	e, ok := q.Pop()
	require.True(t, ok)
	assert.IsType(t, ExpandEntry{}, e)
	q.Push(NewEntry(Source{URL: "c", Type: TypeHub}))

	var order []string
	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		order = append(order, e.Source().URL)
	}
	assert.Equal(t, []string{"b", "c"}, order)
	assert.Zero(t, q.Len())
}

func TestRunState_Counters(t *testing.T) {
	start := time.Unix(100, 0)
	s := NewRunState(start)
	assert.NotEmpty(t, s.RunID)

	assert.True(t, s.MarkSeen("u"))
	assert.False(t, s.MarkSeen("u"))

	s.Record(Outcome{Final: StageDone, At: StageWriting, Parents: 2, Children: 5, Dups: 1})
	s.Record(Outcome{Final: StageSkipped, At: StageFiltering})
	s.Record(Outcome{Final: StageFailed, At: StageFetching})
	s.Record(Outcome{Final: StageDone, At: StageExpanding, Links: 4})
	s.Record(Outcome{Final: StageFailed, At: StageExpanding})
	s.recordCapped()

	assert.Equal(t, 3, s.Processed())
	sum := s.Summary(start.Add(time.Minute), 42)
	assert.Equal(t, Summary{
		RunID:            s.RunID,
		Done:             1,
		Skipped:          1,
		Failed:           2,
		Expanded:         1,
		NotProcessed:     1,
		ParentsInserted:  2,
		ChildrenInserted: 5,
		Duplicates:       1,
		TokensUsed:       42,
		Elapsed:          time.Minute,
	}, sum)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "expanding", StageExpanding.String())
	assert.Equal(t, "failed", StageFailed.String())
	assert.Equal(t, "unknown", Stage(99).String())
}
