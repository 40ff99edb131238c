package crawler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squadPage = `<html>
<head><title>Arsenal squad</title><script>var x = 1;</script></head>
<body>
<nav><ul><li>Home navigation link</li></ul></nav>
<h1>Arsenal first team squad</h1>
<p>Bukayo Saka has scored 12 goals in 30 appearances this season.</p>
<table><tr><th>Player name</th><td>Martin Odegaard</td></tr></table>
<footer><p>Copyright and footer text here</p></footer>
</body></html>`

func TestExtractFromDOM_DropsChrome(t *testing.T) {
	c, err := extractFromDOM([]byte(squadPage))
	require.NoError(t, err)

	assert.Equal(t, "dom", c.Method)
	assert.Equal(t, "Arsenal squad", c.Title)
	assert.Contains(t, c.Text, "Arsenal first team squad")
	assert.Contains(t, c.Text, "Bukayo Saka has scored 12 goals")
	assert.Contains(t, c.Text, "Martin Odegaard")
	assert.NotContains(t, c.Text, "navigation")
	assert.NotContains(t, c.Text, "footer text")
	assert.NotContains(t, c.Text, "var x")
}

func TestExtractor_ArticlePage(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<html><head><title>Match report</title></head><body><article><h1>Arsenal 2-1 Chelsea</h1>`)
	for i := 0; i < 8; i++ {
		b.WriteString(`<p>Arsenal came from behind to beat Chelsea at the Emirates, with Saka scoring the winner late in the second half after a long spell of pressure from the home side.</p>`)
	}
	b.WriteString(`</article></body></html>`)

	c, err := NewExtractor(nil).Extract([]byte(b.String()), "https://example.com/football/report", false)
	require.NoError(t, err)
	assert.Contains(t, c.Text, "Saka scoring the winner")
	assert.NotEmpty(t, c.Method)
}

func TestExtractor_EmptyPage(t *testing.T) {
	_, err := NewExtractor(nil).Extract([]byte(`<html><body></body></html>`), "https://example.com/x", false)
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractor_BadURL(t *testing.T) {
	_, err := NewExtractor(nil).Extract([]byte(squadPage), "://bad", false)
	assert.Error(t, err)
}
