package crawler

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStorage_PersistsCookiesPerHost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "cookies.db")
	u, _ := url.Parse("https://www.bbc.co.uk/sport/football")
	other, _ := url.Parse("https://www.skysports.com/football")

	s := NewBoltStorage(path)
	require.NoError(t, s.Init())
	s.SetCookies(u, "consent=yes")
	require.NoError(t, s.Visited(42))
	require.NoError(t, s.Close())

	s = NewBoltStorage(path)
	require.NoError(t, s.Init())
	defer s.Close()

	assert.Equal(t, "consent=yes", s.Cookies(u))
	assert.Empty(t, s.Cookies(other))

	visited, err := s.IsVisited(42)
	require.NoError(t, err)
	assert.True(t, visited)
	visited, err = s.IsVisited(43)
	require.NoError(t, err)
	assert.False(t, visited)
}

func TestBoltStorage_CloseTwice(t *testing.T) {
	s := NewBoltStorage(filepath.Join(t.TempDir(), "cookies.db"))
	require.NoError(t, s.Init())
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
