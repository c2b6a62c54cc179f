package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/store"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Letterpress Revival</title>
    <item>
      <title>New wood type samples</title>
      <link>https://example.org/wood-type</link>
      <guid>wood-type-1</guid>
      <description>Inked a fresh set today.</description>
      <pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Roller restoration</title>
      <link>https://example.org/rollers</link>
      <guid>rollers-1</guid>
      <pubDate>Sun, 01 Mar 2026 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

func TestIngestCreatesNotesOnce(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	db, err := store.New(filepath.Join(t.TempDir(), "atelier.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.CreateUser(ctx, &store.User{ID: "u-theo", Username: "theo"}))
	require.NoError(t, db.CreatePortfolio(ctx, &store.Portfolio{
		ID: "p-letterpress", OwnerID: "u-theo", Name: "Letterpress Revival",
		Kind: store.KindProjects,
	}))

	svc := New(db, []Syndication{{PortfolioID: "p-letterpress", URL: srv.URL}})

	n, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	notes, err := db.RecentNotes(ctx, 10)
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "u-theo", notes[0].AuthorID)
	assert.Equal(t, []string{"p-letterpress"}, notes[0].Portfolios)
	assert.Contains(t, notes[0].Body, "New wood type samples")
	assert.True(t, notes[0].CreatedAt.After(notes[1].CreatedAt))

	// Second run finds every entry already ingested.
	n, err = svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIngestUnknownPortfolio(t *testing.T) {
	db, err := store.New(filepath.Join(t.TempDir(), "atelier.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := New(db, []Syndication{{PortfolioID: "ghost", URL: "http://127.0.0.1:0/feed"}})

	_, err = svc.Run(context.Background())
	assert.Error(t, err)
}
