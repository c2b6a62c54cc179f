// Package ingest pulls external RSS/Atom feeds into the platform as
// notes. A portfolio may declare a syndicated feed; each new entry
// becomes a note authored by the portfolio's owner and attached to the
// portfolio, so subscribers pick it up through the normal feed path.
package ingest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"atelier/internal/store"
)

// Syndication binds one external feed URL to a portfolio.
type Syndication struct {
	PortfolioID string
	URL         string
}

// Service fetches syndicated feeds and stores new entries as notes.
type Service struct {
	store  store.Store
	client *http.Client
	parser *gofeed.Parser
	feeds  []Syndication
}

// New creates an ingest service for the given syndications.
func New(s store.Store, feeds []Syndication) *Service {
	return &Service{
		store:  s,
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
	}
}

// Run ingests every configured feed once. Per-feed failures are reported
// but do not stop the remaining feeds.
func (s *Service) Run(ctx context.Context) (int, error) {
	total := 0
	var errs []string

	for _, syn := range s.feeds {
		n, err := s.ingestFeed(ctx, syn)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", syn.PortfolioID, err))
			continue
		}
		total += n
	}

	if len(errs) > 0 {
		return total, fmt.Errorf("ingest errors: %v", errs)
	}
	return total, nil
}

func (s *Service) ingestFeed(ctx context.Context, syn Syndication) (int, error) {
	portfolio, err := s.store.GetPortfolio(ctx, syn.PortfolioID)
	if err != nil {
		return 0, fmt.Errorf("syndication target: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, syn.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("User-Agent", "atelier/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch feed %s: %w", syn.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("feed %s status %d", syn.URL, resp.StatusCode)
	}

	parsed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("parse feed %s: %w", syn.URL, err)
	}

	created := 0
	for _, entry := range parsed.Items {
		ref := fmt.Sprintf("rss:%s:%s", syn.PortfolioID, entryGUID(entry))

		exists, err := s.store.HasNoteRef(ctx, ref)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		note := &store.Note{
			ID:         uuid.NewString(),
			AuthorID:   portfolio.OwnerID,
			Body:       noteBody(entry),
			Portfolios: []string{portfolio.ID},
			SourceRef:  ref,
			CreatedAt:  published,
		}
		if err := s.store.CreateNote(ctx, note); err != nil {
			return created, err
		}
		created++
	}

	return created, nil
}

func entryGUID(entry *gofeed.Item) string {
	if entry.GUID != "" {
		return entry.GUID
	}
	return entry.Link
}

func noteBody(entry *gofeed.Item) string {
	body := entry.Title
	if entry.Link != "" {
		body += "\n" + entry.Link
	}
	if entry.Description != "" {
		body += "\n\n" + truncate(entry.Description, 500)
	}
	return body
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
