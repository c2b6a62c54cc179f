package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"atelier/internal/config"
	"atelier/internal/ingest"
	"atelier/internal/scheduler"
	"atelier/internal/store"
	"atelier/pkg/feed"
	"atelier/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildEngine(cfg *config.Config, db store.Store) *feed.Engine {
	return feed.NewEngine(db, nil, cfg.Novelty.Capacity, cfg.Novelty.FalsePositiveRate)
}

func buildIngest(cfg *config.Config, db store.Store) *ingest.Service {
	feeds := make([]ingest.Syndication, len(cfg.Syndication.Feeds))
	for i, f := range cfg.Syndication.Feeds {
		feeds[i] = ingest.Syndication{PortfolioID: f.Portfolio, URL: f.URL}
	}
	return ingest.New(db, feeds)
}

func runFeed(user, scope, community string, offset, limit int, jsonOutput, markSeen bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if limit <= 0 {
		limit = cfg.Feed.PageSize
	}

	engine := buildEngine(cfg, db)
	ctx := context.Background()

	page, err := engine.GetFeed(ctx, feed.Request{
		UserID:      user,
		Scope:       feed.Scope(scope),
		CommunityID: community,
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		return fmt.Errorf("get feed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(page); err != nil {
			return err
		}
	} else {
		if len(page.Items) == 0 {
			fmt.Println("feed is empty")
		} else {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CREATED\tAUTHOR\tSOURCE\tNOTE")
			for _, item := range page.Items {
				src := ""
				if item.Source != nil {
					src = item.Source.Kind
					if item.Source.Kind == feed.SourceCommunity {
						src += ":" + item.Source.CommunityName
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					item.CreatedAt.Format(time.RFC3339),
					item.AuthorID, src, firstLine(item.Body))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Println("(more available)")
			}
		}
	}

	if markSeen && user != "" {
		ids := make([]string, len(page.Items))
		for i := range page.Items {
			ids[i] = page.Items[i].ID
		}
		if err := engine.MarkSeen(ctx, user, ids); err != nil {
			return fmt.Errorf("mark seen: %w", err)
		}
		fmt.Fprintf(os.Stderr, "marked %d notes seen\n", len(ids))
	}

	return nil
}

func runIngest() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	svc := buildIngest(cfg, db)
	n, err := svc.Run(context.Background())
	fmt.Fprintf(os.Stderr, "ingested %d notes\n", n)
	return err
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)

	srv := server.New(db, engine, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	engine := buildEngine(cfg, db)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(cfg.Syndication.Feeds) > 0 {
		sched := scheduler.New(buildIngest(cfg, db), cfg.Schedule.ParseIngestInterval())

		// Start scheduler in background.
		go func() {
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
			}
		}()
	}

	srv := server.New(db, engine, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}

func firstLine(s string) string {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			s = s[:i]
			break
		}
	}
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
