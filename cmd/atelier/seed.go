package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"atelier/internal/store"
)

// runSeed populates a demo graph: three users, one community, one projects
// portfolio, friendships, a subscription, and a handful of notes.
func runSeed() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	users := []store.User{
		{ID: "u-mira", Username: "mira", DisplayName: "Mira"},
		{ID: "u-theo", Username: "theo", DisplayName: "Theo"},
		{ID: "u-ingrid", Username: "ingrid", DisplayName: "Ingrid"},
	}
	for i := range users {
		if err := db.CreateUser(ctx, &users[i]); err != nil {
			fmt.Fprintf(os.Stderr, "  %v (already seeded?)\n", err)
		}
	}

	friendships := []store.Friendship{
		{UserA: "u-mira", UserB: "u-theo", Status: store.StatusAccepted},
		{UserA: "u-mira", UserB: "u-ingrid", Status: store.StatusPending},
	}
	for i := range friendships {
		if err := db.AddFriendship(ctx, &friendships[i]); err != nil {
			return err
		}
	}

	portfolios := []store.Portfolio{
		{
			ID: "p-sketchers", OwnerID: "u-ingrid", Name: "Urban Sketchers",
			Kind: store.KindCommunity, Members: []string{"u-theo"},
		},
		{
			ID: "p-letterpress", OwnerID: "u-theo", Name: "Letterpress Revival",
			Kind: store.KindProjects, Members: []string{"u-ingrid"},
		},
	}
	for i := range portfolios {
		if err := db.CreatePortfolio(ctx, &portfolios[i]); err != nil {
			return err
		}
	}

	if err := db.Subscribe(ctx, "u-mira", "p-letterpress"); err != nil {
		return err
	}

	notes := []store.Note{
		{AuthorID: "u-theo", Body: "Inked a new set of wood type samples today.",
			Portfolios: []string{"p-letterpress"}, CreatedAt: now.Add(-2 * time.Hour)},
		{AuthorID: "u-ingrid", Body: "Sketch meetup at the old harbor this Saturday.",
			Portfolios: []string{"p-sketchers"}, CreatedAt: now.Add(-5 * time.Hour)},
		{AuthorID: "u-theo", Body: "Restored the platen press rollers.",
			Portfolios: []string{"p-letterpress"}, CreatedAt: now.Add(-26 * time.Hour)},
		{AuthorID: "u-ingrid", Body: "Charcoal study of the tram depot.",
			Portfolios: []string{"p-sketchers"}, CreatedAt: now.Add(-48 * time.Hour)},
	}
	for i := range notes {
		notes[i].ID = uuid.NewString()
		if err := db.CreateNote(ctx, &notes[i]); err != nil {
			return err
		}
	}

	fmt.Fprintf(os.Stderr, "seeded %d users, %d portfolios, %d notes\n",
		len(users), len(portfolios), len(notes))
	fmt.Fprintln(os.Stderr, `try: atelier feed --user u-mira --scope all`)
	return nil
}
