package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/models"
	"github.com/dmitrijs2005/gophdiary/internal/repositories/entries"
)

// SeedEntries returns the example entries for the day before yesterday,
// yesterday and today relative to now, oldest first.
func SeedEntries(now time.Time) []models.Entry {
	return []models.Entry{
		{ID: models.DraftID, Title: "Stuff I did the day before yesterday", Content: "I did stuff", Date: models.FormatDate(now.AddDate(0, 0, -2))},
		{ID: models.DraftID, Title: "Stuff I did yesterday", Content: "I did stuff", Date: models.FormatDate(now.AddDate(0, 0, -1))},
		{ID: models.DraftID, Title: "Stuff I did today", Content: "I did stuff", Date: models.FormatDate(now)},
	}
}

// insertSeed inserts the example entries and returns how many entries the
// repository holds afterwards.
func insertSeed(ctx context.Context, repo entries.Repository, now time.Time) (int64, error) {
	for _, e := range SeedEntries(now) {
		if _, err := repo.Insert(ctx, &e); err != nil {
			return 0, fmt.Errorf("seed %q: %w", e.Title, err)
		}
	}
	return repo.Count(ctx)
}
