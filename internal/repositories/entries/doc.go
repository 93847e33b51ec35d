// Package entries persists diary entries.
//
// Repository is the storage contract used by the entry store. Two
// implementations exist, both written against dbx.DBTX so they work on a
// *sql.DB or inside a *sql.Tx:
//
//   - SQLiteRepository: modernc.org/sqlite, the default local database
//   - PostgresRepository: jackc/pgx/v5 through database/sql
//
// Listings are ordered by date and then by id, so entries that share a date
// keep their insertion order in both directions.
//
//	repo := entries.NewSQLiteRepository(db)
//	id, _ := repo.Insert(ctx, &models.Entry{Title: "t", Content: "c", Date: "2025-01-01"})
//	list, _ := repo.List(ctx, models.Descending)
package entries
