package entries

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/models"
)

// Repository describes the operations the entry store needs from storage.
type Repository interface {
	// Insert stores e, ignoring e.ID, and returns the newly assigned id.
	Insert(ctx context.Context, e *models.Entry) (int64, error)

	// Update overwrites title, content and date of the row with e.ID.
	// It returns common.ErrorNotFound when no such row exists.
	Update(ctx context.Context, e *models.Entry) error

	// List returns every entry ordered by date in the given direction.
	List(ctx context.Context, order models.Order) ([]models.Entry, error)

	// GetByID returns one entry or common.ErrorNotFound.
	GetByID(ctx context.Context, id int64) (*models.Entry, error)

	// DeleteAll removes every entry.
	DeleteAll(ctx context.Context) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int64, error)
}

// orderClause sorts on dateExpr, which must compare dates byte by byte:
// ISO dates are only chronological under plain lexicographic order.
func orderClause(dateExpr string, order models.Order) string {
	if order == models.Ascending {
		return "ORDER BY " + dateExpr + " ASC, id ASC"
	}
	return "ORDER BY " + dateExpr + " DESC, id ASC"
}

func scanEntries(rows *sql.Rows) ([]models.Entry, error) {
	defer rows.Close()

	result := make([]models.Entry, 0)
	for rows.Next() {
		var e models.Entry
		if err := rows.Scan(&e.ID, &e.Title, &e.Content, &e.Date); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
