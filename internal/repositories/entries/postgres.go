package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
	"github.com/dmitrijs2005/gophdiary/internal/models"
)

// postgresDateOrder pins the "C" collation; the database default may be
// locale aware and would not sort in byte order.
const postgresDateOrder = `date COLLATE "C"`

// PostgresRepository implements Repository on PostgreSQL via the pgx stdlib driver.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, e *models.Entry) (int64, error) {
	query := `INSERT INTO entries (title, content, date) VALUES ($1, $2, $3) RETURNING id`

	var id int64
	if err := r.db.QueryRowContext(ctx, query, e.Title, e.Content, e.Date).Scan(&id); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) Update(ctx context.Context, e *models.Entry) error {
	query := `UPDATE entries SET title = $1, content = $2, date = $3 WHERE id = $4`
	res, err := r.db.ExecContext(ctx, query, e.Title, e.Content, e.Date, e.ID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("entry %d: %w", e.ID, common.ErrorNotFound)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, order models.Order) ([]models.Entry, error) {
	query := `SELECT id, title, content, date FROM entries ` + orderClause(postgresDateOrder, order)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return scanEntries(rows)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Entry, error) {
	query := `SELECT id, title, content, date FROM entries WHERE id = $1`
	e := &models.Entry{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.Title, &e.Content, &e.Date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entry %d: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("error performing sql request: %w", err)
	}
	return n, nil
}
