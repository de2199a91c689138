package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cacaoflow/cacaoflow/internal/batch"
)

// Repository reads dashboard aggregates from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountByStatus groups batches by lifecycle status.
func (r *Repository) CountByStatus(ctx context.Context) (map[batch.Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT batch_status, COUNT(*) FROM batch_inventory GROUP BY batch_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[batch.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[batch.Status(status)] = n
	}
	return counts, rows.Err()
}
