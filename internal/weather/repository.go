package weather

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists observations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one observation.
func (r *Repository) Insert(ctx context.Context, obs Observation) (Observation, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO weather_observations (condition, temp_c, humidity_pct, rain_mm, observed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`,
		obs.Condition, obs.TempC, obs.HumidityPct, obs.RainMm, obs.ObservedAt).
		Scan(&obs.ID, &obs.CreatedAt)
	return obs, err
}

// Latest returns the most recent observation.
func (r *Repository) Latest(ctx context.Context) (Observation, error) {
	var obs Observation
	err := r.pool.QueryRow(ctx, `SELECT id, condition, temp_c, humidity_pct, rain_mm, observed_at, created_at
		FROM weather_observations ORDER BY observed_at DESC, id DESC LIMIT 1`).
		Scan(&obs.ID, &obs.Condition, &obs.TempC, &obs.HumidityPct, &obs.RainMm, &obs.ObservedAt, &obs.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Observation{}, ErrNoObservations
		}
		return Observation{}, err
	}
	return obs, nil
}

// History returns the newest observations up to limit.
func (r *Repository) History(ctx context.Context, limit int) ([]Observation, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, condition, temp_c, humidity_pct, rain_mm, observed_at, created_at
		FROM weather_observations ORDER BY observed_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var obs Observation
		if err := rows.Scan(&obs.ID, &obs.Condition, &obs.TempC, &obs.HumidityPct, &obs.RainMm, &obs.ObservedAt, &obs.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

// CountDrying reports how many batches are currently on the drying floor.
func (r *Repository) CountDrying(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM batch_inventory WHERE batch_status = 'drying'`).Scan(&n)
	return n, err
}
