package staff

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists staff members in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a staff member.
func (r *Repository) Create(ctx context.Context, m Member) (Member, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO staff (email, name, role, password_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		m.Email, m.Name, string(m.Role), m.PasswordHash).
		Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Member{}, ErrDuplicateEmail
		}
		return Member{}, err
	}
	m.IsActive = true
	return m, nil
}

// Get fetches one member by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Member, error) {
	var m Member
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, password_hash, is_active, created_at, updated_at
		FROM staff WHERE id = $1`, id).
		Scan(&m.ID, &m.Email, &m.Name, &m.Role, &m.PasswordHash, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrStaffNotFound
		}
		return Member{}, err
	}
	return m, nil
}

// List returns all members ordered by name.
func (r *Repository) List(ctx context.Context) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at
		FROM staff ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Email, &m.Name, &m.Role, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Update writes the mutable fields of a member.
func (r *Repository) Update(ctx context.Context, m Member) error {
	tag, err := r.pool.Exec(ctx, `UPDATE staff SET email = $1, name = $2, role = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5`, m.Email, m.Name, string(m.Role), m.IsActive, m.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaffNotFound
	}
	return nil
}
