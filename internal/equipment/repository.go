package equipment

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cacaoflow/cacaoflow/internal/platform/db"
)

// Repository persists equipment data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	TxPort
}

type txRepo struct {
	tx pgx.Tx
}

// NewTxPort adapts an open pgx transaction to the ledger's TxPort. Used by
// modules that deduct equipment inside their own transactions.
func NewTxPort(tx pgx.Tx) TxPort {
	return &txRepo{tx: tx}
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// CreateType inserts an equipment type together with an empty inventory row.
func (r *Repository) CreateType(ctx context.Context, name string, tag TypeTag) (EquipmentType, error) {
	var et EquipmentType
	err := r.pool.QueryRow(ctx, `INSERT INTO equipment_types (name, type_tag, created_at)
		VALUES ($1, $2, NOW()) RETURNING id, name, type_tag, created_at`,
		name, string(tag)).Scan(&et.ID, &et.Name, &et.TypeTag, &et.CreatedAt)
	if err != nil {
		return EquipmentType{}, err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO equipment_inventory (equipment_type_id, qty_available, updated_at)
		VALUES ($1, 0, NOW())`, et.ID)
	if err != nil {
		return EquipmentType{}, err
	}
	return et, nil
}

// ListTypes returns all types joined with their quantities.
func (r *Repository) ListTypes(ctx context.Context) ([]ListedType, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, t.name, t.type_tag, t.created_at, COALESCE(i.qty_available, 0)
		FROM equipment_types t
		LEFT JOIN equipment_inventory i ON i.equipment_type_id = t.id
		ORDER BY t.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ListedType
	for rows.Next() {
		var lt ListedType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.TypeTag, &lt.CreatedAt, &lt.QtyAvailable); err != nil {
			return nil, err
		}
		lt.Status = StatusFor(lt.QtyAvailable)
		list = append(list, lt)
	}
	return list, rows.Err()
}

// FindByTag resolves an exact type-tag match.
func (r *Repository) FindByTag(ctx context.Context, tag TypeTag) (EquipmentType, error) {
	return scanType(r.pool.QueryRow(ctx, `SELECT id, name, type_tag, created_at
		FROM equipment_types WHERE type_tag = $1 ORDER BY id LIMIT 1`, string(tag)))
}

// FindByNameFragment resolves a case-insensitive substring match on the
// display name. Compatibility path for legacy untagged rows.
func (r *Repository) FindByNameFragment(ctx context.Context, fragment string) (EquipmentType, error) {
	return scanType(r.pool.QueryRow(ctx, `SELECT id, name, type_tag, created_at
		FROM equipment_types WHERE name ILIKE '%' || $1 || '%' ORDER BY id LIMIT 1`, fragment))
}

// GetType fetches a type by ID.
func (r *Repository) GetType(ctx context.Context, id int64) (EquipmentType, error) {
	return scanType(r.pool.QueryRow(ctx, `SELECT id, name, type_tag, created_at
		FROM equipment_types WHERE id = $1`, id))
}

func scanType(row pgx.Row) (EquipmentType, error) {
	var et EquipmentType
	if err := row.Scan(&et.ID, &et.Name, &et.TypeTag, &et.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EquipmentType{}, ErrEquipmentNotFound
		}
		return EquipmentType{}, err
	}
	return et, nil
}

func (t *txRepo) GetInventoryForUpdate(ctx context.Context, typeID int64) (Inventory, error) {
	var inv Inventory
	err := t.tx.QueryRow(ctx, `SELECT equipment_type_id, qty_available, updated_at
		FROM equipment_inventory WHERE equipment_type_id = $1 FOR UPDATE`, typeID).
		Scan(&inv.EquipmentTypeID, &inv.QtyAvailable, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Inventory{}, ErrInventoryNotFound
		}
		return Inventory{}, err
	}
	return inv, nil
}

func (t *txRepo) SetQuantity(ctx context.Context, typeID int64, qty int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE equipment_inventory SET qty_available = $1, updated_at = NOW()
		WHERE equipment_type_id = $2`, qty, typeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInventoryNotFound
	}
	return nil
}

func (t *txRepo) InsertTransfer(ctx context.Context, tr Transfer) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO equipment_transfers
		(equipment_type_id, from_status, to_status, qty, supplier, occurred_at)
		VALUES ($1, $2, $3, $4, $5, NOW())`,
		tr.EquipmentTypeID, tr.FromStatus, tr.ToStatus, tr.Qty, tr.Supplier)
	return err
}
