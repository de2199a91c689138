package batch

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/platform/db"
)

// Repository persists batch data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository is the single transactional unit a transition runs against:
// batch rows, the equipment ledger and the audit sink all commit or roll
// back together.
type TxRepository interface {
	equipment.TxPort

	InsertBatch(ctx context.Context, b Batch) (int64, error)
	InsertBatchInventory(ctx context.Context, inv Inventory) error
	GetBatchForUpdate(ctx context.Context, batchID int64) (Inventory, error)
	UpdateBatchStatus(ctx context.Context, batchID int64, status Status) error
	InsertProcess(ctx context.Context, p Process) (int64, error)
	GetProcessForUpdate(ctx context.Context, id int64) (Process, error)
	DeleteProcess(ctx context.Context, id int64) error
	InsertGrading(ctx context.Context, g QualityGrading) (int64, error)
	InsertBatchTransfer(ctx context.Context, line TransferLine) error
	AppendAudit(ctx context.Context, e auditlog.Entry) error
}

type txRepo struct {
	equipment.TxPort
	tx       pgx.Tx
	recorder *auditlog.Recorder
}

// WithTx wraps the callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		wrapper := &txRepo{
			TxPort:   equipment.NewTxPort(tx),
			tx:       tx,
			recorder: auditlog.NewRecorder(tx),
		}
		return fn(ctx, wrapper)
	})
}

func (t *txRepo) InsertBatch(ctx context.Context, b Batch) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO batches (harvest_date, initial_weight_kg, supplier, created_at)
		VALUES ($1, $2, $3, NOW()) RETURNING id`,
		b.HarvestDate, b.InitialWeightKg, b.Supplier).Scan(&id)
	return id, err
}

func (t *txRepo) InsertBatchInventory(ctx context.Context, inv Inventory) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO batch_inventory (batch_id, current_weight_kg, batch_status, updated_at)
		VALUES ($1, $2, $3, NOW())`, inv.BatchID, inv.CurrentWeightKg, string(inv.Status))
	return err
}

func (t *txRepo) GetBatchForUpdate(ctx context.Context, batchID int64) (Inventory, error) {
	var inv Inventory
	err := t.tx.QueryRow(ctx, `SELECT batch_id, current_weight_kg, batch_status, updated_at
		FROM batch_inventory WHERE batch_id = $1 FOR UPDATE`, batchID).
		Scan(&inv.BatchID, &inv.CurrentWeightKg, &inv.Status, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Inventory{}, ErrBatchNotFound
		}
		return Inventory{}, err
	}
	return inv, nil
}

func (t *txRepo) UpdateBatchStatus(ctx context.Context, batchID int64, status Status) error {
	tag, err := t.tx.Exec(ctx, `UPDATE batch_inventory SET batch_status = $1, updated_at = NOW()
		WHERE batch_id = $2`, string(status), batchID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBatchNotFound
	}
	return nil
}

func (t *txRepo) InsertProcess(ctx context.Context, p Process) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO processes (batch_id, stage, started_at)
		VALUES ($1, $2, NOW()) RETURNING id`, p.BatchID, string(p.Stage)).Scan(&id)
	return id, err
}

func (t *txRepo) GetProcessForUpdate(ctx context.Context, id int64) (Process, error) {
	var p Process
	err := t.tx.QueryRow(ctx, `SELECT id, batch_id, stage, started_at
		FROM processes WHERE id = $1 FOR UPDATE`, id).
		Scan(&p.ID, &p.BatchID, &p.Stage, &p.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Process{}, ErrProcessNotFound
		}
		return Process{}, err
	}
	return p, nil
}

func (t *txRepo) DeleteProcess(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM processes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProcessNotFound
	}
	return nil
}

func (t *txRepo) InsertGrading(ctx context.Context, g QualityGrading) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO quality_gradings (batch_id, grade_a, grade_b, reject, boxes_used, graded_at)
		VALUES ($1, $2, $3, $4, $5, NOW()) RETURNING id`,
		g.BatchID, g.GradeA, g.GradeB, g.Reject, g.BoxesUsed).Scan(&id)
	return id, err
}

func (t *txRepo) InsertBatchTransfer(ctx context.Context, line TransferLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO batch_transfers (batch_id, from_status, to_status, qty, occurred_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		line.BatchID, line.FromStatus, string(line.ToStatus), line.Qty)
	return err
}

func (t *txRepo) AppendAudit(ctx context.Context, e auditlog.Entry) error {
	return t.recorder.Record(ctx, e)
}

// GetBatch loads a batch with its inventory.
func (r *Repository) GetBatch(ctx context.Context, id int64) (Batch, Inventory, error) {
	var b Batch
	var inv Inventory
	err := r.pool.QueryRow(ctx, `SELECT b.id, b.harvest_date, b.initial_weight_kg, b.supplier, b.created_at,
		i.current_weight_kg, i.batch_status, i.updated_at
		FROM batches b JOIN batch_inventory i ON i.batch_id = b.id
		WHERE b.id = $1`, id).
		Scan(&b.ID, &b.HarvestDate, &b.InitialWeightKg, &b.Supplier, &b.CreatedAt,
			&inv.CurrentWeightKg, &inv.Status, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Batch{}, Inventory{}, ErrBatchNotFound
		}
		return Batch{}, Inventory{}, err
	}
	b.Code = FormatCode(b.ID)
	inv.BatchID = b.ID
	return b, inv, nil
}

// ListActive returns batches not yet picked up, oldest first.
func (r *Repository) ListActive(ctx context.Context) ([]ActiveBatchRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.harvest_date, b.initial_weight_kg, b.supplier, b.created_at,
		i.batch_status, i.current_weight_kg
		FROM batches b JOIN batch_inventory i ON i.batch_id = b.id
		WHERE i.batch_status <> $1
		ORDER BY b.id`, string(StatusPickedUp))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ActiveBatchRow
	for rows.Next() {
		var row ActiveBatchRow
		if err := rows.Scan(&row.ID, &row.HarvestDate, &row.InitialWeightKg, &row.Supplier, &row.CreatedAt,
			&row.Status, &row.CurrentWeightKg); err != nil {
			return nil, err
		}
		row.Code = FormatCode(row.ID)
		list = append(list, row)
	}
	return list, rows.Err()
}

// ListDried returns batches awaiting grading.
func (r *Repository) ListDried(ctx context.Context) ([]DriedBatchRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT b.id, b.harvest_date, b.initial_weight_kg, b.supplier, b.created_at,
		i.current_weight_kg
		FROM batches b JOIN batch_inventory i ON i.batch_id = b.id
		WHERE i.batch_status = $1
		ORDER BY b.id`, string(StatusDried))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []DriedBatchRow
	for rows.Next() {
		var row DriedBatchRow
		if err := rows.Scan(&row.ID, &row.HarvestDate, &row.InitialWeightKg, &row.Supplier, &row.CreatedAt,
			&row.CurrentWeightKg); err != nil {
			return nil, err
		}
		row.Code = FormatCode(row.ID)
		list = append(list, row)
	}
	return list, rows.Err()
}

// ListProcesses returns all active processes joined with batch data.
func (r *Repository) ListProcesses(ctx context.Context) ([]ProcessRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.batch_id, p.stage, p.started_at,
		i.current_weight_kg, i.batch_status
		FROM processes p JOIN batch_inventory i ON i.batch_id = p.batch_id
		ORDER BY p.started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []ProcessRow
	for rows.Next() {
		var row ProcessRow
		if err := rows.Scan(&row.Process.ID, &row.Process.BatchID, &row.Stage, &row.StartedAt,
			&row.CurrentWeightKg, &row.Status); err != nil {
			return nil, err
		}
		row.BatchCode = FormatCode(row.Process.BatchID)
		list = append(list, row)
	}
	return list, rows.Err()
}
