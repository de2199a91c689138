package auditlog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit entries from PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Timeline returns entries matching the filters, newest first. Limit is
// applied as given; callers over-fetch by one row to detect further pages.
func (r *Repository) Timeline(ctx context.Context, f TimelineFilters, limit, offset int) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if len(f.Types) > 0 {
		types := make([]string, 0, len(f.Types))
		for _, t := range f.Types {
			types = append(types, string(t))
		}
		conds = append(conds, "log_type = ANY("+arg(types)+")")
	}
	if f.Severity != "" {
		conds = append(conds, "severity = "+arg(string(f.Severity)))
	}
	if f.BatchID != 0 {
		conds = append(conds, "batch_id = "+arg(f.BatchID))
	}
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= "+arg(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= "+arg(f.To))
	}

	query := `SELECT id, log_type, severity, message,
		COALESCE(batch_id, 0), COALESCE(equipment_type_id, 0), COALESCE(process_id, 0), COALESCE(actor_id, 0),
		COALESCE(quantity_deducted, 0), COALESCE(changed_fields, '{}'), occurred_at
	FROM audit_logs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at time.Time
		if err := rows.Scan(&e.ID, &e.LogType, &e.Severity, &e.Message,
			&e.BatchID, &e.EquipmentTypeID, &e.ProcessID, &e.ActorID,
			&e.QuantityDeducted, &e.ChangedFields, &at); err != nil {
			return nil, err
		}
		e.At = at
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RackUsage sums deducted quantities recorded for a batch against one
// equipment type. It reads the structured quantity column; messages are
// never parsed.
func (r *Repository) RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity_deducted), 0)
		FROM audit_logs
		WHERE log_type = $1 AND batch_id = $2 AND equipment_type_id = $3`,
		string(LogEquipmentDeduction), batchID, equipmentTypeID).Scan(&total)
	return total, err
}
