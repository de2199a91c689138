package auditlog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *pgxpool.Pool and pgx.Tx, so entries can be
// appended either standalone or inside a transition's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Recorder writes entries into audit_logs.
type Recorder struct {
	db Execer
}

// NewRecorder returns a Recorder bound to the given executor.
func NewRecorder(db Execer) *Recorder {
	return &Recorder{db: db}
}

const insertEntry = `INSERT INTO audit_logs
	(log_type, severity, message, batch_id, equipment_type_id, process_id, actor_id, quantity_deducted, changed_fields, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))`

// Record persists the entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil || r.db == nil {
		return errors.New("auditlog: recorder not initialised")
	}
	if !ValidType(e.LogType) {
		return ErrUnknownLogType
	}
	if e.Severity == "" {
		e.Severity = SeverityInfo
	}
	if e.Message == "" {
		return errors.New("auditlog: message required")
	}
	_, err := r.db.Exec(ctx, insertEntry,
		e.LogType, e.Severity, e.Message,
		nullableID(e.BatchID), nullableID(e.EquipmentTypeID), nullableID(e.ProcessID), nullableID(e.ActorID),
		e.QuantityDeducted, e.ChangedFields, nullableTime(e.At))
	return err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
