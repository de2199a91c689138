package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
)

// TaskLowStockScan sweeps equipment inventory for low or empty stock.
const TaskLowStockScan = "equipment:lowstock_scan"

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the stock sweep.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// LowStockLister lists equipment with derived stock status.
type LowStockLister interface {
	List(ctx context.Context) ([]equipment.ListedType, error)
}

// LowStockRecorder appends audit entries.
type LowStockRecorder interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// NewLowStockScanHandler binds the equipment read side to the task type.
func NewLowStockScanHandler(logger *slog.Logger, lister LowStockLister, recorder LowStockRecorder) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		listed, err := lister.List(ctx)
		if err != nil {
			return err
		}
		for _, item := range listed {
			if item.Status == equipment.StatusAvailable {
				continue
			}
			severity := auditlog.SeverityWarning
			if item.Status == equipment.StatusOutOfStock {
				severity = auditlog.SeverityCritical
			}
			entry := auditlog.Entry{
				LogType:         auditlog.LogEquipmentAlert,
				Severity:        severity,
				Message:         fmt.Sprintf("%s stock is %s: %d left", item.Name, item.Status, item.QtyAvailable),
				EquipmentTypeID: item.ID,
			}
			if err := recorder.Record(ctx, entry); err != nil {
				logger.Warn("record low stock alert", slog.Any("error", err))
			}
		}
		return nil
	}
}
