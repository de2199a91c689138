package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBatch(ctx context.Context, id int64) (Batch, Inventory, error)
	ListActive(ctx context.Context) ([]ActiveBatchRow, error)
	ListDried(ctx context.Context) ([]DriedBatchRow, error)
	ListProcesses(ctx context.Context) ([]ProcessRow, error)
}

// EquipmentPort resolves logical equipment needs to concrete types.
// Type rows are immutable, so resolution can happen outside the
// transition's transaction; only quantities are read under lock.
type EquipmentPort interface {
	Lookup(ctx context.Context, needle string) (equipment.EquipmentType, error)
}

// AuditPort records entries outside the transition transaction. Used only
// for the post-rollback shortfall entry; success-path entries are appended
// through the TxRepository so they commit atomically with the transition.
type AuditPort interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// UsagePort reconstructs equipment usage from the audit trail.
type UsagePort interface {
	RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error)
}

// Service drives the batch lifecycle state machine. Every transition is a
// single atomic unit over batch rows, the equipment ledger and the audit
// sink.
type Service struct {
	logger    *slog.Logger
	repo      RepositoryPort
	equipment EquipmentPort
	audit     AuditPort
	usage     UsagePort
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, equip EquipmentPort, audit AuditPort, usage UsagePort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, equipment: equip, audit: audit, usage: usage}
}

// IntakeInput describes a fresh delivery.
type IntakeInput struct {
	HarvestDate time.Time
	WeightKg    float64
	Supplier    string
	ActorID     int64
}

// GradeInput describes a grading outcome. Reject is caller-supplied.
type GradeInput struct {
	BatchID   int64
	GradeA    int
	GradeB    int
	Reject    int
	BoxesUsed int
	ActorID   int64
}

// Intake receives a fresh batch. Sacks are deducted in the same transaction
// that creates the batch; a sack shortfall aborts the intake entirely and
// no partial batch is left behind.
func (s *Service) Intake(ctx context.Context, input IntakeInput) (Batch, error) {
	if input.HarvestDate.IsZero() {
		return Batch{}, &ValidationError{Field: "harvest_date", Reason: "required"}
	}
	if input.WeightKg <= 0 {
		return Batch{}, &ValidationError{Field: "weight_kg", Reason: "must be positive"}
	}
	if strings.TrimSpace(input.Supplier) == "" {
		return Batch{}, &ValidationError{Field: "supplier", Reason: "required"}
	}

	sacks := SacksNeeded(input.WeightKg)
	sackType, err := s.equipment.Lookup(ctx, string(equipment.TagSack))
	if err != nil {
		return Batch{}, err
	}

	var created Batch
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		receipt, err := equipment.Deduct(ctx, tx, sackType, sacks)
		if err != nil {
			return err
		}
		id, err := tx.InsertBatch(ctx, Batch{
			HarvestDate:     input.HarvestDate,
			InitialWeightKg: input.WeightKg,
			Supplier:        input.Supplier,
		})
		if err != nil {
			return err
		}
		created = Batch{
			ID:              id,
			Code:            FormatCode(id),
			HarvestDate:     input.HarvestDate,
			InitialWeightKg: input.WeightKg,
			Supplier:        input.Supplier,
		}
		if err := tx.InsertBatchInventory(ctx, Inventory{
			BatchID:         id,
			CurrentWeightKg: input.WeightKg,
			Status:          StatusFresh,
		}); err != nil {
			return err
		}
		if err := tx.InsertBatchTransfer(ctx, TransferLine{
			BatchID:    id,
			FromStatus: TransferSourceIntake,
			ToStatus:   StatusFresh,
			Qty:        input.WeightKg,
		}); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, auditlog.Entry{
			LogType:  auditlog.LogInventory,
			Severity: auditlog.SeverityInfo,
			Message:  fmt.Sprintf("Batch %s received: %.2f kg from %s", created.Code, input.WeightKg, input.Supplier),
			BatchID:  id,
			ActorID:  input.ActorID,
		}); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, auditlog.Entry{
			LogType:          auditlog.LogEquipmentDeduction,
			Severity:         auditlog.SeverityInfo,
			Message:          fmt.Sprintf("Deducted %d %s for batch %s", receipt.Qty, sackType.Name, created.Code),
			BatchID:          id,
			EquipmentTypeID:  sackType.ID,
			ActorID:          input.ActorID,
			QuantityDeducted: receipt.Qty,
		})
	})
	if err != nil {
		s.recordShortfall(ctx, "Intake", 0, input.ActorID, err)
		return Batch{}, err
	}
	return created, nil
}

// Proceed moves a batch into its next active stage. Only Fresh and
// Fermented batches are eligible. Racks are deducted on the
// Fresh→Fermenting edge; the Fermented→Drying edge consumes nothing.
func (s *Service) Proceed(ctx context.Context, batchID, actorID int64) (Process, error) {
	var created Process
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		var (
			dst   Status
			stage Stage
			racks int
		)
		switch inv.Status {
		case StatusFresh:
			dst, stage = StatusFermenting, StageFermenting
			racks = RacksNeeded(inv.CurrentWeightKg)
		case StatusFermented:
			dst, stage = StatusDrying, StageDrying
		default:
			return fmt.Errorf("%w: batch %s is %s", ErrInvalidTransition, FormatCode(batchID), inv.Status)
		}

		if racks > 0 {
			rackType, err := s.equipment.Lookup(ctx, string(equipment.TagRack))
			if err != nil {
				return err
			}
			receipt, err := equipment.Deduct(ctx, tx, rackType, racks)
			if err != nil {
				return err
			}
			if err := tx.AppendAudit(ctx, auditlog.Entry{
				LogType:          auditlog.LogEquipmentDeduction,
				Severity:         auditlog.SeverityInfo,
				Message:          fmt.Sprintf("Deducted %d %s for batch %s", receipt.Qty, rackType.Name, FormatCode(batchID)),
				BatchID:          batchID,
				EquipmentTypeID:  rackType.ID,
				ActorID:          actorID,
				QuantityDeducted: receipt.Qty,
			}); err != nil {
				return err
			}
		}

		processID, err := tx.InsertProcess(ctx, Process{BatchID: batchID, Stage: stage})
		if err != nil {
			return err
		}
		created = Process{ID: processID, BatchID: batchID, Stage: stage}
		if err := tx.InsertBatchTransfer(ctx, TransferLine{
			BatchID:    batchID,
			FromStatus: string(inv.Status),
			ToStatus:   dst,
			Qty:        inv.CurrentWeightKg,
		}); err != nil {
			return err
		}
		if err := tx.UpdateBatchStatus(ctx, batchID, dst); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, auditlog.Entry{
			LogType:   auditlog.LogProcess,
			Severity:  auditlog.SeverityInfo,
			Message:   fmt.Sprintf("Batch %s moved from %s to %s", FormatCode(batchID), inv.Status, dst),
			BatchID:   batchID,
			ProcessID: processID,
			ActorID:   actorID,
		})
	})
	if err != nil {
		s.recordShortfall(ctx, "Proceed", batchID, actorID, err)
		return Process{}, err
	}
	return created, nil
}

// Complete finishes the active stage behind a process: fermenting batches
// become Fermented, drying batches become Dried. The process row is removed;
// the transfer line remains as the durable trail.
func (s *Service) Complete(ctx context.Context, processID, actorID int64) (Inventory, error) {
	var after Inventory
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetProcessForUpdate(ctx, processID)
		if err != nil {
			return err
		}
		inv, err := tx.GetBatchForUpdate(ctx, p.BatchID)
		if err != nil {
			return err
		}

		var dst Status
		switch {
		case p.Stage == StageFermenting && inv.Status == StatusFermenting:
			dst = StatusFermented
		case p.Stage == StageDrying && inv.Status == StatusDrying:
			dst = StatusDried
		default:
			return fmt.Errorf("%w: process %d stage %s, batch is %s",
				ErrInvalidProcessStatus, processID, p.Stage, inv.Status)
		}

		if err := tx.UpdateBatchStatus(ctx, p.BatchID, dst); err != nil {
			return err
		}
		if err := tx.DeleteProcess(ctx, processID); err != nil {
			return err
		}
		if err := tx.InsertBatchTransfer(ctx, TransferLine{
			BatchID:    p.BatchID,
			FromStatus: string(inv.Status),
			ToStatus:   dst,
			Qty:        inv.CurrentWeightKg,
		}); err != nil {
			return err
		}
		after = Inventory{BatchID: p.BatchID, CurrentWeightKg: inv.CurrentWeightKg, Status: dst}
		return tx.AppendAudit(ctx, auditlog.Entry{
			LogType:   auditlog.LogProcess,
			Severity:  auditlog.SeverityInfo,
			Message:   fmt.Sprintf("Batch %s completed %s", FormatCode(p.BatchID), p.Stage),
			BatchID:   p.BatchID,
			ProcessID: processID,
			ActorID:   actorID,
		})
	})
	if err != nil {
		return Inventory{}, err
	}
	return after, nil
}

// Grade records the grading outcome for a dried batch. A box shortfall does
// not block the grade: the deduction is skipped and a warning entry is
// appended instead.
func (s *Service) Grade(ctx context.Context, input GradeInput) (QualityGrading, error) {
	if input.GradeA < 0 || input.GradeB < 0 || input.Reject < 0 || input.BoxesUsed < 0 {
		return QualityGrading{}, &ValidationError{Field: "counts", Reason: "must not be negative"}
	}

	var graded QualityGrading
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}
		if inv.Status != StatusDried {
			return fmt.Errorf("%w: batch %s is %s", ErrInvalidTransition, FormatCode(input.BatchID), inv.Status)
		}

		if input.BoxesUsed > 0 {
			if err := s.deductBoxes(ctx, tx, input); err != nil {
				return err
			}
		}

		gradingID, err := tx.InsertGrading(ctx, QualityGrading{
			BatchID:   input.BatchID,
			GradeA:    input.GradeA,
			GradeB:    input.GradeB,
			Reject:    input.Reject,
			BoxesUsed: input.BoxesUsed,
		})
		if err != nil {
			return err
		}
		graded = QualityGrading{
			ID:        gradingID,
			BatchID:   input.BatchID,
			GradeA:    input.GradeA,
			GradeB:    input.GradeB,
			Reject:    input.Reject,
			BoxesUsed: input.BoxesUsed,
		}
		if err := tx.UpdateBatchStatus(ctx, input.BatchID, StatusGraded); err != nil {
			return err
		}
		if err := tx.InsertBatchTransfer(ctx, TransferLine{
			BatchID:    input.BatchID,
			FromStatus: string(StatusDried),
			ToStatus:   StatusGraded,
			Qty:        inv.CurrentWeightKg,
		}); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, auditlog.Entry{
			LogType:  auditlog.LogProcess,
			Severity: auditlog.SeverityInfo,
			Message: fmt.Sprintf("Batch %s graded: A=%d, B=%d, reject=%d",
				FormatCode(input.BatchID), input.GradeA, input.GradeB, input.Reject),
			BatchID: input.BatchID,
			ActorID: input.ActorID,
		})
	})
	if err != nil {
		return QualityGrading{}, err
	}
	return graded, nil
}

// deductBoxes attempts the box deduction for a grading. Missing equipment
// and shortfalls are downgraded to warnings; the grade proceeds either way.
func (s *Service) deductBoxes(ctx context.Context, tx TxRepository, input GradeInput) error {
	boxType, err := s.equipment.Lookup(ctx, string(equipment.TagBoxes))
	if err != nil {
		if errors.Is(err, equipment.ErrEquipmentNotFound) {
			return tx.AppendAudit(ctx, auditlog.Entry{
				LogType:  auditlog.LogEquipmentAlert,
				Severity: auditlog.SeverityWarning,
				Message:  fmt.Sprintf("Box deduction skipped for batch %s: no boxes equipment registered", FormatCode(input.BatchID)),
				BatchID:  input.BatchID,
				ActorID:  input.ActorID,
			})
		}
		return err
	}
	receipt, err := equipment.Deduct(ctx, tx, boxType, input.BoxesUsed)
	if err != nil {
		var shortfall *equipment.ShortfallError
		if errors.As(err, &shortfall) || errors.Is(err, equipment.ErrInventoryNotFound) {
			msg := fmt.Sprintf("Box deduction skipped for batch %s", FormatCode(input.BatchID))
			if shortfall != nil {
				msg = fmt.Sprintf("Box deduction skipped for batch %s: need %d, have %d",
					FormatCode(input.BatchID), shortfall.Needed, shortfall.Available)
			}
			return tx.AppendAudit(ctx, auditlog.Entry{
				LogType:         auditlog.LogEquipmentAlert,
				Severity:        auditlog.SeverityWarning,
				Message:         msg,
				BatchID:         input.BatchID,
				EquipmentTypeID: boxType.ID,
				ActorID:         input.ActorID,
			})
		}
		return err
	}
	return tx.AppendAudit(ctx, auditlog.Entry{
		LogType:          auditlog.LogEquipmentDeduction,
		Severity:         auditlog.SeverityInfo,
		Message:          fmt.Sprintf("Deducted %d %s for batch %s", receipt.Qty, boxType.Name, FormatCode(input.BatchID)),
		BatchID:          input.BatchID,
		EquipmentTypeID:  boxType.ID,
		ActorID:          input.ActorID,
		QuantityDeducted: receipt.Qty,
	})
}

// Pickup marks a graded batch as collected. Terminal; no equipment moves.
func (s *Service) Pickup(ctx context.Context, batchID, actorID int64) (Inventory, error) {
	var after Inventory
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if inv.Status != StatusGraded {
			return fmt.Errorf("%w: batch %s is %s", ErrInvalidTransition, FormatCode(batchID), inv.Status)
		}
		if err := tx.UpdateBatchStatus(ctx, batchID, StatusPickedUp); err != nil {
			return err
		}
		if err := tx.InsertBatchTransfer(ctx, TransferLine{
			BatchID:    batchID,
			FromStatus: string(StatusGraded),
			ToStatus:   StatusPickedUp,
			Qty:        inv.CurrentWeightKg,
		}); err != nil {
			return err
		}
		after = Inventory{BatchID: batchID, CurrentWeightKg: inv.CurrentWeightKg, Status: StatusPickedUp}
		return tx.AppendAudit(ctx, auditlog.Entry{
			LogType:  auditlog.LogInventory,
			Severity: auditlog.SeverityInfo,
			Message:  fmt.Sprintf("Batch %s picked up", FormatCode(batchID)),
			BatchID:  batchID,
			ActorID:  actorID,
		})
	})
	if err != nil {
		return Inventory{}, err
	}
	return after, nil
}

// recordShortfall writes the single post-rollback critical entry for a
// transition blocked by an equipment shortfall. The entry is deliberately
// outside the rolled-back transaction: it describes a transition that did
// not happen. Other failures surface without synthesized audit content.
func (s *Service) recordShortfall(ctx context.Context, action string, batchID, actorID int64, err error) {
	var shortfall *equipment.ShortfallError
	if !errors.As(err, &shortfall) {
		return
	}
	if s.audit == nil {
		return
	}
	entry := auditlog.Entry{
		LogType:  auditlog.LogEquipmentAlert,
		Severity: auditlog.SeverityCritical,
		Message: fmt.Sprintf("%s blocked: need %d %s, only %d available",
			action, shortfall.Needed, shortfall.Equipment, shortfall.Available),
		BatchID:         batchID,
		EquipmentTypeID: shortfall.EquipmentTypeID,
		ActorID:         actorID,
	}
	if recordErr := s.audit.Record(ctx, entry); recordErr != nil {
		s.logger.Error("record shortfall audit entry", slog.Any("error", recordErr))
	}
}

// Get loads one batch with its inventory.
func (s *Service) Get(ctx context.Context, id int64) (Batch, Inventory, error) {
	return s.repo.GetBatch(ctx, id)
}

// ListActive lists batches still in the pipeline with their derived display
// columns: Fresh batches show sacks, Fermented batches show racks, all
// other stages show raw bean weight.
func (s *Service) ListActive(ctx context.Context) ([]ActiveBatchRow, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DisplayItem, rows[i].DisplayQty = displayFor(rows[i].Status, rows[i].CurrentWeightKg)
	}
	return rows, nil
}

// ListDried lists dried batches with rack usage reconstructed from the
// audit trail's structured quantity column.
func (s *Service) ListDried(ctx context.Context) ([]DriedBatchRow, error) {
	rows, err := s.repo.ListDried(ctx)
	if err != nil {
		return nil, err
	}
	if rackType, ok := s.rackType(ctx); ok {
		for i := range rows {
			rows[i].RacksUsed = s.rackUsageFor(ctx, rackType.ID, rows[i].Batch.ID)
		}
	}
	return rows, nil
}

// ListProcesses lists active processes; rows carry rack usage.
func (s *Service) ListProcesses(ctx context.Context) ([]ProcessRow, error) {
	rows, err := s.repo.ListProcesses(ctx)
	if err != nil {
		return nil, err
	}
	if rackType, ok := s.rackType(ctx); ok {
		for i := range rows {
			rows[i].RacksUsed = s.rackUsageFor(ctx, rackType.ID, rows[i].Process.BatchID)
		}
	}
	return rows, nil
}

func (s *Service) rackType(ctx context.Context) (equipment.EquipmentType, bool) {
	if s.usage == nil {
		return equipment.EquipmentType{}, false
	}
	rackType, err := s.equipment.Lookup(ctx, string(equipment.TagRack))
	if err != nil {
		s.logger.Warn("rack usage unavailable", slog.Any("error", err))
		return equipment.EquipmentType{}, false
	}
	return rackType, true
}

func (s *Service) rackUsageFor(ctx context.Context, rackTypeID, batchID int64) int {
	used, err := s.usage.RackUsage(ctx, batchID, rackTypeID)
	if err != nil {
		s.logger.Warn("rack usage lookup failed",
			slog.Int64("batch_id", batchID), slog.Any("error", err))
		return 0
	}
	return used
}

func displayFor(status Status, weightKg float64) (string, float64) {
	switch status {
	case StatusFresh:
		return "sack", float64(SacksNeeded(weightKg))
	case StatusFermented:
		return "rack", float64(RacksNeeded(weightKg))
	default:
		return "beans", weightKg
	}
}
