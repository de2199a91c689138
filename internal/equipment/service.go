package equipment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateType(ctx context.Context, name string, tag TypeTag) (EquipmentType, error)
	ListTypes(ctx context.Context) ([]ListedType, error)
	FindByTag(ctx context.Context, tag TypeTag) (EquipmentType, error)
	FindByNameFragment(ctx context.Context, fragment string) (EquipmentType, error)
	GetType(ctx context.Context, id int64) (EquipmentType, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// ScanScheduler requests an asynchronous stock sweep so alert state
// catches up after quantities change. Optional.
type ScanScheduler interface {
	ScheduleScan(ctx context.Context) error
}

// Service coordinates the equipment ledger's administrative surface.
type Service struct {
	logger *slog.Logger
	repo   RepositoryPort
	audit  AuditPort
	scans  ScanScheduler
}

// NewService builds a Service.
func NewService(logger *slog.Logger, repo RepositoryPort, audit AuditPort, scans ScanScheduler) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, repo: repo, audit: audit, scans: scans}
}

// CreateType registers a new equipment type with a validated tag.
func (s *Service) CreateType(ctx context.Context, name string, tag TypeTag) (EquipmentType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return EquipmentType{}, fmt.Errorf("equipment: name required")
	}
	if !ValidTag(tag) {
		return EquipmentType{}, ErrInvalidTag
	}
	return s.repo.CreateType(ctx, name, tag)
}

// List returns all equipment types with derived stock status.
func (s *Service) List(ctx context.Context) ([]ListedType, error) {
	return s.repo.ListTypes(ctx)
}

// Lookup resolves a logical equipment need to a concrete type: exact
// type-tag match first, then a case-insensitive name-fragment fallback for
// legacy untagged records. The fallback is logged each time it is taken.
func (s *Service) Lookup(ctx context.Context, needle string) (EquipmentType, error) {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return EquipmentType{}, ErrEquipmentNotFound
	}
	if ValidTag(TypeTag(needle)) {
		et, err := s.repo.FindByTag(ctx, TypeTag(needle))
		if err == nil {
			return et, nil
		}
		if !errors.Is(err, ErrEquipmentNotFound) {
			return EquipmentType{}, err
		}
	}
	et, err := s.repo.FindByNameFragment(ctx, needle)
	if err != nil {
		return EquipmentType{}, err
	}
	s.logger.Warn("equipment resolved via legacy name fragment",
		slog.String("needle", needle),
		slog.Int64("equipment_type_id", et.ID))
	return et, nil
}

// Restock increments available quantity and appends a stock-in transfer.
func (s *Service) Restock(ctx context.Context, typeID int64, qty int, supplier string, actorID int64) (Inventory, error) {
	if qty < 1 {
		return Inventory{}, ErrInvalidQuantity
	}
	et, err := s.repo.GetType(ctx, typeID)
	if err != nil {
		return Inventory{}, err
	}
	var after Inventory
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := Restock(ctx, tx, et, qty, supplier); err != nil {
			return err
		}
		inv, err := tx.GetInventoryForUpdate(ctx, et.ID)
		if err != nil {
			return err
		}
		after = inv
		return nil
	})
	if err != nil {
		return Inventory{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, auditlog.Entry{
			LogType:         auditlog.LogInventory,
			Severity:        auditlog.SeverityInfo,
			Message:         fmt.Sprintf("Restocked %d %s from %s", qty, et.Name, supplier),
			EquipmentTypeID: et.ID,
			ActorID:         actorID,
		}); err != nil {
			s.logger.Warn("record restock audit entry", slog.Any("error", err))
		}
	}
	s.scheduleScan(ctx)
	return after, nil
}

// Deduct removes stock outside any batch transition (manual correction).
func (s *Service) Deduct(ctx context.Context, typeID int64, qty int, actorID int64) (DeductionReceipt, error) {
	et, err := s.repo.GetType(ctx, typeID)
	if err != nil {
		return DeductionReceipt{}, err
	}
	var receipt DeductionReceipt
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		receipt, err = Deduct(ctx, tx, et, qty)
		return err
	})
	if err != nil {
		return DeductionReceipt{}, err
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, auditlog.Entry{
			LogType:          auditlog.LogEquipmentDeduction,
			Severity:         auditlog.SeverityInfo,
			Message:          fmt.Sprintf("Deducted %d %s", receipt.Qty, et.Name),
			EquipmentTypeID:  et.ID,
			ActorID:          actorID,
			QuantityDeducted: receipt.Qty,
		}); err != nil {
			s.logger.Warn("record deduction audit entry", slog.Any("error", err))
		}
	}
	s.scheduleScan(ctx)
	return receipt, nil
}

func (s *Service) scheduleScan(ctx context.Context) {
	if s.scans == nil {
		return
	}
	if err := s.scans.ScheduleScan(ctx); err != nil {
		s.logger.Warn("schedule stock scan", slog.Any("error", err))
	}
}
