package equipment

import "context"

// Transfer status labels.
const (
	TransferFromStock    = "stock"
	TransferToDeducted   = "deducted"
	TransferFromSupplier = "supplier"
	TransferToStock      = "stock"
)

// ShortfallCode tags shortfall errors for audit and API consumers.
const ShortfallCode = "EQUIPMENT_SHORTFALL"

// TxPort is the slice of transactional behaviour the ledger math needs.
// Implemented by this package's transaction repository and by the batch
// module's, so a transition deducts equipment inside its own transaction.
type TxPort interface {
	GetInventoryForUpdate(ctx context.Context, typeID int64) (Inventory, error)
	SetQuantity(ctx context.Context, typeID int64, qty int) error
	InsertTransfer(ctx context.Context, t Transfer) error
}

// Deduct verifies sufficiency against a row read under lock, decrements the
// quantity and appends a transfer line. The read, check and write all run
// in the caller's transaction, so concurrent deductions on the same type
// serialize on the inventory row.
func Deduct(ctx context.Context, tx TxPort, et EquipmentType, qty int) (DeductionReceipt, error) {
	if qty < 1 {
		return DeductionReceipt{}, ErrInvalidQuantity
	}
	inv, err := tx.GetInventoryForUpdate(ctx, et.ID)
	if err != nil {
		return DeductionReceipt{}, err
	}
	if inv.QtyAvailable < qty {
		return DeductionReceipt{}, &ShortfallError{
			Code:            ShortfallCode,
			Equipment:       et.Name,
			EquipmentTypeID: et.ID,
			Needed:          qty,
			Available:       inv.QtyAvailable,
		}
	}
	if err := tx.SetQuantity(ctx, et.ID, inv.QtyAvailable-qty); err != nil {
		return DeductionReceipt{}, err
	}
	if err := tx.InsertTransfer(ctx, Transfer{
		EquipmentTypeID: et.ID,
		FromStatus:      TransferFromStock,
		ToStatus:        TransferToDeducted,
		Qty:             qty,
	}); err != nil {
		return DeductionReceipt{}, err
	}
	return DeductionReceipt{Type: et, Qty: qty}, nil
}

// Restock increments available quantity and appends a stock-in line. No
// upper bound is enforced.
func Restock(ctx context.Context, tx TxPort, et EquipmentType, qty int, supplier string) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}
	inv, err := tx.GetInventoryForUpdate(ctx, et.ID)
	if err != nil {
		return err
	}
	if err := tx.SetQuantity(ctx, et.ID, inv.QtyAvailable+qty); err != nil {
		return err
	}
	return tx.InsertTransfer(ctx, Transfer{
		EquipmentTypeID: et.ID,
		FromStatus:      TransferFromSupplier,
		ToStatus:        TransferToStock,
		Qty:             qty,
		Supplier:        supplier,
	})
}
