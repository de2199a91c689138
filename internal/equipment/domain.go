package equipment

import (
	"errors"
	"fmt"
	"time"
)

// TypeTag identifies the logical role of an equipment type. New records
// must carry one of the listed tags; legacy rows with free-text tags are
// still resolvable through the name-fragment fallback in Lookup.
type TypeTag string

const (
	TagSack  TypeTag = "sack"
	TagRack  TypeTag = "rack"
	TagBoxes TypeTag = "boxes"
)

// ValidTag reports whether the tag is one of the supported values.
func ValidTag(t TypeTag) bool {
	switch t {
	case TagSack, TagRack, TagBoxes:
		return true
	}
	return false
}

// EquipmentType is a category of consumable processing material.
type EquipmentType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	TypeTag   TypeTag   `json:"type_tag"`
	CreatedAt time.Time `json:"created_at"`
}

// Inventory tracks available quantity for one equipment type.
// Invariant: QtyAvailable never goes below zero.
type Inventory struct {
	EquipmentTypeID int64     `json:"equipment_type_id"`
	QtyAvailable    int       `json:"qty_available"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StockStatus is a qualitative bucket derived from quantity. Display only;
// never consulted for correctness decisions.
type StockStatus string

const (
	StatusAvailable  StockStatus = "Available"
	StatusLow        StockStatus = "Low"
	StatusOutOfStock StockStatus = "Out of Stock"
)

// LowStockThreshold is the default boundary between Available and Low.
const LowStockThreshold = 10

// StatusFor buckets a quantity.
func StatusFor(qty int) StockStatus {
	switch {
	case qty <= 0:
		return StatusOutOfStock
	case qty < LowStockThreshold:
		return StatusLow
	default:
		return StatusAvailable
	}
}

// DeductionReceipt confirms a completed deduction.
type DeductionReceipt struct {
	Type EquipmentType `json:"equipment_type"`
	Qty  int           `json:"qty"`
}

// Transfer is an append-only ledger line for equipment stock movements.
type Transfer struct {
	ID              int64     `json:"id"`
	EquipmentTypeID int64     `json:"equipment_type_id"`
	FromStatus      string    `json:"from_status"`
	ToStatus        string    `json:"to_status"`
	Qty             int       `json:"qty"`
	Supplier        string    `json:"supplier,omitempty"`
	At              time.Time `json:"at"`
}

// ListedType is an equipment type joined with its inventory for listings.
type ListedType struct {
	EquipmentType
	QtyAvailable int         `json:"qty_available"`
	Status       StockStatus `json:"status"`
}

var (
	// ErrEquipmentNotFound indicates no type matches a lookup.
	ErrEquipmentNotFound = errors.New("equipment: type not found")
	// ErrInventoryNotFound indicates a type without an inventory row.
	ErrInventoryNotFound = errors.New("equipment: inventory not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("equipment: quantity must be >= 1")
	// ErrInvalidTag indicates an unsupported type tag at creation.
	ErrInvalidTag = errors.New("equipment: invalid type tag")
)

// ShortfallError reports that available stock cannot satisfy a deduction.
// Carries structured fields; nothing is encoded into the message.
type ShortfallError struct {
	Code            string
	Equipment       string
	EquipmentTypeID int64
	Needed          int
	Available       int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("equipment: insufficient %s: need %d, have %d", e.Equipment, e.Needed, e.Available)
}

// Fields exposes the structured payload for problem responses.
func (e *ShortfallError) Fields() map[string]any {
	return map[string]any{
		"code":              e.Code,
		"equipment":         e.Equipment,
		"equipment_type_id": e.EquipmentTypeID,
		"needed":            e.Needed,
		"available":         e.Available,
	}
}
