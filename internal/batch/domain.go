package batch

import (
	"errors"
	"fmt"
	"time"
)

// Status is a batch's processing stage. Transitions walk the ranks upward
// one step at a time; a status never regresses.
type Status string

const (
	StatusFresh      Status = "fresh"
	StatusFermenting Status = "fermenting"
	StatusFermented  Status = "fermented"
	StatusDrying     Status = "drying"
	StatusDried      Status = "dried"
	StatusGraded     Status = "graded"
	StatusPickedUp   Status = "picked_up"
)

var statusRanks = map[Status]int{
	StatusFresh:      0,
	StatusFermenting: 1,
	StatusFermented:  2,
	StatusDrying:     3,
	StatusDried:      4,
	StatusGraded:     5,
	StatusPickedUp:   6,
}

// Rank returns the position of s along the pipeline, -1 when unknown.
func (s Status) Rank() int {
	if r, ok := statusRanks[s]; ok {
		return r
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Stage marks which active process a batch is in.
type Stage string

const (
	StageFermenting Stage = "fermenting"
	StageDrying     Stage = "drying"
)

// Batch is one harvested lot of cacao beans. Created once, never deleted.
type Batch struct {
	ID              int64     `json:"id"`
	Code            string    `json:"code"`
	HarvestDate     time.Time `json:"harvest_date"`
	InitialWeightKg float64   `json:"initial_weight_kg"`
	Supplier        string    `json:"supplier"`
	CreatedAt       time.Time `json:"created_at"`
}

// FormatCode renders the display code for a batch ID.
func FormatCode(id int64) string {
	return fmt.Sprintf("BCH-%05d", id)
}

// Inventory is the mutable 1:1 companion of a Batch.
type Inventory struct {
	BatchID         int64     `json:"batch_id"`
	CurrentWeightKg float64   `json:"current_weight_kg"`
	Status          Status    `json:"status"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Process marks a batch actively fermenting or drying. Deleted when the
// stage completes; TransferLine rows are the durable trail.
type Process struct {
	ID        int64     `json:"id"`
	BatchID   int64     `json:"batch_id"`
	Stage     Stage     `json:"stage"`
	StartedAt time.Time `json:"started_at"`
}

// QualityGrading is the per-batch grading outcome, created once.
type QualityGrading struct {
	ID        int64     `json:"id"`
	BatchID   int64     `json:"batch_id"`
	GradeA    int       `json:"grade_a"`
	GradeB    int       `json:"grade_b"`
	Reject    int       `json:"reject"`
	BoxesUsed int       `json:"boxes_used"`
	GradedAt  time.Time `json:"graded_at"`
}

// TransferLine is an append-only record of one batch status movement.
type TransferLine struct {
	ID         int64     `json:"id"`
	BatchID    int64     `json:"batch_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Qty        float64   `json:"qty"`
	At         time.Time `json:"at"`
}

// TransferSourceIntake labels the external origin of an intake line.
const TransferSourceIntake = "intake"

// ActiveBatchRow is the listing projection for batches not yet picked up.
// DisplayItem and DisplayQty are computed, never stored.
type ActiveBatchRow struct {
	Batch
	Status          Status  `json:"status"`
	CurrentWeightKg float64 `json:"current_weight_kg"`
	DisplayItem     string  `json:"display_item"`
	DisplayQty      float64 `json:"display_qty"`
}

// DriedBatchRow lists dried batches awaiting grading, with rack usage
// reconstructed from the audit trail.
type DriedBatchRow struct {
	Batch
	CurrentWeightKg float64 `json:"current_weight_kg"`
	RacksUsed       int     `json:"racks_used"`
}

// ProcessRow joins an active process with its batch for listings.
type ProcessRow struct {
	Process
	BatchCode       string  `json:"batch_code"`
	CurrentWeightKg float64 `json:"current_weight_kg"`
	Status          Status  `json:"status"`
	RacksUsed       int     `json:"racks_used"`
}

var (
	// ErrBatchNotFound indicates an unknown batch ID.
	ErrBatchNotFound = errors.New("batch: not found")
	// ErrInvalidTransition indicates the batch is not in an eligible source state.
	ErrInvalidTransition = errors.New("batch: invalid transition")
	// ErrProcessNotFound indicates no active process for the given ID.
	ErrProcessNotFound = errors.New("batch: process not found")
	// ErrInvalidProcessStatus indicates a process whose batch status does not
	// match the process stage.
	ErrInvalidProcessStatus = errors.New("batch: invalid process status")
)

// ValidationError reports malformed caller input. No side effects occur.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("batch: invalid %s: %s", e.Field, e.Reason)
}
