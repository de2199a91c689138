package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
)

type memoryStore struct {
	types          map[equipment.TypeTag]equipment.EquipmentType
	inventories    map[int64]equipment.Inventory
	transfers      []equipment.Transfer
	batches        map[int64]Batch
	batchInv       map[int64]Inventory
	processes      map[int64]Process
	gradings       []QualityGrading
	batchTransfers []TransferLine
	audits         []auditlog.Entry
	recorded       []auditlog.Entry
	nextID         int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		types:       make(map[equipment.TypeTag]equipment.EquipmentType),
		inventories: make(map[int64]equipment.Inventory),
		batches:     make(map[int64]Batch),
		batchInv:    make(map[int64]Inventory),
		processes:   make(map[int64]Process),
	}
}

func (s *memoryStore) seedType(tag equipment.TypeTag, name string, qty int) equipment.EquipmentType {
	s.nextID++
	et := equipment.EquipmentType{ID: s.nextID, Name: name, TypeTag: tag}
	s.types[tag] = et
	s.inventories[et.ID] = equipment.Inventory{EquipmentTypeID: et.ID, QtyAvailable: qty}
	return et
}

func (s *memoryStore) seedBatch(weightKg float64, status Status) Batch {
	s.nextID++
	b := Batch{ID: s.nextID, Code: FormatCode(s.nextID), InitialWeightKg: weightKg, Supplier: "Tani Makmur"}
	s.batches[b.ID] = b
	s.batchInv[b.ID] = Inventory{BatchID: b.ID, CurrentWeightKg: weightKg, Status: status}
	return b
}

func (s *memoryStore) clone() *memoryStore {
	next := newMemoryStore()
	next.nextID = s.nextID
	for k, v := range s.types {
		next.types[k] = v
	}
	for k, v := range s.inventories {
		next.inventories[k] = v
	}
	for k, v := range s.batches {
		next.batches[k] = v
	}
	for k, v := range s.batchInv {
		next.batchInv[k] = v
	}
	for k, v := range s.processes {
		next.processes[k] = v
	}
	next.transfers = append(next.transfers, s.transfers...)
	next.gradings = append(next.gradings, s.gradings...)
	next.batchTransfers = append(next.batchTransfers, s.batchTransfers...)
	next.audits = append(next.audits, s.audits...)
	next.recorded = append(next.recorded, s.recorded...)
	return next
}

func (s *memoryStore) adopt(other *memoryStore) {
	s.types = other.types
	s.inventories = other.inventories
	s.transfers = other.transfers
	s.batches = other.batches
	s.batchInv = other.batchInv
	s.processes = other.processes
	s.gradings = other.gradings
	s.batchTransfers = other.batchTransfers
	s.audits = other.audits
	s.nextID = other.nextID
}

// WithTx runs the callback against a copy and adopts it only on success,
// mirroring commit/rollback semantics.
func (s *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	scratch := s.clone()
	if err := fn(ctx, &memoryTx{store: scratch}); err != nil {
		return err
	}
	s.adopt(scratch)
	return nil
}

func (s *memoryStore) GetBatch(ctx context.Context, id int64) (Batch, Inventory, error) {
	b, ok := s.batches[id]
	if !ok {
		return Batch{}, Inventory{}, ErrBatchNotFound
	}
	return b, s.batchInv[id], nil
}

func (s *memoryStore) ListActive(ctx context.Context) ([]ActiveBatchRow, error) {
	var rows []ActiveBatchRow
	for id, b := range s.batches {
		inv := s.batchInv[id]
		if inv.Status == StatusPickedUp {
			continue
		}
		rows = append(rows, ActiveBatchRow{Batch: b, Status: inv.Status, CurrentWeightKg: inv.CurrentWeightKg})
	}
	return rows, nil
}

func (s *memoryStore) ListDried(ctx context.Context) ([]DriedBatchRow, error) {
	var rows []DriedBatchRow
	for id, b := range s.batches {
		inv := s.batchInv[id]
		if inv.Status != StatusDried {
			continue
		}
		rows = append(rows, DriedBatchRow{Batch: b, CurrentWeightKg: inv.CurrentWeightKg})
	}
	return rows, nil
}

func (s *memoryStore) ListProcesses(ctx context.Context) ([]ProcessRow, error) {
	var rows []ProcessRow
	for _, p := range s.processes {
		inv := s.batchInv[p.BatchID]
		rows = append(rows, ProcessRow{
			Process:         p,
			BatchCode:       FormatCode(p.BatchID),
			CurrentWeightKg: inv.CurrentWeightKg,
			Status:          inv.Status,
		})
	}
	return rows, nil
}

// Lookup implements EquipmentPort by tag.
func (s *memoryStore) Lookup(ctx context.Context, needle string) (equipment.EquipmentType, error) {
	if et, ok := s.types[equipment.TypeTag(needle)]; ok {
		return et, nil
	}
	return equipment.EquipmentType{}, equipment.ErrEquipmentNotFound
}

// Record implements AuditPort; these entries land outside any transaction.
func (s *memoryStore) Record(ctx context.Context, e auditlog.Entry) error {
	s.recorded = append(s.recorded, e)
	return nil
}

// RackUsage implements UsagePort over the committed audit entries.
func (s *memoryStore) RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error) {
	total := 0
	for _, e := range s.audits {
		if e.LogType == auditlog.LogEquipmentDeduction && e.BatchID == batchID && e.EquipmentTypeID == equipmentTypeID {
			total += e.QuantityDeducted
		}
	}
	return total, nil
}

type memoryTx struct {
	store *memoryStore
}

func (t *memoryTx) GetInventoryForUpdate(ctx context.Context, typeID int64) (equipment.Inventory, error) {
	inv, ok := t.store.inventories[typeID]
	if !ok {
		return equipment.Inventory{}, equipment.ErrInventoryNotFound
	}
	return inv, nil
}

func (t *memoryTx) SetQuantity(ctx context.Context, typeID int64, qty int) error {
	inv, ok := t.store.inventories[typeID]
	if !ok {
		return equipment.ErrInventoryNotFound
	}
	inv.QtyAvailable = qty
	t.store.inventories[typeID] = inv
	return nil
}

func (t *memoryTx) InsertTransfer(ctx context.Context, tr equipment.Transfer) error {
	t.store.transfers = append(t.store.transfers, tr)
	return nil
}

func (t *memoryTx) InsertBatch(ctx context.Context, b Batch) (int64, error) {
	t.store.nextID++
	b.ID = t.store.nextID
	b.Code = FormatCode(b.ID)
	t.store.batches[b.ID] = b
	return b.ID, nil
}

func (t *memoryTx) InsertBatchInventory(ctx context.Context, inv Inventory) error {
	t.store.batchInv[inv.BatchID] = inv
	return nil
}

func (t *memoryTx) GetBatchForUpdate(ctx context.Context, batchID int64) (Inventory, error) {
	inv, ok := t.store.batchInv[batchID]
	if !ok {
		return Inventory{}, ErrBatchNotFound
	}
	return inv, nil
}

func (t *memoryTx) UpdateBatchStatus(ctx context.Context, batchID int64, status Status) error {
	inv, ok := t.store.batchInv[batchID]
	if !ok {
		return ErrBatchNotFound
	}
	inv.Status = status
	t.store.batchInv[batchID] = inv
	return nil
}

func (t *memoryTx) InsertProcess(ctx context.Context, p Process) (int64, error) {
	t.store.nextID++
	p.ID = t.store.nextID
	t.store.processes[p.ID] = p
	return p.ID, nil
}

func (t *memoryTx) GetProcessForUpdate(ctx context.Context, id int64) (Process, error) {
	p, ok := t.store.processes[id]
	if !ok {
		return Process{}, ErrProcessNotFound
	}
	return p, nil
}

func (t *memoryTx) DeleteProcess(ctx context.Context, id int64) error {
	delete(t.store.processes, id)
	return nil
}

func (t *memoryTx) InsertGrading(ctx context.Context, g QualityGrading) (int64, error) {
	t.store.nextID++
	g.ID = t.store.nextID
	t.store.gradings = append(t.store.gradings, g)
	return g.ID, nil
}

func (t *memoryTx) InsertBatchTransfer(ctx context.Context, line TransferLine) error {
	t.store.batchTransfers = append(t.store.batchTransfers, line)
	return nil
}

func (t *memoryTx) AppendAudit(ctx context.Context, e auditlog.Entry) error {
	t.store.audits = append(t.store.audits, e)
	return nil
}

func newTestService(store *memoryStore) *Service {
	return NewService(nil, store, store, store, store)
}

func intakeInput(weightKg float64) IntakeInput {
	return IntakeInput{
		HarvestDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		WeightKg:    weightKg,
		Supplier:    "Tani Makmur",
		ActorID:     7,
	}
}

func countByType(entries []auditlog.Entry, logType auditlog.LogType, severity auditlog.Severity) int {
	n := 0
	for _, e := range entries {
		if e.LogType == logType && e.Severity == severity {
			n++
		}
	}
	return n
}

func TestIntakeDeductsSacks(t *testing.T) {
	store := newMemoryStore()
	sack := store.seedType(equipment.TagSack, "Jute Sack", 20)
	svc := newTestService(store)

	created, err := svc.Intake(context.Background(), intakeInput(520.5))
	require.NoError(t, err)
	require.Equal(t, FormatCode(created.ID), created.Code)

	// 520.5 kg at 50 kg per sack rounds up to 11.
	require.Equal(t, 9, store.inventories[sack.ID].QtyAvailable)
	require.Equal(t, StatusFresh, store.batchInv[created.ID].Status)
	require.Len(t, store.transfers, 1)
	require.Equal(t, 11, store.transfers[0].Qty)
	require.Equal(t, 1, countByType(store.audits, auditlog.LogInventory, auditlog.SeverityInfo))
	require.Equal(t, 1, countByType(store.audits, auditlog.LogEquipmentDeduction, auditlog.SeverityInfo))
}

func TestIntakeValidation(t *testing.T) {
	svc := newTestService(newMemoryStore())

	_, err := svc.Intake(context.Background(), IntakeInput{WeightKg: 10, Supplier: "x"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "harvest_date", validation.Field)

	in := intakeInput(0)
	_, err = svc.Intake(context.Background(), in)
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "weight_kg", validation.Field)
}

func TestIntakeShortfallRollsBack(t *testing.T) {
	store := newMemoryStore()
	sack := store.seedType(equipment.TagSack, "Jute Sack", 5)
	svc := newTestService(store)

	_, err := svc.Intake(context.Background(), intakeInput(520.5))
	var shortfall *equipment.ShortfallError
	require.ErrorAs(t, err, &shortfall)
	require.Equal(t, 11, shortfall.Needed)
	require.Equal(t, 5, shortfall.Available)

	// Nothing committed: no batch, inventory untouched, no in-tx entries.
	require.Empty(t, store.batches)
	require.Equal(t, 5, store.inventories[sack.ID].QtyAvailable)
	require.Empty(t, store.audits)

	// Exactly one critical entry written after rollback.
	require.Len(t, store.recorded, 1)
	require.Equal(t, auditlog.LogEquipmentAlert, store.recorded[0].LogType)
	require.Equal(t, auditlog.SeverityCritical, store.recorded[0].Severity)
}

func TestProceedFreshDeductsRacks(t *testing.T) {
	store := newMemoryStore()
	store.seedType(equipment.TagSack, "Jute Sack", 20)
	rack := store.seedType(equipment.TagRack, "Fermentation Rack", 30)
	svc := newTestService(store)

	created, err := svc.Intake(context.Background(), intakeInput(520.5))
	require.NoError(t, err)

	process, err := svc.Proceed(context.Background(), created.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StageFermenting, process.Stage)
	require.Equal(t, StatusFermenting, store.batchInv[created.ID].Status)

	// 11 sacks worth means 22 racks.
	require.Equal(t, 8, store.inventories[rack.ID].QtyAvailable)
}

func TestProceedShortfallLeavesStateUntouched(t *testing.T) {
	store := newMemoryStore()
	store.seedType(equipment.TagSack, "Jute Sack", 20)
	rack := store.seedType(equipment.TagRack, "Fermentation Rack", 10)
	svc := newTestService(store)

	created, err := svc.Intake(context.Background(), intakeInput(520.5))
	require.NoError(t, err)
	auditsBefore := len(store.audits)

	// Each failed attempt must leave the batch and inventory exactly as
	// they were and add exactly one critical entry.
	for attempt := 1; attempt <= 2; attempt++ {
		_, err = svc.Proceed(context.Background(), created.ID, 7)
		var shortfall *equipment.ShortfallError
		require.ErrorAs(t, err, &shortfall)

		require.Equal(t, StatusFresh, store.batchInv[created.ID].Status)
		require.Equal(t, 10, store.inventories[rack.ID].QtyAvailable)
		require.Empty(t, store.processes)
		require.Len(t, store.audits, auditsBefore)
		require.Len(t, store.recorded, attempt)
	}
}

func TestProceedFermentedConsumesNothing(t *testing.T) {
	store := newMemoryStore()
	rack := store.seedType(equipment.TagRack, "Fermentation Rack", 10)
	b := store.seedBatch(100, StatusFermented)
	svc := newTestService(store)

	process, err := svc.Proceed(context.Background(), b.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StageDrying, process.Stage)
	require.Equal(t, StatusDrying, store.batchInv[b.ID].Status)
	require.Equal(t, 10, store.inventories[rack.ID].QtyAvailable)
}

func TestProceedRejectsIneligibleStatus(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(store)

	for _, status := range []Status{StatusFermenting, StatusDrying, StatusDried, StatusGraded, StatusPickedUp} {
		b := store.seedBatch(100, status)
		_, err := svc.Proceed(context.Background(), b.ID, 7)
		require.ErrorIs(t, err, ErrInvalidTransition, "status %s", status)
	}

	_, err := svc.Proceed(context.Background(), 9999, 7)
	require.ErrorIs(t, err, ErrBatchNotFound)
}

func TestCompleteFermentation(t *testing.T) {
	store := newMemoryStore()
	store.seedType(equipment.TagSack, "Jute Sack", 20)
	store.seedType(equipment.TagRack, "Fermentation Rack", 30)
	svc := newTestService(store)

	created, err := svc.Intake(context.Background(), intakeInput(300))
	require.NoError(t, err)
	process, err := svc.Proceed(context.Background(), created.ID, 7)
	require.NoError(t, err)

	inv, err := svc.Complete(context.Background(), process.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusFermented, inv.Status)
	require.Empty(t, store.processes)
}

func TestCompleteUnknownProcess(t *testing.T) {
	store := newMemoryStore()
	store.seedBatch(100, StatusFresh)
	svc := newTestService(store)

	_, err := svc.Complete(context.Background(), 42, 7)
	require.ErrorIs(t, err, ErrProcessNotFound)
}

func TestCompleteStageMismatch(t *testing.T) {
	store := newMemoryStore()
	b := store.seedBatch(100, StatusDrying)
	store.nextID++
	store.processes[store.nextID] = Process{ID: store.nextID, BatchID: b.ID, Stage: StageFermenting}
	svc := newTestService(store)

	_, err := svc.Complete(context.Background(), store.nextID, 7)
	require.ErrorIs(t, err, ErrInvalidProcessStatus)
	require.Equal(t, StatusDrying, store.batchInv[b.ID].Status)
}

func TestGradeDeductsBoxes(t *testing.T) {
	store := newMemoryStore()
	box := store.seedType(equipment.TagBoxes, "Storage Box", 10)
	b := store.seedBatch(100, StatusDried)
	svc := newTestService(store)

	grading, err := svc.Grade(context.Background(), GradeInput{
		BatchID: b.ID, GradeA: 40, GradeB: 30, Reject: 5, BoxesUsed: 4, ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, 4, grading.BoxesUsed)
	require.Equal(t, 6, store.inventories[box.ID].QtyAvailable)
	require.Equal(t, StatusGraded, store.batchInv[b.ID].Status)
}

func TestGradeBoxShortfallIsNonFatal(t *testing.T) {
	store := newMemoryStore()
	box := store.seedType(equipment.TagBoxes, "Storage Box", 2)
	b := store.seedBatch(100, StatusDried)
	svc := newTestService(store)

	_, err := svc.Grade(context.Background(), GradeInput{
		BatchID: b.ID, GradeA: 40, GradeB: 30, Reject: 5, BoxesUsed: 5, ActorID: 7,
	})
	require.NoError(t, err)

	// Grade lands, boxes untouched, warning on the trail.
	require.Equal(t, StatusGraded, store.batchInv[b.ID].Status)
	require.Equal(t, 2, store.inventories[box.ID].QtyAvailable)
	require.Equal(t, 1, countByType(store.audits, auditlog.LogEquipmentAlert, auditlog.SeverityWarning))
	require.Empty(t, store.recorded)
}

func TestGradeWithoutBoxEquipmentIsNonFatal(t *testing.T) {
	store := newMemoryStore()
	b := store.seedBatch(100, StatusDried)
	svc := newTestService(store)

	_, err := svc.Grade(context.Background(), GradeInput{
		BatchID: b.ID, GradeA: 40, GradeB: 30, Reject: 5, BoxesUsed: 5, ActorID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusGraded, store.batchInv[b.ID].Status)
	require.Equal(t, 1, countByType(store.audits, auditlog.LogEquipmentAlert, auditlog.SeverityWarning))
}

func TestGradeRequiresDried(t *testing.T) {
	store := newMemoryStore()
	b := store.seedBatch(100, StatusDrying)
	svc := newTestService(store)

	_, err := svc.Grade(context.Background(), GradeInput{BatchID: b.ID, GradeA: 1})
	require.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Grade(context.Background(), GradeInput{BatchID: b.ID, GradeA: -1})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestPickupRequiresGraded(t *testing.T) {
	store := newMemoryStore()
	graded := store.seedBatch(100, StatusGraded)
	dried := store.seedBatch(100, StatusDried)
	svc := newTestService(store)

	inv, err := svc.Pickup(context.Background(), graded.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPickedUp, inv.Status)

	_, err = svc.Pickup(context.Background(), dried.ID, 7)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestFullLifecycle(t *testing.T) {
	store := newMemoryStore()
	store.seedType(equipment.TagSack, "Jute Sack", 50)
	store.seedType(equipment.TagRack, "Fermentation Rack", 50)
	store.seedType(equipment.TagBoxes, "Storage Box", 50)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Intake(ctx, intakeInput(520.5))
	require.NoError(t, err)

	ferment, err := svc.Proceed(ctx, created.ID, 7)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, ferment.ID, 7)
	require.NoError(t, err)

	dry, err := svc.Proceed(ctx, created.ID, 7)
	require.NoError(t, err)
	_, err = svc.Complete(ctx, dry.ID, 7)
	require.NoError(t, err)

	_, err = svc.Grade(ctx, GradeInput{BatchID: created.ID, GradeA: 300, GradeB: 150, Reject: 20, BoxesUsed: 6, ActorID: 7})
	require.NoError(t, err)
	inv, err := svc.Pickup(ctx, created.ID, 7)
	require.NoError(t, err)
	require.Equal(t, StatusPickedUp, inv.Status)

	// Status only ever moved forward.
	prev := -1
	for _, line := range store.batchTransfers {
		require.Greater(t, line.ToStatus.Rank(), prev)
		prev = line.ToStatus.Rank()
	}
}

func TestListActiveDisplayColumns(t *testing.T) {
	store := newMemoryStore()
	fresh := store.seedBatch(520.5, StatusFresh)
	fermented := store.seedBatch(200, StatusFermented)
	drying := store.seedBatch(180, StatusDrying)
	svc := newTestService(store)

	rows, err := svc.ListActive(context.Background())
	require.NoError(t, err)

	byID := make(map[int64]ActiveBatchRow, len(rows))
	for _, row := range rows {
		byID[row.Batch.ID] = row
	}
	require.Equal(t, "sack", byID[fresh.ID].DisplayItem)
	require.InDelta(t, 11, byID[fresh.ID].DisplayQty, 0.0001)
	require.Equal(t, "rack", byID[fermented.ID].DisplayItem)
	require.InDelta(t, 8, byID[fermented.ID].DisplayQty, 0.0001)
	require.Equal(t, "beans", byID[drying.ID].DisplayItem)
	require.InDelta(t, 180, byID[drying.ID].DisplayQty, 0.0001)
}

func TestListDriedReconstructsRackUsage(t *testing.T) {
	store := newMemoryStore()
	rack := store.seedType(equipment.TagRack, "Fermentation Rack", 50)
	b := store.seedBatch(300, StatusDried)
	for i := 0; i < 3; i++ {
		store.audits = append(store.audits, auditlog.Entry{
			LogType:          auditlog.LogEquipmentDeduction,
			BatchID:          b.ID,
			EquipmentTypeID:  rack.ID,
			QuantityDeducted: 4,
		})
	}
	svc := newTestService(store)

	rows, err := svc.ListDried(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 12, rows[0].RacksUsed)
}

func TestListProcessesCarriesRackUsage(t *testing.T) {
	store := newMemoryStore()
	store.seedType(equipment.TagSack, "Jute Sack", 50)
	store.seedType(equipment.TagRack, "Fermentation Rack", 50)
	svc := newTestService(store)
	ctx := context.Background()

	created, err := svc.Intake(ctx, intakeInput(520.5))
	require.NoError(t, err)
	_, err = svc.Proceed(ctx, created.ID, 7)
	require.NoError(t, err)

	rows, err := svc.ListProcesses(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, FormatCode(created.ID), rows[0].BatchCode)
	require.Equal(t, 22, rows[0].RacksUsed)
}
