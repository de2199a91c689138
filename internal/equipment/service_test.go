package equipment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
)

type memoryRepo struct {
	types       map[int64]EquipmentType
	inventories map[int64]Inventory
	transfers   []Transfer
	entries     []auditlog.Entry
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		types:       make(map[int64]EquipmentType),
		inventories: make(map[int64]Inventory),
	}
}

func (r *memoryRepo) seed(name string, tag TypeTag, qty int) EquipmentType {
	r.nextID++
	et := EquipmentType{ID: r.nextID, Name: name, TypeTag: tag}
	r.types[et.ID] = et
	r.inventories[et.ID] = Inventory{EquipmentTypeID: et.ID, QtyAvailable: qty}
	return et
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) CreateType(ctx context.Context, name string, tag TypeTag) (EquipmentType, error) {
	return r.seed(name, tag, 0), nil
}

func (r *memoryRepo) ListTypes(ctx context.Context) ([]ListedType, error) {
	var out []ListedType
	for id, et := range r.types {
		inv := r.inventories[id]
		out = append(out, ListedType{
			EquipmentType: et,
			QtyAvailable:  inv.QtyAvailable,
			Status:        StatusFor(inv.QtyAvailable),
		})
	}
	return out, nil
}

func (r *memoryRepo) FindByTag(ctx context.Context, tag TypeTag) (EquipmentType, error) {
	for _, et := range r.types {
		if et.TypeTag == tag {
			return et, nil
		}
	}
	return EquipmentType{}, ErrEquipmentNotFound
}

func (r *memoryRepo) FindByNameFragment(ctx context.Context, fragment string) (EquipmentType, error) {
	for _, et := range r.types {
		if strings.Contains(strings.ToLower(et.Name), strings.ToLower(fragment)) {
			return et, nil
		}
	}
	return EquipmentType{}, ErrEquipmentNotFound
}

func (r *memoryRepo) GetType(ctx context.Context, id int64) (EquipmentType, error) {
	if et, ok := r.types[id]; ok {
		return et, nil
	}
	return EquipmentType{}, ErrEquipmentNotFound
}

func (r *memoryRepo) Record(ctx context.Context, e auditlog.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetInventoryForUpdate(ctx context.Context, typeID int64) (Inventory, error) {
	if inv, ok := tx.repo.inventories[typeID]; ok {
		return inv, nil
	}
	return Inventory{}, ErrInventoryNotFound
}

func (tx *memoryTx) SetQuantity(ctx context.Context, typeID int64, qty int) error {
	inv, ok := tx.repo.inventories[typeID]
	if !ok {
		return ErrInventoryNotFound
	}
	inv.QtyAvailable = qty
	tx.repo.inventories[typeID] = inv
	return nil
}

func (tx *memoryTx) InsertTransfer(ctx context.Context, t Transfer) error {
	tx.repo.transfers = append(tx.repo.transfers, t)
	return nil
}

func TestDeductChecksSufficiency(t *testing.T) {
	repo := newMemoryRepo()
	sack := repo.seed("Jute Sack", TagSack, 10)
	tx := &memoryTx{repo: repo}
	ctx := context.Background()

	receipt, err := Deduct(ctx, tx, sack, 4)
	require.NoError(t, err)
	require.Equal(t, 4, receipt.Qty)
	require.Equal(t, 6, repo.inventories[sack.ID].QtyAvailable)
	require.Len(t, repo.transfers, 1)
	require.Equal(t, TransferFromStock, repo.transfers[0].FromStatus)
	require.Equal(t, TransferToDeducted, repo.transfers[0].ToStatus)

	_, err = Deduct(ctx, tx, sack, 7)
	var shortfall *ShortfallError
	require.ErrorAs(t, err, &shortfall)
	require.Equal(t, ShortfallCode, shortfall.Code)
	require.Equal(t, 7, shortfall.Needed)
	require.Equal(t, 6, shortfall.Available)
	require.Equal(t, 6, repo.inventories[sack.ID].QtyAvailable)

	_, err = Deduct(ctx, tx, sack, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestRestockAppendsSupplierTransfer(t *testing.T) {
	repo := newMemoryRepo()
	rack := repo.seed("Fermentation Rack", TagRack, 3)
	tx := &memoryTx{repo: repo}

	err := Restock(context.Background(), tx, rack, 5, "CV Maju")
	require.NoError(t, err)
	require.Equal(t, 8, repo.inventories[rack.ID].QtyAvailable)
	require.Len(t, repo.transfers, 1)
	require.Equal(t, TransferFromSupplier, repo.transfers[0].FromStatus)
	require.Equal(t, "CV Maju", repo.transfers[0].Supplier)
}

func TestLookupPrefersTag(t *testing.T) {
	repo := newMemoryRepo()
	repo.seed("Old Sack Pile", "", 0)
	tagged := repo.seed("Jute Sack", TagSack, 0)
	svc := NewService(nil, repo, nil, nil)

	found, err := svc.Lookup(context.Background(), string(TagSack))
	require.NoError(t, err)
	require.Equal(t, tagged.ID, found.ID)
}

func TestLookupFallsBackToNameFragment(t *testing.T) {
	repo := newMemoryRepo()
	legacy := repo.seed("Drying Rack (legacy)", "", 0)
	svc := NewService(nil, repo, nil, nil)

	found, err := svc.Lookup(context.Background(), "rack")
	require.NoError(t, err)
	require.Equal(t, legacy.ID, found.ID)

	_, err = svc.Lookup(context.Background(), "centrifuge")
	require.ErrorIs(t, err, ErrEquipmentNotFound)

	_, err = svc.Lookup(context.Background(), "  ")
	require.ErrorIs(t, err, ErrEquipmentNotFound)
}

func TestCreateTypeValidatesTag(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(nil, repo, nil, nil)

	_, err := svc.CreateType(context.Background(), "Vacuum Sealer", "sealer")
	require.ErrorIs(t, err, ErrInvalidTag)

	et, err := svc.CreateType(context.Background(), "Storage Box", TagBoxes)
	require.NoError(t, err)
	require.Equal(t, TagBoxes, et.TypeTag)
}

func TestServiceRestockRecordsAudit(t *testing.T) {
	repo := newMemoryRepo()
	sack := repo.seed("Jute Sack", TagSack, 2)
	svc := NewService(nil, repo, repo, nil)

	inv, err := svc.Restock(context.Background(), sack.ID, 10, "CV Maju", 3)
	require.NoError(t, err)
	require.Equal(t, 12, inv.QtyAvailable)
	require.Len(t, repo.entries, 1)
	require.Equal(t, auditlog.LogInventory, repo.entries[0].LogType)

	_, err = svc.Restock(context.Background(), sack.ID, 0, "CV Maju", 3)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestServiceDeductRecordsQuantity(t *testing.T) {
	repo := newMemoryRepo()
	box := repo.seed("Storage Box", TagBoxes, 9)
	svc := NewService(nil, repo, repo, nil)

	receipt, err := svc.Deduct(context.Background(), box.ID, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 4, receipt.Qty)
	require.Len(t, repo.entries, 1)
	require.Equal(t, auditlog.LogEquipmentDeduction, repo.entries[0].LogType)
	require.Equal(t, 4, repo.entries[0].QuantityDeducted)
}

type stubScheduler struct {
	calls int
	err   error
}

func (s *stubScheduler) ScheduleScan(ctx context.Context) error {
	s.calls++
	return s.err
}

func TestQuantityChangesScheduleStockScan(t *testing.T) {
	repo := newMemoryRepo()
	sack := repo.seed("Jute Sack", TagSack, 5)
	scans := &stubScheduler{}
	svc := NewService(nil, repo, nil, scans)

	_, err := svc.Restock(context.Background(), sack.ID, 10, "CV Maju", 3)
	require.NoError(t, err)
	require.Equal(t, 1, scans.calls)

	_, err = svc.Deduct(context.Background(), sack.ID, 4, 3)
	require.NoError(t, err)
	require.Equal(t, 2, scans.calls)

	// Failed operations do not trigger a sweep.
	_, err = svc.Deduct(context.Background(), sack.ID, 100, 3)
	require.Error(t, err)
	require.Equal(t, 2, scans.calls)

	// A scheduler failure never fails the operation itself.
	scans.err = errors.New("queue down")
	_, err = svc.Restock(context.Background(), sack.ID, 1, "CV Maju", 3)
	require.NoError(t, err)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, StatusOutOfStock, StatusFor(0))
	require.Equal(t, StatusLow, StatusFor(1))
	require.Equal(t, StatusLow, StatusFor(LowStockThreshold-1))
	require.Equal(t, StatusAvailable, StatusFor(LowStockThreshold))
}
