package auditlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryTimeline struct {
	entries []Entry
	lastF   TimelineFilters
	lastLim int
	lastOff int
}

func (m *memoryTimeline) Timeline(ctx context.Context, f TimelineFilters, limit, offset int) ([]Entry, error) {
	m.lastF, m.lastLim, m.lastOff = f, limit, offset
	if offset >= len(m.entries) {
		return nil, nil
	}
	end := offset + limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[offset:end], nil
}

func (m *memoryTimeline) RackUsage(ctx context.Context, batchID, equipmentTypeID int64) (int, error) {
	total := 0
	for _, e := range m.entries {
		if e.LogType == LogEquipmentDeduction && e.BatchID == batchID && e.EquipmentTypeID == equipmentTypeID {
			total += e.QuantityDeducted
		}
	}
	return total, nil
}

func seedEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{ID: int64(n - i), LogType: LogProcess, Severity: SeverityInfo}
	}
	return entries
}

func TestTimelinePagingDefaults(t *testing.T) {
	repo := &memoryTimeline{entries: seedEntries(25)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, res.Rows, 20)
	require.Equal(t, 1, res.Paging.Page)
	require.Equal(t, 20, res.Paging.PageSize)
	require.True(t, res.Paging.HasNext)
	require.Equal(t, 2, res.Paging.NextPage)
	require.Zero(t, res.Paging.PrevPage)
	// Over-fetch by one to detect the next page.
	require.Equal(t, 21, repo.lastLim)
}

func TestTimelineLastPage(t *testing.T) {
	repo := &memoryTimeline{entries: seedEntries(25)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: 2})
	require.NoError(t, err)
	require.Len(t, res.Rows, 5)
	require.False(t, res.Paging.HasNext)
	require.Equal(t, 1, res.Paging.PrevPage)
	require.Equal(t, 20, repo.lastOff)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &memoryTimeline{entries: seedEntries(120)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, 50, res.Paging.PageSize)
	require.Len(t, res.Rows, 50)

	res, err = svc.Timeline(context.Background(), TimelineFilters{PageSize: -3, Page: -1})
	require.NoError(t, err)
	require.Equal(t, 20, res.Paging.PageSize)
	require.Equal(t, 1, res.Paging.Page)
}

func TestRackUsageSumsStructuredQuantities(t *testing.T) {
	repo := &memoryTimeline{entries: []Entry{
		{LogType: LogEquipmentDeduction, BatchID: 1, EquipmentTypeID: 2, QuantityDeducted: 4},
		{LogType: LogEquipmentDeduction, BatchID: 1, EquipmentTypeID: 2, QuantityDeducted: 4},
		{LogType: LogEquipmentDeduction, BatchID: 1, EquipmentTypeID: 2, QuantityDeducted: 4},
		{LogType: LogEquipmentDeduction, BatchID: 1, EquipmentTypeID: 9, QuantityDeducted: 7},
		{LogType: LogEquipmentAlert, BatchID: 1, EquipmentTypeID: 2, QuantityDeducted: 99},
	}}
	svc := NewService(repo)

	used, err := svc.RackUsage(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Equal(t, 12, used)
}

func TestValidType(t *testing.T) {
	require.True(t, ValidType(LogEquipmentDeduction))
	require.True(t, ValidType(LogWeatherAlert))
	require.False(t, ValidType(LogType("payroll")))
}
