package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
)

type stubLister struct {
	listed []equipment.ListedType
}

func (s *stubLister) List(ctx context.Context) ([]equipment.ListedType, error) {
	return s.listed, nil
}

type stubRecorder struct {
	entries []auditlog.Entry
}

func (s *stubRecorder) Record(ctx context.Context, e auditlog.Entry) error {
	s.entries = append(s.entries, e)
	return nil
}

func TestLowStockScanRaisesAlerts(t *testing.T) {
	lister := &stubLister{listed: []equipment.ListedType{
		{EquipmentType: equipment.EquipmentType{ID: 1, Name: "Jute Sack"}, QtyAvailable: 50, Status: equipment.StatusAvailable},
		{EquipmentType: equipment.EquipmentType{ID: 2, Name: "Fermentation Rack"}, QtyAvailable: 4, Status: equipment.StatusLow},
		{EquipmentType: equipment.EquipmentType{ID: 3, Name: "Storage Box"}, QtyAvailable: 0, Status: equipment.StatusOutOfStock},
	}}
	recorder := &stubRecorder{}
	handler := NewLowStockScanHandler(nil, lister, recorder)

	task, err := NewLowStockScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))

	require.Len(t, recorder.entries, 2)
	require.Equal(t, auditlog.SeverityWarning, recorder.entries[0].Severity)
	require.Equal(t, int64(2), recorder.entries[0].EquipmentTypeID)
	require.Equal(t, auditlog.SeverityCritical, recorder.entries[1].Severity)
	require.Equal(t, int64(3), recorder.entries[1].EquipmentTypeID)
}

func TestLowStockScanSkipsBadPayload(t *testing.T) {
	handler := NewLowStockScanHandler(nil, &stubLister{}, &stubRecorder{})

	task := asynq.NewTask(TaskLowStockScan, []byte("{"))
	err := handler(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWeatherFetchPayloadRoundTrip(t *testing.T) {
	at := time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)
	task, err := NewWeatherFetchTask(at)
	require.NoError(t, err)
	require.Equal(t, TaskWeatherFetch, task.Type())

	var payload WeatherFetchPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.True(t, payload.ScheduledFor.Equal(at))
}
