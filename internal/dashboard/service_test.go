package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/batch"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/weather"
)

type stubSources struct {
	counts     map[batch.Status]int
	listed     []equipment.ListedType
	entries    []auditlog.Entry
	latest     weather.Observation
	weatherErr error
}

func (s *stubSources) CountByStatus(ctx context.Context) (map[batch.Status]int, error) {
	return s.counts, nil
}

func (s *stubSources) List(ctx context.Context) ([]equipment.ListedType, error) {
	return s.listed, nil
}

func (s *stubSources) Timeline(ctx context.Context, filters auditlog.TimelineFilters) (auditlog.Result, error) {
	return auditlog.Result{Rows: s.entries}, nil
}

func (s *stubSources) Latest(ctx context.Context) (weather.Observation, error) {
	return s.latest, s.weatherErr
}

func TestSummarize(t *testing.T) {
	src := &stubSources{
		counts: map[batch.Status]int{batch.StatusFresh: 2, batch.StatusDrying: 1},
		listed: []equipment.ListedType{{QtyAvailable: 3, Status: equipment.StatusLow}},
		entries: []auditlog.Entry{
			{LogType: auditlog.LogProcess, Message: "Batch BCH-00001 moved from fresh to fermenting"},
		},
		latest: weather.Observation{Condition: "Sunny", TempC: 31},
	}
	svc := NewService(nil, src, src, src, src)

	summary, err := svc.Summarize(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.BatchCounts[batch.StatusFresh])
	require.Len(t, summary.Equipment, 1)
	require.Len(t, summary.RecentLogs, 1)
	require.NotNil(t, summary.Weather)
	require.Equal(t, "Sunny", summary.Weather.Condition)
}

func TestSummarizeWithoutWeather(t *testing.T) {
	src := &stubSources{
		counts:     map[batch.Status]int{},
		weatherErr: weather.ErrNoObservations,
	}
	svc := NewService(nil, src, src, src, src)

	summary, err := svc.Summarize(context.Background())
	require.NoError(t, err)
	require.Nil(t, summary.Weather)
}
