package dashboard

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
	"github.com/cacaoflow/cacaoflow/internal/batch"
	"github.com/cacaoflow/cacaoflow/internal/equipment"
	"github.com/cacaoflow/cacaoflow/internal/weather"
)

// StatusCountsPort aggregates batch counts by status.
type StatusCountsPort interface {
	CountByStatus(ctx context.Context) (map[batch.Status]int, error)
}

// EquipmentPort lists equipment with stock status.
type EquipmentPort interface {
	List(ctx context.Context) ([]equipment.ListedType, error)
}

// TimelinePort reads recent audit entries.
type TimelinePort interface {
	Timeline(ctx context.Context, filters auditlog.TimelineFilters) (auditlog.Result, error)
}

// WeatherPort reads the latest observation.
type WeatherPort interface {
	Latest(ctx context.Context) (weather.Observation, error)
}

// Summary is the collected dashboard payload.
type Summary struct {
	BatchCounts map[batch.Status]int   `json:"batch_counts"`
	Equipment   []equipment.ListedType `json:"equipment"`
	RecentLogs  []auditlog.Entry       `json:"recent_logs"`
	Weather     *weather.Observation   `json:"weather,omitempty"`
}

// Service assembles the dashboard from the other modules' read sides.
type Service struct {
	logger    *slog.Logger
	counts    StatusCountsPort
	equipment EquipmentPort
	timeline  TimelinePort
	weather   WeatherPort
}

// NewService builds a Service.
func NewService(logger *slog.Logger, counts StatusCountsPort, equip EquipmentPort, timeline TimelinePort, wx WeatherPort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, counts: counts, equipment: equip, timeline: timeline, weather: wx}
}

// Summarize gathers the dashboard. Weather is optional: a site without
// readings still gets the rest of the board.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	counts, err := s.counts.CountByStatus(ctx)
	if err != nil {
		return Summary{}, err
	}
	listed, err := s.equipment.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	logs, err := s.timeline.Timeline(ctx, auditlog.TimelineFilters{PageSize: 10})
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		BatchCounts: counts,
		Equipment:   listed,
		RecentLogs:  logs.Rows,
	}
	if s.weather != nil {
		obs, err := s.weather.Latest(ctx)
		switch {
		case err == nil:
			summary.Weather = &obs
		case errors.Is(err, weather.ErrNoObservations):
		default:
			s.logger.Warn("dashboard weather lookup", slog.Any("error", err))
		}
	}
	return summary, nil
}
