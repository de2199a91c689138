package weather

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cacaoflow/cacaoflow/internal/auditlog"
)

// FetcherPort retrieves readings from the upstream API.
type FetcherPort interface {
	Current(ctx context.Context) (Observation, error)
}

// RepositoryPort defines data access for the service.
type RepositoryPort interface {
	Insert(ctx context.Context, obs Observation) (Observation, error)
	Latest(ctx context.Context) (Observation, error)
	History(ctx context.Context, limit int) ([]Observation, error)
	CountDrying(ctx context.Context) (int, error)
}

// AuditPort records weather events.
type AuditPort interface {
	Record(ctx context.Context, e auditlog.Entry) error
}

// Service ingests weather readings and raises drying alerts.
type Service struct {
	logger  *slog.Logger
	fetcher FetcherPort
	repo    RepositoryPort
	audit   AuditPort
	titler  cases.Caser
}

// NewService builds a Service.
func NewService(logger *slog.Logger, fetcher FetcherPort, repo RepositoryPort, audit AuditPort) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:  logger,
		fetcher: fetcher,
		repo:    repo,
		audit:   audit,
		titler:  cases.Title(language.English),
	}
}

// Refresh pulls the current reading, stores it and evaluates the drying
// alert rule. Upstream condition strings arrive in mixed casing; they are
// normalized before storage.
func (s *Service) Refresh(ctx context.Context) (Observation, error) {
	obs, err := s.fetcher.Current(ctx)
	if err != nil {
		return Observation{}, err
	}
	obs.Condition = s.titler.String(strings.TrimSpace(strings.ToLower(obs.Condition)))

	stored, err := s.repo.Insert(ctx, obs)
	if err != nil {
		return Observation{}, err
	}
	s.record(ctx, auditlog.Entry{
		LogType:  auditlog.LogWeather,
		Severity: auditlog.SeverityInfo,
		Message:  fmt.Sprintf("Weather recorded: %s, %.1f°C, %.0f%% humidity", stored.Condition, stored.TempC, stored.HumidityPct),
	})

	s.evaluateAlert(ctx, stored)
	return stored, nil
}

// evaluateAlert raises a warning when drying batches face humid or rainy
// conditions. A lookup failure downgrades to a log line; the reading itself
// is already stored.
func (s *Service) evaluateAlert(ctx context.Context, obs Observation) {
	if obs.HumidityPct < HighHumidityPct && obs.RainMm < HeavyRainMm {
		return
	}
	drying, err := s.repo.CountDrying(ctx)
	if err != nil {
		s.logger.Warn("count drying batches", slog.Any("error", err))
		return
	}
	if drying == 0 {
		return
	}
	s.record(ctx, auditlog.Entry{
		LogType:  auditlog.LogWeatherAlert,
		Severity: auditlog.SeverityWarning,
		Message: fmt.Sprintf("%s with %.0f%% humidity while %d batch(es) drying",
			obs.Condition, obs.HumidityPct, drying),
	})
}

// Latest returns the newest stored observation.
func (s *Service) Latest(ctx context.Context) (Observation, error) {
	return s.repo.Latest(ctx)
}

// History returns up to limit recent observations, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Observation, error) {
	if limit <= 0 || limit > 100 {
		limit = 24
	}
	return s.repo.History(ctx, limit)
}

func (s *Service) record(ctx context.Context, e auditlog.Entry) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, e); err != nil {
		s.logger.Warn("record weather audit entry", slog.Any("error", err))
	}
}
