package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cacaoflow/cacaoflow/internal/weather"
)

// TaskWeatherFetch pulls the current site weather on a schedule.
const TaskWeatherFetch = "weather:fetch"

// WeatherFetchPayload carries scheduling metadata.
type WeatherFetchPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewWeatherFetchTask constructs an Asynq task for a weather refresh.
func NewWeatherFetchTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(WeatherFetchPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWeatherFetch, body, asynq.Queue(QueueDefault)), nil
}

// NewWeatherFetchHandler binds the weather service to the task type.
func NewWeatherFetchHandler(logger *slog.Logger, svc *weather.Service) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		var payload WeatherFetchPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		obs, err := svc.Refresh(ctx)
		if err != nil {
			logger.Warn("weather fetch failed", slog.Any("error", err))
			return err
		}
		logger.Info("weather fetched",
			slog.String("condition", obs.Condition),
			slog.Float64("humidity_pct", obs.HumidityPct))
		return nil
	}
}
