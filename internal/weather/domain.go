package weather

import (
	"errors"
	"time"
)

// Observation is one weather reading for the processing site.
type Observation struct {
	ID          int64     `json:"id"`
	Condition   string    `json:"condition"`
	TempC       float64   `json:"temp_c"`
	HumidityPct float64   `json:"humidity_pct"`
	RainMm      float64   `json:"rain_mm"`
	ObservedAt  time.Time `json:"observed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Drying beans take on moisture fast; readings past these bounds raise an
// alert while any batch is on the drying floor.
const (
	HighHumidityPct = 85.0
	HeavyRainMm     = 10.0
)

// ErrNoObservations indicates the site has no readings yet.
var ErrNoObservations = errors.New("weather: no observations")
