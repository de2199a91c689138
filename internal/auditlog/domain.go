package auditlog

import (
	"errors"
	"time"
)

// LogType categorises audit entries for reporting.
type LogType string

const (
	LogInventory          LogType = "inventory"
	LogProcess            LogType = "process"
	LogAccount            LogType = "account"
	LogEquipmentDeduction LogType = "equipment_deduction"
	LogEquipmentAlert     LogType = "equipment_alert"
	LogWeather            LogType = "weather"
	LogWeatherAlert       LogType = "weather_alert"
)

// Severity grades an entry.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Entry is an append-only audit record. Quantities and changed fields are
// stored as structured columns so downstream reads never parse messages.
type Entry struct {
	ID               int64     `json:"id"`
	LogType          LogType   `json:"log_type"`
	Severity         Severity  `json:"severity"`
	Message          string    `json:"message"`
	BatchID          int64     `json:"batch_id,omitempty"`
	EquipmentTypeID  int64     `json:"equipment_type_id,omitempty"`
	ProcessID        int64     `json:"process_id,omitempty"`
	ActorID          int64     `json:"actor_id,omitempty"`
	QuantityDeducted int       `json:"quantity_deducted,omitempty"`
	ChangedFields    []string  `json:"changed_fields,omitempty"`
	At               time.Time `json:"at"`
}

// TimelineFilters limits a timeline read.
type TimelineFilters struct {
	Types    []LogType
	Severity Severity
	BatchID  int64
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

var validTypes = map[LogType]struct{}{
	LogInventory:          {},
	LogProcess:            {},
	LogAccount:            {},
	LogEquipmentDeduction: {},
	LogEquipmentAlert:     {},
	LogWeather:            {},
	LogWeatherAlert:       {},
}

// ValidType reports whether t is a known log type.
func ValidType(t LogType) bool {
	_, ok := validTypes[t]
	return ok
}

// ErrUnknownLogType indicates an entry with an unlisted type.
var ErrUnknownLogType = errors.New("auditlog: unknown log type")
