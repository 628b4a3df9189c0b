package domain

import "time"

// Prediction is a telemetry snapshot recorded by an AI scan. Never mutated.
type Prediction struct {
	ID          string
	EquipmentID string
	Temperature float64
	Vibration   float64
	Power       float64
	Runtime     float64
	Anomaly     bool
	RiskScore   float64
	Priority    RequestPriority
	Explanation string
	CreatedAt   time.Time
}

// SensorLog is a raw reading posted by equipment telemetry.
type SensorLog struct {
	ID           string
	EquipmentID  string
	Temperature  float64
	Vibration    float64
	PowerUsage   float64
	RuntimeHours float64
	Timestamp    time.Time
}
