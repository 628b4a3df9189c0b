// Package triage holds the external collaborators of an AI scan: the anomaly
// predictor, the failure explainer and the cluster-wide scan lock.
package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/gearguard/internal/risk"
)

// Reading is one anomalous row reported by the predictor.
type Reading struct {
	EquipmentID string  `json:"equipment"`
	Temperature float64 `json:"temperature"`
	Vibration   float64 `json:"vibration"`
	Power       float64 `json:"power"`
	Runtime     float64 `json:"runtime"`
}

// Risk converts the reading into heuristic input.
func (r Reading) Risk() risk.Reading {
	return risk.Reading{
		Temperature: r.Temperature,
		Vibration:   r.Vibration,
		Power:       r.Power,
		Runtime:     r.Runtime,
	}
}

// Predictor returns the readings the anomaly model flagged.
type Predictor interface {
	Predict(ctx context.Context) ([]Reading, error)
}

// HTTPPredictor calls GET {baseURL}/predict.
type HTTPPredictor struct {
	baseURL string
	timeout time.Duration
}

// NewHTTPPredictor builds a predictor client. timeout bounds each call.
func NewHTTPPredictor(baseURL string, timeout time.Duration) *HTTPPredictor {
	return &HTTPPredictor{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// Predict fetches flagged readings. The predictor answers with an object
// instead of an array when it has no sensor data; that yields no readings.
func (p *HTTPPredictor) Predict(ctx context.Context) ([]Reading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}

	agent := fiber.Get(p.baseURL + "/predict")
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	if err := agent.Parse(); err != nil {
		return nil, fmt.Errorf("predictor request: %w", err)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("predictor request: %w", errors.Join(errs...))
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, fmt.Errorf("predictor responded with status %d", code)
	}
	return decodeReadings(body)
}

func decodeReadings(body []byte) ([]Reading, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var readings []Reading
	if err := json.Unmarshal(trimmed, &readings); err != nil {
		return nil, fmt.Errorf("decode predictor response: %w", err)
	}
	return readings, nil
}
