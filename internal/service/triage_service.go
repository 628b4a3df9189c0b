package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/domain"
	"github.com/spec-kit/gearguard/internal/events"
	"github.com/spec-kit/gearguard/internal/observability"
	"github.com/spec-kit/gearguard/internal/repository"
	"github.com/spec-kit/gearguard/internal/risk"
	"github.com/spec-kit/gearguard/internal/triage"
	"github.com/spec-kit/gearguard/pkg/util"
)

// PredictedFailureSubject is the subject of every AI-created request.
const PredictedFailureSubject = "AI predicted failure"

// ScanResult summarizes one AI scan.
type ScanResult struct {
	Message        string
	TicketsCreated int
	Skipped        int
}

// TriageService turns predictor anomalies into predictive requests.
type TriageService struct {
	equipment   repository.EquipmentRepository
	requests    repository.RequestRepository
	predictions repository.PredictionRepository
	lifecycle   *RequestService
	predictor   triage.Predictor
	explainer   triage.Explainer
	locker      triage.Locker
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// TriageDependencies bundles collaborators for TriageService.
type TriageDependencies struct {
	Repos      *repository.Repositories
	Requests   *RequestService
	Predictor  triage.Predictor
	Explainer  triage.Explainer
	Locker     triage.Locker
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTriageService constructs the service. A nil Locker or Explainer falls
// back to the in-process lock and the template explainer.
func NewTriageService(deps TriageDependencies) *TriageService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = &triage.LocalLocker{}
	}
	explainer := deps.Explainer
	if explainer == nil {
		explainer = triage.TemplateExplainer{}
	}
	return &TriageService{
		equipment:   deps.Repos.Equipment,
		requests:    deps.Repos.Requests,
		predictions: deps.Repos.Predictions,
		lifecycle:   deps.Requests,
		predictor:   deps.Predictor,
		explainer:   explainer,
		locker:      locker,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger.Named("triage"),
	}
}

// Scan runs one full triage pass. Only one scan runs at a time.
func (s *TriageService) Scan(ctx context.Context, caller domain.Caller) (*ScanResult, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}

	release, err := s.locker.Acquire(ctx)
	if errors.Is(err, triage.ErrScanRunning) {
		return nil, util.NewConflict("scan already running", nil)
	}
	if err != nil {
		return nil, util.NewInternalError(fmt.Errorf("acquire scan lock: %w", err))
	}
	defer release()

	readings, err := s.predictor.Predict(ctx)
	if err != nil {
		s.logger.Error("predictor unavailable", zap.Error(err))
		return nil, util.NewInternalError(fmt.Errorf("predictor unavailable: %w", err))
	}

	result := &ScanResult{Message: "AI scan completed"}
	for _, reading := range readings {
		created, err := s.triageOne(ctx, reading)
		switch {
		case err != nil:
			s.logger.Warn("scan item skipped",
				zap.String("equipment_id", reading.EquipmentID),
				zap.Error(err))
			result.Skipped++
		case created:
			result.TicketsCreated++
		default:
			result.Skipped++
		}
	}

	s.metrics.RecordScan(result.TicketsCreated, result.Skipped)
	s.logger.Info("scan completed",
		zap.Int("readings", len(readings)),
		zap.Int("tickets_created", result.TicketsCreated),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// triageOne reports whether a new request was opened for the reading.
func (s *TriageService) triageOne(ctx context.Context, reading triage.Reading) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	eq, err := s.equipment.GetByID(ctx, reading.EquipmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load equipment: %w", err)
	}

	score := risk.Score(reading.Risk())
	priority := risk.PriorityFor(score)
	if err := s.equipment.UpdateRiskScore(ctx, eq.ID, score); err != nil {
		return false, fmt.Errorf("update risk score: %w", err)
	}

	corrective := domain.RequestTypeCorrective
	failures, err := s.requests.List(ctx, repository.RequestFilter{
		Type:        &corrective,
		EquipmentID: &eq.ID,
		Limit:       triage.HistoryLimit,
	})
	if err != nil {
		return false, fmt.Errorf("load failure history: %w", err)
	}

	explanation, err := s.explainer.Explain(ctx, reading, triage.FormatHistory(failures))
	if err != nil {
		return false, fmt.Errorf("explain: %w", err)
	}

	prediction := &domain.Prediction{
		EquipmentID: eq.ID,
		Temperature: reading.Temperature,
		Vibration:   reading.Vibration,
		Power:       reading.Power,
		Runtime:     reading.Runtime,
		Anomaly:     true,
		RiskScore:   score,
		Priority:    priority,
		Explanation: explanation,
	}
	if err := s.predictions.Create(ctx, prediction); err != nil {
		return false, fmt.Errorf("store prediction: %w", err)
	}
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type: events.EventPredictionRecorded,
		Payload: events.PredictionRecordedPayload{
			PredictionID: prediction.ID,
			EquipmentID:  eq.ID,
			RiskScore:    score,
			Priority:     priority,
		},
	})

	open, err := s.requests.FindOpenPredictive(ctx, eq.ID)
	if err != nil {
		return false, fmt.Errorf("check open predictive request: %w", err)
	}
	if open != nil {
		return false, nil
	}

	_, err = s.lifecycle.Create(ctx, domain.SystemCaller(), CreateRequestInput{
		Subject:       PredictedFailureSubject,
		Type:          domain.RequestTypePredictive,
		EquipmentID:   eq.ID,
		Priority:      priority,
		AIExplanation: &explanation,
	})
	if err != nil {
		return false, fmt.Errorf("create predictive request: %w", err)
	}
	return true, nil
}
