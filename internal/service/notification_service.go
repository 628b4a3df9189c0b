package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/gearguard/internal/config"
	"github.com/spec-kit/gearguard/internal/events"
)

// NotificationService turns domain events into outbound notifications.
// Delivery channels are stubs that log what would be sent.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("notifications"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestAssigned, n.handleRequestAssigned)
	n.dispatcher.Subscribe(events.EventRequestReassigned, n.handleRequestAssigned)
	n.dispatcher.Subscribe(events.EventRequestClosed, n.handleRequestClosed)
	n.dispatcher.Subscribe(events.EventPredictionRecorded, n.handlePredictionRecorded)
}

func (n *NotificationService) handleRequestCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestCreated", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// handleRequestAssigned emails the technician who now owns the request.
func (n *NotificationService) handleRequestAssigned(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.RequestAssignedPayload)
	n.logger.Info("RequestAssigned",
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)),
		zap.String("assigned_to", payload.AssignedTo),
		zap.Stringp("previous_user_id", payload.PreviousUserID))
	n.sendEmailNotificationStub(ctx, event, payload.AssignedTo)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleRequestClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("RequestClosed", zap.String("request_id", event.RequestID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePredictionRecorded(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.PredictionRecordedPayload)
	n.logger.Info("PredictionRecorded",
		zap.String("equipment_id", payload.EquipmentID),
		zap.Float64("risk_score", payload.RiskScore),
		zap.String("priority", string(payload.Priority)))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event, recipientID string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || recipientID == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("recipient_id", recipientID),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("request_id", event.RequestID),
		zap.String("event_type", string(event.Type)))
}
