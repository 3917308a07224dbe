package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/internal/events"
)

// NotificationService notifies field-ops channels about escalation activity.
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
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventEscalationCreated, n.handleEscalationCreated)
	n.dispatcher.Subscribe(events.EventEscalationResolved, n.handleEscalationResolved)
	n.dispatcher.Subscribe(events.EventTicketSLAPaused, n.handleSLAPaused)
}

func (n *NotificationService) handleEscalationCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationCreatedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("EscalationCreated",
		zap.String("escalation_id", payload.EscalationID),
		zap.String("scope_type", string(payload.ScopeType)),
		zap.String("scope_value", payload.ScopeValue),
		zap.Int("fault_count", payload.FaultCount))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleEscalationResolved(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.EscalationResolvedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("EscalationResolved",
		zap.String("escalation_id", payload.EscalationID),
		zap.String("status", string(payload.Status)),
		zap.String("resolved_by", payload.ResolvedBy))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleSLAPaused(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketSLAPausedPayload)
	if !ok {
		return nil
	}
	n.logger.Info("TicketSLAPaused",
		zap.String("ticket_id", payload.TicketID),
		zap.Time("paused_at", payload.PausedAt))
	return nil
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
