package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/events"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// EscalationWorker reacts to ticket creation by running the fault pattern
// detector and opening escalations with their infrastructure tickets.
// Detection failures are logged and never fail ticket intake.
type EscalationWorker struct {
	detector    *service.FaultDetector
	escalations *service.EscalationService
	thresholds  service.DetectorThresholds
	logger      *zap.Logger
}

// NewEscalationWorker constructs the worker.
func NewEscalationWorker(detector *service.FaultDetector, escalations *service.EscalationService, thresholds service.DetectorThresholds, logger *zap.Logger) *EscalationWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationWorker{
		detector:    detector,
		escalations: escalations,
		thresholds:  thresholds,
		logger:      logger,
	}
}

// Register subscribes the worker to ticket creation events.
func (w *EscalationWorker) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketCreated, w.handleTicketCreated)
}

func (w *EscalationWorker) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		w.logger.Warn("unexpected payload type for ticket_created event")
		return nil
	}

	results := w.detector.CheckMultiplePatterns(ctx, service.MultiScopeInput{
		PoleNumber: payload.PoleNumber,
		PONNumber:  payload.PONNumber,
		ZoneID:     payload.ZoneID,
		DRNumber:   payload.DRNumber,
		ProjectID:  payload.ProjectID,
	}, w.thresholds)

	for _, result := range results {
		escalation, err := w.escalations.CreateEscalation(ctx, service.CreateEscalationInput{
			ScopeType:           result.ScopeType,
			ScopeValue:          result.ScopeValue,
			ProjectID:           payload.ProjectID,
			FaultThreshold:      result.Threshold,
			ContributingTickets: result.TicketIDs(),
		})
		if err != nil {
			// A concurrent create may have won the scope; fold this ticket
			// into the existing escalation instead.
			if errorutil.IsCode(err, errorutil.CodeDuplicateEscalation) {
				w.linkIntoExisting(ctx, result.ScopeType, result.ScopeValue, payload.TicketID)
				continue
			}
			w.logger.Error("escalation creation failed",
				zap.String("scope_type", string(result.ScopeType)),
				zap.String("scope_value", result.ScopeValue),
				zap.Error(err))
			continue
		}

		if _, _, err := w.escalations.CreateInfrastructureTicket(ctx, escalation.ID, nil); err != nil {
			w.logger.Error("infrastructure ticket creation failed",
				zap.String("escalation_id", escalation.ID),
				zap.Error(err))
		}
	}
	return nil
}

func (w *EscalationWorker) linkIntoExisting(ctx context.Context, scopeType domain.ScopeType, scopeValue, ticketID string) {
	existing, err := w.escalations.CheckForDuplicateEscalation(ctx, scopeType, scopeValue)
	if err != nil || existing == nil {
		w.logger.Warn("could not locate existing escalation for scope",
			zap.String("scope_type", string(scopeType)),
			zap.String("scope_value", scopeValue),
			zap.Error(err))
		return
	}
	if _, err := w.escalations.LinkContributingTickets(ctx, existing.ID, []string{ticketID}); err != nil {
		w.logger.Warn("linking ticket into existing escalation failed",
			zap.String("escalation_id", existing.ID),
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}
