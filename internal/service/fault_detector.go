package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/config"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/observability"
	"github.com/fieldops/fault-ticket-service/internal/repository"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// DetectorThresholds carries per-scope fault thresholds and the shared window.
type DetectorThresholds struct {
	Pole           int
	PON            int
	Zone           int
	DR             int
	TimeWindowDays int
}

// ThresholdsFromConfig maps the detection config section.
func ThresholdsFromConfig(cfg config.DetectionConfig) DetectorThresholds {
	return DetectorThresholds{
		Pole:           cfg.PoleThreshold,
		PON:            cfg.PONThreshold,
		Zone:           cfg.ZoneThreshold,
		DR:             cfg.DRThreshold,
		TimeWindowDays: cfg.TimeWindowDays,
	}
}

// DetectionInput describes a single-scope pattern check.
type DetectionInput struct {
	ScopeType      domain.ScopeType
	ScopeValue     string
	TimeWindowDays int
	Threshold      int
	ProjectID      *string
}

// MultiScopeInput carries the scope fields of one ticket for a combined check.
type MultiScopeInput struct {
	PoleNumber *string
	PONNumber  *string
	ZoneID     *string
	DRNumber   *string
	ProjectID  *string
}

// FaultDetector clusters fault tickets per infrastructure scope and decides
// whether the cluster warrants an escalation.
type FaultDetector struct {
	tickets     repository.TicketRepository
	escalations repository.EscalationRepository
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

// DetectorDependencies bundles collaborators for the detector.
type DetectorDependencies struct {
	TicketRepo     repository.TicketRepository
	EscalationRepo repository.EscalationRepository
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// NewFaultDetector constructs the detector.
func NewFaultDetector(deps DetectorDependencies) *FaultDetector {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FaultDetector{
		tickets:     deps.TicketRepo,
		escalations: deps.EscalationRepo,
		logger:      logger,
		metrics:     deps.Metrics,
		now:         time.Now,
	}
}

// Detect runs a single-scope pattern check. An empty scope value is a no-op
// that reports nothing detected; data-access failures propagate to the caller.
func (d *FaultDetector) Detect(ctx context.Context, input DetectionInput) (*domain.DetectionResult, error) {
	if !input.ScopeType.Valid() {
		return nil, errorutil.NewValidationError("invalid scope_type", map[string]any{"scope_type": input.ScopeType})
	}

	scopeValue := strings.TrimSpace(input.ScopeValue)
	if scopeValue == "" {
		return &domain.DetectionResult{
			ScopeType:      input.ScopeType,
			ScopeValue:     input.ScopeValue,
			Threshold:      input.Threshold,
			Recommendation: "No scope value provided",
		}, nil
	}

	query := repository.ScopeQuery{
		ScopeType:  input.ScopeType,
		ScopeValue: scopeValue,
		ProjectID:  input.ProjectID,
	}
	if input.TimeWindowDays > 0 {
		query.Since = d.now().AddDate(0, 0, -input.TimeWindowDays)
	}

	tickets, err := d.tickets.ListByScope(ctx, query)
	if err != nil {
		return nil, err
	}

	contributing := make([]domain.ContributingTicket, 0, len(tickets))
	for _, ticket := range tickets {
		contributing = append(contributing, domain.ContributingTicket{
			TicketID:   ticket.ID,
			TicketUID:  ticket.UID,
			CreatedAt:  ticket.CreatedAt,
			FaultCause: ticket.FaultCause,
			Status:     ticket.Status,
		})
	}

	faultCount := len(contributing)
	patternDetected := faultCount >= input.Threshold

	existing, err := d.escalations.FindActiveByScope(ctx, input.ScopeType, scopeValue)
	if err != nil {
		return nil, err
	}

	result := &domain.DetectionResult{
		PatternDetected:     patternDetected,
		ScopeType:           input.ScopeType,
		ScopeValue:          scopeValue,
		FaultCount:          faultCount,
		Threshold:           input.Threshold,
		ContributingTickets: contributing,
		ShouldEscalate:      patternDetected && existing == nil,
	}
	if existing != nil {
		id := existing.ID
		result.ExistingEscalationID = &id
	}
	result.Recommendation = recommendation(result)

	d.metrics.RecordDetection(string(input.ScopeType), result.ShouldEscalate)
	return result, nil
}

// CheckMultiplePatterns runs the single-scope detection concurrently for each
// scope present on a ticket and returns only the results that should escalate.
// A failure on one scope never aborts the others.
func (d *FaultDetector) CheckMultiplePatterns(ctx context.Context, input MultiScopeInput, thresholds DetectorThresholds) []domain.DetectionResult {
	type check struct {
		scopeType domain.ScopeType
		value     *string
		threshold int
	}
	checks := []check{
		{domain.ScopePole, input.PoleNumber, thresholds.Pole},
		{domain.ScopePON, input.PONNumber, thresholds.PON},
		{domain.ScopeZone, input.ZoneID, thresholds.Zone},
		{domain.ScopeDR, input.DRNumber, thresholds.DR},
	}

	results := make([]*domain.DetectionResult, len(checks))
	var wg sync.WaitGroup
	for i, c := range checks {
		if c.value == nil || strings.TrimSpace(*c.value) == "" {
			continue
		}
		wg.Add(1)
		go func(slot int, c check) {
			defer wg.Done()
			result, err := d.Detect(ctx, DetectionInput{
				ScopeType:      c.scopeType,
				ScopeValue:     *c.value,
				TimeWindowDays: thresholds.TimeWindowDays,
				Threshold:      c.threshold,
				ProjectID:      input.ProjectID,
			})
			if err != nil {
				d.logger.Warn("scope detection failed",
					zap.String("scope_type", string(c.scopeType)),
					zap.String("scope_value", *c.value),
					zap.Error(err))
				return
			}
			results[slot] = result
		}(i, c)
	}
	wg.Wait()

	escalatable := make([]domain.DetectionResult, 0, len(checks))
	for _, result := range results {
		if result != nil && result.ShouldEscalate {
			escalatable = append(escalatable, *result)
		}
	}
	return escalatable
}

func recommendation(result *domain.DetectionResult) string {
	if !result.PatternDetected {
		return fmt.Sprintf("Monitor: %d fault(s) on %s %s (threshold: %d). Continue monitoring.",
			result.FaultCount, result.ScopeType, result.ScopeValue, result.Threshold)
	}
	if result.ExistingEscalationID != nil {
		return fmt.Sprintf("Pattern detected: %d fault(s) on %s %s, but an active escalation already exists. Update existing escalation instead of creating new one.",
			result.FaultCount, result.ScopeType, result.ScopeValue)
	}

	switch result.ScopeType {
	case domain.ScopePole:
		return fmt.Sprintf("ESCALATE: %d faults detected on pole %s (threshold: %d). Create infrastructure-level ticket to investigate pole stability and replace if necessary.",
			result.FaultCount, result.ScopeValue, result.Threshold)
	case domain.ScopePON:
		return fmt.Sprintf("ESCALATE: %d faults detected on PON %s (threshold: %d). Create PON investigation ticket to check splitter, fiber path, and OLT port.",
			result.FaultCount, result.ScopeValue, result.Threshold)
	case domain.ScopeZone:
		return fmt.Sprintf("ESCALATE: %d faults detected in zone %s (threshold: %d). Trigger zone-wide inspection to identify systemic issues.",
			result.FaultCount, result.ScopeValue, result.Threshold)
	case domain.ScopeDR:
		return fmt.Sprintf("ESCALATE: %d faults detected on DR %s (threshold: %d). Investigate DR-specific issues including equipment and installation quality.",
			result.FaultCount, result.ScopeValue, result.Threshold)
	}
	return fmt.Sprintf("ESCALATE: %d faults detected on %s %s (threshold: %d). Investigation required.",
		result.FaultCount, result.ScopeType, result.ScopeValue, result.Threshold)
}
