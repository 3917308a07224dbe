package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/dto"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// DetectionHandler exposes on-demand fault pattern checks.
type DetectionHandler struct {
	detector   *service.FaultDetector
	thresholds service.DetectorThresholds
}

// NewDetectionHandler constructs handler.
func NewDetectionHandler(detector *service.FaultDetector, thresholds service.DetectorThresholds) *DetectionHandler {
	return &DetectionHandler{detector: detector, thresholds: thresholds}
}

// Check POST /detection/check.
func (h *DetectionHandler) Check(c *fiber.Ctx) error {
	var req dto.DetectionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	threshold := h.defaultThreshold(req.ScopeType)
	if req.Threshold != nil && *req.Threshold > 0 {
		threshold = *req.Threshold
	}
	windowDays := h.thresholds.TimeWindowDays
	if req.TimeWindowDays != nil && *req.TimeWindowDays > 0 {
		windowDays = *req.TimeWindowDays
	}

	result, err := h.detector.Detect(c.UserContext(), service.DetectionInput{
		ScopeType:      req.ScopeType,
		ScopeValue:     req.ScopeValue,
		TimeWindowDays: windowDays,
		Threshold:      threshold,
		ProjectID:      req.ProjectID,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": detectionResponse(result)})
}

func (h *DetectionHandler) defaultThreshold(scopeType domain.ScopeType) int {
	switch scopeType {
	case domain.ScopePole:
		return h.thresholds.Pole
	case domain.ScopePON:
		return h.thresholds.PON
	case domain.ScopeZone:
		return h.thresholds.Zone
	case domain.ScopeDR:
		return h.thresholds.DR
	}
	return 0
}

func detectionResponse(result *domain.DetectionResult) dto.DetectionResponse {
	contributing := make([]dto.ContributingTicketResponse, 0, len(result.ContributingTickets))
	for _, t := range result.ContributingTickets {
		contributing = append(contributing, dto.ContributingTicketResponse{
			TicketID:   t.TicketID,
			TicketUID:  t.TicketUID,
			CreatedAt:  t.CreatedAt,
			FaultCause: t.FaultCause,
			Status:     t.Status,
		})
	}
	return dto.DetectionResponse{
		PatternDetected:      result.PatternDetected,
		ScopeType:            result.ScopeType,
		ScopeValue:           result.ScopeValue,
		FaultCount:           result.FaultCount,
		Threshold:            result.Threshold,
		ContributingTickets:  contributing,
		ShouldEscalate:       result.ShouldEscalate,
		ExistingEscalationID: result.ExistingEscalationID,
		Recommendation:       result.Recommendation,
	}
}
