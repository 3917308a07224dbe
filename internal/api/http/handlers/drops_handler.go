package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/fault-ticket-service/internal/api/dto"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/service"
	"github.com/fieldops/fault-ticket-service/pkg/errorutil"
)

// DropsHandler exposes DR metadata lookups.
type DropsHandler struct {
	lookup *service.DRLookupService
}

// NewDropsHandler constructs handler.
func NewDropsHandler(lookup *service.DRLookupService) *DropsHandler {
	return &DropsHandler{lookup: lookup}
}

// GetDrop GET /drops/:dr_number.
func (h *DropsHandler) GetDrop(c *fiber.Ctx) error {
	record, err := h.lookup.Lookup(c.UserContext(), c.Params("dr_number"))
	if err != nil {
		return err
	}
	if record == nil {
		return errorutil.NewNotFound("drop", fiber.Map{"dr_number": c.Params("dr_number")})
	}
	return c.JSON(fiber.Map{"data": dropResponse(record)})
}

// ClearCache DELETE /drops/cache.
func (h *DropsHandler) ClearCache(c *fiber.Ctx) error {
	h.lookup.ClearCache(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"cleared": true}})
}

func dropResponse(record *domain.DropRecord) dto.DropResponse {
	return dto.DropResponse{
		DropNumber:  record.DropNumber,
		ProjectID:   record.ProjectID,
		ProjectName: record.ProjectName,
		PoleNumber:  record.PoleNumber,
		PONNumber:   record.PONNumber,
		ZoneID:      record.ZoneID,
		Address:     record.Address,
		Latitude:    record.Latitude,
		Longitude:   record.Longitude,
		Contractor:  record.Contractor,
		Status:      record.Status,
	}
}
