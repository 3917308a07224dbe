package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldops/fault-ticket-service/internal/cache"
	"github.com/fieldops/fault-ticket-service/internal/domain"
	"github.com/fieldops/fault-ticket-service/internal/repository"
)

// DRLookupService resolves drop metadata by DR number, caching results so
// repeated ticket intake on the same drop avoids storage round trips.
type DRLookupService struct {
	drops  repository.DropRepository
	cache  cache.DRCache
	logger *zap.Logger
}

// NewDRLookupService constructs the lookup service. A nil cache disables caching.
func NewDRLookupService(drops repository.DropRepository, drCache cache.DRCache, logger *zap.Logger) *DRLookupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DRLookupService{drops: drops, cache: drCache, logger: logger}
}

// NormalizeDRNumber canonicalizes field-entered DR numbers: whitespace is
// trimmed, casing is upper, and a bare numeric entry gains the DR prefix.
func NormalizeDRNumber(raw string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "DR") {
		return trimmed
	}

	var digits strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return trimmed
	}
	return "DR" + digits.String()
}

// Lookup resolves drop metadata for a DR number, cache first. A miss in both
// cache and storage returns nil without error.
func (s *DRLookupService) Lookup(ctx context.Context, drNumber string) (*domain.DropRecord, error) {
	normalized := NormalizeDRNumber(drNumber)
	if normalized == "" {
		return nil, nil
	}

	if s.cache != nil {
		if record, ok := s.cache.Get(ctx, normalized); ok {
			return record, nil
		}
	}

	record, err := s.drops.GetByDropNumber(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if record == nil {
		s.logger.Debug("drop not found", zap.String("dr_number", normalized))
		return nil, nil
	}

	if s.cache != nil {
		s.cache.Set(ctx, normalized, record)
	}
	return record, nil
}

// ClearCache drops all cached lookups, e.g. after a drops data import.
func (s *DRLookupService) ClearCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.Clear(ctx)
	}
}
