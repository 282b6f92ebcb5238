package linking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// Service records duplicate relationships between invoices. A duplicate
// points at exactly one original; an original can have many duplicates.
type Service struct {
	invoices port.InvoiceRepository
	links    port.DuplicateLinkRepository
}

// NewService creates a duplicate-linking service.
func NewService(invoices port.InvoiceRepository, links port.DuplicateLinkRepository) *Service {
	return &Service{invoices: invoices, links: links}
}

// Link records that duplicate is a copy of original. If the original has
// already been verified, that status carries over to the duplicate so it is
// not re-verified against the registry. Linking an already-linked duplicate
// is a no-op.
func (s *Service) Link(ctx context.Context, duplicateID, originalID uuid.UUID) error {
	if duplicateID == originalID {
		return domain.ErrSelfLink
	}

	original, err := s.invoices.GetByID(ctx, originalID)
	if err != nil {
		return fmt.Errorf("linkingService.Link: %w", err)
	}
	duplicate, err := s.invoices.GetByID(ctx, duplicateID)
	if err != nil {
		return fmt.Errorf("linkingService.Link: %w", err)
	}

	err = s.links.Create(ctx, &domain.DuplicateLink{
		DuplicateID: duplicateID,
		OriginalID:  originalID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyLinked) {
			log.Printf("linkingService: invoice %s already linked, skipping", duplicateID)
			return nil
		}
		return fmt.Errorf("linkingService.Link: %w", err)
	}

	if original.VerificationStatus == domain.VerificationStatusVerified &&
		duplicate.VerificationStatus != domain.VerificationStatusVerified {
		duplicate.VerificationStatus = domain.VerificationStatusVerified
		if err := s.invoices.Update(ctx, duplicate); err != nil {
			return fmt.Errorf("linkingService.Link: propagating verification: %w", err)
		}
	}

	log.Printf("linkingService: linked duplicate %s to original %s", duplicateID, originalID)
	return nil
}

// IsDuplicate reports whether the invoice has been linked as a duplicate.
func (s *Service) IsDuplicate(ctx context.Context, invoiceID uuid.UUID) (bool, error) {
	_, err := s.links.GetByDuplicate(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("linkingService.IsDuplicate: %w", err)
	}
	return true, nil
}

// Original returns the original invoice a duplicate points at, or
// domain.ErrNotFound when the invoice is not linked.
func (s *Service) Original(ctx context.Context, duplicateID uuid.UUID) (*domain.Invoice, error) {
	link, err := s.links.GetByDuplicate(ctx, duplicateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("linkingService.Original: %w", err)
	}

	original, err := s.invoices.GetByID(ctx, link.OriginalID)
	if err != nil {
		return nil, fmt.Errorf("linkingService.Original: %w", err)
	}
	return original, nil
}

// Duplicates lists the links recorded against an original invoice.
func (s *Service) Duplicates(ctx context.Context, originalID uuid.UUID) ([]domain.DuplicateLink, error) {
	links, err := s.links.ListByOriginal(ctx, originalID)
	if err != nil {
		return nil, fmt.Errorf("linkingService.Duplicates: %w", err)
	}
	return links, nil
}
