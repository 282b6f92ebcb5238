package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"ledgerlens/internal/domain"
	"ledgerlens/internal/port"
)

// registryDateLayout is the DD/MM/YYYY format registration dates arrive in.
const registryDateLayout = "02/01/2006"

// Service verifies vendor tax IDs against the registry, caching every
// successful lookup so each tax ID costs at most one CAPTCHA round-trip.
// Registry outcomes are propagated to the invoices carrying the tax ID.
type Service struct {
	cache    port.VerificationCacheRepository
	invoices port.InvoiceRepository
	registry port.RegistryClient
}

// NewService creates a verification service.
func NewService(cache port.VerificationCacheRepository, invoices port.InvoiceRepository, registry port.RegistryClient) *Service {
	return &Service{cache: cache, invoices: invoices, registry: registry}
}

// Lookup returns the cached registry record for a tax ID, or
// domain.ErrCacheMiss when it has never been verified.
func (s *Service) Lookup(ctx context.Context, taxID string) (*domain.CacheEntry, error) {
	if len(taxID) != 15 {
		return nil, domain.ErrInvalidTaxID
	}
	entry, err := s.cache.Lookup(ctx, taxID)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("verificationService.Lookup: %w", err)
	}
	return entry, nil
}

// Challenge fetches a CAPTCHA challenge for the operator to solve.
func (s *Service) Challenge(ctx context.Context) (*port.RegistryChallenge, error) {
	challenge, err := s.registry.GetChallenge(ctx)
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// Verify submits a solved CAPTCHA for a tax ID and stores the registry's
// answer in the cache, refreshing any previous record for the same ID.
func (s *Service) Verify(ctx context.Context, sessionID, taxID, answer string) (*domain.CacheEntry, error) {
	if len(taxID) != 15 {
		return nil, domain.ErrInvalidTaxID
	}

	payload, err := s.registry.SubmitAnswer(ctx, sessionID, taxID, answer)
	if err != nil {
		if errors.Is(err, domain.ErrRegistryRejected) {
			s.stampInvoices(ctx, taxID, domain.VerificationStatusFailed)
		}
		return nil, err
	}

	entry := &domain.CacheEntry{
		TaxID:          taxID,
		LegalName:      payload.LegalName,
		TradeName:      payload.TradeName,
		RegistryStatus: payload.Status,
		Constitution:   payload.Constitution,
		Address:        payload.Address,
	}
	if payload.RegistrationDate != "" {
		parsed, parseErr := time.Parse(registryDateLayout, payload.RegistrationDate)
		if parseErr != nil {
			log.Warnf("verificationService: unparseable registration date %q for %s", payload.RegistrationDate, taxID)
		} else {
			entry.RegistrationDate = &parsed
		}
	}

	if err := s.cache.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("verificationService.Verify: %w", err)
	}
	s.stampInvoices(ctx, taxID, domain.VerificationStatusVerified)

	log.Printf("verificationService: verified tax ID %s (%s)", taxID, payload.Status)
	return entry, nil
}

// stampInvoices propagates a registry outcome to every invoice from the
// vendor. A failure here is logged, not returned: the cache entry is already
// the source of truth and future invoices pick the status up from it.
func (s *Service) stampInvoices(ctx context.Context, taxID string, status domain.VerificationStatus) {
	n, err := s.invoices.SetVerificationByVendor(ctx, taxID, status)
	if err != nil {
		log.Errorf("verificationService: updating invoices for %s: %v", taxID, err)
		return
	}
	if n > 0 {
		log.Printf("verificationService: marked %d invoice(s) for %s as %s", n, taxID, status)
	}
}

// List returns cached registry records, optionally filtered by a search term
// matched against tax ID and names.
func (s *Service) List(ctx context.Context, search string) ([]domain.CacheEntry, error) {
	entries, err := s.cache.List(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("verificationService.List: %w", err)
	}
	return entries, nil
}
